// Package synthid classifies PCI vendor/device pairs as synthetic
// placeholder identities substituted by firmware network abstractions and
// virtualization front-ends. Anything not in the table is assumed to be
// real hardware: a false positive would discard a valid direct reading,
// a false negative only costs a redundant bus scan.
package synthid

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed synthid_data.yaml
var baseData []byte

type pair struct {
	vendor uint16
	device uint16
}

type entry struct {
	Vendor uint16 `yaml:"vendor"`
	Device uint16 `yaml:"device"`
	Layer  string `yaml:"layer"`
}

type tableFile struct {
	Pairs []entry `yaml:"pairs"`
}

// Table maps known placeholder vendor/device pairs to the name of the
// abstraction layer that reports them.
type Table struct {
	once  sync.Once
	mu    sync.Mutex
	table map[pair]string
}

// NewTable creates a classifier backed by the embedded base table.
func NewTable() *Table {
	return &Table{}
}

// Lookup returns the name of the abstraction layer known to report the
// given vendor/device pair, or the empty string for real hardware.
func (t *Table) Lookup(vendor, device uint16) string {
	t.once.Do(t.load)
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.table[pair{vendor, device}]
}

// IsSynthetic reports whether the vendor/device pair is a known
// placeholder identity rather than real hardware.
func (t *Table) IsSynthetic(vendor, device uint16) bool {
	return t.Lookup(vendor, device) != ""
}

// Extend merges additional pairs from a YAML file of the same shape as the
// embedded table. Entries for pairs already present override the base
// layer name.
func (t *Table) Extend(path string) error {
	t.once.Do(t.load)

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read synthetic ID table %q: %w", path, err)
	}
	var tf tableFile
	if err := yaml.Unmarshal(raw, &tf); err != nil {
		return fmt.Errorf("parse synthetic ID table %q: %w", path, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range tf.Pairs {
		t.table[pair{e.Vendor, e.Device}] = e.Layer
	}
	return nil
}

// load parses the embedded base table.
func (t *Table) load() {
	var tf tableFile
	if err := yaml.Unmarshal(baseData, &tf); err != nil {
		// The embedded table ships with the binary; failing to parse it
		// is a build defect, not a runtime condition.
		panic("synthid: embedded table: " + err.Error())
	}
	t.table = make(map[pair]string, len(tf.Pairs))
	for _, e := range tf.Pairs {
		t.table[pair{e.Vendor, e.Device}] = e.Layer
	}
}
