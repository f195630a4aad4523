package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/hwcensus/pnpcensus/internal/census"
	"github.com/hwcensus/pnpcensus/internal/config"
	"github.com/hwcensus/pnpcensus/internal/inventory"
	"github.com/hwcensus/pnpcensus/internal/probe"
	"github.com/hwcensus/pnpcensus/internal/resolve"
	"github.com/hwcensus/pnpcensus/internal/synthid"
	"github.com/hwcensus/pnpcensus/internal/sysfs"
	"github.com/hwcensus/pnpcensus/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		return
	}

	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	if cfg.GetBool("log.debug") {
		if dev, err := zap.NewDevelopment(); err == nil {
			logger = dev
		}
	}
	defer logger.Sync()

	// Classifier, optionally extended with site-specific placeholder IDs.
	table := synthid.NewTable()
	if path := cfg.GetString("classifier.extra_table"); path != "" {
		if err := table.Extend(path); err != nil {
			logger.Fatal("failed to load extra synthetic ID table", zap.Error(err))
		}
	}

	bus := sysfs.NewBus(cfg.GetString("pci.sysfs_root"), logger)
	source := sysfs.NewInterfaceSource(cfg.GetString("net.sysfs_root"), logger)
	scanner := probe.NewScanner(bus, bus, logger)

	// Handle-mediated lookup is a platform capability; its absence just
	// removes the first resolution strategy.
	var handles resolve.HandleResolver
	eth, err := resolve.NewEthtoolResolver()
	switch {
	case err == nil:
		defer eth.Close()
		handles = eth
	case errors.Is(err, resolve.ErrUnsupported):
		logger.Info("handle-mediated lookup not available on this platform")
	default:
		logger.Warn("handle-mediated lookup disabled", zap.Error(err))
	}

	resolver := resolve.New(scanner, table, bus, handles, nil, logger)
	runner := census.NewRunner(source, resolver, logger)

	records, err := runner.Run()
	if err != nil {
		logger.Fatal("census failed", zap.Error(err))
	}
	for _, rec := range records {
		fmt.Println(rec.PnPID)
	}

	if path := cfg.GetString("inventory.path"); path != "" {
		recordRun(logger, path, records)
	}
}

// recordRun persists the census to the configured inventory database.
func recordRun(logger *zap.Logger, path string, records []census.Record) {
	store, err := inventory.Open(path)
	if err != nil {
		logger.Fatal("failed to open inventory", zap.String("path", path), zap.Error(err))
	}
	defer store.Close()

	hostname, _ := os.Hostname()
	repo := inventory.NewRepository(store)
	runID, err := repo.RecordRun(context.Background(), hostname, records)
	if err != nil {
		logger.Fatal("failed to record census run", zap.Error(err))
	}
	logger.Info("census run recorded",
		zap.String("run_id", runID),
		zap.Int("records", len(records)))
}
