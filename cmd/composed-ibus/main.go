//go:build linux

// composed-ibus is the Linux IBus engine for composed.
//
// ibus-daemon starts it through the component file written by -install.
// Each input context gets its own engine object; keys are composed into
// words, accented letters or passed straight through, depending on the
// input mode chosen in the IBus panel.
//
// Installation:
//  1. composed-ibus -install
//  2. ibus restart
//  3. Add "Composed" in ibus-setup or the desktop's input source settings.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"composed/internal/composer"
	"composed/internal/config"
	"composed/internal/dict"
	"composed/internal/ibus"
	"composed/internal/ime"
	"composed/internal/logging"
	"composed/internal/metrics"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file")
	install := flag.Bool("install", false, "install the IBus component file and exit")
	uninstall := flag.Bool("uninstall", false, "remove the IBus component file and exit")
	flag.Bool("ibus", false, "set by ibus-daemon when it launches the engine")
	flag.Parse()

	loader := config.NewLoader(*configPath, nil)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	switch {
	case *install:
		err = installComponent(cfg)
	case *uninstall:
		err = ibus.Uninstall(cfg.IBus.ComponentPath)
		if err == nil {
			fmt.Println("Uninstalled", cfg.IBus.ComponentPath)
		}
	default:
		err = run(loader, cfg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func installComponent(cfg *config.Config) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	if abs, err := filepath.EvalSymlinks(exe); err == nil {
		exe = abs
	}

	c := ibus.Component{
		BusName:    cfg.IBus.BusName,
		EngineName: cfg.IBus.EngineName,
		Exec:       exe,
		Layout:     cfg.IBus.Layout,
		Version:    version,
	}
	if err := c.Install(cfg.IBus.ComponentPath); err != nil {
		return err
	}
	fmt.Println("Installed", cfg.IBus.ComponentPath)
	fmt.Println("Run 'ibus restart' to load the engine.")
	return nil
}

func run(loader *config.Loader, cfg *config.Config) error {
	logCfg, err := cfg.Logging.LoggerConfig("composed-ibus")
	if err != nil {
		return err
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logger.Close()
	logging.SetDefault(logger)

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	words, store, err := dict.Open(dict.Setup{
		WordList:      cfg.Dictionary.WordList,
		UserDB:        cfg.Dictionary.UserDB,
		FuzzyDistance: cfg.Dictionary.FuzzyDistance,
		Logger:        logger.Logger,
	})
	if err != nil {
		return err
	}
	var rec composer.Recorder
	if store != nil {
		defer store.Close()
		rec = store
	}

	// Fail early on a bad mode list rather than on the first CreateEngine.
	if _, err := composer.FromConfig(cfg, words, rec, logger.Logger); err != nil {
		return err
	}

	reg := metrics.Default()
	svcMetrics := metrics.NewServiceMetrics(reg)
	observer := ime.Observers{
		ime.NewLogObserver(logger.Logger),
		ime.NewMetricsObserver(reg),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := writePIDFile(cfg.IBus.PIDFile); err != nil {
		logger.Warn("could not write pid file", "path", cfg.IBus.PIDFile, "error", err)
	} else {
		defer os.Remove(cfg.IBus.PIDFile)
	}

	conn, err := ibus.Connect()
	if err != nil {
		return err
	}
	defer conn.Close()

	svc, err := ibus.Start(conn, cfg.IBus.BusName, ibus.Config{
		EngineName: cfg.IBus.EngineName,
		NewComposer: func() ime.Composer {
			current := loader.Config()
			sw, err := composer.FromConfig(current, words, rec, logger.Logger)
			if err != nil {
				logger.Error("composer config rejected, using startup config", "error", err)
				sw, _ = composer.FromConfig(cfg, words, rec, logger.Logger)
			}
			return sw
		},
		Observer: observer,
		Metrics:  svcMetrics,
		Logger:   logger.Logger,
	})
	if err != nil {
		return err
	}
	defer svc.Close()

	loader.OnChange(func(old, updated *config.Config) {
		if updated.Engine.DefaultMode != old.Engine.DefaultMode {
			if err := svc.SetMode(updated.Engine.DefaultMode); err != nil {
				logger.Warn("could not apply default mode", "mode", updated.Engine.DefaultMode, "error", err)
			}
		}
		if updated.IBus != old.IBus || updated.Logging != old.Logging || updated.Metrics != old.Metrics {
			logger.Warn("ibus, logging and metrics changes take effect after a restart")
		}
	})
	if err := loader.Watch(); err != nil {
		logger.Warn("config hot reload disabled", "error", err)
	}
	defer loader.Close()

	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Listen, reg, logger.Logger); err != nil {
				logger.Error("metrics endpoint stopped", "error", err)
			}
		}()
	}

	logger.Info("composed-ibus started", "version", version, "bus_name", cfg.IBus.BusName, "pid", os.Getpid())

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down", "engines", len(svc.Engines()))
			return nil
		case err := <-loader.Errors():
			logger.Warn("config watcher", "error", err)
		case <-ticker.C:
			svcMetrics.UpdateUptime()
		}
	}
}

func writePIDFile(path string) error {
	if path == "" {
		return errors.New("no pid file configured")
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o600)
}
