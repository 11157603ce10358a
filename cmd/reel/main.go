package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/PizzaHomicide/reel/internal/binding"
	"github.com/PizzaHomicide/reel/internal/catalog"
	"github.com/PizzaHomicide/reel/internal/config"
	"github.com/PizzaHomicide/reel/internal/domain"
	"github.com/PizzaHomicide/reel/internal/log"
	"github.com/PizzaHomicide/reel/internal/looper"
	"github.com/PizzaHomicide/reel/internal/player"
	"github.com/PizzaHomicide/reel/internal/state"
	"github.com/PizzaHomicide/reel/internal/ui/tui"
	"github.com/PizzaHomicide/reel/internal/ui/tui/models"
	"github.com/PizzaHomicide/reel/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "print version information and exit")
	showEnvHelp := flag.Bool("env-help", false, "list the environment variables that override the config file and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetVersionInfo())
		return
	}
	if *showEnvHelp {
		fmt.Print(config.EnvHelp())
		return
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// It is unrecoverable if we cannot produce an application config
		_, _ = fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialise logger
	logger, err := log.New(log.Config{
		Level:    cfg.Logging.Level,
		FilePath: cfg.Logging.FilePath,
	})
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	// Set the default global logger
	log.SetDefaultLogger(logger)

	log.Info("Starting up Reel", "version", version.GetVersion(), "build_time", version.GetBuildTime())

	if err := run(cfg); err != nil {
		log.Error("Unhandled error while running Reel", "error", err)
		_, _ = fmt.Fprintf(os.Stderr, "reel: %v\n", err)
		os.Exit(1)
	}

	log.Info("Reel shutting down.  Goodbye!")
}

// run wires the engine factory, master, catalog and saved state together and runs the TUI.  The master is driven
// from this goroutine for its whole life.
func run(cfg *config.Config) error {
	opts, err := binding.OptionsFromConfig(cfg.Master)
	if err != nil {
		return fmt.Errorf("master config: %w", err)
	}

	loop := looper.New()
	defer loop.Close()
	master := binding.New(loop, player.CreateEngineFactory(cfg), opts...)
	defer func() {
		if err := master.Close(); err != nil {
			log.Warn("Errors while closing master", "error", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	entries, err := catalog.Load(ctx, cfg.Catalog)
	cancel()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	var saved *state.Manager
	var restored []string
	if !cfg.State.Disabled {
		saved, err = state.Open(cfg.State.DBPath)
		if err != nil {
			log.Warn("Saved state unavailable, continuing without it", "path", cfg.State.DBPath, "error", err)
		} else {
			defer saved.Close()
			if restored, err = saved.Restore(master); err != nil {
				log.Warn("Failed to restore saved sessions", "error", err)
			}
		}
	}

	err = tui.Run(models.Deps{
		Loop:      loop,
		Master:    master,
		Entries:   entries,
		Base:      domain.DefaultConfig(),
		RowHeight: cfg.UI.FeedHeight,
		Restored:  restored,
	})

	if saved != nil {
		if err := saved.Snapshot(master); err != nil {
			log.Warn("Failed to save sessions", "error", err)
		}
	}
	return err
}
