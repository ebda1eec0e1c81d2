// ghosttext is a Neovim-attached daemon that serves inline completions as
// ghost text. The plugin forwards editor events over msgpack-rpc; the daemon
// debounces them into streaming completion requests and renders the chunks
// into the buffer as they arrive.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"ghosttext/client/ghostapi"
	"ghosttext/config"
	"ghosttext/engine"
	"ghosttext/logger"
	"ghosttext/provider"
	"ghosttext/telemetry"
	"ghosttext/types"

	"github.com/neovim/go-client/nvim"
)

const version = "0.4.0"

func main() {
	socket := flag.String("socket", "", "nvim socket address to dial (stdio when empty)")
	configPath := flag.String("config", "", "config file path (default: state dir config.yaml)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ghosttext %s\n", version)
		return
	}

	if err := run(*socket, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "ghosttext: %v\n", err)
		os.Exit(1)
	}
}

func run(socket, configPath string) error {
	stateDir := defaultStateDir()
	if configPath == "" && stateDir != "" {
		configPath = filepath.Join(stateDir, "config.yaml")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logPath := cfg.Log.Path
	if logPath == "" && stateDir != "" {
		logPath = filepath.Join(stateDir, "ghosttext.log")
	}
	if logPath != "" {
		lg, err := logger.Open(logPath, logger.ParseLevel(cfg.Log.Level))
		if err != nil {
			return err
		}
		defer lg.Close()
	}

	logger.Info("ghosttext %s starting", version)

	providerType := types.ProviderType(cfg.Provider.Type)
	prov, err := provider.NewProvider(providerType, cfg.ProviderConfig())
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}

	eng, err := engine.NewEngine(prov, engine.EngineConfig{
		Debounce:      time.Duration(cfg.Engine.DebounceMs) * time.Millisecond,
		Multiline:     cfg.Engine.Multiline,
		ModelName:     cfg.Provider.Model,
		ShouldDisable: cfg.ShouldDisable,
	})
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	// Outcome telemetry only has a destination when the backend is the
	// ghostapi service; other providers have no metrics endpoint.
	var reporter *telemetry.Reporter
	if cfg.Telemetry.Enabled && providerType == types.ProviderTypeGhostAPI {
		pc := cfg.ProviderConfig()
		client := ghostapi.NewClient(pc.ProviderURL, pc.APIKey, pc.CompletionTimeout)
		reporter = telemetry.NewReporter(client, loadOrCreateDeviceID(stateDir), cfg.Telemetry.PrivacyMode)
		eng.Outcomes().OnOutcomeLogged(reporter.Record)
	}

	if configPath != "" {
		watcher, err := config.Watch(configPath, func(c *config.Config) {
			logger.SetLevel(logger.ParseLevel(c.Log.Level))
			eng.ApplySettings(c)
		})
		if err != nil {
			logger.Warn("config watch unavailable: %v", err)
		} else {
			defer watcher.Close()
		}
	}

	n, err := dialNvim(socket)
	if err != nil {
		return err
	}

	eng.SetNvim(n)
	eng.Start(context.Background())

	served := make(chan error, 1)
	go func() { served <- n.Serve() }()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Info("received %s, shutting down", sig)
	case err := <-served:
		if err != nil {
			logger.Error("nvim connection closed: %v", err)
		} else {
			logger.Info("nvim connection closed")
		}
	}

	eng.Stop()
	if reporter != nil {
		reporter.Close()
	}
	n.Close()
	return nil
}

func dialNvim(socket string) (*nvim.Nvim, error) {
	if socket != "" {
		n, err := nvim.Dial(socket)
		if err != nil {
			return nil, fmt.Errorf("failed to dial nvim at %s: %w", socket, err)
		}
		return n, nil
	}
	n, err := nvim.New(os.Stdin, os.Stdout, os.Stdout, logger.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to attach to nvim over stdio: %w", err)
	}
	return n, nil
}

// defaultStateDir is where the config file, log, and device id live
func defaultStateDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	dir := filepath.Join(base, "ghosttext")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ""
	}
	return dir
}
