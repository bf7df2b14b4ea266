package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"netflow-collector/internal/config"
	"netflow-collector/internal/decode"
	"netflow-collector/internal/diagapi"
	"netflow-collector/internal/ingest"
	"netflow-collector/internal/logging"
	"netflow-collector/internal/publish"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file (defaults built in if omitted)")
	listenAddr := flag.String("listen", "", "override listen.addr from the config file")
	csvFile := flag.String("csv", "", "override publish.csv_file from the config file")
	jsonFile := flag.String("json-file", "", "override publish.json_file from the config file")
	dashboard := flag.Bool("dashboard", false, "override publish.dashboard from the config file")
	diagAddr := flag.String("diag-addr", "", "override diag.addr from the config file")
	diagEnabled := flag.Bool("diag", false, "override diag.enabled from the config file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "netflow-collector: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	applyFlagOverrides(&cfg, *listenAddr, *csvFile, *jsonFile, *diagAddr, *dashboard, *diagEnabled)

	log := logging.New(cfg.Logging)

	templates := decode.NewTemplateCache()
	options := decode.NewOptionsCache()

	var decodeHandlers []decode.Handler
	if cfg.Decode.NetflowV5 {
		decodeHandlers = append(decodeHandlers, decode.NewV5Handler())
	}
	if cfg.Decode.NetflowV9 {
		decodeHandlers = append(decodeHandlers, decode.NewV9Handler(templates, options))
	}

	publishers, tuiPublisher, err := buildPublishers(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "netflow-collector: %v\n", err)
		os.Exit(1)
	}

	server := ingest.New(cfg.Listen.Addr, cfg.Listen.BufferSize, decodeHandlers, publishers, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(ctx); err != nil {
			errChan <- err
		}
	}()

	var diag *diagapi.Server
	if cfg.Diag.Enabled {
		diag = diagapi.New(cfg.Diag.Addr, templates, options)
		diag.Start()
		log.Infof("diagapi: listening on %s", cfg.Diag.Addr)
	}

	exitCode := 0
	if tuiPublisher != nil {
		// The dashboard owns the terminal: run its event loop on the main
		// goroutine and let ingest/diagapi keep running in the background
		// until it exits or a signal arrives.
		go func() {
			select {
			case <-sigChan:
				cancel()
			case <-ctx.Done():
			}
		}()
		if err := tuiPublisher.Run(ctx); err != nil {
			log.Errorf("dashboard exited with error: %v", err)
		}
		cancel()
		select {
		case err := <-errChan:
			log.Errorf("ingest server error: %v", err)
			exitCode = 1
		default:
		}
	} else {
		select {
		case <-sigChan:
			log.Infof("received shutdown signal")
		case err := <-errChan:
			log.Errorf("ingest server error: %v", err)
			exitCode = 1
		}
		cancel()
	}

	if diag != nil {
		if err := diag.Stop(); err != nil {
			log.Warnf("diagapi: shutdown error: %v", err)
		}
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func applyFlagOverrides(cfg *config.Config, listenAddr, csvFile, jsonFile, diagAddr string, dashboard, diagEnabled bool) {
	if listenAddr != "" {
		cfg.Listen.Addr = listenAddr
	}
	if csvFile != "" {
		cfg.Publish.CSVFile = csvFile
	}
	if jsonFile != "" {
		cfg.Publish.JSONFile = jsonFile
	}
	if dashboard {
		cfg.Publish.Dashboard = true
	}
	if diagAddr != "" {
		cfg.Diag.Addr = diagAddr
		cfg.Diag.Enabled = true
	}
	if diagEnabled {
		cfg.Diag.Enabled = true
	}
}

// buildPublishers wires up every publisher enabled in cfg. It returns the
// dashboard publisher separately (if enabled) because the caller needs to
// run its event loop specially: it owns the terminal, the rest don't.
func buildPublishers(cfg config.Config) ([]publish.Publisher, *publish.TUIPublisher, error) {
	var publishers []publish.Publisher
	var tui *publish.TUIPublisher

	if cfg.Publish.Print {
		publishers = append(publishers, publish.NewPrintPublisher(os.Stdout))
	}

	if cfg.Publish.CSVFile != "" {
		f, err := os.OpenFile(cfg.Publish.CSVFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("open csv file: %w", err)
		}
		publishers = append(publishers, publish.NewCSVPublisher(f, cfg.Publish.CSVHeader))
	}

	if cfg.Publish.JSONFile != "" {
		f, err := os.OpenFile(cfg.Publish.JSONFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("open json file: %w", err)
		}
		publishers = append(publishers, publish.NewJSONPublisher(f))
	}

	if cfg.Publish.Dashboard {
		tui = publish.NewTUIPublisher(cfg.Dashboard.RingSize, cfg.Dashboard.ResolveDNS)
		publishers = append(publishers, tui)
	}

	return publishers, tui, nil
}
