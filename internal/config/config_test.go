package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValues(t *testing.T) {
	cfg := Default()

	if cfg.Listen.Addr != ":2055" {
		t.Errorf("Listen.Addr = %q, want :2055", cfg.Listen.Addr)
	}
	if !cfg.Publish.Print {
		t.Error("expected Publish.Print to default to true")
	}
	if cfg.Diag.Enabled {
		t.Error("expected Diag.Enabled to default to false")
	}
	if cfg.Dashboard.RingSize != 10000 {
		t.Errorf("Dashboard.RingSize = %d, want 10000", cfg.Dashboard.RingSize)
	}
}

func TestLoadMergesOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := "listen:\n  addr: \":9995\"\npublish:\n  csv_file: out.csv\n"
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Listen.Addr != ":9995" {
		t.Errorf("Listen.Addr = %q, want :9995", cfg.Listen.Addr)
	}
	if cfg.Publish.CSVFile != "out.csv" {
		t.Errorf("Publish.CSVFile = %q, want out.csv", cfg.Publish.CSVFile)
	}
	// Fields the file didn't mention should keep their Default() values.
	if !cfg.Publish.Print {
		t.Error("expected Publish.Print to retain its default of true")
	}
	if cfg.Dashboard.RingSize != 10000 {
		t.Errorf("Dashboard.RingSize = %d, want default 10000", cfg.Dashboard.RingSize)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}
