package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	cfg "github.com/stagehand/stagehand/internal/config"
)

func TestLoadConfig_DefaultsOnly(t *testing.T) {
	tmp := t.TempDir()
	os.Setenv("XDG_CONFIG_HOME", tmp)
	defer os.Unsetenv("XDG_CONFIG_HOME")
	wd, _ := os.Getwd()
	if err := os.Chdir(tmp); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer os.Chdir(wd)

	c, err := cfg.LoadConfig(&cobra.Command{}, cfg.Defaults(), nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if c.Database.Type != "sqlite" {
		t.Errorf("expected sqlite default, got %q", c.Database.Type)
	}
	if c.Cert.CommonName != "localhost" {
		t.Errorf("expected localhost CN default, got %q", c.Cert.CommonName)
	}
	if c.Server.Port != 8000 {
		t.Errorf("expected default port 8000, got %d", c.Server.Port)
	}
	if len(c.Cert.Hosts) != 3 {
		t.Errorf("expected three default SAN hosts, got %v", c.Cert.Hosts)
	}
}

func TestLoadConfig_ReadsFileFromCwd(t *testing.T) {
	tmp := t.TempDir()
	os.Setenv("XDG_CONFIG_HOME", tmp)
	defer os.Unsetenv("XDG_CONFIG_HOME")
	wd, _ := os.Getwd()
	if err := os.Chdir(tmp); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer os.Chdir(wd)

	content := "language: de\nserver:\n  port: 9001\n"
	if err := os.WriteFile(filepath.Join(tmp, "stagehand.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	c, err := cfg.LoadConfig(&cobra.Command{}, cfg.Defaults(), nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if c.Language != "de" {
		t.Errorf("expected language de from file, got %q", c.Language)
	}
	if c.Server.Port != 9001 {
		t.Errorf("expected port 9001 from file, got %d", c.Server.Port)
	}
	// Untouched keys keep their defaults.
	if c.Database.Type != "sqlite" {
		t.Errorf("expected sqlite default, got %q", c.Database.Type)
	}
}

func TestWriteConfigFile_CreatesFile(t *testing.T) {
	tmp := t.TempDir()
	os.Setenv("XDG_CONFIG_HOME", tmp)
	defer os.Unsetenv("XDG_CONFIG_HOME")

	c := cfg.Config{}
	c.Database.Type = "sqlite"
	c.Database.DSN = "./stagehand.db"
	c.Language = "en"

	if err := cfg.WriteConfigFile(&c, false); err != nil {
		t.Fatalf("WriteConfigFile: %v", err)
	}

	path := filepath.Join(tmp, "stagehand", "stagehand.yaml")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file at %s: %v", path, err)
	}
}
