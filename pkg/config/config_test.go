package config

import (
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := ioutil.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal("Unable to write configuration file")
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `{
		"remote_url": "https://certs.example.com/api",
		"token": "secret-token",
		"domain": "rds.example.com",
		"crt": "C:\\ssl\\server.crt",
		"key": "C:\\ssl\\server.key",
		"cab": "",
		"metadata": "C:\\ssl\\metadata.json"
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned unexpected error: %s", err)
	}
	if cfg.Domain != "rds.example.com" {
		t.Errorf("Got domain %s; want rds.example.com", cfg.Domain)
	}
	if cfg.Cab != "" {
		t.Errorf("Got cab %q; want an empty value that skips the export", cfg.Cab)
	}
}

func TestLoadMissingFieldsAreEnumerated(t *testing.T) {
	path := writeConfig(t, `{"remote_url": "https://certs.example.com/api", "domain": "rds.example.com"}`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load should fail when required fields are missing")
	}
	for _, field := range []string{"token", "crt", "key", "cab", "metadata"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("Error %q should name the missing field %s", err, field)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("Load should fail when the configuration file does not exist")
	}
}

func TestLoadMalformedJSON(t *testing.T) {
	path := writeConfig(t, "{not json")
	if _, err := Load(path); err == nil {
		t.Error("Load should fail on a malformed configuration file")
	}
}

func TestEnvConfigSwitches(t *testing.T) {
	cfg := EnvConfig{}
	if cfg.UseVault() || cfg.UseHistoryDB() {
		t.Error("Empty environment should enable neither Vault nor the history database")
	}

	cfg = EnvConfig{
		VaultAddress:   "https://vault.example.com:8200",
		VaultRoleID:    "role",
		VaultSecretID:  "secret",
		VaultTokenPath: "secret/data/rdscert",
	}
	if !cfg.UseVault() {
		t.Error("Complete Vault settings should enable Vault")
	}

	cfg = EnvConfig{PostgresDB: "certs", PostgresHostname: "db.example.com"}
	if !cfg.UseHistoryDB() {
		t.Error("Postgres settings should enable the history database")
	}
	if !strings.Contains(cfg.HistoryDSN(), "dbname=certs") {
		t.Errorf("Got DSN %q; want it to carry dbname=certs", cfg.HistoryDSN())
	}
}
