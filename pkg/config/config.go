package config

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Config is the run configuration file for the fetch pipeline. All keys
// must be present; the crt, key and cab values may be empty to skip that
// export.
type Config struct {
	RemoteURL string `json:"remote_url"`
	Token     string `json:"token"`
	Domain    string `json:"domain"`
	Crt       string `json:"crt"`
	Key       string `json:"key"`
	Cab       string `json:"cab"`
	Metadata  string `json:"metadata"`
}

var requiredParams = []string{"remote_url", "token", "domain", "crt", "key", "cab", "metadata"}

// Load reads and validates the JSON run configuration.
func Load(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read configuration file %s: %v", path, err)
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("could not parse configuration file %s as JSON: %v", path, err)
	}

	var missing []string
	for _, param := range requiredParams {
		if _, ok := keys[param]; !ok {
			missing = append(missing, param)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("configuration file %s is missing required fields: %s", path, strings.Join(missing, ", "))
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("could not parse configuration file %s: %v", path, err)
	}
	return &cfg, nil
}

// EnvConfig carries deployment settings that do not belong in the run file:
// Vault credentials, the optional certificate history database and the
// optional metrics Pushgateway.
type EnvConfig struct {
	VaultAddress   string
	VaultRoleID    string
	VaultSecretID  string
	VaultTokenPath string

	PostgresUser     string
	PostgresDB       string
	PostgresPassword string
	PostgresHostname string
	PostgresPort     string

	PushgatewayURL string
}

func NewEnvConfig(prefix string) (EnvConfig, error) {
	var cfg EnvConfig
	err := envconfig.Process(prefix, &cfg)
	if err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// UseVault reports whether the remote API token should come from Vault
// instead of the run configuration file.
func (c EnvConfig) UseVault() bool {
	return c.VaultAddress != "" && c.VaultRoleID != "" && c.VaultSecretID != "" && c.VaultTokenPath != ""
}

// UseHistoryDB reports whether exported records should also be appended to
// the certificate history database.
func (c EnvConfig) UseHistoryDB() bool {
	return c.PostgresDB != "" && c.PostgresHostname != ""
}

// HistoryDSN builds the lib/pq connection string.
func (c EnvConfig) HistoryDSN() string {
	return "dbname=" + c.PostgresDB + " user=" + c.PostgresUser + " password=" + c.PostgresPassword +
		" host=" + c.PostgresHostname + " port=" + c.PostgresPort + " sslmode=disable"
}
