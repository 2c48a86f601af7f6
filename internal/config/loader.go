package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix is the process-env override prefix (§10.3).
const envPrefix = "EMBER_"

// Load reads path as YAML, then overlays any EMBER_-prefixed environment
// variable (EMBER_SERVER_PORT -> server.port), applies section defaults,
// and validates the result. An empty path skips the file layer and
// returns a defaulted, env-overlaid config.
func Load(path string) (*Config, error) {
	loadDotEnv()

	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("config: load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envTransform turns EMBER_SERVER_PORT into the dotted key server.port.
func envTransform(rawKey, value string) (string, interface{}) {
	key := strings.ToLower(strings.TrimPrefix(rawKey, envPrefix))
	key = strings.ReplaceAll(key, "_", ".")
	return key, value
}

// loadDotEnv loads a .env file into the process environment if present.
// Absence is not an error: credentials may already be in the environment.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
}
