package config

import "gopkg.in/yaml.v3"

// Dump renders the resolved config back to YAML, for startup diagnostics.
// Secrets (API keys, DSNs) are included as-is; callers writing this to a
// shared log sink should redact it first.
func (c Config) Dump() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
