package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnvConfigPath names the env var that pins the config file location.
const EnvConfigPath = "FREEROUTER_CONFIG"

// Discover returns the config file path per the search order: the
// FREEROUTER_CONFIG env var, then ./freerouter.config.json, then
// ~/.config/freerouter/config.json. Empty means no file (defaults apply).
func Discover() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return ExpandHome(p)
	}
	if _, err := os.Stat("freerouter.config.json"); err == nil {
		return "freerouter.config.json"
	}
	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, ".config", "freerouter", "config.json")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Load reads and merges the config file at path into the defaults. An empty
// path runs discovery; a missing discovered file yields pure defaults, but a
// missing explicit path is an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = Discover()
	}

	base := Default()
	if path == "" {
		return base, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return base, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	merged, err := mergeJSON(base, raw)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := merged.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return merged, nil
}

// mergeJSON deep-merges the file content into the defaults: objects merge
// recursively, arrays and scalars replace. String values get ~ and $ENV
// expansion.
func mergeJSON(base *Config, fileJSON []byte) (*Config, error) {
	baseRaw, err := json.Marshal(base)
	if err != nil {
		return nil, err
	}
	var dst map[string]any
	if err := json.Unmarshal(baseRaw, &dst); err != nil {
		return nil, err
	}

	var src map[string]any
	if err := json.Unmarshal(fileJSON, &src); err != nil {
		return nil, err
	}
	expandValues(src)
	deepMerge(dst, src)

	out, err := json.Marshal(dst)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(out, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func deepMerge(dst, src map[string]any) {
	for k, sv := range src {
		if sm, ok := sv.(map[string]any); ok {
			if dm, ok := dst[k].(map[string]any); ok {
				deepMerge(dm, sm)
				continue
			}
		}
		dst[k] = sv
	}
}

// expandValues rewrites every string in place: leading ~ becomes the home
// directory and $VAR references are substituted from the environment.
func expandValues(m map[string]any) {
	for k, v := range m {
		switch t := v.(type) {
		case string:
			m[k] = ExpandEnv(ExpandHome(t))
		case map[string]any:
			expandValues(t)
		case []any:
			for i, e := range t {
				if s, ok := e.(string); ok {
					t[i] = ExpandEnv(ExpandHome(s))
				} else if em, ok := e.(map[string]any); ok {
					expandValues(em)
				}
			}
		}
	}
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// ExpandEnv substitutes $VAR and ${VAR} references. Unset variables expand
// to the empty string.
func ExpandEnv(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}
	return os.ExpandEnv(s)
}
