package config

import (
	"encoding/json"
	"strings"
	"sync/atomic"
)

// Store holds the current config snapshot behind an atomic pointer. Readers
// take the pointer once at request start; Reload installs a fully validated
// replacement or leaves the old snapshot untouched.
type Store struct {
	path string
	cur  atomic.Pointer[Config]
}

// NewStore loads the initial snapshot. path may be empty to use discovery.
func NewStore(path string) (*Store, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	s := &Store{path: path}
	s.cur.Store(cfg)
	return s, nil
}

// Current returns the active snapshot. The returned config must be treated
// as immutable.
func (s *Store) Current() *Config {
	return s.cur.Load()
}

// Reload re-reads the config file and swaps the snapshot in. On any parse or
// validation error the previous snapshot stays active.
func (s *Store) Reload() error {
	cfg, err := Load(s.path)
	if err != nil {
		return err
	}
	s.cur.Store(cfg)
	return nil
}

// Redacted returns the active config as a JSON-shaped map with every
// credential-bearing value masked, for the /config endpoint.
func (s *Store) Redacted() map[string]any {
	raw, err := json.Marshal(s.Current())
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return map[string]any{}
	}
	redactMap(m)
	return m
}

func redactMap(m map[string]any) {
	for k, v := range m {
		if sensitiveKey(k) {
			if s, ok := v.(string); ok && s != "" {
				m[k] = "***"
			}
			continue
		}
		switch t := v.(type) {
		case map[string]any:
			redactMap(t)
		case []any:
			for _, e := range t {
				if em, ok := e.(map[string]any); ok {
					redactMap(em)
				}
			}
		}
	}
}

func sensitiveKey(k string) bool {
	k = strings.ToLower(k)
	return strings.Contains(k, "token") ||
		strings.Contains(k, "apikey") ||
		strings.Contains(k, "api_key") ||
		strings.Contains(k, "secret") ||
		strings.Contains(k, "password")
}
