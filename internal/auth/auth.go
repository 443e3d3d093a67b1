// Package auth resolves upstream credentials per provider: inline config
// values, environment variables, or credential files. Results are cached and
// invalidated on reload.
package auth

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/openfreerouter/freerouter/internal/config"
	"github.com/openfreerouter/freerouter/internal/providers"
)

// Store caches resolved credentials per provider id. Read-mostly; reloads
// replace the config and drop the cache.
type Store struct {
	mu    sync.RWMutex
	cfg   map[string]config.AuthConfig
	cache map[string]providers.Credentials
}

func NewStore(cfg map[string]config.AuthConfig) *Store {
	return &Store{
		cfg:   cfg,
		cache: make(map[string]providers.Credentials),
	}
}

// Get resolves credentials for a provider, loading lazily on first use.
// OAuth tokens are detected downstream by their sk-ant-oat prefix.
func (s *Store) Get(provider string) (providers.Credentials, error) {
	s.mu.RLock()
	if c, ok := s.cache[provider]; ok {
		s.mu.RUnlock()
		return c, nil
	}
	s.mu.RUnlock()

	c, err := s.resolve(provider)
	if err != nil {
		return providers.Credentials{}, err
	}

	s.mu.Lock()
	s.cache[provider] = c
	s.mu.Unlock()
	return c, nil
}

// Func returns a resolver bound to one provider, for adapter construction.
func (s *Store) Func(provider string) func() (providers.Credentials, error) {
	return func() (providers.Credentials, error) { return s.Get(provider) }
}

// Invalidate drops the cache so the next Get re-resolves. Called on both
// reload endpoints.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.cache = make(map[string]providers.Credentials)
	s.mu.Unlock()
}

// SetConfig replaces the auth config (config file reload) and drops the
// cache.
func (s *Store) SetConfig(cfg map[string]config.AuthConfig) {
	s.mu.Lock()
	s.cfg = cfg
	s.cache = make(map[string]providers.Credentials)
	s.mu.Unlock()
}

func (s *Store) resolve(provider string) (providers.Credentials, error) {
	s.mu.RLock()
	ac := s.cfg[provider]
	s.mu.RUnlock()

	var c providers.Credentials

	// Inline config values first ($ENV already expanded at load time).
	c.Token = ac.Token
	c.APIKey = ac.APIKey

	// Then credential files.
	if c.Token == "" && ac.TokenFile != "" {
		v, err := readCredFile(ac.TokenFile)
		if err != nil {
			return c, fmt.Errorf("provider %s: %w", provider, err)
		}
		c.Token = v
	}
	if c.APIKey == "" && ac.APIKeyFile != "" {
		v, err := readCredFile(ac.APIKeyFile)
		if err != nil {
			return c, fmt.Errorf("provider %s: %w", provider, err)
		}
		c.APIKey = v
	}

	// Then environment fallbacks.
	upper := strings.ToUpper(provider)
	if c.Token == "" {
		c.Token = os.Getenv("FREEROUTER_" + upper + "_OAUTH_TOKEN")
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv("FREEROUTER_" + upper + "_API_KEY")
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv(upper + "_API_KEY")
	}

	if c.Empty() {
		return c, fmt.Errorf("no credentials configured for provider %q", provider)
	}
	return c, nil
}

func readCredFile(path string) (string, error) {
	raw, err := os.ReadFile(config.ExpandHome(path))
	if err != nil {
		return "", fmt.Errorf("read credential file: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}
