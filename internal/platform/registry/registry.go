// Package registry maps platform names to adapter factories. The set is
// fixed at startup; an unmatched name is a data error surfaced as
// platform.ErrUnknownPlatform, never a crash.
package registry

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/asocialdev/asocial/internal/config"
	"github.com/asocialdev/asocial/internal/platform"
	"github.com/asocialdev/asocial/internal/platform/bluesky"
	"github.com/asocialdev/asocial/internal/platform/mastodon"
)

// Factory builds a fresh Client from a platform row's credentials blob
// and optional API base URL override.
type Factory func(credentials json.RawMessage, apiURL string) (platform.Client, error)

// Registry is the closed set of supported platforms. Each dispatch
// constructs its own Client so no session or HTTP state leaks between
// jobs.
type Registry struct {
	factories map[string]Factory
}

// New registers all built-in adapters.
func New(cfg config.PlatformConfig) *Registry {
	return &Registry{
		factories: map[string]Factory{
			"mastodon": func(credentials json.RawMessage, apiURL string) (platform.Client, error) {
				return mastodon.NewClient(credentials, apiURL, cfg.HTTPTimeout)
			},
			"bluesky": func(credentials json.RawMessage, apiURL string) (platform.Client, error) {
				return bluesky.NewClient(credentials, apiURL, cfg.HTTPTimeout)
			},
		},
	}
}

// Names returns the registered platform names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Supported reports whether name has a registered adapter.
func (r *Registry) Supported(name string) bool {
	_, ok := r.factories[name]
	return ok
}

// Client constructs an adapter for the named platform. Returns
// platform.ErrUnknownPlatform (carrying the unmatched name) when no
// adapter is registered; factory errors (e.g. bad credentials) pass
// through.
func (r *Registry) Client(name string, credentials json.RawMessage, apiURL string) (platform.Client, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", platform.ErrUnknownPlatform, name)
	}
	return factory(credentials, apiURL)
}
