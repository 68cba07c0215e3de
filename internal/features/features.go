package features

import (
	"sort"
	"sync"
)

// Feature flag names.
const (
	// FeatureCacheEnabled serves vendor pages from the catalog cache.
	FeatureCacheEnabled = "cache_enabled"
	// FeatureEventHooksEnabled publishes purchase, redemption and catalog events.
	FeatureEventHooksEnabled = "event_hooks_enabled"
	// FeatureStrictRedemptionMode rejects unknown redemption modes instead of
	// ignoring them.
	FeatureStrictRedemptionMode = "strict_redemption_mode"
)

// FeatureFlag represents a feature flag configuration.
type FeatureFlag struct {
	Name        string `json:"name"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description"`
}

// Manager manages feature flags. It is safe for concurrent use.
type Manager struct {
	mu    sync.RWMutex
	flags map[string]*FeatureFlag
}

// NewManager creates a manager with the built-in flags registered at their
// defaults.
func NewManager() *Manager {
	m := &Manager{flags: make(map[string]*FeatureFlag)}
	m.Register(FeatureCacheEnabled, true, "serve vendor pages from the catalog cache")
	m.Register(FeatureEventHooksEnabled, true, "publish purchase, redemption and catalog events")
	m.Register(FeatureStrictRedemptionMode, false, "reject redemption modes other than points")
	return m
}

// Register registers a new feature flag, replacing any flag with that name.
func (m *Manager) Register(name string, enabled bool, description string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.flags[name] = &FeatureFlag{
		Name:        name,
		Enabled:     enabled,
		Description: description,
	}
}

// Apply sets the state of known flags from configuration. Unknown names are
// returned so the caller can warn about them.
func (m *Manager) Apply(states map[string]bool) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var unknown []string
	for name, enabled := range states {
		flag, ok := m.flags[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		flag.Enabled = enabled
	}
	sort.Strings(unknown)
	return unknown
}

// IsEnabled checks if a feature flag is enabled. Unknown flags are disabled.
func (m *Manager) IsEnabled(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	flag, exists := m.flags[name]
	if !exists {
		return false
	}

	return flag.Enabled
}

// Enable enables a feature flag.
func (m *Manager) Enable(name string) {
	m.set(name, true)
}

// Disable disables a feature flag.
func (m *Manager) Disable(name string) {
	m.set(name, false)
}

func (m *Manager) set(name string, enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if flag, exists := m.flags[name]; exists {
		flag.Enabled = enabled
	}
}

// GetAll returns a copy of every flag, sorted by name.
func (m *Manager) GetAll() []FeatureFlag {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]FeatureFlag, 0, len(m.flags))
	for _, v := range m.flags {
		result = append(result, *v)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}
