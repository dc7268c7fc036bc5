package hook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ErrHookNotFound is returned when a requested hook cannot be found.
var ErrHookNotFound = errors.New("hook not found")

// Manager discovers hooks and dispatches events to them.
type Manager struct {
	hooksDir string
	hooks    map[string]*Hook
	mu       sync.RWMutex
}

// NewManager creates a Manager for the given hooks directory.
func NewManager(hooksDir string) *Manager {
	return &Manager{
		hooksDir: hooksDir,
		hooks:    make(map[string]*Hook),
	}
}

// Discover scans the hooks directory for manifests and replaces the known
// set. A missing directory yields no hooks. Unreadable or invalid manifests
// are skipped and logged.
func (m *Manager) Discover() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.hooks = make(map[string]*Hook)

	info, err := os.Stat(m.hooksDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}

	entries, err := os.ReadDir(m.hooksDir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		hookPath := filepath.Join(m.hooksDir, entry.Name())
		data, err := os.ReadFile(filepath.Join(hookPath, ManifestFile))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			log.Printf("[Hooks] skipping %s: %v", entry.Name(), err)
			continue
		}

		var manifest Manifest
		if err := json.Unmarshal(data, &manifest); err != nil {
			log.Printf("[Hooks] skipping %s: invalid manifest: %v", entry.Name(), err)
			continue
		}
		if manifest.Name == "" || manifest.Executable == "" {
			log.Printf("[Hooks] skipping %s: manifest needs name and executable", entry.Name())
			continue
		}

		m.hooks[manifest.Name] = &Hook{
			Manifest:   manifest,
			Path:       hookPath,
			Executable: filepath.Join(hookPath, manifest.Executable),
		}
	}

	return nil
}

// Get returns a hook by name.
func (m *Manager) Get(name string) (*Hook, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.hooks[name]
	if !ok {
		return nil, ErrHookNotFound
	}
	return h, nil
}

// List returns all discovered hooks sorted by name.
func (m *Manager) List() []*Hook {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hooks := make([]*Hook, 0, len(m.hooks))
	for _, h := range m.hooks {
		hooks = append(hooks, h)
	}
	sort.Slice(hooks, func(i, j int) bool {
		return hooks[i].Manifest.Name < hooks[j].Manifest.Name
	})
	return hooks
}

// Subscribers returns the hooks handling ev, sorted by name.
func (m *Manager) Subscribers(ev Event) []*Hook {
	var out []*Hook
	for _, h := range m.List() {
		if h.Handles(ev) {
			out = append(out, h)
		}
	}
	return out
}

// HooksDir returns the hooks directory path.
func (m *Manager) HooksDir() string {
	return m.hooksDir
}

// Fire runs every hook subscribed to req.Event one after another. A failing
// hook does not stop the others; all failures are returned joined.
func (m *Manager) Fire(ctx context.Context, ex *Executor, req Request) error {
	var errs []error
	for _, h := range m.Subscribers(req.Event) {
		r := req
		resp, err := ex.Execute(ctx, h, &r)
		if err == nil && !resp.Success {
			err = errors.New(resp.Error)
		}
		if err != nil {
			log.Printf("[Hooks] %s on %s failed: %v", h.Manifest.Name, req.Event, err)
			errs = append(errs, fmt.Errorf("hook %s: %w", h.Manifest.Name, err))
			continue
		}
		log.Printf("[Hooks] %s handled %s", h.Manifest.Name, req.Event)
	}
	return errors.Join(errs...)
}
