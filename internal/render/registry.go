package render

import (
	"log/slog"
	"sync"

	"github.com/tphakala/musicv-go/internal/conf"
	"github.com/tphakala/musicv-go/internal/errors"
	"github.com/tphakala/musicv-go/internal/events"
	"github.com/tphakala/musicv-go/internal/logging"
)

// Registry holds registered visual components and their activation state.
// Iteration order for rendering is registration order, so layering is
// deterministic across runs.
type Registry struct {
	mu         sync.RWMutex
	order      []string
	components map[string]Component
	active     map[string]bool

	surface  Surface
	settings *conf.Settings
	bus      *events.Bus
	logger   *slog.Logger
}

// NewRegistry creates a registry whose components draw onto surface.
func NewRegistry(surface Surface, settings *conf.Settings, bus *events.Bus) *Registry {
	logger := logging.ForService("render")
	if logger == nil {
		logger = slog.Default().With("service", "render")
	}

	return &Registry{
		components: make(map[string]Component),
		active:     make(map[string]bool),
		surface:    surface,
		settings:   settings,
		bus:        bus,
		logger:     logger,
	}
}

// Register adds a component and initializes it. Registration fails on a
// duplicate name or when Init fails; a failed component is not retained.
func (r *Registry) Register(c Component) error {
	name := c.Name()
	if name == "" {
		return errors.Newf("component name must not be empty").
			Component("components").
			Category(errors.CategoryValidation).
			Build()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.components[name]; exists {
		return errors.Newf("component %q already registered", name).
			Component("components").
			Category(errors.CategoryConflict).
			Build()
	}

	if err := c.Init(r.surface, r.settings); err != nil {
		return errors.New(err).
			Component("components").
			Category(errors.CategoryComponent).
			Context("component", name).
			Build()
	}

	r.components[name] = c
	r.order = append(r.order, name)
	r.logger.Debug("registered component", "name", name)
	return nil
}

// Activate marks a component active. Activating an active component is a
// no-op; an unknown name is an error.
func (r *Registry) Activate(name string) error {
	r.mu.Lock()
	if _, exists := r.components[name]; !exists {
		r.mu.Unlock()
		return errors.Newf("unknown component %q", name).
			Component("components").
			Category(errors.CategoryNotFound).
			Build()
	}
	if r.active[name] {
		r.mu.Unlock()
		return nil
	}
	r.active[name] = true
	r.mu.Unlock()

	// Emit outside the lock: listeners may call back into the registry.
	if r.bus != nil {
		r.bus.Emit(events.New(events.VisualTypeChanged, map[string]any{ //nolint:errcheck
			"component": name,
			"active":    true,
		}))
	}
	return nil
}

// Deactivate marks a component inactive. Deactivating an inactive component
// is a no-op; an unknown name is an error.
func (r *Registry) Deactivate(name string) error {
	r.mu.Lock()
	if _, exists := r.components[name]; !exists {
		r.mu.Unlock()
		return errors.Newf("unknown component %q", name).
			Component("components").
			Category(errors.CategoryNotFound).
			Build()
	}
	if !r.active[name] {
		r.mu.Unlock()
		return nil
	}
	r.active[name] = false
	r.mu.Unlock()

	if r.bus != nil {
		r.bus.Emit(events.New(events.VisualTypeChanged, map[string]any{ //nolint:errcheck
			"component": name,
			"active":    false,
		}))
	}
	return nil
}

// IsActive reports whether the named component is active.
func (r *Registry) IsActive(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active[name]
}

// Names returns all registered component names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Active returns the active components in registration order.
func (r *Registry) Active() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Component, 0, len(r.order))
	for _, name := range r.order {
		if r.active[name] {
			out = append(out, r.components[name])
		}
	}
	return out
}

// ActivateConfigured activates every component named in the settings,
// skipping unknown names with a warning so one typo does not abort startup.
func (r *Registry) ActivateConfigured() {
	for _, name := range r.settings.Components.Enabled {
		if err := r.Activate(name); err != nil {
			r.logger.Warn("skipping configured component", "name", name, "error", err)
		}
	}
}
