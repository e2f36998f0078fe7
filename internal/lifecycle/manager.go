package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/regwave/regwave/internal/logging"
)

const defaultShutdownTimeout = 30 * time.Second

// Manager starts registered components in dependency order and stops them
// in reverse. A failed start rolls back everything already started.
type Manager struct {
	mu              sync.Mutex
	components      []Component
	dependencies    map[Component][]Component
	started         []Component
	shutdownTimeout time.Duration
	logger          *logging.Logger
}

// NewManager returns a manager with a 30 second per-component shutdown
// grace period.
func NewManager() *Manager {
	return &Manager{
		dependencies:    make(map[Component][]Component),
		shutdownTimeout: defaultShutdownTimeout,
		logger:          logging.GetLogger("lifecycle.manager"),
	}
}

// Register adds a component. Dependencies must already be registered; the
// component starts after them and stops before them.
func (m *Manager) Register(component Component, dependsOn ...Component) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if component == nil {
		return errors.New("cannot register nil component")
	}
	if component.Name() == "" {
		return errors.New("component must have a non-empty name")
	}
	for _, c := range m.components {
		if c == component {
			return fmt.Errorf("component %s is already registered", component.Name())
		}
	}
	for _, dep := range dependsOn {
		if !m.isRegistered(dep) {
			return fmt.Errorf("dependency %s is not registered", dep.Name())
		}
	}
	if m.wouldCycle(component, dependsOn) {
		return fmt.Errorf("registering %s would create a dependency cycle", component.Name())
	}

	m.components = append(m.components, component)
	m.dependencies[component] = dependsOn
	m.logger.Debug("registered %s with %d dependencies", component.Name(), len(dependsOn))
	return nil
}

func (m *Manager) isRegistered(c Component) bool {
	for _, registered := range m.components {
		if registered == c {
			return true
		}
	}
	return false
}

func (m *Manager) wouldCycle(component Component, deps []Component) bool {
	seen := make(map[Component]bool)
	var walk func(deps []Component) bool
	walk = func(deps []Component) bool {
		for _, dep := range deps {
			if dep == component {
				return true
			}
			if seen[dep] {
				continue
			}
			seen[dep] = true
			if walk(m.dependencies[dep]) {
				return true
			}
		}
		return false
	}
	return walk(deps)
}

// Start brings up every component in dependency order. On failure the
// already-started components are stopped in reverse and the error returned.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.started = nil
	for _, component := range m.order() {
		m.logger.Info("starting %s", component.Name())
		begin := time.Now()

		if err := component.Start(ctx); err != nil {
			m.logger.Error("failed to start %s: %v", component.Name(), err)
			m.rollback()
			return fmt.Errorf("start %s: %w", component.Name(), err)
		}

		m.started = append(m.started, component)
		m.logger.Info("%s started (took %dms)", component.Name(), time.Since(begin).Milliseconds())
	}

	m.logger.Info("all components started")
	return nil
}

// order returns components with dependencies before dependents.
func (m *Manager) order() []Component {
	visited := make(map[Component]bool)
	var sorted []Component
	var visit func(c Component)
	visit = func(c Component) {
		if visited[c] {
			return
		}
		visited[c] = true
		for _, dep := range m.dependencies[c] {
			visit(dep)
		}
		sorted = append(sorted, c)
	}
	for _, c := range m.components {
		visit(c)
	}
	return sorted
}

func (m *Manager) rollback() {
	for i := len(m.started) - 1; i >= 0; i-- {
		component := m.started[i]
		m.logger.Debug("rolling back %s", component.Name())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := component.Stop(ctx); err != nil {
			m.logger.Warn("error stopping %s during rollback: %v", component.Name(), err)
		}
		cancel()
	}
	m.started = nil
}

// Stop shuts every started component down in reverse start order. Each
// component gets its own grace period; errors are logged, not returned,
// so one slow component never blocks the rest.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Info("stopping all components")
	for i := len(m.started) - 1; i >= 0; i-- {
		component := m.started[i]
		m.logger.Info("stopping %s", component.Name())
		begin := time.Now()

		componentCtx, cancel := context.WithTimeout(ctx, m.shutdownTimeout)
		err := component.Stop(componentCtx)
		cancel()

		switch {
		case errors.Is(err, context.DeadlineExceeded):
			m.logger.Warn("%s exceeded the %s grace period", component.Name(), m.shutdownTimeout)
		case err != nil:
			m.logger.Error("error stopping %s: %v", component.Name(), err)
		default:
			m.logger.Info("%s stopped (took %dms)", component.Name(), time.Since(begin).Milliseconds())
		}
	}
	m.started = nil

	m.logger.Info("all components stopped")
	return nil
}

// SetShutdownTimeout overrides the per-component shutdown grace period.
func (m *Manager) SetShutdownTimeout(timeout time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownTimeout = timeout
}
