package viewer

import (
	"time"

	"staffDirectoryViewer/internal/utils"
)

// Registry keeps one Component per browser session and forgets components
// that have been idle longer than the configured TTL.
type Registry struct {
	components *utils.Cache[*Component]
	factory    func() *Component
}

// NewRegistry creates a registry that builds new components with factory.
func NewRegistry(idle time.Duration, factory func() *Component) *Registry {
	return &Registry{
		components: utils.NewCache[*Component](idle),
		factory:    factory,
	}
}

// Get returns the component of sessionID; created reports whether it is new
// and therefore still has to be loaded.
func (r *Registry) Get(sessionID string) (component *Component, created bool) {
	return r.components.GetOrCreate(sessionID, r.factory)
}

// Forget drops the component of sessionID.
func (r *Registry) Forget(sessionID string) {
	r.components.Delete(sessionID)
}

// Size is the number of live components.
func (r *Registry) Size() int {
	return r.components.Size()
}

// Close stops the idle cleanup.
func (r *Registry) Close() {
	r.components.Close()
}
