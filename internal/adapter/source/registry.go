package source

import "github.com/cwygoda/get/internal/domain"

// Registry holds registered collection sources.
type Registry struct {
	sources []domain.Source
}

// NewRegistry creates a new source registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a source to the registry.
func (r *Registry) Register(s domain.Source) {
	r.sources = append(r.sources, s)
}

// Match returns the first source that accepts the root identifier, or nil.
func (r *Registry) Match(root string) domain.Source {
	for _, s := range r.sources {
		if s.Match(root) {
			return s
		}
	}
	return nil
}

// Sources returns all registered sources.
func (r *Registry) Sources() []domain.Source {
	return r.sources
}
