// Package provider defines the adapter contract for external contact-data
// sources and the registry the orchestrator draws from. Adapters never
// surface errors: any failure becomes an empty result with an error note in
// the metadata, and the waterfall continues.
package provider

import (
	"context"
	"strings"
	"sync"

	"github.com/sells-group/contact-discovery/internal/model"
)

// Result is the normalized output of one provider round. Adapter-specific
// raw fields are discarded at this boundary.
type Result struct {
	Source     model.ProviderTag `json:"source"`
	Email      string            `json:"email,omitempty"`
	Role       string            `json:"role,omitempty"`
	Confidence int               `json:"confidence"` // 0..100
	Emails     []string          `json:"emails,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Found reports whether the round produced a primary email.
func (r Result) Found() bool { return r.Email != "" }

// empty builds a failed-round result carrying the failure reason.
func empty(tag model.ProviderTag, reason string) Result {
	return Result{
		Source:   tag,
		Metadata: map[string]string{"error": reason},
	}
}

// Adapter is one external data source in the waterfall.
type Adapter interface {
	// Tag returns the provider's completedSearches tag.
	Tag() model.ProviderTag
	// Execute runs one search round. It must not return errors; failures
	// yield an empty Result with metadata["error"] set.
	Execute(ctx context.Context, sc model.SearchContext) Result
}

// Registry holds the available adapters keyed by tag.
type Registry struct {
	mu       sync.RWMutex
	adapters map[model.ProviderTag]Adapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[model.ProviderTag]Adapter),
	}
}

// Register adds an adapter to the registry.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Tag()] = a
}

// Get returns the adapter for a tag, or nil if not registered.
func (r *Registry) Get(tag model.ProviderTag) Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.adapters[tag]
}

// Tags returns the registered tags in waterfall order.
func (r *Registry) Tags() []model.ProviderTag {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.ProviderTag
	for _, t := range []model.ProviderTag{model.TagApolloSearch, model.TagContactEnrichment, model.TagHunterSearch, model.TagComprehensiveSearch} {
		if _, ok := r.adapters[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// SplitName divides a full name into first and last tokens. Single-token
// names yield an empty last name; middle names are dropped.
func SplitName(full string) (first, last string) {
	fields := strings.Fields(full)
	if len(fields) == 0 {
		return "", ""
	}
	first = fields[0]
	if len(fields) > 1 {
		last = fields[len(fields)-1]
	}
	return first, last
}
