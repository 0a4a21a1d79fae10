// Package topicmgr keeps a catalogue of every pub/sub topic the server
// publishes, so that the CLI and the ops endpoints can list them and so that
// two packages cannot claim the same topic name by accident.
package topicmgr

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Scope tells whether a topic belongs to the realtime framework or to a
// feature module layered on top of it.
type Scope string

const (
	ScopeFramework Scope = "framework"
	ScopeModule    Scope = "module"
)

// TopicConfig describes a topic at definition time.
type TopicConfig struct {
	Name        string         `json:"name"`
	Module      string         `json:"module"`
	Description string         `json:"description"`
	Example     string         `json:"example,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Topic is a registered, immutable topic definition.
type Topic struct {
	cfg   TopicConfig
	scope Scope
}

func (t Topic) Name() string        { return t.cfg.Name }
func (t Topic) Module() string      { return t.cfg.Module }
func (t Topic) Description() string { return t.cfg.Description }
func (t Topic) Example() string     { return t.cfg.Example }
func (t Topic) Scope() Scope        { return t.scope }
func (t Topic) String() string      { return t.cfg.Name }

// Metadata returns a copy of the topic metadata.
func (t Topic) Metadata() map[string]any {
	out := make(map[string]any, len(t.cfg.Metadata))
	for k, v := range t.cfg.Metadata {
		out[k] = v
	}
	return out
}

// DefineFramework creates a framework-scoped topic.
func DefineFramework(cfg TopicConfig) Topic {
	return Topic{cfg: cfg, scope: ScopeFramework}
}

// DefineModule creates a module-scoped topic. The module defaults to the
// first dot-separated segment of the name.
func DefineModule(cfg TopicConfig) Topic {
	if cfg.Module == "" {
		cfg.Module, _, _ = strings.Cut(cfg.Name, ".")
	}
	return Topic{cfg: cfg, scope: ScopeModule}
}

// Entry is a catalogue row.
type Entry struct {
	Topic        Topic
	RegisteredAt time.Time
}

// ErrDuplicate is returned when a topic name is registered twice.
var ErrDuplicate = fmt.Errorf("topic already registered")

// Registry is a concurrency-safe topic catalogue.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register adds a topic, rejecting empty or duplicate names.
func (r *Registry) Register(t Topic) error {
	name := strings.TrimSpace(t.Name())
	if name == "" {
		return fmt.Errorf("topic name cannot be empty")
	}
	if strings.ContainsAny(name, " \t\n") {
		return fmt.Errorf("invalid topic name %q: whitespace not allowed", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	r.entries[name] = Entry{Topic: t, RegisteredAt: time.Now()}
	return nil
}

// MustRegister registers the topic and panics on error. Topics are defined
// at package init, where a conflict is a programming error.
func (r *Registry) MustRegister(t Topic) Topic {
	if err := r.Register(t); err != nil {
		panic(err)
	}
	return t
}

// Get looks a topic up by name.
func (r *Registry) Get(name string) (Topic, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e.Topic, ok
}

// List returns every topic sorted by name.
func (r *Registry) List() []Topic {
	r.mu.RLock()
	out := make([]Topic, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Topic)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// ListByScope returns the topics of one scope sorted by name.
func (r *Registry) ListByScope(scope Scope) []Topic {
	var out []Topic
	for _, t := range r.List() {
		if t.Scope() == scope {
			out = append(out, t)
		}
	}
	return out
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// Default returns the process-wide registry used by package-level topic
// definitions.
func Default() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}
