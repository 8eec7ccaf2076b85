package partition

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/promptvault/cache"
	"github.com/promptvault/cache/facade"
)

// ErrUnknownPartition is returned by Get when name has no registered
// template and no caller-supplied config was given.
var ErrUnknownPartition = fmt.Errorf("partition: unknown partition")

// Partition is one named cache, backed by a facade.System, with every key
// namespaced under the partition's own name before it ever reaches the
// underlying cache. That namespacing is what lets two partitions safely
// share one Warmer's Loader function without their keys colliding.
type Partition struct {
	name string
	sys  *facade.System
}

func (p *Partition) prefix(key string) string {
	if key == "" {
		return key
	}
	return p.name + ":" + key
}

func (p *Partition) Get(key string) (any, bool) { return p.sys.Get(p.prefix(key)) }

func (p *Partition) Set(key string, value any, ttl time.Duration) error {
	return p.sys.Set(p.prefix(key), value, ttl)
}

func (p *Partition) Has(key string) bool { return p.sys.Has(p.prefix(key)) }

func (p *Partition) Delete(key string) error { return p.sys.Delete(p.prefix(key)) }

func (p *Partition) Clear() int { return p.sys.Clear() }

func (p *Partition) Stats() cache.Stats { return p.sys.Stats() }

func (p *Partition) AutoTuner() *facade.AutoTuner { return p.sys.AutoTuner() }

func (p *Partition) Destroy() { p.sys.Destroy() }

// Registry is the named-partition catalogue: CachePartitionManager in
// spec §4.9. Each partition is a fully independent facade.System, lazily
// built from its template the first time it is requested.
type Registry struct {
	mu         sync.Mutex
	templates  map[string]cache.Config
	partitions map[string]*Partition
	ids        map[string]uuid.UUID // correlation id per partition, for log lines
	logger     zerolog.Logger
}

// Option configures a Registry at construction time.
type Option func(*Registry)

// WithTemplate registers (or overrides) the config template for name.
func WithTemplate(name string, cfg cache.Config) Option {
	return func(r *Registry) { r.templates[name] = cfg }
}

// WithLogger attaches a structured logger for partition lifecycle events.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry builds a Registry seeded with the four well-known templates
// from DefaultTemplates, then applies opts.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		templates:  DefaultTemplates(),
		partitions: make(map[string]*Partition),
		ids:        make(map[string]uuid.UUID),
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get lazily instantiates (or returns the existing) partition named name.
// Returns ErrUnknownPartition if no template was ever registered for it.
func (r *Registry) Get(name string) (*Partition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.partitions[name]; ok {
		return p, nil
	}

	tmpl, ok := r.templates[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPartition, name)
	}

	sys, err := facade.New(tmpl)
	if err != nil {
		return nil, fmt.Errorf("partition %q: %w", name, err)
	}

	id := uuid.New()
	p := &Partition{name: name, sys: sys}
	r.partitions[name] = p
	r.ids[name] = id
	r.logger.Info().
		Str("partition", name).
		Str("partition_id", id.String()).
		Str("strategy", string(tmpl.Strategy)).
		Msg("partition created")

	return p, nil
}

// Names returns every instantiated partition's name, in no particular
// order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.partitions))
	for name := range r.partitions {
		out = append(out, name)
	}
	return out
}

// Stats returns each instantiated partition's own Stats envelope, keyed by
// name and stamped with the partition's name.
func (r *Registry) Stats() map[string]cache.Stats {
	r.mu.Lock()
	snapshot := make(map[string]*Partition, len(r.partitions))
	for name, p := range r.partitions {
		snapshot[name] = p
	}
	r.mu.Unlock()

	out := make(map[string]cache.Stats, len(snapshot))
	for name, p := range snapshot {
		s := p.Stats()
		s.Partition = name
		out[name] = s
	}
	return out
}

// Aggregate field-sums every instantiated partition's Stats into one
// envelope, for a service-wide dashboard.
func (r *Registry) Aggregate() cache.Stats {
	var total cache.Stats
	for _, s := range r.Stats() {
		total = total.Add(s)
	}
	total.Partition = "aggregate"
	return total
}

// Destroy tears down every instantiated partition's background work.
// Safe to call more than once.
func (r *Registry) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, p := range r.partitions {
		p.Destroy()
		r.logger.Info().Str("partition", name).Msg("partition destroyed")
	}
	r.partitions = make(map[string]*Partition)
}
