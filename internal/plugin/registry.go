package plugin

import (
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

// Family names a polymorphic plugin family.
type Family string

const (
	FamilyProcessing Family = "processing"
	FamilySignature  Family = "signature"
)

// ProcessingFactory builds a processing plugin instance.
type ProcessingFactory func() Processing

// SignatureFactory builds a signature plugin instance.
type SignatureFactory func() Signature

// ProcessingEntry is a discovered processing plugin constructor.
type ProcessingEntry struct {
	Name string
	New  ProcessingFactory
}

// SignatureEntry is a discovered signature plugin constructor.
type SignatureEntry struct {
	Name string
	New  SignatureFactory
}

// Listing describes one registered entry, including namespaces.
type Listing struct {
	Family    Family
	Name      string
	Namespace bool
}

type entry struct {
	name       string
	namespace  bool
	processing ProcessingFactory
	signature  SignatureFactory
}

// Registry holds the plugin constructors of both families in registration
// order. The zero value is ready to use.
type Registry struct {
	mu       sync.RWMutex
	families map[Family][]entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// RegisterProcessing adds a processing plugin constructor.
func (r *Registry) RegisterProcessing(name string, factory ProcessingFactory) error {
	if factory == nil {
		return errors.Newf("processing plugin %q: nil factory", name)
	}
	return r.add(FamilyProcessing, entry{name: name, processing: factory})
}

// RegisterSignature adds a signature plugin constructor.
func (r *Registry) RegisterSignature(name string, factory SignatureFactory) error {
	if factory == nil {
		return errors.Newf("signature plugin %q: nil factory", name)
	}
	return r.add(FamilySignature, entry{name: name, signature: factory})
}

// RegisterNamespace records a sub-grouping inside a family. Namespaces are
// listed but never discovered as plugins.
func (r *Registry) RegisterNamespace(family Family, name string) error {
	return r.add(family, entry{name: name, namespace: true})
}

func (r *Registry) add(family Family, e entry) error {
	e.name = strings.TrimSpace(e.name)
	if e.name == "" {
		return errors.Newf("%s plugin name cannot be empty", family)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.families == nil {
		r.families = make(map[Family][]entry)
	}
	for _, existing := range r.families[family] {
		if existing.name == e.name {
			return errors.Wrapf(ErrDuplicateName, "%s %q", family, e.name)
		}
	}
	r.families[family] = append(r.families[family], e)
	return nil
}

// Processing returns the processing constructors in registration order,
// skipping namespaces. An empty family yields nil.
func (r *Registry) Processing() []ProcessingEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []ProcessingEntry
	for _, e := range r.families[FamilyProcessing] {
		if e.namespace || e.processing == nil {
			continue
		}
		out = append(out, ProcessingEntry{Name: e.name, New: e.processing})
	}
	return out
}

// Signatures returns the signature constructors in registration order,
// skipping namespaces. An empty family yields nil.
func (r *Registry) Signatures() []SignatureEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []SignatureEntry
	for _, e := range r.families[FamilySignature] {
		if e.namespace || e.signature == nil {
			continue
		}
		out = append(out, SignatureEntry{Name: e.name, New: e.signature})
	}
	return out
}

// List returns every registered entry of a family, namespaces included.
func (r *Registry) List(family Family) []Listing {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.families[family]
	out := make([]Listing, 0, len(entries))
	for _, e := range entries {
		out = append(out, Listing{Family: family, Name: e.name, Namespace: e.namespace})
	}
	return out
}

// Without returns a copy of the registry that omits the named plugins.
func (r *Registry) Without(names []string) *Registry {
	skip := make(map[string]struct{}, len(names))
	for _, n := range names {
		skip[strings.TrimSpace(n)] = struct{}{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := &Registry{families: make(map[Family][]entry, len(r.families))}
	for family, entries := range r.families {
		for _, e := range entries {
			if _, drop := skip[e.name]; drop && !e.namespace {
				continue
			}
			out.families[family] = append(out.families[family], e)
		}
	}
	return out
}
