package schema

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	dmsgerrors "github.com/ValentinKolb/dMsg/lib/errors"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("registry")

// --------------------------------------------------------------------------
// Loader
// --------------------------------------------------------------------------

// Loader produces the definition of a type that is not yet registered. It is called
// with the registry the type is loaded into and the logical name the tag is mapped to
// in the name table passed to Registry.Init.
type Loader interface {
	Load(r *Registry, name string) (*Definition, error)
}

// LoaderFunc adapts a function to the Loader interface
type LoaderFunc func(r *Registry, name string) (*Definition, error)

func (f LoaderFunc) Load(r *Registry, name string) (*Definition, error) {
	return f(r, name)
}

// MapLoader is a Loader backed by an explicit table of definition factories. The
// factories may resolve parent types through the registry they are loaded into.
type MapLoader map[string]func(r *Registry) (*Definition, error)

func (l MapLoader) Load(r *Registry, name string) (*Definition, error) {
	factory, ok := l[name]
	if !ok {
		return nil, fmt.Errorf("no definition for type %s", name)
	}
	return factory(r)
}

// --------------------------------------------------------------------------
// Registry
// --------------------------------------------------------------------------

// Registry maps type ids to type descriptors. Types are either registered eagerly with
// Register or lazily on first Resolve through the Loader given to Init.
//
// A Registry is safe for concurrent use.
type Registry struct {
	types  *xsync.MapOf[ID, *Type]
	byName *xsync.MapOf[string, *Type]

	mu          sync.RWMutex // guards registration, names and loader
	names       map[ID]string
	loader      Loader
	initialized atomic.Bool
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		types:  xsync.NewMapOf[ID, *Type](),
		byName: xsync.NewMapOf[string, *Type](),
		names:  make(map[ID]string),
	}
}

// Init sets the name table used for lazy loading and the loader. It may only be called once.
func (r *Registry) Init(names map[ID]string, loader Loader) error {
	if !r.initialized.CompareAndSwap(false, true) {
		return dmsgerrors.New(dmsgerrors.PhaseRegister, dmsgerrors.KindAlreadyInitialized).
			Detail("registry has already been initialized").
			Build()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, name := range names {
		r.names[id] = name
	}
	r.loader = loader

	Logger.Debugf("registry initialized with %d lazy type names", len(names))
	return nil
}

// Register validates def, builds its codec hooks and stores the resulting type.
// Registering a name again under the same id returns the already registered type.
func (r *Registry) Register(def Definition) (*Type, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.register(def)
}

// MustRegister is like Register but panics on error
func (r *Registry) MustRegister(def Definition) *Type {
	t, err := r.Register(def)
	if err != nil {
		panic(err)
	}
	return t
}

// Resolve returns the type for id, lazy-loading it if necessary
func (r *Registry) Resolve(id ID) (*Type, error) {
	if t, ok := r.types.Load(id); ok {
		return t, nil
	}

	r.mu.RLock()
	name, ok := r.names[id]
	loader := r.loader
	r.mu.RUnlock()

	if !ok {
		return nil, dmsgerrors.New(dmsgerrors.PhaseResolve, dmsgerrors.KindUnknownID).
			Detail("received invalid type id %d", id).
			Build()
	}
	if loader == nil {
		return nil, dmsgerrors.New(dmsgerrors.PhaseResolve, dmsgerrors.KindUnknownID).
			Type(name).
			Detail("received message of type %s but type is not loaded", name).
			Build()
	}

	// the loader runs without holding the lock, it may resolve parent types
	def, err := load(loader, r, name)
	if err != nil {
		return nil, dmsgerrors.New(dmsgerrors.PhaseResolve, dmsgerrors.KindLoadFailure).
			Type(name).
			Detail("failed to lazy-load type %s", name).
			Cause(err).
			Build()
	}
	if def == nil {
		return nil, dmsgerrors.New(dmsgerrors.PhaseResolve, dmsgerrors.KindInvalidExport).
			Type(name).
			Detail("loader for %s did not return a type definition", name).
			Build()
	}
	if def.ID != id || def.Name != name {
		return nil, dmsgerrors.New(dmsgerrors.PhaseResolve, dmsgerrors.KindInvalidExport).
			Type(name).
			Detail("loader for %s returned type %s with id %d, expected id %d", name, def.Name, def.ID, id).
			Build()
	}

	t, err := r.Register(*def)
	if err != nil {
		return nil, err
	}
	Logger.Infof("lazy-loaded type %s (id %d)", t.Name, t.ID)
	return t, nil
}

// Lookup returns a registered type by name
func (r *Registry) Lookup(name string) (*Type, bool) {
	return r.byName.Load(name)
}

// Name returns the name bound to id, either by registration or by the lazy name table
func (r *Registry) Name(id ID) string {
	if t, ok := r.types.Load(id); ok {
		return t.Name
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.names[id]
}

// Types returns all registered types sorted by id
func (r *Registry) Types() []*Type {
	types := make([]*Type, 0, r.types.Size())
	r.types.Range(func(_ ID, t *Type) bool {
		types = append(types, t)
		return true
	})
	sort.Slice(types, func(i, j int) bool { return types[i].ID < types[j].ID })
	return types
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// register does the actual registration, the caller must hold r.mu
func (r *Registry) register(def Definition) (*Type, error) {
	if existing, ok := r.types.Load(def.ID); ok {
		if existing.Name == def.Name {
			return existing, nil
		}
		return nil, dmsgerrors.New(dmsgerrors.PhaseRegister, dmsgerrors.KindDuplicateID).
			Type(def.Name).
			Detail("tried to register type ID %d to type %s but already assigned to type %s", def.ID, def.Name, existing.Name).
			Build()
	}

	if err := r.validate(def); err != nil {
		return nil, err
	}

	// own attributes first, then a copy of the parent's layout
	size := 0
	attrs := make([]Attribute, 0, len(def.Attributes))
	for _, attr := range def.Attributes {
		attrs = append(attrs, attr)
		size += attr.Kind.Width()
	}
	if def.Parent != nil {
		attrs = append(attrs, def.Parent.Attributes...)
		size += def.Parent.Size
	}

	seen := make(map[string]struct{}, len(attrs))
	for _, attr := range attrs {
		if _, dup := seen[attr.Name]; dup {
			return nil, dmsgerrors.New(dmsgerrors.PhaseRegister, dmsgerrors.KindInvalidConfig).
				Type(def.Name).
				Detail("attribute %s is declared more than once", attr.Name).
				Build()
		}
		seen[attr.Name] = struct{}{}
	}

	hooks, err := def.Format.Build(def.ID, size, attrs)
	if err != nil {
		if dErr, ok := err.(*dmsgerrors.Error); ok {
			if dErr.Type == "" {
				dErr.Type = def.Name
			}
			return nil, dErr
		}
		return nil, dmsgerrors.New(dmsgerrors.PhaseRegister, dmsgerrors.KindInvalidConfig).
			Type(def.Name).
			Detail("format %s failed to build hooks", def.Format.Name()).
			Cause(err).
			Build()
	}

	t := &Type{
		ID:         def.ID,
		Name:       def.Name,
		Attributes: attrs,
		Size:       size,
		Parent:     def.Parent,
		Format:     def.Format,
		hooks:      hooks,
	}
	r.types.Store(t.ID, t)
	r.byName.Store(t.Name, t)

	Logger.Debugf("registered type %s (id %d, format %s, %d attributes, %d bytes)", t.Name, t.ID, def.Format.Name(), len(attrs), size)
	return t, nil
}

// validate checks a definition before its hooks are built, the caller must hold r.mu
func (r *Registry) validate(def Definition) error {
	invalid := func(format string, args ...any) error {
		return dmsgerrors.New(dmsgerrors.PhaseRegister, dmsgerrors.KindInvalidConfig).
			Type(def.Name).
			Detail(format, args...).
			Build()
	}

	if def.Name == "" {
		return invalid("type with id %d has no name", def.ID)
	}
	if def.Format == nil {
		return invalid("type %s has no format", def.Name)
	}
	if other, ok := r.byName.Load(def.Name); ok {
		return invalid("type name %s is already assigned to type ID %d", def.Name, other.ID)
	}
	if def.Parent != nil {
		if p, ok := r.types.Load(def.Parent.ID); !ok || p != def.Parent {
			return invalid("parent type %s of %s is not registered", def.Parent.Name, def.Name)
		}
	}
	for _, attr := range def.Attributes {
		if attr.Name == "" {
			return invalid("type %s declares an attribute without name", def.Name)
		}
		if !attr.Kind.Valid() {
			return invalid("attribute %s of type %s has an invalid kind", attr.Name, def.Name)
		}
	}
	return nil
}

// load calls the loader and converts a panic into an error
func load(loader Loader, r *Registry, name string) (def *Definition, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return loader.Load(r, name)
}
