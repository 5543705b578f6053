// Package registry assigns stable ids to component and system types and
// owns the codec table for variable-size encodings. A Registry is passed to
// every engine explicitly; engines may share one to reproduce process-wide
// id assignment, and each engine falls back to a private registry when none
// is given.
package registry

import (
	"reflect"

	"github.com/rotisserie/eris"

	"github.com/rhughes91/Arrow/codec"
	"github.com/rhughes91/Arrow/types"
)

var (
	// ErrSealed is returned when a new type is first referenced, or a codec
	// registered, after the registry has been sealed by a running engine.
	ErrSealed = eris.New("registry is sealed")
	// ErrCodecNotRegistered is returned when a variable-size type is used
	// without length/encode/decode functions. Callers degrade to a
	// zero-length encoding instead of corrupting the pool.
	ErrCodecNotRegistered = eris.New("no codec registered for variable-size type")
	// ErrTrivialCodec is returned when a codec is registered for a type that
	// already has a fixed-width raw encoding.
	ErrTrivialCodec = eris.New("fixed-width types do not take a custom codec")
)

// IsCodecMissing reports whether err stems from a missing codec
// registration, however deeply wrapped.
func IsCodecMissing(err error) bool {
	return eris.Is(err, ErrCodecNotRegistered)
}

// ComponentInfo describes one registered component type.
type ComponentInfo struct {
	ID      types.ComponentID
	Name    string
	Trivial bool
	// Size is the fixed record width for trivial types, 0 otherwise.
	Size int
}

// Registry holds the component/system id tables, registered codecs, and the
// function-kind counter. It is open for registration until Seal is called
// (an engine seals its registry on the first Run). A Registry is not safe
// for concurrent use; callers serialize access the same way they serialize
// engine calls.
type Registry struct {
	components    []ComponentInfo
	componentIDs  map[reflect.Type]types.ComponentID
	systemIDs     map[reflect.Type]types.SystemID
	systemNames   []string
	codecs        map[reflect.Type]any
	functionKinds int
	sealed        bool
}

// New returns an open registry with the built-in types pre-registered:
// component id 0 is the bool active flag, and strings carry the built-in
// text encoding.
func New() *Registry {
	r := &Registry{
		componentIDs: make(map[reflect.Type]types.ComponentID),
		systemIDs:    make(map[reflect.Type]types.SystemID),
		codecs:       make(map[reflect.Type]any),
	}
	// The active flag must come first so it always owns bitmap bit 0.
	_, _ = ComponentID[bool](r)
	_ = RegisterCodec[string](r, codec.String())
	return r
}

// Seal closes the registry for new type registration. Ids already assigned
// stay valid. Sealing twice is a no-op.
func (r *Registry) Seal() {
	r.sealed = true
}

// Sealed reports whether the registry has been sealed.
func (r *Registry) Sealed() bool {
	return r.sealed
}

// ComponentCount returns the number of registered component types,
// including the built-in active flag.
func (r *Registry) ComponentCount() int {
	return len(r.components)
}

// Components returns descriptors for every registered component type.
func (r *Registry) Components() []ComponentInfo {
	out := make([]ComponentInfo, len(r.components))
	copy(out, r.components)
	return out
}

// Component returns the descriptor for one component id.
func (r *Registry) Component(id types.ComponentID) ComponentInfo {
	return r.components[id]
}

// SystemCount returns the number of system types referenced so far.
func (r *Registry) SystemCount() int {
	return len(r.systemNames)
}

// SystemNames returns the names of every referenced system type in id order.
func (r *Registry) SystemNames() []string {
	out := make([]string, len(r.systemNames))
	copy(out, r.systemNames)
	return out
}

// DeclareFunctionKind allocates a new global callback-slot id. Every system
// treats the new kind as a no-op until a callback is set for it.
func (r *Registry) DeclareFunctionKind() (types.KindID, error) {
	if r.sealed {
		return -1, eris.Wrap(ErrSealed, "declare function kind")
	}
	id := types.KindID(r.functionKinds)
	r.functionKinds++
	return id, nil
}

// KindDeclared reports whether the given kind id has been declared.
func (r *Registry) KindDeclared(k types.KindID) bool {
	return k >= 0 && int(k) < r.functionKinds
}

// FunctionKindCount returns the number of declared function kinds.
func (r *Registry) FunctionKindCount() int {
	return r.functionKinds
}

// ComponentID returns the stable id for component type T, assigning the
// next id on first reference. First references fail once the registry is
// sealed.
func ComponentID[T any](r *Registry) (types.ComponentID, error) {
	var v T
	t := reflect.TypeOf(v)
	if id, ok := r.componentIDs[t]; ok {
		return id, nil
	}
	if r.sealed {
		return 0, eris.Wrapf(ErrSealed, "component type %s", t)
	}
	id := types.ComponentID(len(r.components))
	info := ComponentInfo{ID: id, Name: t.String(), Trivial: codec.Trivial(t)}
	if info.Trivial {
		info.Size = int(t.Size())
	}
	r.components = append(r.components, info)
	r.componentIDs[t] = id
	return id, nil
}

// SystemID returns the stable id for system type T, assigning the next id
// on first reference. First references fail once the registry is sealed.
func SystemID[T any](r *Registry) (types.SystemID, error) {
	var v T
	t := reflect.TypeOf(v)
	if id, ok := r.systemIDs[t]; ok {
		return id, nil
	}
	if r.sealed {
		return 0, eris.Wrapf(ErrSealed, "system type %s", t)
	}
	id := types.SystemID(len(r.systemNames))
	r.systemIDs[t] = id
	r.systemNames = append(r.systemNames, t.String())
	return id, nil
}

// RegisterCodec installs the length/encode/decode functions for the
// variable-size type T. Registering a codec for a fixed-width type is an
// error; those always use the raw encoding.
func RegisterCodec[T any](r *Registry, f codec.Funcs[T]) error {
	var v T
	t := reflect.TypeOf(v)
	if r.sealed {
		return eris.Wrapf(ErrSealed, "register codec for %s", t)
	}
	if codec.Trivial(t) {
		return eris.Wrapf(ErrTrivialCodec, "%s", t)
	}
	if !f.Valid() {
		return eris.Errorf("codec for %s is missing length, encode, or decode", t)
	}
	r.codecs[t] = f
	return nil
}

// CodecFor returns the codec registered for T.
func CodecFor[T any](r *Registry) (codec.Funcs[T], error) {
	var v T
	t := reflect.TypeOf(v)
	raw, ok := r.codecs[t]
	if !ok {
		return codec.Funcs[T]{}, eris.Wrapf(ErrCodecNotRegistered, "%s", t)
	}
	return raw.(codec.Funcs[T]), nil
}

// HasCodec reports whether a codec is registered for the given type.
func (r *Registry) HasCodec(t reflect.Type) bool {
	_, ok := r.codecs[t]
	return ok
}
