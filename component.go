package arrow

import (
	"github.com/rhughes91/Arrow/registry"
	"github.com/rhughes91/Arrow/storage"
	"github.com/rhughes91/Arrow/types"
)

// ComponentIDFor returns the numeric id of component type T, assigning one
// on first use. Ids are what CreateSystem takes as requirements. Returns -1
// if the registry is already sealed and T was never seen.
func ComponentIDFor[T any](e *Engine) types.ComponentID {
	id, err := registry.ComponentID[T](e.reg)
	if err != nil {
		e.fail(err)
		return -1
	}
	return id
}

// AddComponent attaches a value of type T to the entity and returns the
// stored value. Adding a component an entity already has is rejected with
// CodeDoubleInsert. A variable-width T without a registered codec is still
// attached, but its record stays empty and CodeSerializationConfig is set.
func AddComponent[T any](e *Engine, id types.EntityID, v T) T {
	var zero T
	if !e.validEntity(id) {
		e.failEntity(id)
		return zero
	}
	stored, err := storage.Add(e.store, id, v)
	if err != nil {
		e.fail(err)
		if !registry.IsCodecMissing(err) {
			return zero
		}
	}
	bit, _ := registry.ComponentID[T](e.reg)
	e.attachBit(id, int(bit))
	return stored
}

// GetComponent returns a copy of the entity's T value. Mutating the copy
// never touches stored data; write changes back with SetComponent.
func GetComponent[T any](e *Engine, id types.EntityID) T {
	var zero T
	if !e.validEntity(id) {
		e.failEntity(id)
		return zero
	}
	v, err := storage.Get[T](e.store, id)
	if err != nil {
		e.fail(err)
		return zero
	}
	return v
}

// SetComponent overwrites the entity's T value.
func SetComponent[T any](e *Engine, id types.EntityID, v T) {
	if !e.validEntity(id) {
		e.failEntity(id)
		return
	}
	if err := storage.Set(e.store, id, v); err != nil {
		e.fail(err)
	}
}

// RemoveComponent detaches T from the entity and returns the removed value.
// The entity leaves every system that requires T.
func RemoveComponent[T any](e *Engine, id types.EntityID) T {
	var zero T
	if !e.validEntity(id) {
		e.failEntity(id)
		return zero
	}
	bit, err := registry.ComponentID[T](e.reg)
	if err != nil {
		e.fail(err)
		return zero
	}
	has, _ := storage.Contains[T](e.store, id)
	if !has {
		e.fail(storage.ErrComponentNotOnEntity)
		return zero
	}
	e.systems.extractWithBit(id, int(bit))
	e.ents.Mask(id).Unset(int(bit))
	v, rerr := storage.Remove[T](e.store, id)
	if rerr != nil {
		e.fail(rerr)
	}
	return v
}

// ContainsComponent reports whether the entity holds a T.
func ContainsComponent[T any](e *Engine, id types.EntityID) bool {
	if !e.validEntity(id) {
		e.failEntity(id)
		return false
	}
	has, err := storage.Contains[T](e.store, id)
	if err != nil {
		e.fail(err)
		return false
	}
	return has
}

// ShareComponent makes receiver alias owner's T record instead of holding
// its own copy. Both entities observe the same value through any of the
// component accessors; the storage is released when the last holder removes
// it. A T already on the receiver is removed first.
func ShareComponent[T any](e *Engine, owner, receiver types.EntityID) {
	if !e.validEntity(owner) {
		e.failEntity(owner)
		return
	}
	if !e.validEntity(receiver) {
		e.failEntity(receiver)
		return
	}
	if err := storage.Share[T](e.store, owner, receiver); err != nil {
		e.fail(err)
		return
	}
	bit, _ := registry.ComponentID[T](e.reg)
	e.attachBit(receiver, int(bit))
}

// ActiveComponent reports whether the entity's T participates in system
// matching. A component is active from the moment it is added.
func ActiveComponent[T any](e *Engine, id types.EntityID) bool {
	if !e.validEntity(id) {
		e.failEntity(id)
		return false
	}
	bit, err := registry.ComponentID[T](e.reg)
	if err != nil {
		e.fail(err)
		return false
	}
	return e.ents.Mask(id).Has(int(bit))
}

// SetActiveComponent hides or reveals the entity's T for system matching
// without detaching its data. Hiding pulls the entity out of systems that
// require T; revealing re-inserts it where the full requirement set holds.
// A no-op when the entity does not hold T or the state already matches.
func SetActiveComponent[T any](e *Engine, id types.EntityID, state bool) {
	if !e.validEntity(id) {
		e.failEntity(id)
		return
	}
	bit, err := registry.ComponentID[T](e.reg)
	if err != nil {
		e.fail(err)
		return
	}
	has, _ := storage.Contains[T](e.store, id)
	if !has {
		return
	}
	m := e.ents.Mask(id)
	if m.Has(int(bit)) == state {
		return
	}
	if state {
		m.Set(int(bit))
		if e.activeValue(id) {
			e.systems.insertMatchingWithBit(id, *m, int(bit))
		}
	} else {
		e.systems.extractWithBit(id, int(bit))
		m.Unset(int(bit))
	}
}

func (e *Engine) attachBit(id types.EntityID, bit int) {
	m := e.ents.Mask(id)
	m.Set(bit)
	if e.activeValue(id) {
		e.systems.insertMatchingWithBit(id, *m, bit)
	}
}
