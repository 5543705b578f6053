package storage

import (
	"github.com/rotisserie/eris"

	"github.com/rhughes91/Arrow/types"
)

// Entities allocates and recycles entity ids and owns each entity's
// component bitmap. Destroyed ids are reused, most recently destroyed
// first, before the counter advances.
type Entities struct {
	masks []types.Mask
	alive []bool
	free  []types.EntityID
}

// NewEntities returns an empty entity registry.
func NewEntities() *Entities {
	return &Entities{}
}

// Create issues an entity id with a zeroed bitmap. The caller is expected
// to attach the active flag component afterwards.
func (en *Entities) Create() types.EntityID {
	var id types.EntityID
	if n := len(en.free); n > 0 {
		id = en.free[n-1]
		en.free = en.free[:n-1]
		en.masks[id].Reset()
	} else {
		id = types.EntityID(len(en.masks))
		en.masks = append(en.masks, types.NewMask(1))
		en.alive = append(en.alive, false)
	}
	en.alive[id] = true
	return id
}

// Remove clears the entity's bitmap and pushes its id onto the recycle
// list. The caller strips components and system memberships first.
func (en *Entities) Remove(id types.EntityID) error {
	if !en.Contains(id) {
		return eris.Wrapf(ErrEntityDoesNotExist, "remove entity %d", id)
	}
	en.masks[id].Reset()
	en.alive[id] = false
	en.free = append(en.free, id)
	return nil
}

// Contains reports whether the id names a currently-live entity.
func (en *Entities) Contains(id types.EntityID) bool {
	return int(id) < len(en.alive) && en.alive[id]
}

// Mask returns a mutable view of the entity's component bitmap.
func (en *Entities) Mask(id types.EntityID) *types.Mask {
	return &en.masks[id]
}

// Total returns the number of entities ever created, recycled ids included.
func (en *Entities) Total() int {
	return len(en.masks)
}

// AliveCount returns the number of live entities.
func (en *Entities) AliveCount() int {
	return len(en.masks) - len(en.free)
}
