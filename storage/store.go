// Package storage owns the entity id space and the per-type component
// pools: one growable byte buffer and one entity-to-offset index map per
// component type, with O(1)-amortized append and compaction on removal.
package storage

import (
	"github.com/rotisserie/eris"

	"github.com/rhughes91/Arrow/codec"
	"github.com/rhughes91/Arrow/registry"
	"github.com/rhughes91/Arrow/types"
)

// Store holds every component pool of one engine. Pools are materialized
// lazily: a component type first referenced after entities already exist
// gets an index map sized to the current entity count.
type Store struct {
	reg   *registry.Registry
	pools []*pool
	total int
}

// NewStore returns an empty component store backed by the given registry.
func NewStore(reg *registry.Registry) *Store {
	return &Store{reg: reg}
}

// Grow extends every materialized pool's index map to the given entity
// count. Called by the engine before each entity allocation.
func (s *Store) Grow(total int) {
	for s.total < total {
		for _, p := range s.pools {
			if p != nil {
				p.grow()
			}
		}
		s.total++
	}
}

// RemoveEntity strips every component attached to the entity, compacting
// each affected pool.
func (s *Store) RemoveEntity(e types.EntityID) {
	for _, p := range s.pools {
		if p != nil && p.has(e) {
			p.removeRecord(e)
		}
	}
}

// pool returns the pool for the given component id, materializing it on
// first use.
func (s *Store) pool(id types.ComponentID) *pool {
	for int(id) >= len(s.pools) {
		s.pools = append(s.pools, nil)
	}
	if s.pools[id] == nil {
		s.pools[id] = newPool(s.reg.Component(id), s.total)
	}
	return s.pools[id]
}

// Add appends the encoded value to its type's pool and records the offset.
// A variable-size type without a registered codec still gets a zero-length
// record, so bookkeeping stays consistent, and the codec error is reported.
func Add[T any](s *Store, e types.EntityID, v T) (T, error) {
	var zero T
	id, err := registry.ComponentID[T](s.reg)
	if err != nil {
		return zero, err
	}
	p := s.pool(id)
	if p.has(e) {
		return zero, eris.Wrapf(ErrComponentAlreadyOnEntity, "add %s to entity %d", p.info.Name, e)
	}
	off := len(p.buf)
	if p.info.Trivial {
		p.buf = append(p.buf, make([]byte, p.info.Size)...)
		codec.EncodeTrivial(v, p.buf, off)
		p.index[e] = off
		return v, nil
	}
	f, cerr := registry.CodecFor[T](s.reg)
	if cerr != nil {
		p.buf = append(p.buf, make([]byte, codec.PrefixSize)...)
		p.index[e] = off
		return zero, cerr
	}
	n := f.Length(v)
	p.buf = append(p.buf, make([]byte, codec.PrefixSize+n)...)
	codec.PutPrefix(p.buf, off, n)
	f.Encode(v, p.buf, off+codec.PrefixSize)
	p.index[e] = off
	return v, nil
}

// Get decodes the entity's record of type T.
func Get[T any](s *Store, e types.EntityID) (T, error) {
	var zero T
	id, err := registry.ComponentID[T](s.reg)
	if err != nil {
		return zero, err
	}
	p := s.pool(id)
	if !p.has(e) {
		return zero, eris.Wrapf(ErrComponentNotOnEntity, "get %s on entity %d", p.info.Name, e)
	}
	off := p.index[e]
	if p.info.Trivial {
		return codec.DecodeTrivial[T](p.buf, off), nil
	}
	f, cerr := registry.CodecFor[T](s.reg)
	if cerr != nil {
		return zero, cerr
	}
	return f.Decode(p.buf, off+codec.PrefixSize, codec.ReadPrefix(p.buf, off))
}

// Set overwrites the entity's record in place. When the encoded length
// changes, the pool tail is shifted and every trailing offset re-based;
// that is the cold path.
func Set[T any](s *Store, e types.EntityID, v T) error {
	id, err := registry.ComponentID[T](s.reg)
	if err != nil {
		return err
	}
	p := s.pool(id)
	if !p.has(e) {
		return eris.Wrapf(ErrComponentNotOnEntity, "set %s on entity %d", p.info.Name, e)
	}
	off := p.index[e]
	if p.info.Trivial {
		codec.EncodeTrivial(v, p.buf, off)
		return nil
	}
	oldLen := codec.PrefixSize + codec.ReadPrefix(p.buf, off)
	f, cerr := registry.CodecFor[T](s.reg)
	if cerr != nil {
		p.resize(off, oldLen, codec.PrefixSize)
		codec.PutPrefix(p.buf, off, 0)
		return cerr
	}
	n := f.Length(v)
	p.resize(off, oldLen, codec.PrefixSize+n)
	codec.PutPrefix(p.buf, off, n)
	f.Encode(v, p.buf, off+codec.PrefixSize)
	return nil
}

// Remove detaches the entity's record and returns the removed value. The
// pool is compacted only when the last owner of the record releases it.
func Remove[T any](s *Store, e types.EntityID) (T, error) {
	v, err := Get[T](s, e)
	if err != nil && !eris.Is(err, registry.ErrCodecNotRegistered) {
		return v, err
	}
	id, _ := registry.ComponentID[T](s.reg)
	s.pool(id).removeRecord(e)
	return v, err
}

// Share aliases the recipient's index-map entry to the donor's record and
// bumps the record's owner count. No bytes are copied; both entities
// observe the same storage slot until one of them releases it.
func Share[T any](s *Store, donor, recipient types.EntityID) error {
	id, err := registry.ComponentID[T](s.reg)
	if err != nil {
		return err
	}
	p := s.pool(id)
	if !p.has(donor) {
		return eris.Wrapf(ErrComponentNotOnEntity, "share %s from entity %d", p.info.Name, donor)
	}
	if donor == recipient {
		return nil
	}
	if p.has(recipient) {
		// Releasing the recipient's old record may shift the donor's
		// offset, so the donor is re-read afterwards.
		p.removeRecord(recipient)
	}
	off := p.index[donor]
	p.index[recipient] = off
	p.owners[off] = p.ownerCount(off) + 1
	return nil
}

// Contains reports whether the entity holds a record of type T.
func Contains[T any](s *Store, e types.EntityID) (bool, error) {
	id, err := registry.ComponentID[T](s.reg)
	if err != nil {
		return false, err
	}
	return s.pool(id).has(e), nil
}

// PoolSize returns the byte length of T's pool, default slot included.
// Used to observe compaction behavior.
func PoolSize[T any](s *Store) int {
	id, err := registry.ComponentID[T](s.reg)
	if err != nil {
		return 0
	}
	return len(s.pool(id).buf)
}

// PoolBytes returns a copy of T's raw pool contents.
func PoolBytes[T any](s *Store) []byte {
	id, err := registry.ComponentID[T](s.reg)
	if err != nil {
		return nil
	}
	p := s.pool(id)
	out := make([]byte, len(p.buf))
	copy(out, p.buf)
	return out
}
