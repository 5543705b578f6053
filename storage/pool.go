package storage

import (
	"github.com/rhughes91/Arrow/codec"
	"github.com/rhughes91/Arrow/registry"
	"github.com/rhughes91/Arrow/types"
)

// pool is the contiguous byte buffer holding every attached instance of one
// component type, plus the entity-to-offset index map. The buffer always
// begins with one zeroed default slot, so real records live at positive
// offsets and the sentinel offset is -1.
//
// Records of fixed-width types occupy exactly info.Size bytes. Records of
// variable-size types are a 4-byte length prefix followed by the payload.
type pool struct {
	info   registry.ComponentInfo
	buf    []byte
	index  []int
	owners map[int]int // offset -> owner count, present only when shared
}

func newPool(info registry.ComponentInfo, total int) *pool {
	slot := codec.PrefixSize
	if info.Trivial {
		slot = info.Size
	}
	idx := make([]int, total)
	for i := range idx {
		idx[i] = -1
	}
	return &pool{
		info:   info,
		buf:    make([]byte, slot),
		index:  idx,
		owners: make(map[int]int),
	}
}

func (p *pool) grow() {
	p.index = append(p.index, -1)
}

func (p *pool) has(e types.EntityID) bool {
	return p.index[e] != -1
}

// recordLen returns the full byte length of the record at off, prefix
// included for variable-size types.
func (p *pool) recordLen(off int) int {
	if p.info.Trivial {
		return p.info.Size
	}
	return codec.PrefixSize + codec.ReadPrefix(p.buf, off)
}

func (p *pool) ownerCount(off int) int {
	if c, ok := p.owners[off]; ok {
		return c
	}
	return 1
}

// removeRecord detaches the entity's record. Shared records only lose one
// owner; the bytes are removed from the pool when the last owner releases
// them, shifting the tail left and re-basing every offset past the record.
func (p *pool) removeRecord(e types.EntityID) {
	off := p.index[e]
	if c := p.ownerCount(off); c > 1 {
		if c == 2 {
			delete(p.owners, off)
		} else {
			p.owners[off] = c - 1
		}
		p.index[e] = -1
		return
	}
	n := p.recordLen(off)
	copy(p.buf[off:], p.buf[off+n:])
	p.buf = p.buf[:len(p.buf)-n]
	p.index[e] = -1
	p.shift(off, -n)
}

// resize grows or shrinks the record at off from oldLen to newLen bytes,
// moving the tail of the pool and re-basing trailing offsets by the delta.
func (p *pool) resize(off, oldLen, newLen int) {
	delta := newLen - oldLen
	if delta == 0 {
		return
	}
	if delta > 0 {
		p.buf = append(p.buf, make([]byte, delta)...)
		copy(p.buf[off+newLen:], p.buf[off+oldLen:len(p.buf)-delta])
	} else {
		copy(p.buf[off+newLen:], p.buf[off+oldLen:])
		p.buf = p.buf[:len(p.buf)+delta]
	}
	p.shift(off, delta)
}

// shift adds delta to every index-map entry and owner-table key strictly
// greater than after. The sentinel is negative and never moves.
func (p *pool) shift(after, delta int) {
	for i, off := range p.index {
		if off > after {
			p.index[i] = off + delta
		}
	}
	if len(p.owners) == 0 {
		return
	}
	moved := make(map[int]int, len(p.owners))
	for off, c := range p.owners {
		if off > after {
			off += delta
		}
		moved[off] = c
	}
	p.owners = moved
}
