package arrow

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/rhughes91/Arrow/codec"
	"github.com/rhughes91/Arrow/registry"
	"github.com/rhughes91/Arrow/types"
)

// Callback is a unit of system behavior invoked by Engine.Run. A system may
// hold one callback per declared function kind.
type Callback func(e *Engine, s *System)

// InsertionFunc places a newly matched entity into a system's membership.
// Implementations must record the entity's position in m.Index.
type InsertionFunc func(id types.EntityID, m *Membership)

// Membership tracks the entities a system currently operates on. Entities
// holds the matched ids in iteration order; Index maps every entity id to
// its position in Entities, or -1 when the entity is not a member.
type Membership struct {
	Entities []types.EntityID
	Index    []int
}

func defaultInsertion(id types.EntityID, m *Membership) {
	m.Index[id] = len(m.Entities)
	m.Entities = append(m.Entities, id)
}

func (m *Membership) grow() {
	m.Index = append(m.Index, -1)
}

func (m *Membership) contains(id types.EntityID) bool {
	return int(id) < len(m.Index) && m.Index[id] != -1
}

// extract removes id by swapping the last member into its slot, so removal
// does not shift the rest of the list.
func (m *Membership) extract(id types.EntityID) {
	pos := m.Index[id]
	last := len(m.Entities) - 1
	moved := m.Entities[last]
	m.Entities[pos] = moved
	m.Index[moved] = pos
	m.Entities = m.Entities[:last]
	m.Index[id] = -1
}

// System is a priority-ordered behavior unit. Its identity is stable for the
// lifetime of the engine; creating more systems never invalidates a handle.
type System struct {
	eng         *Engine
	id          types.SystemID
	name        string
	priority    float64
	initialized bool

	required []types.ComponentID
	mask     types.Mask

	members   Membership
	insertion InsertionFunc
	callbacks map[types.KindID]Callback

	instance    []byte
	instTrivial bool
}

func (s *System) ID() types.SystemID { return s.id }
func (s *System) Name() string       { return s.name }
func (s *System) Priority() float64  { return s.priority }

// Entities returns the system's matched entities. The slice is live; it is
// reordered by swap-with-last removal, so positions are only meaningful
// through Mapping.
func (s *System) Entities() []types.EntityID { return s.members.Entities }

// Mapping returns the entity-to-position index for the matched list.
func (s *System) Mapping() []int { return s.members.Index }

// SetCallback binds cb to the given function kind, replacing any previous
// binding. A nil cb clears the binding.
func (s *System) SetCallback(kind types.KindID, cb Callback) {
	if !s.eng.reg.KindDeclared(kind) {
		s.eng.fail(ErrUnknownFunctionKind)
		return
	}
	if cb == nil {
		delete(s.callbacks, kind)
		return
	}
	s.callbacks[kind] = cb
}

// Matches reports whether an entity with the given component bitmap belongs
// in this system. Systems with no requirements never match.
func (s *System) Matches(m types.Mask) bool {
	return s.initialized && len(s.required) > 0 && m.ContainsAll(s.mask)
}

func (s *System) matchesWithBit(m types.Mask, bit int) bool {
	return s.Matches(m) && s.mask.Has(bit)
}

func (s *System) insert(id types.EntityID) {
	s.insertion(id, &s.members)
}

// systemTable owns every system record and the priority-sorted run order.
// Records are addressed by SystemID and never move once created.
type systemTable struct {
	systems []*System
	order   []types.SystemID
	total   int
}

func newSystemTable() *systemTable {
	return &systemTable{}
}

func (t *systemTable) grow(total int) {
	for t.total < total {
		for _, sys := range t.systems {
			if sys != nil {
				sys.members.grow()
			}
		}
		t.total++
	}
}

// materialize returns the record for sid, creating an uninitialized
// placeholder if it does not exist yet. Placeholders can receive an
// insertion function or callbacks ahead of CreateSystem.
func (t *systemTable) materialize(e *Engine, sid types.SystemID) *System {
	for int(sid) >= len(t.systems) {
		t.systems = append(t.systems, nil)
	}
	if t.systems[sid] == nil {
		sys := &System{
			eng:       e,
			id:        sid,
			name:      e.reg.SystemNames()[sid],
			insertion: defaultInsertion,
			callbacks: make(map[types.KindID]Callback),
		}
		sys.members.Index = make([]int, t.total)
		for i := range sys.members.Index {
			sys.members.Index[i] = -1
		}
		t.systems[sid] = sys
	}
	return t.systems[sid]
}

// insertOrdered places sid into the run order, highest priority first.
// Equal priorities keep creation order.
func (t *systemTable) insertOrdered(sid types.SystemID) {
	p := t.systems[sid].priority
	pos := sort.Search(len(t.order), func(i int) bool {
		return t.systems[t.order[i]].priority < p
	})
	t.order = append(t.order, 0)
	copy(t.order[pos+1:], t.order[pos:])
	t.order[pos] = sid
}

func (t *systemTable) insertMatching(id types.EntityID, m types.Mask) {
	for _, sys := range t.systems {
		if sys != nil && sys.Matches(m) && !sys.members.contains(id) {
			sys.insert(id)
		}
	}
}

func (t *systemTable) insertMatchingWithBit(id types.EntityID, m types.Mask, bit int) {
	for _, sys := range t.systems {
		if sys != nil && sys.matchesWithBit(m, bit) && !sys.members.contains(id) {
			sys.insert(id)
		}
	}
}

func (t *systemTable) extractWithBit(id types.EntityID, bit int) {
	for _, sys := range t.systems {
		if sys != nil && sys.mask.Has(bit) && sys.members.contains(id) {
			sys.members.extract(id)
		}
	}
}

func (t *systemTable) extractAll(id types.EntityID) {
	for _, sys := range t.systems {
		if sys != nil && sys.members.contains(id) {
			sys.members.extract(id)
		}
	}
}

// CreateSystem registers T as a system with the given starting instance,
// priority, and required components. Calling it again for the same T returns
// the existing record untouched. The returned handle stays valid for the
// engine's lifetime.
func CreateSystem[T any](e *Engine, instance T, priority float64, required ...types.ComponentID) *System {
	sid, err := registry.SystemID[T](e.reg)
	if err != nil {
		e.fail(err)
		return nil
	}
	sys := e.systems.materialize(e, sid)
	if sys.initialized {
		return sys
	}
	sys.initialized = true
	sys.priority = priority
	for _, cid := range required {
		if cid < 0 || sys.mask.Has(int(cid)) {
			continue
		}
		sys.mask.Set(int(cid))
		sys.required = append(sys.required, cid)
	}
	encodeInstance(e, sys, instance)
	e.systems.insertOrdered(sid)

	for i := 0; i < e.ents.Total(); i++ {
		id := types.EntityID(i)
		if e.ents.Contains(id) && e.activeValue(id) && sys.Matches(*e.ents.Mask(id)) {
			sys.insert(id)
		}
	}

	e.logger.Debug().
		Str("system", sys.name).
		Int("system_id", int(sid)).
		Float64("priority", priority).
		Int("entities", len(sys.members.Entities)).
		Msg("system created")
	return sys
}

// SetInsertion overrides how T's system orders newly matched entities, for
// example to keep the matched list sorted by a spatial key. Passing nil
// restores the default append behavior. May be called before CreateSystem.
func SetInsertion[T any](e *Engine, fn InsertionFunc) {
	sid, err := registry.SystemID[T](e.reg)
	if err != nil {
		e.fail(err)
		return
	}
	sys := e.systems.materialize(e, sid)
	if fn == nil {
		fn = defaultInsertion
	}
	sys.insertion = fn
}

// Entities returns the matched entity list of T's system.
func Entities[T any](e *Engine) []types.EntityID {
	sys := lookupSystem[T](e)
	if sys == nil {
		return nil
	}
	return sys.members.Entities
}

// GetMapping returns the entity-to-position index of T's system.
func GetMapping[T any](e *Engine) []int {
	sys := lookupSystem[T](e)
	if sys == nil {
		return nil
	}
	return sys.members.Index
}

// GetSystem returns the handle for T's system, materializing a placeholder
// if T was never created.
func GetSystem[T any](e *Engine) *System {
	return lookupSystem[T](e)
}

func lookupSystem[T any](e *Engine) *System {
	sid, err := registry.SystemID[T](e.reg)
	if err != nil {
		e.fail(err)
		return nil
	}
	return e.systems.materialize(e, sid)
}

// Instance decodes the system's shared state. Every call returns a fresh
// copy; mutate it and write it back with SetInstance. A system that never
// went through CreateSystem has no instance yet.
func Instance[T any](s *System) T {
	var zero T
	if !s.initialized {
		s.eng.fail(eris.Wrapf(ErrSystemNotCreated, "instance of %s", s.name))
		return zero
	}
	if s.instTrivial {
		return codec.DecodeTrivial[T](s.instance, 0)
	}
	f, err := registry.CodecFor[T](s.eng.reg)
	if err != nil {
		s.eng.fail(err)
		return zero
	}
	n := codec.ReadPrefix(s.instance, 0)
	v, err := f.Decode(s.instance, codec.PrefixSize, n)
	if err != nil {
		s.eng.fail(err)
		return zero
	}
	return v
}

// SetInstance replaces the system's shared state.
func SetInstance[T any](s *System, v T) {
	encodeInstance(s.eng, s, v)
}

func encodeInstance[T any](e *Engine, s *System, v T) {
	if codec.Trivial(typeOf[T]()) {
		size := int(typeOf[T]().Size())
		s.instance = make([]byte, size)
		codec.EncodeTrivial(v, s.instance, 0)
		s.instTrivial = true
		return
	}
	s.instTrivial = false
	f, err := registry.CodecFor[T](e.reg)
	if err != nil {
		e.fail(err)
		s.instance = make([]byte, codec.PrefixSize)
		return
	}
	n := f.Length(v)
	s.instance = make([]byte, codec.PrefixSize+n)
	codec.PutPrefix(s.instance, 0, n)
	f.Encode(v, s.instance, codec.PrefixSize)
}
