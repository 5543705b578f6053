package arrow

import (
	"os"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/rhughes91/Arrow/log"
	"github.com/rhughes91/Arrow/registry"
	"github.com/rhughes91/Arrow/statsd"
	"github.com/rhughes91/Arrow/storage"
	"github.com/rhughes91/Arrow/types"
)

// Engine is an isolated entity-component-system runtime. Multiple engines
// may coexist in one process; they share nothing.
//
// An Engine is not safe for concurrent use. All calls, including those made
// from system callbacks, must come from a single goroutine.
type Engine struct {
	id  string
	cfg Config

	reg     *registry.Registry
	ents    *storage.Entities
	store   *storage.Store
	systems *systemTable

	logger  log.Logger
	lastErr ErrorCode
}

// NewEngine builds an engine configured from the environment, then applies
// the given options on top.
func NewEngine(opts ...Option) *Engine {
	cfg, cfgErr := loadConfig()
	e := &Engine{
		id:  uuid.New().String(),
		cfg: cfg,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.reg == nil {
		e.reg = registry.New()
	}
	if e.logger.Logger == nil {
		level, err := zerolog.ParseLevel(e.cfg.LogLevel)
		if err != nil {
			level = zerolog.InfoLevel
		}
		e.logger = log.New(os.Stderr, level)
	}
	zl := e.logger.With().Str("engine_id", e.id).Logger()
	e.logger = log.Wrap(&zl)

	e.ents = storage.NewEntities()
	e.store = storage.NewStore(e.reg)
	e.systems = newSystemTable()

	if cfgErr != nil {
		e.logger.Warn().Err(cfgErr).Msg("falling back to default config")
	}
	if e.cfg.StatsdAddress != "" {
		if err := statsd.Init(e.cfg.StatsdAddress, []string{"engine_id:" + e.id}); err != nil {
			e.logger.Warn().Err(err).Msg("statsd disabled")
		}
	}
	return e
}

// Registry exposes the engine's type registry, mainly so codecs can be
// registered before the first Run seals it.
func (e *Engine) Registry() *registry.Registry { return e.reg }

// Logger returns the engine's logger for callers that want to attach their
// own context to it.
func (e *Engine) Logger() log.Logger { return e.logger }

// CreateEntity allocates an entity, recycling the most recently freed id if
// one exists. New entities start active with no other components.
func (e *Engine) CreateEntity() types.EntityID {
	id := e.ents.Create()
	e.store.Grow(e.ents.Total())
	e.systems.grow(e.ents.Total())
	AddComponent(e, id, true)
	statsd.EmitEntityGauge(e.ents.AliveCount())
	return id
}

// RemoveEntity destroys the entity, detaching all of its components and
// pulling it out of every system. The id becomes eligible for reuse.
func (e *Engine) RemoveEntity(id types.EntityID) {
	if !e.validEntity(id) {
		e.failEntity(id)
		return
	}
	e.systems.extractAll(id)
	e.store.RemoveEntity(id)
	if err := e.ents.Remove(id); err != nil {
		e.fail(err)
		return
	}
	statsd.EmitEntityGauge(e.ents.AliveCount())
}

// ContainsEntity reports whether id refers to a live entity.
func (e *Engine) ContainsEntity(id types.EntityID) bool {
	return e.ents.Contains(id)
}

// NumberOfEntities returns how many entity slots exist, counting both live
// and recyclable ids.
func (e *Engine) NumberOfEntities() int {
	return e.ents.Total()
}

// ActiveEntityCount returns the number of live entities.
func (e *Engine) ActiveEntityCount() int {
	return e.ents.AliveCount()
}

// NumberOfComponents returns how many component types the engine knows,
// including the built-in active flag.
func (e *Engine) NumberOfComponents() int {
	return e.reg.ComponentCount()
}

// Active reports whether the entity participates in system matching.
func (e *Engine) Active(id types.EntityID) bool {
	if !e.validEntity(id) {
		e.failEntity(id)
		return false
	}
	return e.activeValue(id)
}

// SetActive toggles the entity in or out of system matching without touching
// its components. Deactivated entities keep their data and re-enter every
// matching system when reactivated.
func (e *Engine) SetActive(id types.EntityID, state bool) {
	if !e.validEntity(id) {
		e.failEntity(id)
		return
	}
	if e.activeValue(id) == state {
		return
	}
	if err := storage.Set(e.store, id, state); err != nil {
		e.fail(err)
		return
	}
	if state {
		e.systems.insertMatching(id, *e.ents.Mask(id))
	} else {
		e.systems.extractAll(id)
	}
}

// DeclareFunctionKind reserves a new callback slot usable across all
// systems. Kinds cannot be declared after the first Run.
func (e *Engine) DeclareFunctionKind() types.KindID {
	kind, err := e.reg.DeclareFunctionKind()
	if err != nil {
		e.fail(err)
		return -1
	}
	return kind
}

// Run invokes the callbacks bound to kind on every system in priority
// order, highest first. The first Run seals the registry.
func (e *Engine) Run(kind types.KindID) {
	if !e.reg.Sealed() {
		e.reg.Seal()
		e.logger.LogRegistry(e.reg, zerolog.DebugLevel)
	}
	if !e.reg.KindDeclared(kind) {
		e.fail(eris.Wrapf(ErrUnknownFunctionKind, "kind %d", kind))
		return
	}
	start := time.Now()
	order := make([]types.SystemID, len(e.systems.order))
	copy(order, e.systems.order)
	for _, sid := range order {
		sys := e.systems.systems[sid]
		if sys == nil || !sys.initialized {
			continue
		}
		if cb, ok := sys.callbacks[kind]; ok {
			cb(e, sys)
		}
	}
	statsd.EmitRunStat(start, "kind_"+strconv.Itoa(int(kind)))
}

// LastError returns the code of the most recent failed operation and resets
// it to CodeNone.
func (e *Engine) LastError() ErrorCode {
	code := e.lastErr
	e.lastErr = CodeNone
	return code
}

func (e *Engine) validEntity(id types.EntityID) bool {
	if e.cfg.TrustedMode {
		return true
	}
	return e.ents.Contains(id)
}

func (e *Engine) activeValue(id types.EntityID) bool {
	active, err := storage.Get[bool](e.store, id)
	if err != nil {
		return false
	}
	return active
}

func (e *Engine) fail(err error) {
	code := codeFor(err)
	e.lastErr = code
	switch code {
	case CodeSerializationConfig, CodeRegistrySealed:
		e.logger.Error().Err(err).Msg("engine misconfigured")
	default:
		e.logger.Debug().Err(err).Msg("engine operation rejected")
	}
}

func (e *Engine) failEntity(id types.EntityID) {
	e.fail(eris.Wrapf(storage.ErrEntityDoesNotExist, "entity %d", id))
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
