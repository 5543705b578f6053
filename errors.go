package arrow

import (
	"github.com/rotisserie/eris"

	"github.com/rhughes91/Arrow/registry"
	"github.com/rhughes91/Arrow/storage"
)

// ErrorCode classifies the most recent failed engine operation. Codes are
// surfaced through Engine.LastError and cleared on read.
type ErrorCode int

const (
	CodeNone ErrorCode = iota
	// CodeDoubleInsert: a component was added to an entity that already has it.
	CodeDoubleInsert
	// CodeAbsent: a component was read, replaced, or removed on an entity
	// that does not have it.
	CodeAbsent
	// CodeUnknownFunctionKind: Run was called with a kind that was never
	// declared on this engine.
	CodeUnknownFunctionKind
	// CodeInvalidEntity: an operation referenced an entity id that is not
	// alive.
	CodeInvalidEntity
	// CodeSerializationConfig: a variable-width type was used without a
	// registered codec, or a codec registration was itself invalid.
	CodeSerializationConfig
	// CodeRegistrySealed: a registration was attempted after the first Run.
	CodeRegistrySealed
	// CodeUnknown: the failure did not match any known class.
	CodeUnknown
)

var (
	ErrUnknownFunctionKind = eris.New("function kind was never declared")
	ErrSystemNotCreated    = eris.New("system was never created")
)

func codeFor(err error) ErrorCode {
	switch {
	case err == nil:
		return CodeNone
	case eris.Is(err, storage.ErrComponentAlreadyOnEntity):
		return CodeDoubleInsert
	case eris.Is(err, storage.ErrComponentNotOnEntity),
		eris.Is(err, ErrSystemNotCreated):
		return CodeAbsent
	case eris.Is(err, storage.ErrEntityDoesNotExist):
		return CodeInvalidEntity
	case eris.Is(err, ErrUnknownFunctionKind):
		return CodeUnknownFunctionKind
	case eris.Is(err, registry.ErrCodecNotRegistered),
		eris.Is(err, registry.ErrTrivialCodec):
		return CodeSerializationConfig
	case eris.Is(err, registry.ErrSealed):
		return CodeRegistrySealed
	default:
		return CodeUnknown
	}
}
