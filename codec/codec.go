// Package codec implements the pluggable binary encoding used by component
// pools and system instance payloads. Fixed-width ("trivial") types are
// stored as a raw copy of their in-memory representation; everything else is
// stored as a length-prefixed payload produced by a set of Funcs registered
// for the type.
package codec

import (
	"encoding/binary"
	"reflect"
	"unsafe"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

// PrefixSize is the width of the length prefix in front of every
// variable-size record.
const PrefixSize = 4

// Funcs defines the payload encoding for a variable-size type. Length
// reports the payload size in bytes, Encode writes exactly that many bytes
// at offset, and Decode produces a fresh value from the payload at
// [offset, offset+length). The length prefix itself is handled by the
// caller, so Funcs compose recursively.
type Funcs[T any] struct {
	Length func(v T) int
	Encode func(v T, buf []byte, offset int)
	Decode func(buf []byte, offset, length int) (T, error)
}

// Valid reports whether all three functions are present.
func (f Funcs[T]) Valid() bool {
	return f.Length != nil && f.Encode != nil && f.Decode != nil
}

// Trivial reports whether values of type t can be stored as a raw byte copy:
// no pointers, strings, slices, maps, channels, functions, or interfaces
// anywhere in the value.
func Trivial(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return Trivial(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if !Trivial(t.Field(i).Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// EncodeTrivial copies the in-memory representation of v into buf at offset.
// The copy goes through a stack value, never a pointer into buf, so the pool
// may be reallocated freely afterwards.
func EncodeTrivial[T any](v T, buf []byte, offset int) {
	size := int(unsafe.Sizeof(v))
	src := unsafe.Slice((*byte)(unsafe.Pointer(&v)), size)
	copy(buf[offset:offset+size], src)
}

// DecodeTrivial reads a value written by EncodeTrivial back out of buf.
func DecodeTrivial[T any](buf []byte, offset int) T {
	var out T
	size := int(unsafe.Sizeof(out))
	dst := unsafe.Slice((*byte)(unsafe.Pointer(&out)), size)
	copy(dst, buf[offset:offset+size])
	return out
}

// PutPrefix writes a record's length prefix.
func PutPrefix(buf []byte, offset, length int) {
	binary.LittleEndian.PutUint32(buf[offset:], uint32(length))
}

// ReadPrefix reads a record's length prefix.
func ReadPrefix(buf []byte, offset int) int {
	return int(binary.LittleEndian.Uint32(buf[offset:]))
}

// String returns the built-in text encoding: the payload is the raw bytes of
// the string.
func String() Funcs[string] {
	return Funcs[string]{
		Length: func(v string) int { return len(v) },
		Encode: func(v string, buf []byte, offset int) {
			copy(buf[offset:offset+len(v)], v)
		},
		Decode: func(buf []byte, offset, length int) (string, error) {
			return string(buf[offset : offset+length]), nil
		},
	}
}

// Bytes returns the encoding for raw byte sequences.
func Bytes() Funcs[[]byte] {
	return Funcs[[]byte]{
		Length: func(v []byte) int { return len(v) },
		Encode: func(v []byte, buf []byte, offset int) {
			copy(buf[offset:offset+len(v)], v)
		},
		Decode: func(buf []byte, offset, length int) ([]byte, error) {
			out := make([]byte, length)
			copy(out, buf[offset:offset+length])
			return out, nil
		},
	}
}

// TrivialSlice returns the encoding for slices of a fixed-width element
// type: an element count followed by raw element copies.
func TrivialSlice[T any]() (Funcs[[]T], error) {
	var elem T
	t := reflect.TypeOf(elem)
	if !Trivial(t) {
		return Funcs[[]T]{}, eris.Errorf("codec: %s is not a fixed-width type, use SliceOf with an element codec", t)
	}
	size := int(t.Size())
	return Funcs[[]T]{
		Length: func(v []T) int { return PrefixSize + len(v)*size },
		Encode: func(v []T, buf []byte, offset int) {
			PutPrefix(buf, offset, len(v))
			offset += PrefixSize
			for _, e := range v {
				EncodeTrivial(e, buf, offset)
				offset += size
			}
		},
		Decode: func(buf []byte, offset, _ int) ([]T, error) {
			count := ReadPrefix(buf, offset)
			offset += PrefixSize
			out := make([]T, count)
			for i := 0; i < count; i++ {
				out[i] = DecodeTrivial[T](buf, offset)
				offset += size
			}
			return out, nil
		},
	}, nil
}

// SliceOf returns the encoding for slices of a variable-size element type:
// an element count followed by one length-prefixed payload per element.
// Nesting composes, since elem may itself come from SliceOf or TrivialSlice.
func SliceOf[T any](elem Funcs[T]) Funcs[[]T] {
	return Funcs[[]T]{
		Length: func(v []T) int {
			n := PrefixSize
			for _, e := range v {
				n += PrefixSize + elem.Length(e)
			}
			return n
		},
		Encode: func(v []T, buf []byte, offset int) {
			PutPrefix(buf, offset, len(v))
			offset += PrefixSize
			for _, e := range v {
				n := elem.Length(e)
				PutPrefix(buf, offset, n)
				elem.Encode(e, buf, offset+PrefixSize)
				offset += PrefixSize + n
			}
		},
		Decode: func(buf []byte, offset, _ int) ([]T, error) {
			count := ReadPrefix(buf, offset)
			offset += PrefixSize
			out := make([]T, count)
			for i := 0; i < count; i++ {
				n := ReadPrefix(buf, offset)
				e, err := elem.Decode(buf, offset+PrefixSize, n)
				if err != nil {
					return nil, err
				}
				out[i] = e
				offset += PrefixSize + n
			}
			return out, nil
		},
	}
}

// JSON returns an encoding backed by JSON marshaling, a convenient default
// for structs that carry pointers or maps and do not warrant a hand-written
// layout.
func JSON[T any]() Funcs[T] {
	return Funcs[T]{
		Length: func(v T) int {
			bz, err := json.Marshal(v)
			if err != nil {
				return 0
			}
			return len(bz)
		},
		Encode: func(v T, buf []byte, offset int) {
			bz, err := json.Marshal(v)
			if err != nil {
				return
			}
			copy(buf[offset:offset+len(bz)], bz)
		},
		Decode: func(buf []byte, offset, length int) (T, error) {
			out := new(T)
			if err := json.Unmarshal(buf[offset:offset+length], out); err != nil {
				return *out, eris.Wrap(err, "")
			}
			return *out, nil
		},
	}
}
