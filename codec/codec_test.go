package codec_test

import (
	"reflect"
	"testing"

	"github.com/rhughes91/Arrow/assert"
	"github.com/rhughes91/Arrow/codec"
)

type vec3 struct {
	X, Y, Z float32
}

type tagged struct {
	ID   uint32
	Name string
}

func TestTrivialClassification(t *testing.T) {
	assert.True(t, codec.Trivial(reflect.TypeOf(int32(0))))
	assert.True(t, codec.Trivial(reflect.TypeOf(true)))
	assert.True(t, codec.Trivial(reflect.TypeOf(vec3{})))
	assert.True(t, codec.Trivial(reflect.TypeOf([4]uint16{})))

	assert.False(t, codec.Trivial(reflect.TypeOf("")))
	assert.False(t, codec.Trivial(reflect.TypeOf([]int{})))
	assert.False(t, codec.Trivial(reflect.TypeOf(tagged{})))
	assert.False(t, codec.Trivial(reflect.TypeOf(map[int]int{})))
	assert.False(t, codec.Trivial(reflect.TypeOf(&vec3{})))
}

func TestTrivialRoundTrip(t *testing.T) {
	want := vec3{X: 1.5, Y: -2, Z: 1e9}
	size := int(reflect.TypeOf(want).Size())
	buf := make([]byte, size+8)

	codec.EncodeTrivial(want, buf, 8)
	got := codec.DecodeTrivial[vec3](buf, 8)
	assert.Equal(t, want, got)
}

func TestDecodeTrivialCopies(t *testing.T) {
	buf := make([]byte, 8)
	codec.EncodeTrivial(int64(42), buf, 0)
	got := codec.DecodeTrivial[int64](buf, 0)
	buf[0] = 0xFF
	assert.Equal(t, int64(42), got)
}

func TestPrefix(t *testing.T) {
	buf := make([]byte, codec.PrefixSize+3)
	codec.PutPrefix(buf, 0, 3)
	assert.Equal(t, 3, codec.ReadPrefix(buf, 0))
}

func TestStringCodec(t *testing.T) {
	f := codec.String()
	assert.Assert(t, f.Valid())

	for _, want := range []string{"", "hello", "héllo wörld"} {
		n := f.Length(want)
		buf := make([]byte, n)
		f.Encode(want, buf, 0)
		got, err := f.Decode(buf, 0, n)
		assert.NilError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestBytesCodec(t *testing.T) {
	f := codec.Bytes()

	want := []byte{0x01, 0x00, 0xFE}
	n := f.Length(want)
	buf := make([]byte, n)
	f.Encode(want, buf, 0)
	got, err := f.Decode(buf, 0, n)
	assert.NilError(t, err)
	assert.DeepEqual(t, want, got)

	// decoded bytes are a copy, not a window into the buffer
	buf[0] = 0x77
	assert.Equal(t, byte(0x01), got[0])
}

func TestTrivialSliceCodec(t *testing.T) {
	f, err := codec.TrivialSlice[int32]()
	assert.NilError(t, err)

	want := []int32{3, -1, 7000}
	n := f.Length(want)
	buf := make([]byte, n)
	f.Encode(want, buf, 0)
	got, err := f.Decode(buf, 0, n)
	assert.NilError(t, err)
	assert.DeepEqual(t, want, got)
}

func TestTrivialSliceRejectsVariable(t *testing.T) {
	_, err := codec.TrivialSlice[string]()
	assert.ErrorContains(t, err, "not a fixed-width type")
}

func TestNestedSliceCodec(t *testing.T) {
	f := codec.SliceOf(codec.String())

	want := []string{"one", "", "three"}
	n := f.Length(want)
	buf := make([]byte, n)
	f.Encode(want, buf, 0)
	got, err := f.Decode(buf, 0, n)
	assert.NilError(t, err)
	assert.DeepEqual(t, want, got)

	// slices of slices compose
	ff := codec.SliceOf(f)
	deep := [][]string{{"a", "b"}, nil, {"c"}}
	n = ff.Length(deep)
	buf = make([]byte, n)
	ff.Encode(deep, buf, 0)
	gotDeep, err := ff.Decode(buf, 0, n)
	assert.NilError(t, err)
	assert.Equal(t, 3, len(gotDeep))
	assert.DeepEqual(t, []string{"a", "b"}, gotDeep[0])
	assert.Equal(t, 0, len(gotDeep[1]))
	assert.DeepEqual(t, []string{"c"}, gotDeep[2])
}

func TestJSONCodec(t *testing.T) {
	f := codec.JSON[tagged]()

	want := tagged{ID: 9, Name: "turret"}
	n := f.Length(want)
	buf := make([]byte, n)
	f.Encode(want, buf, 0)
	got, err := f.Decode(buf, 0, n)
	assert.NilError(t, err)
	assert.Equal(t, want, got)
}
