package storage_test

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/rhughes91/Arrow/assert"
	"github.com/rhughes91/Arrow/codec"
	"github.com/rhughes91/Arrow/registry"
	"github.com/rhughes91/Arrow/storage"
	"github.com/rhughes91/Arrow/types"
)

type health struct {
	Current, Max int32
}

type inventory struct {
	Items []string
}

func newStore(t *testing.T, total int) (*registry.Registry, *storage.Store) {
	t.Helper()
	reg := registry.New()
	st := storage.NewStore(reg)
	st.Grow(total)
	return reg, st
}

func TestEntityRecycling(t *testing.T) {
	en := storage.NewEntities()
	a := en.Create()
	b := en.Create()
	assert.Equal(t, types.EntityID(0), a)
	assert.Equal(t, types.EntityID(1), b)
	assert.Equal(t, 2, en.Total())

	assert.NilError(t, en.Remove(a))
	assert.False(t, en.Contains(a))
	assert.Equal(t, 1, en.AliveCount())

	// most recently freed id comes back first, with a cleared bitmap
	en.Mask(b).Set(5)
	c := en.Create()
	assert.Equal(t, a, c)
	assert.Equal(t, 2, en.Total())
	assert.Equal(t, 0, en.Mask(c).Count())
}

func TestEntityRemoveDead(t *testing.T) {
	en := storage.NewEntities()
	id := en.Create()
	assert.NilError(t, en.Remove(id))
	assert.ErrorIs(t, en.Remove(id), storage.ErrEntityDoesNotExist)
	assert.ErrorIs(t, en.Remove(types.EntityID(99)), storage.ErrEntityDoesNotExist)
}

func TestPoolStartsWithZeroedDefaultSlot(t *testing.T) {
	_, st := newStore(t, 1)

	raw := storage.PoolBytes[health](st)
	assert.Len(t, raw, 8)
	for _, b := range raw {
		assert.Equal(t, byte(0), b)
	}
}

func TestAddGetTrivial(t *testing.T) {
	_, st := newStore(t, 2)

	want := health{Current: 50, Max: 100}
	stored, err := storage.Add(st, 0, want)
	assert.NilError(t, err)
	assert.Equal(t, want, stored)

	got, err := storage.Get[health](st, 0)
	assert.NilError(t, err)
	assert.Equal(t, want, got)

	has, err := storage.Contains[health](st, 1)
	assert.NilError(t, err)
	assert.False(t, has)
}

func TestAddTwiceFails(t *testing.T) {
	_, st := newStore(t, 1)
	_, err := storage.Add(st, 0, health{})
	assert.NilError(t, err)
	_, err = storage.Add(st, 0, health{})
	assert.ErrorIs(t, err, storage.ErrComponentAlreadyOnEntity)
}

func TestGetAbsentFails(t *testing.T) {
	_, st := newStore(t, 1)
	_, err := storage.Get[health](st, 0)
	assert.ErrorIs(t, err, storage.ErrComponentNotOnEntity)
	err = storage.Set(st, 0, health{})
	assert.ErrorIs(t, err, storage.ErrComponentNotOnEntity)
	_, err = storage.Remove[health](st, 0)
	assert.ErrorIs(t, err, storage.ErrComponentNotOnEntity)
}

func TestGetReturnsCopy(t *testing.T) {
	_, st := newStore(t, 1)
	_, err := storage.Add(st, 0, health{Current: 10, Max: 10})
	assert.NilError(t, err)

	got, err := storage.Get[health](st, 0)
	assert.NilError(t, err)
	got.Current = 0

	again, err := storage.Get[health](st, 0)
	assert.NilError(t, err)
	assert.Equal(t, int32(10), again.Current)
}

func TestSetTrivialInPlace(t *testing.T) {
	_, st := newStore(t, 1)
	_, err := storage.Add(st, 0, health{Current: 1, Max: 1})
	assert.NilError(t, err)

	size := storage.PoolSize[health](st)
	assert.NilError(t, storage.Set(st, 0, health{Current: 7, Max: 9}))
	assert.Equal(t, size, storage.PoolSize[health](st))

	got, err := storage.Get[health](st, 0)
	assert.NilError(t, err)
	assert.Equal(t, health{Current: 7, Max: 9}, got)
}

func TestVariableSizeRoundTrip(t *testing.T) {
	reg, st := newStore(t, 3)
	assert.NilError(t, registry.RegisterCodec(reg, codec.JSON[inventory]()))

	_, err := storage.Add(st, 0, inventory{Items: []string{"sword"}})
	assert.NilError(t, err)
	_, err = storage.Add(st, 1, inventory{Items: []string{"shield", "torch"}})
	assert.NilError(t, err)

	got, err := storage.Get[inventory](st, 1)
	assert.NilError(t, err)
	assert.DeepEqual(t, []string{"shield", "torch"}, got.Items)

	// resizing the first record re-bases the second
	assert.NilError(t, storage.Set(st, 0, inventory{Items: []string{"a", "b", "c", "d"}}))
	got, err = storage.Get[inventory](st, 1)
	assert.NilError(t, err)
	assert.DeepEqual(t, []string{"shield", "torch"}, got.Items)

	got, err = storage.Get[inventory](st, 0)
	assert.NilError(t, err)
	assert.DeepEqual(t, []string{"a", "b", "c", "d"}, got.Items)
}

func TestMissingCodecDegrades(t *testing.T) {
	_, st := newStore(t, 2)

	_, err := storage.Add(st, 0, inventory{Items: []string{"lost"}})
	assert.ErrorIs(t, err, registry.ErrCodecNotRegistered)

	// the record exists but is empty; membership bookkeeping still works
	has, err := storage.Contains[inventory](st, 0)
	assert.NilError(t, err)
	assert.True(t, has)

	_, err = storage.Remove[inventory](st, 0)
	assert.ErrorIs(t, err, registry.ErrCodecNotRegistered)
	has, err = storage.Contains[inventory](st, 0)
	assert.NilError(t, err)
	assert.False(t, has)
}

func TestRemoveCompactsPool(t *testing.T) {
	_, st := newStore(t, 3)
	for i := 0; i < 3; i++ {
		_, err := storage.Add(st, types.EntityID(i), health{Current: int32(i)})
		assert.NilError(t, err)
	}
	full := storage.PoolSize[health](st)

	got, err := storage.Remove[health](st, 1)
	assert.NilError(t, err)
	assert.Equal(t, int32(1), got.Current)
	assert.Equal(t, full-8, storage.PoolSize[health](st))

	// records on either side of the removed one survive the shift
	a, err := storage.Get[health](st, 0)
	assert.NilError(t, err)
	assert.Equal(t, int32(0), a.Current)
	c, err := storage.Get[health](st, 2)
	assert.NilError(t, err)
	assert.Equal(t, int32(2), c.Current)
}

func TestPoolSizeReturnsToBaseline(t *testing.T) {
	const n = 1000
	_, st := newStore(t, n)

	baseline := storage.PoolSize[health](st)
	for i := 0; i < n; i++ {
		_, err := storage.Add(st, types.EntityID(i), health{Current: int32(i)})
		assert.NilError(t, err)
	}
	grown := storage.PoolSize[health](st)
	assert.Assert(t, grown > baseline)

	order := rand.New(rand.NewSource(1)).Perm(n)
	for _, i := range order {
		_, err := storage.Remove[health](st, types.EntityID(i))
		assert.NilError(t, err)
	}
	assert.Equal(t, baseline, storage.PoolSize[health](st))
}

func TestResizeRestoresPoolExactly(t *testing.T) {
	_, st := newStore(t, 3)
	big := strings.Repeat("x", 1000)

	_, err := storage.Add(st, 0, "left")
	assert.NilError(t, err)
	_, err = storage.Add(st, 1, big)
	assert.NilError(t, err)
	_, err = storage.Add(st, 2, "right")
	assert.NilError(t, err)
	_, err = storage.Add(st, 0, health{Current: 11, Max: 12})
	assert.NilError(t, err)

	wantStrings := storage.PoolBytes[string](st)
	wantHealth := storage.PoolBytes[health](st)

	// shrink the middle record to one byte, then grow it back
	assert.NilError(t, storage.Set(st, 1, "y"))
	assert.Equal(t, len(wantStrings)-999, storage.PoolSize[string](st))
	assert.NilError(t, storage.Set(st, 1, big))

	assert.Equal(t, len(wantStrings), storage.PoolSize[string](st))
	assert.DeepEqual(t, wantStrings, storage.PoolBytes[string](st))
	assert.DeepEqual(t, wantHealth, storage.PoolBytes[health](st))

	left, err := storage.Get[string](st, 0)
	assert.NilError(t, err)
	assert.Equal(t, "left", left)
	right, err := storage.Get[string](st, 2)
	assert.NilError(t, err)
	assert.Equal(t, "right", right)
}

func TestResizingSharedRecord(t *testing.T) {
	_, st := newStore(t, 3)
	_, err := storage.Add(st, 0, "front")
	assert.NilError(t, err)
	_, err = storage.Add(st, 1, "shared")
	assert.NilError(t, err)
	assert.NilError(t, storage.Share[string](st, 1, 2))

	// resizing a record in front of the shared one re-bases its offset
	assert.NilError(t, storage.Set(st, 0, "front grew much longer"))
	got, err := storage.Get[string](st, 2)
	assert.NilError(t, err)
	assert.Equal(t, "shared", got)

	// resizing through one sharer stays visible to the other
	assert.NilError(t, storage.Set(st, 2, "shared and then some"))
	got, err = storage.Get[string](st, 1)
	assert.NilError(t, err)
	assert.Equal(t, "shared and then some", got)

	// the resized record still frees only at last release
	size := storage.PoolSize[string](st)
	_, err = storage.Remove[string](st, 1)
	assert.NilError(t, err)
	assert.Equal(t, size, storage.PoolSize[string](st))
	_, err = storage.Remove[string](st, 2)
	assert.NilError(t, err)
	assert.Equal(t, size-(4+len("shared and then some")), storage.PoolSize[string](st))
}

func TestRandomizedVariableChurn(t *testing.T) {
	const total = 48
	_, st := newStore(t, total)
	rng := rand.New(rand.NewSource(11))

	randomString := func() string {
		return strings.Repeat(string(rune('a'+rng.Intn(26))), rng.Intn(64))
	}
	want := make(map[types.EntityID]string)
	for step := 0; step < 3000; step++ {
		id := types.EntityID(rng.Intn(total))
		switch rng.Intn(3) {
		case 0:
			v := randomString()
			if _, held := want[id]; held {
				assert.NilError(t, storage.Set(st, id, v))
			} else {
				_, err := storage.Add(st, id, v)
				assert.NilError(t, err)
			}
			want[id] = v
		case 1:
			if _, held := want[id]; held {
				_, err := storage.Remove[string](st, id)
				assert.NilError(t, err)
				delete(want, id)
			}
		case 2:
			got, err := storage.Get[string](st, id)
			if v, held := want[id]; held {
				assert.NilError(t, err)
				assert.Equal(t, v, got)
			} else {
				assert.ErrorIs(t, err, storage.ErrComponentNotOnEntity)
			}
		}
	}

	// every surviving record decodes to its model value
	for id, v := range want {
		got, err := storage.Get[string](st, id)
		assert.NilError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestShareAliasesStorage(t *testing.T) {
	_, st := newStore(t, 2)
	_, err := storage.Add(st, 0, health{Current: 30, Max: 30})
	assert.NilError(t, err)

	assert.NilError(t, storage.Share[health](st, 0, 1))
	got, err := storage.Get[health](st, 1)
	assert.NilError(t, err)
	assert.Equal(t, int32(30), got.Current)

	// a write through either entity is visible to both
	assert.NilError(t, storage.Set(st, 1, health{Current: 5, Max: 30}))
	got, err = storage.Get[health](st, 0)
	assert.NilError(t, err)
	assert.Equal(t, int32(5), got.Current)
}

func TestShareReplacesRecipientRecord(t *testing.T) {
	_, st := newStore(t, 2)
	_, err := storage.Add(st, 0, health{Current: 1})
	assert.NilError(t, err)
	_, err = storage.Add(st, 1, health{Current: 2})
	assert.NilError(t, err)
	twoRecords := storage.PoolSize[health](st)

	assert.NilError(t, storage.Share[health](st, 0, 1))
	assert.Equal(t, twoRecords-8, storage.PoolSize[health](st))

	got, err := storage.Get[health](st, 1)
	assert.NilError(t, err)
	assert.Equal(t, int32(1), got.Current)
}

func TestSharedRecordFreedByLastOwner(t *testing.T) {
	_, st := newStore(t, 3)
	_, err := storage.Add(st, 0, health{Current: 9})
	assert.NilError(t, err)
	assert.NilError(t, storage.Share[health](st, 0, 1))
	assert.NilError(t, storage.Share[health](st, 0, 2))
	shared := storage.PoolSize[health](st)

	// the original owner leaving does not free the bytes
	_, err = storage.Remove[health](st, 0)
	assert.NilError(t, err)
	assert.Equal(t, shared, storage.PoolSize[health](st))

	got, err := storage.Get[health](st, 1)
	assert.NilError(t, err)
	assert.Equal(t, int32(9), got.Current)

	_, err = storage.Remove[health](st, 1)
	assert.NilError(t, err)
	_, err = storage.Remove[health](st, 2)
	assert.NilError(t, err)
	assert.Equal(t, shared-8, storage.PoolSize[health](st))
}

func TestRemoveEntityStripsAllPools(t *testing.T) {
	reg, st := newStore(t, 2)
	assert.NilError(t, registry.RegisterCodec(reg, codec.JSON[inventory]()))

	_, err := storage.Add(st, 0, health{Current: 3})
	assert.NilError(t, err)
	_, err = storage.Add(st, 0, inventory{Items: []string{"x"}})
	assert.NilError(t, err)

	st.RemoveEntity(0)

	has, err := storage.Contains[health](st, 0)
	assert.NilError(t, err)
	assert.False(t, has)
	has, err = storage.Contains[inventory](st, 0)
	assert.NilError(t, err)
	assert.False(t, has)
}

func TestRandomizedChurn(t *testing.T) {
	const total = 64
	_, st := newStore(t, total)
	rng := rand.New(rand.NewSource(7))

	want := make(map[types.EntityID]health)
	for step := 0; step < 5000; step++ {
		id := types.EntityID(rng.Intn(total))
		switch rng.Intn(3) {
		case 0:
			v := health{Current: rng.Int31(), Max: rng.Int31()}
			if _, held := want[id]; held {
				assert.NilError(t, storage.Set(st, id, v))
			} else {
				_, err := storage.Add(st, id, v)
				assert.NilError(t, err)
			}
			want[id] = v
		case 1:
			if _, held := want[id]; held {
				_, err := storage.Remove[health](st, id)
				assert.NilError(t, err)
				delete(want, id)
			}
		case 2:
			got, err := storage.Get[health](st, id)
			if v, held := want[id]; held {
				assert.NilError(t, err)
				assert.Equal(t, v, got)
			} else {
				assert.ErrorIs(t, err, storage.ErrComponentNotOnEntity)
			}
		}
	}
}
