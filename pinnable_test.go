package widekv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilHandles(t *testing.T) {
	var p *PinnableWideColumns
	assert.Zero(t, p.Size())
	assert.Nil(t, p.Name(0))
	assert.Nil(t, p.Value(0))
	assert.Nil(t, p.Columns())
	assert.False(t, p.Pinned())
	assert.NotPanics(t, p.Destroy)

	var o *OwnedWideColumns
	assert.Zero(t, o.Size())
	assert.Nil(t, o.Name(3))
	assert.Nil(t, o.Value(3))
	assert.NotPanics(t, o.Destroy)
}

func TestPinnableReleaseRunsOnce(t *testing.T) {
	encoded, err := SerializeEntity(nil, WideColumns{
		{Name: []byte("a"), Value: []byte("1")},
		{Name: []byte("b"), Value: []byte("2")},
	})
	require.NoError(t, err)

	releases := 0
	p := NewPinnableWideColumns()
	require.NoError(t, p.SetWideColumnValue(encoded, func() { releases++ }))
	require.True(t, p.Pinned())
	require.Equal(t, 2, p.Size())
	assert.Equal(t, []byte("a"), p.Name(0))
	assert.Equal(t, []byte("2"), p.Value(1))
	assert.Zero(t, releases, "columns stay pinned while the handle lives")

	p.Destroy()
	assert.Equal(t, 1, releases)
	assert.Zero(t, p.Size())
	p.Destroy()
	assert.Equal(t, 1, releases, "a second destroy must not release again")
}

func TestPinnableSetPlainValue(t *testing.T) {
	first, second := 0, 0
	p := NewPinnableWideColumns()
	p.SetPlainValue([]byte("v1"), func() { first++ })
	require.Equal(t, 1, p.Size())
	assert.Empty(t, p.Name(0))
	assert.Equal(t, []byte("v1"), p.Value(0))

	p.SetPlainValue([]byte("v2"), func() { second++ })
	assert.Equal(t, 1, first, "replacing the value releases the old pin")
	assert.Equal(t, []byte("v2"), p.Value(0))

	p.Reset()
	assert.Equal(t, 1, second)
	assert.False(t, p.Pinned())
}

func TestPinnableSetWideColumnValueCorrupt(t *testing.T) {
	releases := 0
	p := NewPinnableWideColumns()
	err := p.SetWideColumnValue([]byte{0x01, 0x03}, func() { releases++ })
	require.Error(t, err)
	assert.Equal(t, CodeCorruption, CodeOf(err))
	assert.Equal(t, 1, releases)
	assert.Zero(t, p.Size())
	assert.False(t, p.Pinned())
}

func TestPinnableOutOfRangePanics(t *testing.T) {
	p := NewPinnableWideColumns()
	p.SetPlainValue([]byte("v"), nil)
	assert.Panics(t, func() { p.Name(1) })
	assert.Panics(t, func() { p.Value(-1) })
}

func TestOwnedWideColumns(t *testing.T) {
	o := NewOwnedWideColumns(WideColumns{{Name: []byte("n"), Value: []byte("v")}})
	require.Equal(t, 1, o.Size())
	assert.Equal(t, []byte("n"), o.Name(0))
	assert.Equal(t, []byte("v"), o.Value(0))
	o.Destroy()
	assert.Zero(t, o.Size())
	assert.NotPanics(t, o.Destroy)
}
