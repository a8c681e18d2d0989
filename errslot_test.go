package widekv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorSlotLastWriteWins(t *testing.T) {
	var released []string
	slot := &ErrorSlot{Release: func(msg string) { released = append(released, msg) }}

	assert.False(t, slot.Holding())
	assert.False(t, slot.Report(nil), "ok must not touch the slot")
	assert.False(t, slot.Holding())

	require.True(t, slot.Report(IOError("A")))
	assert.Equal(t, "IO error: A", slot.Message())
	assert.Empty(t, released)

	require.True(t, slot.Report(Corruption("B")))
	assert.Equal(t, "Corruption: B", slot.Message())
	assert.Equal(t, []string{"IO error: A"}, released, "the replaced message is released exactly once")
	assert.Equal(t, CodeCorruption, CodeOf(slot.Err()))

	slot.Report(nil)
	assert.Equal(t, "Corruption: B", slot.Message(), "a later success never clears")

	slot.Clear()
	assert.False(t, slot.Holding())
	assert.Equal(t, []string{"IO error: A", "Corruption: B"}, released)
}

func TestErrorSlotTake(t *testing.T) {
	releases := 0
	slot := &ErrorSlot{Release: func(string) { releases++ }}

	_, ok := slot.Take()
	assert.False(t, ok)

	slot.Report(IOError("x"))
	msg, ok := slot.Take()
	require.True(t, ok)
	assert.Equal(t, "IO error: x", msg)
	assert.False(t, slot.Holding())
	assert.Nil(t, slot.Err())

	slot.Clear()
	assert.Zero(t, releases, "a taken message belongs to the caller")
}

func TestErrorSlotNil(t *testing.T) {
	var slot *ErrorSlot
	assert.False(t, slot.Report(IOError("x")))
	assert.False(t, slot.Holding())
	assert.Empty(t, slot.Message())
	assert.Nil(t, slot.Err())
	slot.Clear()
}
