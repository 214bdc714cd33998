package turnbuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppend_EvictsOldestWhenFull(t *testing.T) {
	b := New(2)
	b.Append("u1", "a1")
	b.Append("u2", "a2")
	b.Append("u3", "a3")

	assert.Equal(t, 2, b.Len())
	recent := b.Recent(2)
	assert.Equal(t, "u2", recent[0].User)
	assert.Equal(t, "u3", recent[1].User)
}

func TestRecentText_FormatsOldestFirst(t *testing.T) {
	b := New(5)
	b.Append("u1", "a1")
	b.Append("u2", "a2")

	text := b.RecentText(1)
	assert.Contains(t, text, "user: u2")
	assert.Contains(t, text, "assistant: a2")
	assert.NotContains(t, text, "u1")
}

func TestNew_DefaultsCapacityWhenNonPositive(t *testing.T) {
	b := New(0)
	for i := 0; i < defaultSize+3; i++ {
		b.Append("u", "a")
	}
	assert.Equal(t, defaultSize, b.Len())
}
