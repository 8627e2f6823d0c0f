// ABOUTME: Tests for the update dedupe cache
// ABOUTME: Covers duplicate detection, TTL expiry and size-capped eviction

package dedupe

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSeen_MarksAndDetectsDuplicates(t *testing.T) {
	c := New(time.Minute, 10)

	assert.False(t, c.Seen("update-1"))
	assert.True(t, c.Seen("update-1"))
	assert.False(t, c.Seen("update-2"))
}

func TestSeen_ExpiredKeysAreForgotten(t *testing.T) {
	c := New(10*time.Millisecond, 10)

	assert.False(t, c.Seen("update-1"))
	time.Sleep(20 * time.Millisecond)
	assert.False(t, c.Seen("update-1"))
}

func TestSeen_EvictsOldestAtCapacity(t *testing.T) {
	c := New(time.Minute, 3)

	for i := 0; i < 3; i++ {
		c.Seen(fmt.Sprintf("update-%d", i))
	}
	c.Seen("update-3") // evicts update-0

	assert.Equal(t, 3, c.Len())
	assert.False(t, c.Seen("update-0"))
	assert.True(t, c.Seen("update-3"))
}

func TestSeen_RemarkingExpiredKeyDoesNotCorruptEviction(t *testing.T) {
	c := New(15*time.Millisecond, 2)

	c.Seen("a")
	time.Sleep(20 * time.Millisecond)
	c.Seen("a") // re-marked after expiry
	c.Seen("b")

	assert.True(t, c.Seen("a"))
	assert.True(t, c.Seen("b"))
}
