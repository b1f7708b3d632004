package outbox

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlushRunsInPushOrder(t *testing.T) {
	var o Outbox
	var got []int

	for i := range 5 {
		o.Push(func() { got = append(got, i) })
	}
	o.Flush()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)

	o.Flush()
	assert.Len(t, got, 5)
}

func TestFlushWhileFlushing(t *testing.T) {
	var o Outbox
	var mu sync.Mutex
	var got []string

	record := func(s string) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, s)
	}

	entered := make(chan struct{})
	release := make(chan struct{})
	o.Push(func() {
		close(entered)
		<-release
		record("first")
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		o.Flush()
	}()
	<-entered

	// The running flusher picks this up; the second Flush returns at once.
	o.Push(func() { record("second") })
	o.Flush()

	mu.Lock()
	assert.Empty(t, got)
	mu.Unlock()

	close(release)
	<-done

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"first", "second"}, got)
}
