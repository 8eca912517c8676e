package travel

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelSinkDeliversInOrder(t *testing.T) {
	sink, events := NewChannelSink(8)

	sink.Notify("a", StatusRunning, "one")
	sink.Notify("a", StatusComplete, "two")
	sink.Close()

	var got []ProgressEvent
	for ev := range events {
		got = append(got, ev)
	}
	require.Len(t, got, 2)
	assert.Equal(t, "one", got[0].Message)
	assert.Equal(t, "two", got[1].Message)
}

func TestChannelSinkDropsWhenFull(t *testing.T) {
	sink, events := NewChannelSink(1)

	// No reader yet: only the first event fits, the rest are dropped
	// rather than blocking the pipeline.
	sink.Notify("a", StatusRunning, "kept")
	sink.Notify("a", StatusRunning, "dropped")
	sink.Notify("a", StatusRunning, "dropped")
	sink.Close()

	var got []ProgressEvent
	for ev := range events {
		got = append(got, ev)
	}
	require.Len(t, got, 1)
	assert.Equal(t, "kept", got[0].Message)
}

func TestChannelSinkNotifyAfterCloseIsSafe(t *testing.T) {
	sink, events := NewChannelSink(4)
	sink.Close()

	assert.NotPanics(t, func() {
		sink.Notify("a", StatusRunning, "late")
	})

	_, open := <-events
	assert.False(t, open)
}

func TestChannelSinkCloseTwiceIsSafe(t *testing.T) {
	sink, _ := NewChannelSink(1)
	sink.Close()
	assert.NotPanics(t, sink.Close)
}

func TestChannelSinkConcurrentNotify(t *testing.T) {
	sink, events := NewChannelSink(256)

	done := make(chan int)
	go func() {
		n := 0
		for range events {
			n++
		}
		done <- n
	}()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				sink.Notify("w", StatusRunning, "tick")
			}
		}()
	}
	wg.Wait()
	sink.Close()

	assert.Equal(t, 100, <-done, "buffer is large enough that nothing drops")
}
