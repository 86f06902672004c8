package sched

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTaskQueueFIFOOrder(t *testing.T) {
	q := newTaskQueue(4)
	for i := 0; i < 10; i++ {
		q.Push(Task{Name: string(rune('a' + i))})
	}
	for i := 0; i < 10; i++ {
		task, ok := q.TryPop()
		require.True(t, ok)
		require.Equal(t, string(rune('a'+i)), task.Name)
	}
	_, ok := q.TryPop()
	require.False(t, ok)
}

func TestTaskQueueConcurrentPushPop(t *testing.T) {
	q := newTaskQueue(16)
	const producers, perProducer = 8, 500

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(Task{})
			}
		}()
	}
	wg.Wait()

	count := 0
	for {
		if _, ok := q.TryPop(); !ok {
			break
		}
		count++
	}
	require.Equal(t, producers*perProducer, count)
}

func TestTaskQueueStatsHighWater(t *testing.T) {
	q := newTaskQueue(2)
	for i := 0; i < 5; i++ {
		q.Push(Task{})
	}
	length, hw := q.Stats()
	require.Equal(t, 5, length)
	require.Equal(t, 5, hw)

	q.TryPop()
	q.TryPop()
	length, hw = q.Stats()
	require.Equal(t, 3, length)
	require.Equal(t, 5, hw, "high water mark must not shrink")
}
