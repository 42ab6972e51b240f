package relay

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextQueueIndexRotates(t *testing.T) {
	prevQueues := theNumberOfQueues
	defer func() { theNumberOfQueues = prevQueues }()
	theNumberOfQueues = 4
	atomic.StoreInt64(&queueCount, 0)

	seen := map[int]int{}
	for i := 0; i < 8; i++ {
		seen[nextQueueIndex()]++
	}
	for index := 0; index < 4; index++ {
		assert.Equal(t, 2, seen[index], "queue %d", index)
	}
}

func TestNextQueueIndexConcurrent(t *testing.T) {
	prevQueues := theNumberOfQueues
	defer func() { theNumberOfQueues = prevQueues }()
	theNumberOfQueues = 3
	atomic.StoreInt64(&queueCount, 0)

	wg := sync.WaitGroup{}
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				index := nextQueueIndex()
				assert.GreaterOrEqual(t, index, 0)
				assert.Less(t, index, 3)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(800), atomic.LoadInt64(&queueCount))
}

func TestGetQueueName(t *testing.T) {
	assert.Equal(t, "recording-upload-queue-0", GetQueueName(0))
	assert.Equal(t, "recording-upload-queue-2", GetQueueName(2))
}
