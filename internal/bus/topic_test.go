package bus

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/add-markers/internal/monitoring"
)

func init() {
	monitoring.SetLogger(nil)
}

func TestTopic_SubscribeCounts(t *testing.T) {
	topic := NewTopic[int]("visualization_marker")
	assert.Equal(t, 0, topic.NumSubscribers())

	a, err := topic.Subscribe(1)
	require.NoError(t, err)
	b, err := topic.Subscribe(1)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, topic.NumSubscribers())

	a.Close()
	assert.Equal(t, 1, topic.NumSubscribers())

	_, ok := <-a.C()
	assert.False(t, ok, "channel should be closed after unsubscribe")

	// Unsubscribing twice is harmless.
	a.Close()
	assert.Equal(t, 1, topic.NumSubscribers())
}

func TestTopic_PublishFanOut(t *testing.T) {
	topic := NewTopic[string]("odom")
	a, _ := topic.Subscribe(4)
	b, _ := topic.Subscribe(4)

	assert.Equal(t, 2, topic.Publish("hello"))

	msg, ok := a.TryRecv()
	require.True(t, ok)
	assert.Equal(t, "hello", msg)
	msg, ok = b.TryRecv()
	require.True(t, ok)
	assert.Equal(t, "hello", msg)

	_, ok = a.TryRecv()
	assert.False(t, ok, "TryRecv on an empty queue must not block or succeed")
}

func TestTopic_PublishWithoutSubscribers(t *testing.T) {
	topic := NewTopic[int]("visualization_marker")
	assert.Equal(t, 0, topic.Publish(1))
	assert.Equal(t, uint64(1), topic.Stats().Published)
}

func TestTopic_EvictsOldestWhenFull(t *testing.T) {
	topic := NewTopic[int]("odom")
	sub, _ := topic.Subscribe(3)

	for i := 1; i <= 5; i++ {
		assert.Equal(t, 1, topic.Publish(i))
	}

	stats := topic.Stats()
	assert.Equal(t, uint64(5), stats.Published)
	assert.Equal(t, uint64(2), stats.Dropped)
	assert.Equal(t, 1, stats.Subscribers)

	var got []int
	for {
		msg, ok := sub.TryRecv()
		if !ok {
			break
		}
		got = append(got, msg)
	}
	assert.Equal(t, []int{3, 4, 5}, got, "the newest messages are kept")
}

func TestTopic_EvictionIsPerSubscriber(t *testing.T) {
	topic := NewTopic[int]("visualization_marker")
	slow, _ := topic.Subscribe(1)
	fast, _ := topic.Subscribe(4)

	topic.Publish(1)
	topic.Publish(2)

	msg, _ := slow.TryRecv()
	assert.Equal(t, 2, msg)
	first, _ := fast.TryRecv()
	second, _ := fast.TryRecv()
	assert.Equal(t, []int{1, 2}, []int{first, second})
	assert.Equal(t, uint64(1), topic.Stats().Dropped)
}

func TestTopic_Close(t *testing.T) {
	topic := NewTopic[int]("odom")
	sub, _ := topic.Subscribe(1)

	topic.Close()
	_, ok := <-sub.C()
	assert.False(t, ok)
	assert.Equal(t, 0, topic.Publish(1))

	_, err := topic.Subscribe(1)
	assert.ErrorIs(t, err, ErrClosed)

	// Closing a subscription after the topic closed must not panic.
	sub.Close()
}

func TestTopic_ConcurrentPublishSubscribe(t *testing.T) {
	topic := NewTopic[int]("odom")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			sub, err := topic.Subscribe(2)
			if err != nil {
				return
			}
			sub.TryRecv()
			sub.Close()
		}()
		go func(v int) {
			defer wg.Done()
			topic.Publish(v)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 0, topic.NumSubscribers())
}
