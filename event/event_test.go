package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopic_PublishInSubscriptionOrder(t *testing.T) {
	var topic Topic[int]
	var got []string

	topic.Subscribe(func(n int) { got = append(got, "a") })
	topic.Subscribe(func(n int) { got = append(got, "b") })
	topic.Publish(1)

	assert.Equal(t, []string{"a", "b"}, got)
}

func TestTopic_Unsubscribe(t *testing.T) {
	var topic Topic[int]
	var first, second int

	unsubFirst := topic.Subscribe(func(n int) { first += n })
	topic.Subscribe(func(n int) { second += n })
	topic.Publish(1)

	unsubFirst()
	unsubFirst()
	topic.Publish(10)

	assert.Equal(t, 1, first)
	assert.Equal(t, 11, second)
}

func TestTopic_UnsubscribeDuringPublish(t *testing.T) {
	var topic Topic[int]
	calls := 0

	var unsub func()
	unsub = topic.Subscribe(func(int) {
		calls++
		unsub()
	})
	topic.Subscribe(func(int) { calls++ })

	topic.Publish(1)
	assert.Equal(t, 2, calls, "the snapshot taken at publish time is delivered in full")

	topic.Publish(2)
	assert.Equal(t, 3, calls)
}

func receive[E any](t *testing.T, m *Mailbox[E]) (E, bool) {
	t.Helper()
	select {
	case e, ok := <-m.Out():
		return e, ok
	case <-time.After(time.Second):
		t.Fatal("mailbox did not deliver")
		var zero E
		return zero, false
	}
}

func TestMailbox_FIFO(t *testing.T) {
	m := NewMailbox[int]()
	for i := range 100 {
		require.True(t, m.Put(i))
	}

	for i := range 100 {
		got, ok := receive(t, m)
		require.True(t, ok)
		assert.Equal(t, i, got)
	}
	m.Close()
}

func TestMailbox_CloseDrains(t *testing.T) {
	m := NewMailbox[string]()
	m.Put("a")
	m.Put("b")
	m.Close()

	assert.False(t, m.Put("c"))

	var got []string
	for s := range m.Out() {
		got = append(got, s)
	}
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestMailbox_Discard(t *testing.T) {
	m := NewMailbox[int]()
	m.Put(1)
	m.Discard()
	m.Discard()

	assert.False(t, m.Put(2))
	for range m.Out() {
	}
}
