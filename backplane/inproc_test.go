package backplane

import (
	"sync"
	"testing"
	"time"

	"pm-lab/domain/event"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func collectEnvelopes(t *testing.T, b *InProc, topic string) (<-chan Envelope, func()) {
	t.Helper()
	received := make(chan Envelope, 16)
	cancel, err := b.Subscribe(topic, func(env Envelope) {
		received <- env
	})
	require.NoError(t, err)
	return received, cancel
}

func Test_Publish_Reaches_All_Topic_Subscribers(t *testing.T) {
	req := require.New(t)
	b := NewInProc()
	defer b.Close()

	first, cancelFirst := collectEnvelopes(t, b, TopicBroadcast)
	defer cancelFirst()
	second, cancelSecond := collectEnvelopes(t, b, TopicBroadcast)
	defer cancelSecond()

	env := Envelope{Origin: uuid.New(), Event: event.PeerDisconnected{UserID: "u-1"}}
	req.NoError(b.Publish(TopicBroadcast, env))

	for _, ch := range []<-chan Envelope{first, second} {
		select {
		case got := <-ch:
			req.Equal(env, got)
		case <-time.After(time.Second):
			t.Fatal("subscriber never received the envelope")
		}
	}
}

func Test_Targeted_Topic_Does_Not_Leak(t *testing.T) {
	req := require.New(t)
	b := NewInProc()
	defer b.Close()

	alice, cancelAlice := collectEnvelopes(t, b, TopicUser("alice"))
	defer cancelAlice()
	bob, cancelBob := collectEnvelopes(t, b, TopicUser("bob"))
	defer cancelBob()

	env := Envelope{Origin: uuid.New(), Event: event.MessageDelivered{Content: "hi", From: "x", To: "alice"}}
	req.NoError(b.Publish(TopicUser("alice"), env))

	select {
	case <-alice:
	case <-time.After(time.Second):
		t.Fatal("targeted subscriber never received the envelope")
	}
	select {
	case <-bob:
		t.Fatal("envelope leaked to an unrelated group")
	case <-time.After(50 * time.Millisecond):
	}
}

func Test_Per_Publisher_Order_Is_Preserved(t *testing.T) {
	req := require.New(t)
	b := NewInProc()
	defer b.Close()

	var mu sync.Mutex
	var contents []string
	cancel, err := b.Subscribe(TopicUser("bob"), func(env Envelope) {
		mu.Lock()
		contents = append(contents, env.Event.(event.MessageDelivered).Content)
		mu.Unlock()
	})
	req.NoError(err)
	defer cancel()

	want := []string{"one", "two", "three", "four", "five"}
	for _, content := range want {
		req.NoError(b.Publish(TopicUser("bob"), Envelope{
			Event: event.MessageDelivered{Content: content, From: "alice", To: "bob"},
		}))
	}

	req.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(contents) == len(want)
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	req.Equal(want, contents)
}

func Test_Cancelled_Subscriber_Stops_Receiving(t *testing.T) {
	req := require.New(t)
	b := NewInProc()
	defer b.Close()

	received, cancel := collectEnvelopes(t, b, TopicBroadcast)
	cancel()

	req.NoError(b.Publish(TopicBroadcast, Envelope{Event: event.PeerDisconnected{UserID: "u-1"}}))

	select {
	case <-received:
		t.Fatal("cancelled subscriber still received an envelope")
	case <-time.After(50 * time.Millisecond):
	}
}

func Test_Envelope_Codec_Round_Trip(t *testing.T) {
	req := require.New(t)

	envelopes := []Envelope{
		{Origin: uuid.New(), Event: event.PeerConnected{UserID: "u-1", Username: "Alice"}},
		{Origin: uuid.New(), Event: event.PeerDisconnected{UserID: "u-2"}},
		{Origin: uuid.New(), Event: event.MessageDelivered{ID: uuid.New(), Content: "hi", From: "u-1", To: "u-2", At: 42}},
	}
	for _, env := range envelopes {
		raw, err := encodeEnvelope(env)
		req.NoError(err)
		decoded, err := decodeEnvelope(raw)
		req.NoError(err)
		req.Equal(env, decoded)
	}

	_, err := decodeEnvelope([]byte(`{"type":"no-such-kind","data":{}}`))
	req.Error(err)
}
