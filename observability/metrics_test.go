package observability

import (
	"testing"

	"pm-lab/backplane"
	"pm-lab/domain/event"
	"pm-lab/mocks"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestPromBackplane_CountsPublishedEnvelopesByKind(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	inner := mocks.NewMockIBackplane(ctrl)
	inner.EXPECT().Publish(backplane.TopicBroadcast, gomock.Any()).Return(nil).Times(2)
	inner.EXPECT().Publish(backplane.TopicUser("bob"), gomock.Any()).Return(nil)
	inner.EXPECT().Close().Return(nil)

	p := NewPromBackplane(inner)
	defer func() { req.NoError(p.Close()) }()

	env := backplane.Envelope{Origin: uuid.New(), Event: event.PeerConnected{UserID: "bob"}}
	req.NoError(p.Publish(backplane.TopicBroadcast, env))
	req.NoError(p.Publish(backplane.TopicBroadcast, env))

	msg := backplane.Envelope{Origin: uuid.New(), Event: event.MessageDelivered{From: "bob", To: "alice"}}
	req.NoError(p.Publish(backplane.TopicUser("bob"), msg))

	req.Equal(float64(2), testutil.ToFloat64(p.published.WithLabelValues(event.KindPeerConnected)))
	req.Equal(float64(1), testutil.ToFloat64(p.published.WithLabelValues(event.KindDirectMessage)))
}

func TestLiveConnectionsGauge_ReadsCounterSource(t *testing.T) {
	req := require.New(t)

	count := 3
	gauge := LiveConnectionsGauge(func() int { return count })
	defer prometheus.Unregister(gauge)

	req.Equal(float64(3), testutil.ToFloat64(gauge))

	count = 0
	req.Equal(float64(0), testutil.ToFloat64(gauge))
}
