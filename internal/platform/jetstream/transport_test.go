package jetstream

import (
	"testing"

	"github.com/phrazzld/feedcore/internal/queue"
	"github.com/stretchr/testify/assert"
)

func TestDurableName(t *testing.T) {
	tests := []struct {
		queue string
		want  string
	}{
		{"DEV:post", "worker-DEV_post"},
		{"like", "worker-like"},
		{"a.b:c", "worker-a_b_c"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, durableName(tt.queue))
	}
}

func TestSubject(t *testing.T) {
	tr := &Transport{cfg: Config{Stream: "FEED"}}
	assert.Equal(t, "FEED.DEV:comment", tr.Subject("DEV:comment"))
}

func TestConnectRequiresStream(t *testing.T) {
	_, err := Connect(Config{URL: "nats://127.0.0.1:1"}, nil)
	assert.Error(t, err)
}

func TestMaxDeliverLeavesRoomToDeadLetter(t *testing.T) {
	assert.Equal(t, 4, maxDeliver(queue.Policy{Attempts: 3}))
	assert.Equal(t, 2, maxDeliver(queue.Policy{}))
}
