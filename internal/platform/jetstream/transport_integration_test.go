//go:build integration

package jetstream

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/feedcore/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startNATS(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nats:2.10-alpine",
			Cmd:          []string{"-js"},
			ExposedPorts: []string{"4222/tcp"},
			WaitingFor:   wait.ForLog("Server is ready").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "4222")
	require.NoError(t, err)
	return fmt.Sprintf("nats://%s:%s", host, port.Port())
}

func TestTransportRedeliversUntilTerm(t *testing.T) {
	url := startNATS(t)

	tr, err := Connect(Config{URL: url, Stream: "FEEDTEST", AckWait: 5 * time.Second}, nil)
	require.NoError(t, err)
	defer tr.Close()
	require.NoError(t, tr.Ping(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deliveries, err := tr.Subscribe(ctx, "TEST:like", queue.Policy{Attempts: 3})
	require.NoError(t, err)

	job, err := queue.NewJob("TEST:like", queue.Like{PostID: uuid.New(), UserID: uuid.New()})
	require.NoError(t, err)
	require.NoError(t, tr.Publish(ctx, job))

	first := <-deliveries
	require.NotNil(t, first)
	assert.Equal(t, job.ID, first.Job().ID)
	assert.Equal(t, 0, first.Job().AttemptsMade)
	require.NoError(t, first.Nak(ctx, 50*time.Millisecond))

	second := <-deliveries
	require.NotNil(t, second)
	assert.Equal(t, 1, second.Job().AttemptsMade)
	require.NoError(t, second.Term(ctx))

	select {
	case d := <-deliveries:
		t.Fatalf("unexpected redelivery of %v", d.Job().ID)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestTransportRedeliversAnUnsettledLastAttempt(t *testing.T) {
	url := startNATS(t)

	tr, err := Connect(Config{URL: url, Stream: "FEEDLOST", AckWait: time.Second}, nil)
	require.NoError(t, err)
	defer tr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	policy := queue.Policy{Attempts: 1}
	deliveries, err := tr.Subscribe(ctx, "TEST:post", policy)
	require.NoError(t, err)

	info, err := tr.js.ConsumerInfo("FEEDLOST", durableName("TEST:post"))
	require.NoError(t, err)
	assert.Equal(t, policy.MaxAttempts()+1, info.Config.MaxDeliver)

	job, err := queue.NewJob("TEST:post", queue.CreatePost{UserID: uuid.New(), Description: "lost"})
	require.NoError(t, err)
	require.NoError(t, tr.Publish(ctx, job))

	// the only attempt is never settled, as if its worker crashed
	first := <-deliveries
	require.NotNil(t, first)
	assert.False(t, policy.Exhausted(first.Job().AttemptsMade))

	second := <-deliveries
	require.NotNil(t, second)
	assert.Equal(t, job.ID, second.Job().ID)
	assert.True(t, policy.Exhausted(second.Job().AttemptsMade), "the worker dead-letters this delivery")
	require.NoError(t, second.Term(ctx))

	select {
	case d := <-deliveries:
		t.Fatalf("unexpected redelivery of %v", d.Job().ID)
	case <-time.After(1500 * time.Millisecond):
	}
}
