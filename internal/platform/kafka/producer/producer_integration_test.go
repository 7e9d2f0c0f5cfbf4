//go:build integration

package producer_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"captable/internal/platform/kafka/admin"
	"captable/internal/platform/kafka/consumer"
	"captable/internal/platform/kafka/producer"
	"captable/pkg/testutil/containers"
)

type KafkaSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
	producer *producer.Producer
}

func TestKafkaSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaSuite))
}

func (s *KafkaSuite) SetupSuite() {
	s.redpanda = containers.GetManager().GetRedpanda(s.T())
	var err error
	s.producer, err = producer.New(s.redpanda.Brokers)
	s.Require().NoError(err)
}

func (s *KafkaSuite) TearDownSuite() {
	if s.producer != nil {
		s.producer.Close()
	}
}

func (s *KafkaSuite) TestEnsureTopicsIsIdempotent() {
	ctx := context.Background()
	spec := admin.TopicSpec{Name: "captable.test." + uuid.NewString(), Partitions: 3}
	s.Require().NoError(admin.EnsureTopics(ctx, s.producer.Client(), spec))
	s.Require().NoError(admin.EnsureTopics(ctx, s.producer.Client(), spec))
}

func (s *KafkaSuite) TestPublishedMessagesReachTheConsumer() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	topic := "captable.test." + uuid.NewString()
	s.Require().NoError(admin.EnsureTopics(ctx, s.producer.Client(), admin.TopicSpec{Name: topic, Partitions: 1}))

	var (
		mu       sync.Mutex
		received []*consumer.Message
		done     = make(chan struct{})
	)
	handler := consumer.HandlerFunc(func(_ context.Context, msg *consumer.Message) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, msg)
		if len(received) == 2 {
			close(done)
		}
		return nil
	})
	c, err := consumer.New(consumer.Config{
		Brokers: s.redpanda.Brokers,
		GroupID: "captable-test-" + uuid.NewString(),
		Topics:  []string{topic},
	}, handler, nil)
	s.Require().NoError(err)
	defer c.Close()

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() { _ = c.Run(runCtx) }()

	// The consumer starts at the log end; give the group time to join.
	s.Eventually(func() bool {
		err := s.producer.Publish(ctx, topic, []byte("token-1"), []byte(`{"seq":1}`), map[string]string{"event_type": "MINT"})
		s.Require().NoError(err)
		mu.Lock()
		defer mu.Unlock()
		return len(received) > 0
	}, 20*time.Second, 500*time.Millisecond)

	s.Require().NoError(s.producer.Publish(ctx, topic, []byte("token-1"), []byte(`{"seq":2}`), nil))
	select {
	case <-done:
	case <-ctx.Done():
		s.FailNow("timed out waiting for messages")
	}

	mu.Lock()
	defer mu.Unlock()
	s.Equal("token-1", string(received[0].Key))
	s.Equal("MINT", received[0].Headers["event_type"])
}
