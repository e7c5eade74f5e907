package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/mohammadpnp/crm-import/internal/domain/importing"
	"github.com/mohammadpnp/crm-import/internal/infrastructure/events"
)

func TestKafkaPublisherSendsEvent(t *testing.T) {
	t.Parallel()

	config := mocks.NewTestConfig()
	config.Producer.Return.Successes = true
	producer := mocks.NewSyncProducer(t, config)

	event := domain.ImportEvent{
		Type:              "import.completed",
		SessionID:         "session-1",
		WorkspaceID:       "ws-1",
		ImportType:        domain.ImportTypeContacts,
		Status:            domain.StatusCompleted,
		TotalRecords:      2,
		SuccessfulRecords: 2,
		OccurredAt:        time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
	}

	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(value []byte) error {
		var got domain.ImportEvent
		if err := json.Unmarshal(value, &got); err != nil {
			return err
		}
		if got.SessionID != "session-1" || got.Status != domain.StatusCompleted {
			return errors.New("unexpected event payload")
		}
		return nil
	})

	publisher := events.NewKafkaPublisher(producer, "crm.import.events")
	require.NoError(t, publisher.Publish(context.Background(), event))
	require.NoError(t, publisher.Close())
}

func TestKafkaPublisherReturnsSendError(t *testing.T) {
	t.Parallel()

	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	publisher := events.NewKafkaPublisher(producer, "crm.import.events")
	err := publisher.Publish(context.Background(), domain.ImportEvent{SessionID: "session-1"})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, publisher.Close())
}

func TestKafkaPublisherHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := events.NewKafkaPublisher(producer, "topic").Publish(ctx, domain.ImportEvent{})
	assert.ErrorIs(t, err, context.Canceled)
	require.NoError(t, producer.Close())
}
