//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"visadesk/internal/platform/config"
	audit "visadesk/pkg/platform/audit"
	auditkafka "visadesk/pkg/platform/audit/kafka"
	"visadesk/pkg/testutil/containers"
)

const testTopic = "visadesk.checklist.events.test"

type KafkaPublisherSuite struct {
	suite.Suite
	redpanda  *containers.RedpandaContainer
	publisher *auditkafka.Publisher
}

func TestKafkaPublisherSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaPublisherSuite))
}

func (s *KafkaPublisherSuite) SetupSuite() {
	s.redpanda = containers.NewRedpandaContainer(s.T())

	ctx := context.Background()
	s.Require().NoError(s.redpanda.CreateTopic(ctx, testTopic))

	publisher, err := auditkafka.NewPublisher(config.KafkaConfig{
		Brokers: []string{s.redpanda.Broker},
		Topic:   testTopic,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.Require().NoError(err)
	s.Require().NotNil(publisher)
	s.publisher = publisher
}

func (s *KafkaPublisherSuite) TearDownSuite() {
	if s.publisher != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.NoError(s.publisher.Close(ctx))
	}
}

// consume reads the topic from the start until want records match. Tests
// share the topic, so each filters for its own records.
func (s *KafkaPublisherSuite) consume(ctx context.Context, want int, match func(*kgo.Record) bool) []*kgo.Record {
	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Broker),
		kgo.ConsumeTopics(testTopic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	var records []*kgo.Record
	for len(records) < want {
		fetches := consumer.PollFetches(ctx)
		s.Require().NoError(fetches.Err())
		for _, record := range fetches.Records() {
			if match(record) {
				records = append(records, record)
			}
		}
	}
	return records
}

func (s *KafkaPublisherSuite) TestEventsAreDeliveredKeyedByApplication() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	events := []audit.Event{
		{
			Category:      audit.CategoryOperations,
			Action:        audit.EventGenerationStarted,
			Timestamp:     time.Now().UTC(),
			ApplicationID: "app-42",
			CountryCode:   "DE",
			VisaType:      "tourist",
		},
		{
			Category:      audit.CategoryOperations,
			Action:        audit.EventChecklistReady,
			Timestamp:     time.Now().UTC(),
			ApplicationID: "app-42",
			CountryCode:   "DE",
			VisaType:      "tourist",
		},
	}
	for _, event := range events {
		s.Require().NoError(s.publisher.Append(ctx, event))
	}

	records := s.consume(ctx, len(events), func(record *kgo.Record) bool {
		return string(record.Key) == "app-42"
	})
	s.Require().Len(records, len(events))

	for i, record := range records {
		var got audit.Event
		s.Require().NoError(json.Unmarshal(record.Value, &got))
		s.Equal(events[i].Action, got.Action)
		s.Equal(events[i].ApplicationID, got.ApplicationID)
		s.Equal(events[i].CountryCode, got.CountryCode)
	}

	// Same key lands in the same partition, preserving per-application order.
	s.Equal(records[0].Partition, records[1].Partition)
}

func (s *KafkaPublisherSuite) TestComplianceEventRoundTrip() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	event := audit.Event{
		Category:  audit.CategoryCompliance,
		Action:    audit.EventRuleSetApproved,
		Timestamp: time.Now().UTC(),
		RuleSetID: "8f14e45f-ea6f-4d4c-9a5a-000000000000",
		UserID:    "admin",
	}
	s.Require().NoError(s.publisher.Append(ctx, event))

	records := s.consume(ctx, 1, func(record *kgo.Record) bool {
		var got audit.Event
		return json.Unmarshal(record.Value, &got) == nil && got.Action == audit.EventRuleSetApproved
	})

	var got audit.Event
	s.Require().NoError(json.Unmarshal(records[0].Value, &got))
	s.Equal(event.RuleSetID, got.RuleSetID)
	s.Equal(audit.CategoryCompliance, got.Category)
}