package events

import (
	"encoding/json"
	"testing"

	"github.com/IBM/sarama/mocks"
)

func TestNilPublisherIsSafe(t *testing.T) {
	var p *Publisher
	p.RunStarted("run-1")
	p.RunCompleted("run-1", RunSummary{Created: 3})
	p.ArticleCreated("run-1", nil)
	p.Close()
}

func TestNewPublisherWithoutBrokers(t *testing.T) {
	if p := NewPublisher(nil, "localwire.harvest"); p != nil {
		t.Error("expected nil publisher when no brokers configured")
	}
}

func TestPublishEnvelope(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(value []byte) error {
		var env Envelope
		if err := json.Unmarshal(value, &env); err != nil {
			return err
		}
		if env.Event != HarvestCompleted {
			t.Errorf("event = %q, want %q", env.Event, HarvestCompleted)
		}
		if env.RunID != "run-42" {
			t.Errorf("run id = %q", env.RunID)
		}
		var summary RunSummary
		if err := json.Unmarshal(env.Payload, &summary); err != nil {
			return err
		}
		if summary.Created != 5 || summary.Deduped != 2 {
			t.Errorf("unexpected summary %+v", summary)
		}
		return nil
	})

	p := &Publisher{producer: producer, topic: "localwire.harvest"}
	p.RunCompleted("run-42", RunSummary{Created: 5, Rewritten: 4, Deduped: 2})

	if err := producer.Close(); err != nil {
		t.Fatalf("close mock producer: %v", err)
	}
}
