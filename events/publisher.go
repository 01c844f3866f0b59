package events

import (
	"encoding/json"
	"log"
	"time"

	"github.com/IBM/sarama"

	"localwire/types"
)

// Event names published to the harvest topic.
const (
	HarvestStarted   = "harvest.started"
	HarvestCompleted = "harvest.completed"
	ArticleCreated   = "article.created"
)

// Envelope is the wire shape of every published event.
type Envelope struct {
	Event     string          `json:"event"`
	RunID     string          `json:"run_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// RunSummary is the payload of harvest.completed.
type RunSummary struct {
	Created   int    `json:"created"`
	Rewritten int    `json:"rewritten"`
	Fallbacks int    `json:"fallbacks"`
	Deduped   int    `json:"deduped"`
	Error     string `json:"error,omitempty"`
}

// Publisher emits run lifecycle events to Kafka. A nil Publisher is valid and
// drops everything, so callers never need to branch on whether messaging is
// configured. Publish failures are logged and never fail the harvest.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewPublisher connects a sync producer, or returns nil when no brokers are
// configured.
func NewPublisher(brokers []string, topic string) *Publisher {
	if len(brokers) == 0 {
		return nil
	}
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_6_0_0
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		log.Printf("events: kafka unavailable, events disabled: %v", err)
		return nil
	}
	log.Printf("events: publishing to topic %s", topic)
	return &Publisher{producer: producer, topic: topic}
}

func (p *Publisher) RunStarted(runID string) {
	p.publish(HarvestStarted, runID, nil)
}

func (p *Publisher) RunCompleted(runID string, summary RunSummary) {
	p.publish(HarvestCompleted, runID, summary)
}

func (p *Publisher) ArticleCreated(runID string, a *types.Article) {
	p.publish(ArticleCreated, runID, a)
}

func (p *Publisher) publish(event, runID string, payload any) {
	if p == nil {
		return
	}
	env := Envelope{Event: event, RunID: runID, Timestamp: time.Now().UTC()}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			log.Printf("events: encode %s payload: %v", event, err)
			return
		}
		env.Payload = raw
	}
	value, err := json.Marshal(env)
	if err != nil {
		log.Printf("events: encode %s envelope: %v", event, err)
		return
	}
	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(runID),
		Value: sarama.ByteEncoder(value),
	})
	if err != nil {
		log.Printf("events: publish %s: %v", event, err)
	}
}

// Close shuts the producer down; safe on nil.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if err := p.producer.Close(); err != nil {
		log.Printf("events: close producer: %v", err)
	}
}
