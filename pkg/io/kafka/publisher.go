// Package kafka publishes alerts for suspicious and high-risk feeders.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Shopify/sarama"
	"github.com/pkg/errors"

	"github.com/samyak-umathe/L-THackthon/pkg/config"
	"github.com/samyak-umathe/L-THackthon/pkg/grid"
	gsio "github.com/samyak-umathe/L-THackthon/pkg/io"
)

// Alert reasons.
const (
	ReasonSuspicious = "suspicious"
	ReasonHighRisk   = "high_risk"
)

// Alert types. A suspicious reading is reported as theft even when it is
// also labelled HIGH.
const (
	TypeTheft    = "THEFT"
	TypeHardware = "HARDWARE"
)

// Alert severities.
const (
	SeverityCritical = "CRITICAL"
	SeverityHigh     = "HIGH"
)

// CriticalLoss is the loss percentage above which theft is critical.
const CriticalLoss = 28.0

var _ gsio.Sink = (*Publisher)(nil)

// Alert is the JSON message value. Messages are keyed by feeder id.
type Alert struct {
	FeederID         string         `json:"feeder_id"`
	State            string         `json:"state"`
	Date             string         `json:"date,omitempty"`
	LossPercentage   float64        `json:"loss_percentage"`
	AnomalyScore     float64        `json:"anomaly_score"`
	FailureRiskScore float64        `json:"failure_risk_score"`
	RiskLabel        grid.RiskLabel `json:"risk_label"`
	Type             string         `json:"type"`
	Severity         string         `json:"severity"`
	Reasons          []string       `json:"reasons"`
}

// Producer is the subset of sarama.SyncProducer the publisher needs.
type Producer interface {
	SendMessages(msgs []*sarama.ProducerMessage) error
	Close() error
}

// Publisher sends one alert per flagged reading.
type Publisher struct {
	producer Producer
	topic    string
}

// NewPublisher dials the brokers in cfg with a synchronous producer.
func NewPublisher(cfg config.KafkaConfig) (*Publisher, error) {
	sc := sarama.NewConfig()
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Return.Successes = true
	sc.Producer.Retry.Max = 3
	sc.Producer.Timeout = 10 * time.Second

	p, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create kafka producer")
	}
	return NewPublisherWithProducer(p, cfg.Topic), nil
}

// NewPublisherWithProducer wraps an existing producer.
func NewPublisherWithProducer(p Producer, topic string) *Publisher {
	return &Publisher{producer: p, topic: topic}
}

func (p *Publisher) Name() string {
	return "kafka:" + p.topic
}

// Write publishes alerts for t. Batches with nothing flagged send nothing.
func (p *Publisher) Write(ctx context.Context, t *grid.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	alerts := Alerts(t)
	if len(alerts) == 0 {
		return nil
	}

	msgs := make([]*sarama.ProducerMessage, 0, len(alerts))
	for _, a := range alerts {
		value, err := json.Marshal(a)
		if err != nil {
			return errors.Wrapf(err, "failed to encode alert for %s", a.FeederID)
		}
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic: p.topic,
			Key:   sarama.StringEncoder(a.FeederID),
			Value: sarama.ByteEncoder(value),
		})
	}

	return errors.Wrapf(p.producer.SendMessages(msgs), "failed to publish %d alerts", len(msgs))
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}

// Alerts returns an alert for every reading that is suspicious or labelled
// HIGH, in row order.
func Alerts(t *grid.Table) []Alert {
	var out []Alert
	for _, r := range t.Readings() {
		var reasons []string
		if r.IsSuspicious {
			reasons = append(reasons, ReasonSuspicious)
		}
		if r.RiskLabel == grid.RiskHigh {
			reasons = append(reasons, ReasonHighRisk)
		}
		if len(reasons) == 0 {
			continue
		}

		a := Alert{
			FeederID:         r.FeederID,
			State:            r.State,
			LossPercentage:   r.LossPercentage,
			AnomalyScore:     r.AnomalyScore,
			FailureRiskScore: r.FailureRiskScore,
			RiskLabel:        r.RiskLabel,
			Type:             TypeHardware,
			Severity:         SeverityHigh,
			Reasons:          reasons,
		}
		if r.IsSuspicious {
			a.Type = TypeTheft
			if r.LossPercentage > CriticalLoss {
				a.Severity = SeverityCritical
			}
		}
		if !r.Date.IsZero() {
			a.Date = r.Date.Format(grid.DateLayout)
		}
		out = append(out, a)
	}
	return out
}
