package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"custodia/internal/platform/kafka"
)

// Topic layout: one topic per category so retention policies can differ.
const (
	TopicCompliance = "custodia.audit.compliance"
	TopicSecurity   = "custodia.audit.security"
	TopicOperations = "custodia.audit.operations"
)

// KafkaSink publishes audit events to category-specific topics. Records are
// keyed by principal so per-principal ordering survives partitioning.
type KafkaSink struct {
	producer *kafka.Producer
}

func NewKafkaSink(producer *kafka.Producer) *KafkaSink {
	return &KafkaSink{producer: producer}
}

// TopicFor maps an event category to its topic.
func TopicFor(category EventCategory) string {
	switch category {
	case CategoryCompliance:
		return TopicCompliance
	case CategorySecurity:
		return TopicSecurity
	default:
		return TopicOperations
	}
}

func (s *KafkaSink) Publish(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	return s.producer.Produce(ctx, TopicFor(event.Category), []byte(event.Principal), value)
}
