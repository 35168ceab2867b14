// Package messaging 注册审核领域事件发布
package messaging

import (
	"context"
	"log/slog"
	"time"

	"github.com/wyfcoding/affiliateops/internal/signup/domain"
	"github.com/wyfcoding/affiliateops/pkg/logger"
)

// producer mq.KafkaProducer 的发送能力
type producer interface {
	SendMessage(ctx context.Context, topic string, key string, value any, headers map[string]string) error
}

// KafkaEventPublisher 以注册申请 ID 为分区键投递事件，保证同一申请的事件有序
type KafkaEventPublisher struct {
	producer producer
	service  string
}

// NewKafkaEventPublisher 创建 Kafka 事件发布器
func NewKafkaEventPublisher(p producer, service string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: p, service: service}
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, topic string, key string, event any) error {
	headers := map[string]string{
		"event_name": topic,
		"source":     p.service,
	}
	if de, ok := event.(domain.DomainEvent); ok {
		headers["occurred_at"] = de.OccurredAt().UTC().Format(time.RFC3339Nano)
	}
	if traceID := logger.TraceID(ctx); traceID != "" {
		headers["trace_id"] = traceID
	}
	return p.producer.SendMessage(ctx, topic, key, event, headers)
}

// LogEventPublisher 未启用 Kafka 时仅记录事件
type LogEventPublisher struct {
	logger *slog.Logger
}

// NewLogEventPublisher 创建日志事件发布器
func NewLogEventPublisher(logger *slog.Logger) *LogEventPublisher {
	return &LogEventPublisher{logger: logger}
}

func (p *LogEventPublisher) Publish(ctx context.Context, topic string, key string, event any) error {
	p.logger.InfoContext(ctx, "domain event", "topic", topic, "key", key, "event", event)
	return nil
}
