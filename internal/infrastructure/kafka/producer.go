package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jhoicas/rental-core/internal/application/inventory"
	"github.com/jhoicas/rental-core/internal/application/transaction"
	"github.com/jhoicas/rental-core/internal/domain/event"
)

var (
	_ inventory.EventPublisher   = (*Producer)(nil)
	_ transaction.EventPublisher = (*Producer)(nil)
)

// Producer publica eventos de dominio en un topic. La clave del mensaje es el ID del agregado,
// así los eventos de un mismo agregado caen en la misma partición y conservan el orden.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}
	return &Producer{writer: writer}
}

func (p *Producer) Publish(ctx context.Context, key string, e any) error {
	msg, err := messageOf(key, e)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write message %s: %w", key, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// messageOf serializa a JSON. Para un event.Envelope copia el tipo y el agregado a headers
// para que un consumidor pueda filtrar sin decodificar el cuerpo.
func messageOf(key string, e any) (kafka.Message, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}
	if env, ok := e.(event.Envelope); ok {
		msg.Time = env.Timestamp
		msg.Headers = []kafka.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
			{Key: "aggregate_type", Value: []byte(env.AggregateType)},
		}
	}
	return msg, nil
}
