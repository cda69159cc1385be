package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/abdullah-koca/lunora/internal/sender"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type EmailMessage struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject"`
	Template string         `json:"template"`
	Data     map[string]any `json:"data"`
}

// orderRef достаёт номер заказа для журналирования: сначала из payload,
// иначе из kafka-ключа (producer ключует письма номером заказа).
func orderRef(em EmailMessage, key []byte) string {
	if v, ok := em.Data["OrderNumber"].(string); ok && v != "" {
		return v
	}
	return string(key)
}

// EmailDispatcher отправляет одно письмо; боевая реализация — sender.EmailSender.
type EmailDispatcher interface {
	SendEmail(n sender.EmailNotification) error
}

type KafkaEmailConsumer struct {
	reader      *kafka.Reader
	emailSender EmailDispatcher
	log         *zap.Logger
}

func NewKafkaEmailConsumer(brokers []string, groupID, topic string, emailSender EmailDispatcher, log *zap.Logger) *KafkaEmailConsumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           brokers,
		GroupID:           groupID,
		Topic:             topic,
		MinBytes:          10e3,
		MaxBytes:          10e6,
		CommitInterval:    time.Second,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
	})
	return &KafkaEmailConsumer{reader: r, emailSender: emailSender, log: log}
}

func (c *KafkaEmailConsumer) Run(ctx context.Context) error {
	c.log.Info("email consumer started")
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			c.log.Error("read message", zap.Error(err))
			continue
		}
		c.handle(m)
	}
}

func (c *KafkaEmailConsumer) handle(m kafka.Message) {
	var em EmailMessage
	if err := json.Unmarshal(m.Value, &em); err != nil {
		c.log.Error("unmarshal email message",
			zap.ByteString("key", m.Key),
			zap.Int64("offset", m.Offset),
			zap.Error(err))
		return
	}
	ref := orderRef(em, m.Key)
	if em.To == "" || em.Template == "" {
		c.log.Warn("email message missing recipient or template",
			zap.String("order_number", ref))
		return
	}

	err := c.emailSender.SendEmail(sender.EmailNotification{
		To:       em.To,
		Subject:  em.Subject,
		Template: em.Template,
		Data:     em.Data,
	})
	if err != nil {
		// без retry: повтор на уровне consumer заблокировал бы партицию
		c.log.Error("send email failed",
			zap.String("order_number", ref),
			zap.String("to", em.To),
			zap.String("template", em.Template),
			zap.Error(err))
		return
	}
	c.log.Info("email sent",
		zap.String("order_number", ref),
		zap.String("to", em.To),
		zap.String("template", em.Template))
}

func (c *KafkaEmailConsumer) Close() error { return c.reader.Close() }
