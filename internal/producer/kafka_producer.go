package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/abdullah-koca/lunora/internal/service"

	"github.com/segmentio/kafka-go"
)

// EmailProducer публикует письма-уведомления в kafka. Реализует
// service.EventBus для подтверждённых заказов.
type EmailProducer struct {
	writer *kafka.Writer
}

func NewEmailProducer(brokers []string, topic string) *EmailProducer {
	return &EmailProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

type EmailMessage struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject"`
	Template string         `json:"template"`
	Data     map[string]any `json:"data"`
}

func (p *EmailProducer) sendEmail(ctx context.Context, key string, msg EmailMessage) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	value, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
}

// PublishOrderConfirmed отправляет письмо о подтверждении заказа.
// Ключ — номер заказа, чтобы повторы одного заказа попадали в одну партицию.
func (p *EmailProducer) PublishOrderConfirmed(ctx context.Context, ev service.OrderConfirmedEvent) error {
	return p.sendEmail(ctx, ev.OrderNumber, EmailMessage{
		To:       ev.Email,
		Subject:  "Siparişiniz onaylandı",
		Template: "order_confirmed",
		Data: map[string]any{
			"Name":        ev.Name,
			"OrderNumber": ev.OrderNumber,
			"Total":       fmt.Sprintf("%.2f %s", float64(ev.TotalCents)/100, ev.Currency),
			"ConfirmedAt": ev.ConfirmedAt.Format("02.01.2006 15:04"),
		},
	})
}

func (p *EmailProducer) Close() error {
	return p.writer.Close()
}
