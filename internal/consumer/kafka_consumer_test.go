package consumer

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/abdullah-koca/lunora/internal/sender"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type dispatcherMock struct {
	SendEmailFunc func(n sender.EmailNotification) error
	sent          []sender.EmailNotification
}

func (d *dispatcherMock) SendEmail(n sender.EmailNotification) error {
	d.sent = append(d.sent, n)
	if d.SendEmailFunc != nil {
		return d.SendEmailFunc(n)
	}
	return nil
}

func messageFor(t *testing.T, em EmailMessage, key string) kafka.Message {
	t.Helper()
	raw, err := json.Marshal(em)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return kafka.Message{Key: []byte(key), Value: raw}
}

func TestHandleDispatchesConfirmationEmail(t *testing.T) {
	d := &dispatcherMock{}
	c := &KafkaEmailConsumer{emailSender: d, log: zap.NewNop()}

	c.handle(messageFor(t, EmailMessage{
		To:       "musteri@example.com",
		Subject:  "Siparişiniz onaylandı",
		Template: "order_confirmed",
		Data:     map[string]any{"OrderNumber": "LN1741000000000001ABCDEF"},
	}, "LN1741000000000001ABCDEF"))

	if len(d.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(d.sent))
	}
	if d.sent[0].To != "musteri@example.com" || d.sent[0].Template != "order_confirmed" {
		t.Fatalf("unexpected notification: %+v", d.sent[0])
	}
}

func TestHandleSkipsInvalidMessages(t *testing.T) {
	d := &dispatcherMock{}
	c := &KafkaEmailConsumer{emailSender: d, log: zap.NewNop()}

	// битый JSON
	c.handle(kafka.Message{Key: []byte("LN1"), Value: []byte("{not json")})
	// без получателя
	c.handle(messageFor(t, EmailMessage{Template: "order_confirmed"}, "LN2"))
	// без шаблона
	c.handle(messageFor(t, EmailMessage{To: "a@b.c"}, "LN3"))

	if len(d.sent) != 0 {
		t.Fatalf("sent = %d, want 0", len(d.sent))
	}
}

func TestHandleSwallowsSendFailure(t *testing.T) {
	d := &dispatcherMock{SendEmailFunc: func(sender.EmailNotification) error {
		return errors.New("smtp down")
	}}
	c := &KafkaEmailConsumer{emailSender: d, log: zap.NewNop()}

	// ошибка отправки не должна паниковать и не должна ретраиться
	c.handle(messageFor(t, EmailMessage{
		To:       "musteri@example.com",
		Template: "order_confirmed",
	}, "LN4"))

	if len(d.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(d.sent))
	}
}

func TestOrderRefFallsBackToKey(t *testing.T) {
	em := EmailMessage{Data: map[string]any{"OrderNumber": "LN42AAAAAA"}}
	if got := orderRef(em, []byte("other")); got != "LN42AAAAAA" {
		t.Fatalf("orderRef = %q", got)
	}
	if got := orderRef(EmailMessage{}, []byte("LN7BBBBBB")); got != "LN7BBBBBB" {
		t.Fatalf("orderRef fallback = %q", got)
	}
}
