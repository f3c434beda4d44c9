// publisher.go
package rabbit

import (
	"context"
	"encoding/json"
	"time"

	"payment-gateway-service/internal/model"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

const statusExchange = "payment_status"

// StatusPublisher emite los cambios de estado de pago a un exchange
// fanout; lo escuchan envíos y notificaciones.
type StatusPublisher struct {
	ch *amqp091.Channel
}

func NewStatusPublisher(ch *amqp091.Channel) (*StatusPublisher, error) {
	err := ch.ExchangeDeclare(
		statusExchange,
		"fanout",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, err
	}
	return &StatusPublisher{ch: ch}, nil
}

type statusChangeEvent struct {
	CorrelationID string    `json:"correlation_id"`
	OrderID       string    `json:"orderId"`
	Status        string    `json:"status"`
	PaymentMethod string    `json:"paymentMethod"`
	Amount        int64     `json:"amount"`
	Email         string    `json:"email"`
	Timestamp     time.Time `json:"timestamp"`
}

func (p *StatusPublisher) PublishStatusChange(ctx context.Context, o *model.Order, newStatus string) error {
	event := statusChangeEvent{
		CorrelationID: uuid.NewString(),
		OrderID:       o.OrderID,
		Status:        newStatus,
		PaymentMethod: o.PaymentMethod,
		Amount:        o.Amount,
		Email:         o.Email,
		Timestamp:     time.Now().UTC(),
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.ch.PublishWithContext(ctx,
		statusExchange,
		"", // fanout ignora routing key
		false,
		false,
		amqp091.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}
