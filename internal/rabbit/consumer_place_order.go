package rabbit

import (
	"context"
	"encoding/json"
	"log"

	"payment-gateway-service/internal/model"
	"payment-gateway-service/internal/service"
)

type PlaceOrderConsumer struct {
	Service *service.OrderService
}

func NewPlaceOrderConsumer(s *service.OrderService) *PlaceOrderConsumer {
	return &PlaceOrderConsumer{Service: s}
}

// Mensaje order_placed que emite la tienda al confirmar el carrito.
// Trae los ítems y los extras por categoría; si llega antes de que el
// comprador elija medio de pago, la orden queda Pendiente esperando.
type PlacedOrderMessage struct {
	CorrelationID string `json:"correlation_id"`
	Exchange      string `json:"exchange"`
	RoutingKey    string `json:"routing_key"`
	Message       struct {
		OrderID string `json:"orderId"`
		Email   string `json:"email"`
		Subject string `json:"subject"`
		Amount  int64  `json:"amount"`
		Items   []struct {
			Name      string `json:"name"`
			UnitPrice int64  `json:"unitPrice"`
			Quantity  int    `json:"quantity"`
			ImageURL  string `json:"imageUrl"`
		} `json:"items"`
		// Atributos por categoría de producto. Si el JSON no los trae,
		// queda nil y no se muestra nada en el resumen.
		Extras map[string]string `json:"extras"`
	} `json:"message"`
}

func (c *PlaceOrderConsumer) Handle(msg []byte) error {

	log.Println("[Rabbit] Evento recibido: order_placed")

	var event PlacedOrderMessage
	if err := json.Unmarshal(msg, &event); err != nil {
		log.Println("Error parseando mensaje:", err)
		return err
	}

	order := &model.Order{
		OrderID: event.Message.OrderID,
		Email:   event.Message.Email,
		Subject: event.Message.Subject,
		Amount:  event.Message.Amount,
		Extras:  event.Message.Extras,
	}
	for _, it := range event.Message.Items {
		order.Items = append(order.Items, model.LineItem{
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			ImageURL:  it.ImageURL,
		})
	}

	// Si el pago arrancó antes que el evento, InitOrder completa la
	// orden existente con los ítems y extras en vez de fallar
	_, err := c.Service.InitOrder(context.Background(), order)

	if err != nil {
		log.Println("❌ Error creando estado inicial:", err)
		return err
	}

	log.Println("✔ Orden inicializada desde la tienda:", event.Message.OrderID)
	return nil
}
