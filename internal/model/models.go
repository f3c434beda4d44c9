// models.go
package model

import "time"

// Estados posibles de una orden. Se guardan con el nombre en español
// que usa la tienda; los estados finales no admiten más transiciones.
const (
	StatusPending   = "Pendiente"
	StatusPaid      = "Pagado"
	StatusRejected  = "Rechazado"
	StatusCancelled = "Cancelado"
)

// Estados finales
var finalStates = map[string]bool{
	StatusPaid:      true,
	StatusRejected:  true,
	StatusCancelled: true,
}

func IsFinal(status string) bool {
	return finalStates[status]
}

var validStates = map[string]bool{
	StatusPending:   true,
	StatusPaid:      true,
	StatusRejected:  true,
	StatusCancelled: true,
}

func IsValidStatus(s string) bool {
	return validStates[s]
}

type Order struct {
	OrderID string `bson:"order_id" json:"orderId"`
	Email   string `bson:"email" json:"email"`
	Subject string `bson:"subject" json:"subject"`
	// Monto en CLP. El peso chileno no tiene subunidades, siempre entero.
	Amount int64  `bson:"amount" json:"amount"`
	Status string `bson:"status" json:"status"` // estado actual

	// Medio de pago elegido (etiqueta del proveedor), vacío hasta que
	// se crea el primer intento de pago.
	PaymentMethod string `bson:"payment_method,omitempty" json:"paymentMethod,omitempty"`

	Items []LineItem `bson:"items" json:"items"`

	// Atributos de extensión por categoría de producto (método de entrega,
	// cuenta vinculada, credenciales...). El catálogo evoluciona por su
	// cuenta, así que acá no hay esquema: se guardan y se muestran tal cual.
	Extras map[string]string `bson:"extras,omitempty" json:"extras,omitempty"`

	History   []StatusRecord `bson:"history" json:"history"`
	CreatedAt time.Time      `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time      `bson:"updated_at" json:"updatedAt"`
}

type LineItem struct {
	Name      string `bson:"name" json:"name"`
	UnitPrice int64  `bson:"unit_price" json:"unitPrice"`
	Quantity  int    `bson:"quantity" json:"quantity"`
	ImageURL  string `bson:"image_url,omitempty" json:"imageUrl,omitempty"`
}

type StatusRecord struct {
	Status    string    `bson:"status" json:"status"`
	Reason    string    `bson:"reason" json:"reason"`
	Actor     string    `bson:"actor" json:"actor"` // proveedor o sistema que aplicó el cambio
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`

	// Para marcar cuál es el último
	Current bool `bson:"current" json:"current"`
}
