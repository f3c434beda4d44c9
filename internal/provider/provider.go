// Package provider contiene un adaptador por pasarela de pago.
// Cada adaptador normaliza la creación de órdenes, la consulta de estado
// y el vocabulario de estados nativo del proveedor hacia el enum interno,
// para que el resto del servicio nunca vea formatos específicos.
package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// CreateRequest son los cuatro datos que exige toda pasarela.
type CreateRequest struct {
	OrderID string
	Subject string
	Amount  int64 // CLP entero
	Email   string
}

type CreateResult struct {
	RedirectURL   string
	TransactionID string
}

// Callback es lo único que el reconciliador necesita de un webhook:
// a qué orden refiere y el estado nativo que reportó el proveedor.
type Callback struct {
	OrderID      string
	NativeStatus string
}

type Adapter interface {
	// Name es el identificador de ruta (flow, mercadopago, paypal, coinbase).
	Name() string
	// Label es la etiqueta humana del medio de pago.
	Label() string

	CreateOrder(ctx context.Context, req CreateRequest) (*CreateResult, error)

	// MapStatus traduce el estado nativo al enum interno. Es una tabla
	// total: cualquier valor desconocido cae en Pendiente, nunca en Pagado.
	MapStatus(native string) string

	// ExtractCallback saca de la notificación entrante el id de orden y el
	// estado nativo. Según el proveedor puede requerir una llamada extra
	// de consulta de estado.
	ExtractCallback(ctx context.Context, r *http.Request) (*Callback, error)

	// GetStatus consulta el estado nativo actual de una transacción.
	GetStatus(ctx context.Context, transactionID string) (string, error)
}

// ProviderError guarda el detalle que devolvió el proveedor para
// poder mostrárselo al cliente en fallas de creación.
type ProviderError struct {
	Provider   string
	StatusCode int
	Detail     string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s respondió %d: %s", e.Provider, e.StatusCode, e.Detail)
}

// Todos los adaptadores usan el mismo timeout de 5s hacia el proveedor.
// Si se vence, la creación falla; acá no se reintenta nada.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 5 * time.Second,
	}
}
