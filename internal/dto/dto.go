// dto.go
package dto

// CreateOrderRequest es el body que manda la tienda para iniciar un pago.
// El orderId lo asigna la tienda antes de crear el pago.
type CreateOrderRequest struct {
	OrderID string `json:"orderId" binding:"required"`
	Subject string `json:"subject" binding:"required"`
	Amount  int64  `json:"amount" binding:"required"`
	Email   string `json:"email" binding:"required"`
}

type CreateOrderResponse struct {
	Provider      string `json:"provider"`
	RedirectURL   string `json:"redirectUrl"`
	TransactionID string `json:"transactionId"`
}

type PaymentStatusResponse struct {
	Provider       string `json:"provider"`
	TransactionID  string `json:"transactionId"`
	ProviderStatus string `json:"providerStatus"`
	Status         string `json:"status"`
}

type ExchangeRateResponse struct {
	Rate     float64 `json:"rate"`
	Currency string  `json:"currency"`
}
