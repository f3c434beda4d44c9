package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"payment-gateway-service/internal/model"
)

// MercadoPagoAdapter integra el checkout de Mercado Pago vía
// preferencias. Cobra en CLP, no necesita conversión.
type MercadoPagoAdapter struct {
	accessToken string
	baseURL     string
	notifyURL   string
	successURL  string
	failureURL  string
	pendingURL  string
	client      *http.Client
}

func NewMercadoPagoAdapter(accessToken, baseURL, notifyURL, successURL, failureURL, pendingURL string) *MercadoPagoAdapter {
	return &MercadoPagoAdapter{
		accessToken: accessToken,
		baseURL:     strings.TrimRight(baseURL, "/"),
		notifyURL:   notifyURL,
		successURL:  successURL,
		failureURL:  failureURL,
		pendingURL:  pendingURL,
		client:      newHTTPClient(),
	}
}

func (m *MercadoPagoAdapter) Name() string  { return "mercadopago" }
func (m *MercadoPagoAdapter) Label() string { return "Mercado Pago" }

type mpPreferenceRequest struct {
	ExternalReference string   `json:"external_reference"`
	Items             []mpItem `json:"items"`
	Payer             mpPayer  `json:"payer"`
	BackURLs          mpBack   `json:"back_urls"`
	AutoReturn        string   `json:"auto_return"`
	NotificationURL   string   `json:"notification_url"`
}

type mpItem struct {
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
}

type mpPayer struct {
	Email string `json:"email"`
}

type mpBack struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

type mpPreferenceResponse struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

func (m *MercadoPagoAdapter) CreateOrder(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	pref := mpPreferenceRequest{
		ExternalReference: req.OrderID,
		Items: []mpItem{{
			Title:      req.Subject,
			Quantity:   1,
			UnitPrice:  float64(req.Amount),
			CurrencyID: "CLP",
		}},
		Payer:           mpPayer{Email: req.Email},
		BackURLs:        mpBack{Success: m.successURL, Failure: m.failureURL, Pending: m.pendingURL},
		AutoReturn:      "approved",
		NotificationURL: m.notifyURL,
	}

	payload, err := json.Marshal(pref)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		m.baseURL+"/checkout/preferences", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+m.accessToken)

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llamando a Mercado Pago: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		detail, _ := io.ReadAll(resp.Body)
		return nil, &ProviderError{Provider: "Mercado Pago", StatusCode: resp.StatusCode, Detail: string(detail)}
	}

	var body mpPreferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("respuesta de Mercado Pago ilegible: %w", err)
	}
	if body.InitPoint == "" {
		return nil, errors.New("preferencia de Mercado Pago sin init_point")
	}

	return &CreateResult{RedirectURL: body.InitPoint, TransactionID: body.ID}, nil
}

func (m *MercadoPagoAdapter) MapStatus(native string) string {
	switch native {
	case "approved":
		return model.StatusPaid
	case "rejected":
		return model.StatusRejected
	case "cancelled":
		return model.StatusCancelled
	case "pending", "in_process":
		return model.StatusPending
	default:
		return model.StatusPending
	}
}

type mpWebhook struct {
	Type string `json:"type"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

type mpPayment struct {
	Status            string `json:"status"`
	ExternalReference string `json:"external_reference"`
}

// La notificación trae solo el id del pago; el estado y la orden
// salen de una consulta extra a /v1/payments.
func (m *MercadoPagoAdapter) ExtractCallback(ctx context.Context, r *http.Request) (*Callback, error) {
	var hook mpWebhook
	if err := json.NewDecoder(r.Body).Decode(&hook); err != nil {
		return nil, err
	}
	if hook.Type != "payment" || hook.Data.ID == "" {
		return nil, fmt.Errorf("notificación de Mercado Pago ignorada (type=%q)", hook.Type)
	}

	pay, err := m.fetchPayment(ctx, hook.Data.ID)
	if err != nil {
		return nil, err
	}
	if pay.ExternalReference == "" {
		return nil, errors.New("pago de Mercado Pago sin external_reference")
	}

	return &Callback{OrderID: pay.ExternalReference, NativeStatus: pay.Status}, nil
}

func (m *MercadoPagoAdapter) GetStatus(ctx context.Context, transactionID string) (string, error) {
	pay, err := m.fetchPayment(ctx, transactionID)
	if err != nil {
		return "", err
	}
	return pay.Status, nil
}

func (m *MercadoPagoAdapter) fetchPayment(ctx context.Context, paymentID string) (*mpPayment, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		m.baseURL+"/v1/payments/"+paymentID, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+m.accessToken)

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("consultando pago en Mercado Pago: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(resp.Body)
		return nil, &ProviderError{Provider: "Mercado Pago", StatusCode: resp.StatusCode, Detail: string(detail)}
	}

	var pay mpPayment
	if err := json.NewDecoder(resp.Body).Decode(&pay); err != nil {
		return nil, fmt.Errorf("pago de Mercado Pago ilegible: %w", err)
	}
	return &pay, nil
}
