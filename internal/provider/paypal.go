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

	"payment-gateway-service/internal/exchange"
	"payment-gateway-service/internal/model"
)

// Comisión internacional de PayPal: 5.4% + 0.30 USD por transacción.
// El monto se infla para que a la tienda le llegue lo que pidió.
const (
	paypalFeeRate  = 0.054
	paypalFixedFee = 0.30
)

// PayPalAdapter integra la billetera internacional (Orders v2).
// Cobra en USD: convierte el monto CLP con el valor del dólar cacheado.
type PayPalAdapter struct {
	clientID  string
	secret    string
	baseURL   string
	returnURL string
	cancelURL string
	rates     *exchange.RateCache
	client    *http.Client
}

func NewPayPalAdapter(clientID, secret, baseURL, returnURL, cancelURL string, rates *exchange.RateCache) *PayPalAdapter {
	return &PayPalAdapter{
		clientID:  clientID,
		secret:    secret,
		baseURL:   strings.TrimRight(baseURL, "/"),
		returnURL: returnURL,
		cancelURL: cancelURL,
		rates:     rates,
		client:    newHTTPClient(),
	}
}

func (p *PayPalAdapter) Name() string  { return "paypal" }
func (p *PayPalAdapter) Label() string { return "PayPal" }

type paypalTokenResponse struct {
	AccessToken string `json:"access_token"`
}

func (p *PayPalAdapter) fetchToken(ctx context.Context) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/v1/oauth2/token", strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", err
	}
	httpReq.SetBasicAuth(p.clientID, p.secret)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("pidiendo token a PayPal: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(resp.Body)
		return "", &ProviderError{Provider: "PayPal", StatusCode: resp.StatusCode, Detail: string(detail)}
	}

	var body paypalTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("token de PayPal ilegible: %w", err)
	}
	if body.AccessToken == "" {
		return "", errors.New("PayPal no devolvió access_token")
	}
	return body.AccessToken, nil
}

type paypalOrderRequest struct {
	Intent             string               `json:"intent"`
	PurchaseUnits      []paypalPurchaseUnit `json:"purchase_units"`
	ApplicationContext paypalAppContext     `json:"application_context"`
}

type paypalPurchaseUnit struct {
	CustomID    string       `json:"custom_id"`
	Description string       `json:"description"`
	Amount      paypalAmount `json:"amount"`
}

type paypalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type paypalAppContext struct {
	ReturnURL string `json:"return_url"`
	CancelURL string `json:"cancel_url"`
}

type paypalOrderResponse struct {
	ID    string `json:"id"`
	Links []struct {
		Rel  string `json:"rel"`
		Href string `json:"href"`
	} `json:"links"`
}

func (p *PayPalAdapter) CreateOrder(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	token, err := p.fetchToken(ctx)
	if err != nil {
		return nil, err
	}

	// CLP → USD con el dólar cacheado, y gross-up por la comisión
	rate := p.rates.GetRate(ctx)
	desiredUSD := float64(req.Amount) / rate
	chargedUSD := GrossUp(desiredUSD, paypalFeeRate, paypalFixedFee)

	order := paypalOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []paypalPurchaseUnit{{
			CustomID:    req.OrderID,
			Description: req.Subject,
			Amount:      paypalAmount{CurrencyCode: "USD", Value: FormatUSD(chargedUSD)},
		}},
		ApplicationContext: paypalAppContext{ReturnURL: p.returnURL, CancelURL: p.cancelURL},
	}

	payload, err := json.Marshal(order)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/v2/checkout/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llamando a PayPal: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		detail, _ := io.ReadAll(resp.Body)
		return nil, &ProviderError{Provider: "PayPal", StatusCode: resp.StatusCode, Detail: string(detail)}
	}

	var body paypalOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("respuesta de PayPal ilegible: %w", err)
	}

	var approve string
	for _, l := range body.Links {
		if l.Rel == "approve" {
			approve = l.Href
			break
		}
	}
	if approve == "" {
		return nil, errors.New("orden de PayPal sin link de aprobación")
	}

	return &CreateResult{RedirectURL: approve, TransactionID: body.ID}, nil
}

func (p *PayPalAdapter) MapStatus(native string) string {
	switch native {
	case "COMPLETED":
		return model.StatusPaid
	case "DECLINED":
		return model.StatusRejected
	case "VOIDED":
		return model.StatusCancelled
	case "PENDING", "CREATED", "APPROVED":
		return model.StatusPending
	default:
		return model.StatusPending
	}
}

type paypalWebhook struct {
	EventType string `json:"event_type"`
	Resource  struct {
		Status   string `json:"status"`
		CustomID string `json:"custom_id"`
	} `json:"resource"`
}

func (p *PayPalAdapter) ExtractCallback(ctx context.Context, r *http.Request) (*Callback, error) {
	var hook paypalWebhook
	if err := json.NewDecoder(r.Body).Decode(&hook); err != nil {
		return nil, err
	}
	if hook.Resource.CustomID == "" {
		return nil, errors.New("evento de PayPal sin custom_id")
	}
	if hook.Resource.Status == "" {
		return nil, fmt.Errorf("evento de PayPal sin estado (event_type=%q)", hook.EventType)
	}

	return &Callback{OrderID: hook.Resource.CustomID, NativeStatus: hook.Resource.Status}, nil
}

type paypalStatusResponse struct {
	Status string `json:"status"`
}

func (p *PayPalAdapter) GetStatus(ctx context.Context, transactionID string) (string, error) {
	token, err := p.fetchToken(ctx)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.baseURL+"/v2/checkout/orders/"+transactionID, nil)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("consultando orden en PayPal: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(resp.Body)
		return "", &ProviderError{Provider: "PayPal", StatusCode: resp.StatusCode, Detail: string(detail)}
	}

	var body paypalStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("orden de PayPal ilegible: %w", err)
	}
	return body.Status, nil
}
