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

// Coinbase Commerce cobra 1% sin cargo fijo.
const coinbaseFeeRate = 0.01

// CoinbaseAdapter integra el checkout cripto de Coinbase Commerce.
// El cargo se denomina en USD, convertido desde CLP con el dólar cacheado.
type CoinbaseAdapter struct {
	apiKey      string
	baseURL     string
	redirectURL string
	cancelURL   string
	rates       *exchange.RateCache
	client      *http.Client
}

func NewCoinbaseAdapter(apiKey, baseURL, redirectURL, cancelURL string, rates *exchange.RateCache) *CoinbaseAdapter {
	return &CoinbaseAdapter{
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		redirectURL: redirectURL,
		cancelURL:   cancelURL,
		rates:       rates,
		client:      newHTTPClient(),
	}
}

func (c *CoinbaseAdapter) Name() string  { return "coinbase" }
func (c *CoinbaseAdapter) Label() string { return "Coinbase Commerce" }

type coinbaseChargeRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	PricingType string            `json:"pricing_type"`
	LocalPrice  coinbasePrice     `json:"local_price"`
	Metadata    map[string]string `json:"metadata"`
	RedirectURL string            `json:"redirect_url"`
	CancelURL   string            `json:"cancel_url"`
}

type coinbasePrice struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type coinbaseChargeResponse struct {
	Data struct {
		Code      string `json:"code"`
		HostedURL string `json:"hosted_url"`
		Timeline  []struct {
			Status string `json:"status"`
		} `json:"timeline"`
	} `json:"data"`
}

func (c *CoinbaseAdapter) CreateOrder(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	rate := c.rates.GetRate(ctx)
	desiredUSD := float64(req.Amount) / rate
	chargedUSD := GrossUp(desiredUSD, coinbaseFeeRate, 0)

	charge := coinbaseChargeRequest{
		Name:        req.Subject,
		Description: "Pedido #" + req.OrderID,
		PricingType: "fixed_price",
		LocalPrice:  coinbasePrice{Amount: FormatUSD(chargedUSD), Currency: "USD"},
		Metadata: map[string]string{
			"order_id": req.OrderID,
			"email":    req.Email,
		},
		RedirectURL: c.redirectURL,
		CancelURL:   c.cancelURL,
	}

	payload, err := json.Marshal(charge)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/charges", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-CC-Api-Key", c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llamando a Coinbase: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		detail, _ := io.ReadAll(resp.Body)
		return nil, &ProviderError{Provider: "Coinbase", StatusCode: resp.StatusCode, Detail: string(detail)}
	}

	var body coinbaseChargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("respuesta de Coinbase ilegible: %w", err)
	}
	if body.Data.HostedURL == "" || body.Data.Code == "" {
		return nil, errors.New("charge de Coinbase sin hosted_url o code")
	}

	return &CreateResult{RedirectURL: body.Data.HostedURL, TransactionID: body.Data.Code}, nil
}

func (c *CoinbaseAdapter) MapStatus(native string) string {
	switch native {
	case "charge:confirmed", "charge:resolved", "CONFIRMED", "COMPLETED", "RESOLVED":
		return model.StatusPaid
	case "charge:failed", "FAILED":
		return model.StatusRejected
	case "charge:expired", "EXPIRED", "CANCELED":
		return model.StatusCancelled
	default:
		return model.StatusPending
	}
}

type coinbaseWebhook struct {
	Event struct {
		Type string `json:"type"`
		Data struct {
			Metadata map[string]string `json:"metadata"`
		} `json:"data"`
	} `json:"event"`
}

func (c *CoinbaseAdapter) ExtractCallback(ctx context.Context, r *http.Request) (*Callback, error) {
	var hook coinbaseWebhook
	if err := json.NewDecoder(r.Body).Decode(&hook); err != nil {
		return nil, err
	}
	orderID := hook.Event.Data.Metadata["order_id"]
	if orderID == "" {
		return nil, errors.New("evento de Coinbase sin order_id en metadata")
	}
	if hook.Event.Type == "" {
		return nil, errors.New("evento de Coinbase sin type")
	}

	return &Callback{OrderID: orderID, NativeStatus: hook.Event.Type}, nil
}

func (c *CoinbaseAdapter) GetStatus(ctx context.Context, transactionID string) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/charges/"+transactionID, nil)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("X-CC-Api-Key", c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("consultando charge en Coinbase: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(resp.Body)
		return "", &ProviderError{Provider: "Coinbase", StatusCode: resp.StatusCode, Detail: string(detail)}
	}

	var body coinbaseChargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("charge de Coinbase ilegible: %w", err)
	}
	if len(body.Data.Timeline) == 0 {
		return "", errors.New("charge de Coinbase sin timeline")
	}
	return body.Data.Timeline[len(body.Data.Timeline)-1].Status, nil
}
