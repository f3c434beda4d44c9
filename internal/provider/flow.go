package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"payment-gateway-service/internal/model"
)

// FlowAdapter integra FLOW (flow.cl), la pasarela chilena genérica.
// Cobra en CLP directo, sin conversión. FLOW exige firmar cada request
// con HMAC-SHA256 sobre los parámetros ordenados.
type FlowAdapter struct {
	apiKey     string
	secretKey  string
	baseURL    string
	confirmURL string // webhook público
	returnURL  string // retorno del navegador
	client     *http.Client
}

func NewFlowAdapter(apiKey, secretKey, baseURL, confirmURL, returnURL string) *FlowAdapter {
	return &FlowAdapter{
		apiKey:     apiKey,
		secretKey:  secretKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		confirmURL: confirmURL,
		returnURL:  returnURL,
		client:     newHTTPClient(),
	}
}

func (f *FlowAdapter) Name() string  { return "flow" }
func (f *FlowAdapter) Label() string { return "FLOW" }

// SignParams firma los parámetros como exige FLOW: claves ordenadas
// alfabéticamente, concatenadas clave+valor sin separador, y
// HMAC-SHA256 en hex con la clave secreta. El resultado va como
// parámetro extra "s".
func SignParams(params map[string]string, secretKey string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var toSign strings.Builder
	for _, k := range keys {
		toSign.WriteString(k)
		toSign.WriteString(params[k])
	}

	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(toSign.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

type flowCreateResponse struct {
	URL       string `json:"url"`
	Token     string `json:"token"`
	FlowOrder int64  `json:"flowOrder"`
}

func (f *FlowAdapter) CreateOrder(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	// Parámetros requeridos por FLOW; el monto va entero por ser CLP
	params := map[string]string{
		"apiKey":          f.apiKey,
		"commerceOrder":   req.OrderID,
		"subject":         req.Subject,
		"currency":        "CLP",
		"amount":          strconv.FormatInt(req.Amount, 10),
		"email":           req.Email,
		"paymentMethod":   "9", // 9 = todos los métodos
		"urlConfirmation": f.confirmURL,
		"urlReturn":       f.returnURL,
	}
	params["s"] = SignParams(params, f.secretKey)

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		f.baseURL+"/payment/create", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llamando a FLOW: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(resp.Body)
		return nil, &ProviderError{Provider: "FLOW", StatusCode: resp.StatusCode, Detail: string(detail)}
	}

	var body flowCreateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("respuesta de FLOW ilegible: %w", err)
	}
	if body.URL == "" || body.Token == "" {
		return nil, errors.New("respuesta de FLOW sin url o token")
	}

	return &CreateResult{
		RedirectURL:   body.URL + "?token=" + body.Token,
		TransactionID: body.Token,
	}, nil
}

// Estados numéricos de FLOW: 1 pendiente, 2 pagada, 3 rechazada, 4 anulada.
func (f *FlowAdapter) MapStatus(native string) string {
	switch native {
	case "2":
		return model.StatusPaid
	case "3":
		return model.StatusRejected
	case "4":
		return model.StatusCancelled
	default:
		return model.StatusPending
	}
}

type flowStatusResponse struct {
	CommerceOrder string `json:"commerceOrder"`
	Status        int    `json:"status"`
}

// La notificación de FLOW trae solo un token; hay que volver a
// consultar getStatus (firmado) para saber orden y estado.
func (f *FlowAdapter) ExtractCallback(ctx context.Context, r *http.Request) (*Callback, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	token := r.FormValue("token")
	if token == "" {
		return nil, errors.New("notificación de FLOW sin token")
	}

	st, err := f.fetchStatus(ctx, token)
	if err != nil {
		return nil, err
	}
	if st.CommerceOrder == "" {
		return nil, errors.New("getStatus de FLOW sin commerceOrder")
	}

	return &Callback{
		OrderID:      st.CommerceOrder,
		NativeStatus: strconv.Itoa(st.Status),
	}, nil
}

func (f *FlowAdapter) GetStatus(ctx context.Context, transactionID string) (string, error) {
	st, err := f.fetchStatus(ctx, transactionID)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(st.Status), nil
}

func (f *FlowAdapter) fetchStatus(ctx context.Context, token string) (*flowStatusResponse, error) {
	params := map[string]string{
		"apiKey": f.apiKey,
		"token":  token,
	}
	params["s"] = SignParams(params, f.secretKey)

	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		f.baseURL+"/payment/getStatus?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("consultando estado en FLOW: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(resp.Body)
		return nil, &ProviderError{Provider: "FLOW", StatusCode: resp.StatusCode, Detail: string(detail)}
	}

	var body flowStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("getStatus de FLOW ilegible: %w", err)
	}
	return &body, nil
}
