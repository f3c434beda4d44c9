package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"payment-gateway-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMercadoPagoMapStatus(t *testing.T) {
	m := &MercadoPagoAdapter{}

	tests := []struct {
		native string
		want   string
	}{
		{"approved", model.StatusPaid},
		{"rejected", model.StatusRejected},
		{"cancelled", model.StatusCancelled},
		{"pending", model.StatusPending},
		{"in_process", model.StatusPending},
		// Desconocidos → Pendiente
		{"charged_back", model.StatusPending},
		{"", model.StatusPending},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, m.MapStatus(tt.native), "status %q", tt.native)
	}
}

// La notificación trae solo el id del pago; el adaptador tiene que ir a
// buscar estado y external_reference con la consulta secundaria.
func TestMercadoPagoExtractCallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payments/987", r.URL.Path)
		assert.Equal(t, "Bearer token-mp", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]string{
			"status":             "approved",
			"external_reference": "42",
		})
	}))
	defer srv.Close()

	m := NewMercadoPagoAdapter("token-mp", srv.URL, "", "", "", "")

	req := httptest.NewRequest(http.MethodPost, "/api/mercadopago-webhook",
		strings.NewReader(`{"type":"payment","data":{"id":"987"}}`))

	cb, err := m.ExtractCallback(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "42", cb.OrderID)
	assert.Equal(t, "approved", cb.NativeStatus)
}

func TestMercadoPagoExtractCallbackIgnoraOtrosTipos(t *testing.T) {
	m := NewMercadoPagoAdapter("token-mp", "http://mp.invalid", "", "", "", "")

	req := httptest.NewRequest(http.MethodPost, "/api/mercadopago-webhook",
		strings.NewReader(`{"type":"merchant_order","data":{"id":"1"}}`))

	_, err := m.ExtractCallback(context.Background(), req)
	assert.Error(t, err)
}

func TestMercadoPagoCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/checkout/preferences", r.URL.Path)

		var pref mpPreferenceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&pref))
		assert.Equal(t, "42", pref.ExternalReference)
		require.Len(t, pref.Items, 1)
		assert.Equal(t, float64(5000), pref.Items[0].UnitPrice)
		assert.Equal(t, "CLP", pref.Items[0].CurrencyID)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{
			"id":         "pref-1",
			"init_point": "https://mp/checkout/pref-1",
		})
	}))
	defer srv.Close()

	m := NewMercadoPagoAdapter("token-mp", srv.URL, "", "", "", "")

	res, err := m.CreateOrder(context.Background(), CreateRequest{
		OrderID: "42", Subject: "Pack A", Amount: 5000, Email: "a@b.cl",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://mp/checkout/pref-1", res.RedirectURL)
	assert.Equal(t, "pref-1", res.TransactionID)
}
