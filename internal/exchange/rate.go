// Package exchange mantiene en memoria el valor del dólar en CLP,
// que usan los proveedores que cobran en USD (PayPal, Coinbase).
package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// El valor se refresca como mucho cada 30 minutos.
	DefaultTTL = 30 * time.Minute

	// Si nunca se pudo obtener el valor real, se usa este. Preferimos
	// cobrar con un dólar aproximado antes que rechazar la venta.
	FallbackRate = 950.0
)

// Respuesta de mindicador.cl/api/dolar
type rateResponse struct {
	Serie []struct {
		Valor float64 `json:"valor"`
	} `json:"serie"`
}

type RateCache struct {
	sourceURL string
	client    *http.Client
	ttl       time.Duration

	// singleflight evita que varias requests concurrentes disparen
	// el refresh a la vez; si igual se colara uno duplicado no pasa
	// nada, la última escritura gana.
	group singleflight.Group

	mu         sync.RWMutex
	rate       float64
	capturedAt time.Time
}

func NewRateCache(sourceURL string) *RateCache {
	return &RateCache{
		sourceURL: sourceURL,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		ttl: DefaultTTL,
	}
}

// GetRate devuelve CLP por USD. Nunca falla: si el refresh no anda
// devuelve el último valor conocido aunque esté vencido, y si no hay
// ninguno, la constante de respaldo.
func (c *RateCache) GetRate(ctx context.Context) float64 {
	c.mu.RLock()
	rate, capturedAt := c.rate, c.capturedAt
	c.mu.RUnlock()

	if !capturedAt.IsZero() && time.Since(capturedAt) < c.ttl {
		return rate
	}

	v, err, _ := c.group.Do("dolar", func() (interface{}, error) {
		return c.refresh(ctx)
	})
	if err != nil {
		if capturedAt.IsZero() {
			return FallbackRate
		}
		return rate // vencido, pero mejor que nada
	}
	return v.(float64)
}

func (c *RateCache) refresh(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.sourceURL, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, errors.New("respuesta no OK del indicador")
	}

	var body rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, err
	}
	if len(body.Serie) == 0 || body.Serie[0].Valor <= 0 {
		return 0, errors.New("serie vacía o valor inválido")
	}

	rate := body.Serie[0].Valor

	c.mu.Lock()
	c.rate = rate
	c.capturedAt = time.Now()
	c.mu.Unlock()

	return rate, nil
}
