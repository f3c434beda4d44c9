package controller

import (
	"errors"
	"log"
	"net/http"
	"net/url"

	"payment-gateway-service/internal/dto"
	"payment-gateway-service/internal/exchange"
	"payment-gateway-service/internal/provider"
	"payment-gateway-service/internal/repository"
	"payment-gateway-service/internal/service"

	"github.com/gin-gonic/gin"
)

type PaymentController struct {
	Service  *service.OrderService
	Rates    *exchange.RateCache
	adapters map[string]provider.Adapter

	// URLs de la tienda para los retornos del navegador
	SuccessURL string
	FailureURL string
	PendingURL string
}

func NewPaymentController(s *service.OrderService, rates *exchange.RateCache, successURL, failureURL, pendingURL string) *PaymentController {
	return &PaymentController{
		Service:    s,
		Rates:      rates,
		adapters:   make(map[string]provider.Adapter),
		SuccessURL: successURL,
		FailureURL: failureURL,
		PendingURL: pendingURL,
	}
}

// Register deja el adaptador disponible para /api/payment-status/:provider/:id
func (ctl *PaymentController) Register(ad provider.Adapter) {
	ctl.adapters[ad.Name()] = ad
}

// POST /api/{proveedor}-order
func (ctl *PaymentController) CreateOrder(ad provider.Adapter) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Amount <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "el monto debe ser mayor a cero"})
			return
		}

		// Dejamos la orden Pendiente antes de llamar al proveedor, así el
		// webhook que llegue después siempre encuentra a quién aplicar.
		if _, err := ctl.Service.PreparePayment(
			c.Request.Context(), req.OrderID, req.Subject, req.Amount, req.Email, ad.Label(),
		); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		res, err := ad.CreateOrder(c.Request.Context(), provider.CreateRequest{
			OrderID: req.OrderID,
			Subject: req.Subject,
			Amount:  req.Amount,
			Email:   req.Email,
		})
		if err != nil {
			log.Printf("❌ Error creando pago en %s: %v", ad.Label(), err)
			var perr *provider.ProviderError
			if errors.As(err, &perr) {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "el proveedor rechazó la creación", "details": perr.Detail})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, dto.CreateOrderResponse{
			Provider:      ad.Name(),
			RedirectURL:   res.RedirectURL,
			TransactionID: res.TransactionID,
		})
	}
}

// POST /api/{proveedor}-webhook
//
// Responde SIEMPRE 200 "OK", incluso si el procesamiento falla: si no,
// el proveedor reintenta indefinidamente y marca el comercio con error.
// El costo es que las fallas solo se ven en los logs, por eso acá se
// loguea todo con el nombre del proveedor.
func (ctl *PaymentController) Webhook(ad provider.Adapter) gin.HandlerFunc {
	return func(c *gin.Context) {
		cb, err := ad.ExtractCallback(c.Request.Context(), c.Request)
		if err != nil {
			log.Printf("❌ [%s] Webhook ilegible: %v", ad.Label(), err)
			c.String(http.StatusOK, "OK")
			return
		}

		status := ad.MapStatus(cb.NativeStatus)

		err = ctl.Service.Reconcile(c.Request.Context(), cb.OrderID, status, ad.Name(),
			"Notificación del proveedor ("+cb.NativeStatus+")")
		if err != nil {
			// Puede ser un webhook que llegó antes de que la orden exista;
			// el proveedor va a reintentar por su cuenta.
			log.Printf("❌ [%s] Error reconciliando orden %s: %v", ad.Label(), cb.OrderID, err)
			c.String(http.StatusOK, "OK")
			return
		}

		log.Printf("✔ [%s] Orden %s → %s", ad.Label(), cb.OrderID, status)
		c.String(http.StatusOK, "OK")
	}
}

// GET|POST /{proveedor}-success — retorno del navegador tras pagar.
// Redirige a la tienda con el resumen del pedido en ?mensaje=.
func (ctl *PaymentController) Success(ad provider.Adapter) gin.HandlerFunc {
	return func(c *gin.Context) {
		target := ctl.SuccessURL

		if orderID := redirectOrderID(c); orderID != "" {
			o, err := ctl.Service.GetByOrderID(c.Request.Context(), orderID)
			if err == nil {
				mensaje := service.FormatSummary(o)
				target += "?mensaje=" + url.QueryEscape(mensaje)
			} else if !errors.Is(err, repository.ErrNotFound) {
				log.Printf("❌ [%s] Error buscando orden %s: %v", ad.Label(), orderID, err)
			}
		}

		c.Redirect(http.StatusFound, target)
	}
}

// GET|POST /{proveedor}-failure
func (ctl *PaymentController) Failure(ad provider.Adapter) gin.HandlerFunc {
	return func(c *gin.Context) {
		log.Printf("[%s] Pago fallido, redirigiendo a la tienda", ad.Label())
		c.Redirect(http.StatusFound, ctl.FailureURL)
	}
}

// GET|POST /{proveedor}-pending
func (ctl *PaymentController) Pending(ad provider.Adapter) gin.HandlerFunc {
	return func(c *gin.Context) {
		log.Printf("[%s] Pago pendiente, redirigiendo a la tienda", ad.Label())
		c.Redirect(http.StatusFound, ctl.PendingURL)
	}
}

// Cada proveedor nombra distinto el parámetro con el id de orden en el
// retorno del navegador.
func redirectOrderID(c *gin.Context) string {
	for _, key := range []string{"orderId", "external_reference", "commerceOrder"} {
		if v := c.Query(key); v != "" {
			return v
		}
	}
	return ""
}

// GET /api/payment-status/:provider/:id
func (ctl *PaymentController) PaymentStatus(c *gin.Context) {
	name := c.Param("provider")
	ad, ok := ctl.adapters[name]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "proveedor desconocido"})
		return
	}

	id := c.Param("id")
	native, err := ad.GetStatus(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.PaymentStatusResponse{
		Provider:       name,
		TransactionID:  id,
		ProviderStatus: native,
		Status:         ad.MapStatus(native),
	})
}

// GET /api/orders/:status — listado para el operador (ej: Pendiente)
func (ctl *PaymentController) ListOrdersByStatus(c *gin.Context) {
	orders, err := ctl.Service.GetByStatus(c.Request.Context(), c.Param("status"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidStatus) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, orders)
}

// GET /api/exchange-rate
func (ctl *PaymentController) ExchangeRate(c *gin.Context) {
	c.JSON(http.StatusOK, dto.ExchangeRateResponse{
		Rate:     ctl.Rates.GetRate(c.Request.Context()),
		Currency: "CLP/USD",
	})
}
