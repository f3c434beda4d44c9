package service

import (
	"context"
	"errors"
	"log"
	"time"

	"payment-gateway-service/internal/model"
	"payment-gateway-service/internal/repository"
)

// Interfaz que debe implementar repository
type OrderRepository interface {
	Save(ctx context.Context, o *model.Order) error
	FindByOrderID(ctx context.Context, orderID string) (*model.Order, error)
	UpdateStatus(ctx context.Context, orderID, status string, record model.StatusRecord) error
	FindByStatus(ctx context.Context, status string) ([]*model.Order, error)
}

// Publica eventos de cambio de estado para otros micros (envíos,
// notificaciones). Puede ser nil si no hay broker.
type EventPublisher interface {
	PublishStatusChange(ctx context.Context, o *model.Order, newStatus string) error
}

// Errores de negocio exportados (los usa el controller)
var ErrInvalidStatus = errors.New("estado inválido")

type OrderService struct {
	repo   OrderRepository
	events EventPublisher
}

func NewOrderService(r OrderRepository, events EventPublisher) *OrderService {
	return &OrderService{repo: r, events: events}
}

// InitOrder registra la orden que emitió la tienda con sus ítems y extras.
// La invoca el consumer de Rabbit cuando llega order_placed.
//
// El evento puede llegar después de que el pago ya arrancó (create-order
// le ganó la carrera a Rabbit): en ese caso la orden ya existe como
// esqueleto sin ítems, así que completamos lo que solo trae el evento
// sin tocar el estado ni el historial.
func (s *OrderService) InitOrder(ctx context.Context, o *model.Order) (*model.Order, error) {
	existing, err := s.repo.FindByOrderID(ctx, o.OrderID)
	if err != nil {
		// Solo "no existe" habilita a crear; cualquier otra falla de la
		// base se propaga, si no un error transitorio pisaría la orden
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}

		// No existía: se crea desde cero, siempre Pendiente
		o.Status = model.StatusPending
		return o, s.repo.Save(ctx, o)
	}

	changed := false
	if len(existing.Items) == 0 && len(o.Items) > 0 {
		existing.Items = o.Items
		changed = true
	}
	if len(existing.Extras) == 0 && len(o.Extras) > 0 {
		existing.Extras = o.Extras
		changed = true
	}

	// Evento repetido o sin nada nuevo: no escribimos
	if !changed {
		return existing, nil
	}

	return existing, s.repo.Save(ctx, existing)
}

// PreparePayment deja la orden lista antes de llamar al proveedor:
// si no existe la crea Pendiente con los datos del request (puede que
// el evento order_placed todavía no haya llegado), y si existe le
// actualiza monto, contacto y medio de pago.
func (s *OrderService) PreparePayment(ctx context.Context, orderID, subject string, amount int64, email, method string) (*model.Order, error) {
	o, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			// Acá hay un humano esperando: la falla de la base se
			// devuelve, no se recrea la orden encima de la existente
			return nil, err
		}
		o = &model.Order{
			OrderID: orderID,
			Status:  model.StatusPending,
		}
	}

	o.Subject = subject
	o.Amount = amount
	o.Email = email
	o.PaymentMethod = method

	if err := s.repo.Save(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *OrderService) GetByOrderID(ctx context.Context, orderID string) (*model.Order, error) {
	return s.repo.FindByOrderID(ctx, orderID)
}

// GetByStatus lista las órdenes en un estado dado (lo usa el panel del
// operador, por ejemplo para ver qué quedó Pendiente).
func (s *OrderService) GetByStatus(ctx context.Context, status string) ([]*model.Order, error) {
	if !model.IsValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	return s.repo.FindByStatus(ctx, status)
}

// Reconcile aplica a la orden el estado que reportó un proveedor.
//
// Reglas:
//   - misma transición dos veces → no-op (los proveedores repiten webhooks)
//   - estado actual final → no-op, nunca error; un webhook atrasado o fuera
//     de orden no puede sacar una orden de Pagado/Rechazado/Cancelado
//   - orden inexistente → ErrNotFound del repositorio
func (s *OrderService) Reconcile(ctx context.Context, orderID, newStatus, actor, reason string) error {
	if !model.IsValidStatus(newStatus) {
		return ErrInvalidStatus
	}

	ord, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return err
	}

	// Si el estado nuevo es el mismo que ya está, no hacemos nada
	if ord.Status == newStatus {
		return nil
	}
	// Los estados finales absorben: se ignora sin error
	if model.IsFinal(ord.Status) {
		return nil
	}

	record := model.StatusRecord{
		Status:    newStatus,
		Reason:    reason,
		Actor:     actor,
		Timestamp: time.Now(),
		Current:   true,
	}

	if err := s.repo.UpdateStatus(ctx, orderID, newStatus, record); err != nil {
		return err
	}

	// Al llegar a un estado final avisamos al resto de los micros.
	// Si el publish falla solo se loguea: el estado ya quedó escrito.
	if model.IsFinal(newStatus) && s.events != nil {
		if err := s.events.PublishStatusChange(ctx, ord, newStatus); err != nil {
			log.Println("❌ Error publicando cambio de estado:", err)
		}
	}

	return nil
}
