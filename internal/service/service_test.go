package service

import (
	"context"
	"errors"
	"testing"

	"payment-gateway-service/internal/model"
	"payment-gateway-service/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Repositorio en memoria para los tests del servicio
type fakeRepo struct {
	orders map[string]*model.Order

	// Para simular una falla transitoria de la base en las lecturas
	findErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{orders: make(map[string]*model.Order)}
}

func (f *fakeRepo) Save(ctx context.Context, o *model.Order) error {
	cp := *o
	f.orders[o.OrderID] = &cp
	return nil
}

func (f *fakeRepo) FindByOrderID(ctx context.Context, orderID string) (*model.Order, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	o, ok := f.orders[orderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeRepo) FindByStatus(ctx context.Context, status string) ([]*model.Order, error) {
	var out []*model.Order
	for _, o := range f.orders {
		if o.Status == status {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRepo) UpdateStatus(ctx context.Context, orderID, status string, record model.StatusRecord) error {
	o, ok := f.orders[orderID]
	if !ok {
		return repository.ErrNotFound
	}
	o.Status = status
	o.History = append(o.History, record)
	return nil
}

type fakePublisher struct {
	published []string
}

func (f *fakePublisher) PublishStatusChange(ctx context.Context, o *model.Order, newStatus string) error {
	f.published = append(f.published, o.OrderID+":"+newStatus)
	return nil
}

func seedOrder(repo *fakeRepo, id, status string) {
	repo.orders[id] = &model.Order{OrderID: id, Status: status}
}

func TestReconcileOrdenInexistente(t *testing.T) {
	svc := NewOrderService(newFakeRepo(), nil)

	err := svc.Reconcile(context.Background(), "nope", model.StatusPaid, "flow", "")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestReconcileTransicionNormal(t *testing.T) {
	repo := newFakeRepo()
	seedOrder(repo, "42", model.StatusPending)
	svc := NewOrderService(repo, nil)

	err := svc.Reconcile(context.Background(), "42", model.StatusPaid, "flow", "pago confirmado")
	require.NoError(t, err)

	o, _ := repo.FindByOrderID(context.Background(), "42")
	assert.Equal(t, model.StatusPaid, o.Status)
	require.Len(t, o.History, 1)
	assert.Equal(t, "flow", o.History[0].Actor)
}

// Aplicar dos veces el mismo estado no falla ni duplica historial
func TestReconcileIdempotente(t *testing.T) {
	repo := newFakeRepo()
	seedOrder(repo, "42", model.StatusPending)
	svc := NewOrderService(repo, nil)

	require.NoError(t, svc.Reconcile(context.Background(), "42", model.StatusPaid, "flow", ""))
	require.NoError(t, svc.Reconcile(context.Background(), "42", model.StatusPaid, "flow", ""))

	o, _ := repo.FindByOrderID(context.Background(), "42")
	assert.Equal(t, model.StatusPaid, o.Status)
	assert.Len(t, o.History, 1)
}

// Un webhook atrasado no puede sacar una orden de un estado final
func TestReconcileMonotonico(t *testing.T) {
	tests := []struct {
		name  string
		final string
		late  string
	}{
		{"Pagado no vuelve a Pendiente", model.StatusPaid, model.StatusPending},
		{"Rechazado no pasa a Pagado", model.StatusRejected, model.StatusPaid},
		{"Cancelado no pasa a Pagado", model.StatusCancelled, model.StatusPaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			seedOrder(repo, "42", tt.final)
			svc := NewOrderService(repo, nil)

			require.NoError(t, svc.Reconcile(context.Background(), "42", tt.late, "flow", ""))

			o, _ := repo.FindByOrderID(context.Background(), "42")
			assert.Equal(t, tt.final, o.Status)
			assert.Empty(t, o.History)
		})
	}
}

func TestReconcileEstadoInvalido(t *testing.T) {
	repo := newFakeRepo()
	seedOrder(repo, "42", model.StatusPending)
	svc := NewOrderService(repo, nil)

	err := svc.Reconcile(context.Background(), "42", "Enviado", "flow", "")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

// Al llegar a un estado final se publica el evento, una sola vez
func TestReconcilePublicaEstadoFinal(t *testing.T) {
	repo := newFakeRepo()
	seedOrder(repo, "42", model.StatusPending)
	pub := &fakePublisher{}
	svc := NewOrderService(repo, pub)

	require.NoError(t, svc.Reconcile(context.Background(), "42", model.StatusPaid, "flow", ""))
	require.NoError(t, svc.Reconcile(context.Background(), "42", model.StatusPaid, "flow", ""))

	assert.Equal(t, []string{"42:Pagado"}, pub.published)
}

// El evento order_placed llegó después de que create-order ya dejó el
// esqueleto de la orden: los ítems y extras se completan sin tocar el
// estado ni el historial
func TestInitOrderCompletaOrdenExistente(t *testing.T) {
	repo := newFakeRepo()
	seedOrder(repo, "42", model.StatusPending)
	svc := NewOrderService(repo, nil)

	_, err := svc.InitOrder(context.Background(), &model.Order{
		OrderID: "42",
		Items:   []model.LineItem{{Name: "Pack A", UnitPrice: 2500, Quantity: 2}},
		Extras:  map[string]string{"deliveryMethod": "ID de jugador"},
	})
	require.NoError(t, err)

	saved, _ := repo.FindByOrderID(context.Background(), "42")
	assert.Equal(t, model.StatusPending, saved.Status)
	require.Len(t, saved.Items, 1)
	assert.Equal(t, "ID de jugador", saved.Extras["deliveryMethod"])
}

// Incluso si el pago ya terminó, el evento tardío completa los ítems
// (los necesita el resumen) pero no mueve el estado
func TestInitOrderTardioNoTocaEstadoFinal(t *testing.T) {
	repo := newFakeRepo()
	seedOrder(repo, "42", model.StatusPaid)
	svc := NewOrderService(repo, nil)

	_, err := svc.InitOrder(context.Background(), &model.Order{
		OrderID: "42",
		Items:   []model.LineItem{{Name: "Pack A", UnitPrice: 2500, Quantity: 2}},
	})
	require.NoError(t, err)

	saved, _ := repo.FindByOrderID(context.Background(), "42")
	assert.Equal(t, model.StatusPaid, saved.Status)
	assert.Len(t, saved.Items, 1)
}

// Evento repetido: los ítems ya cargados no se pisan
func TestInitOrderEventoRepetido(t *testing.T) {
	repo := newFakeRepo()
	repo.orders["42"] = &model.Order{
		OrderID: "42",
		Status:  model.StatusPending,
		Items:   []model.LineItem{{Name: "Pack A", UnitPrice: 2500, Quantity: 2}},
	}
	svc := NewOrderService(repo, nil)

	_, err := svc.InitOrder(context.Background(), &model.Order{
		OrderID: "42",
		Items:   []model.LineItem{{Name: "Pack B", UnitPrice: 9999, Quantity: 1}},
	})
	require.NoError(t, err)

	saved, _ := repo.FindByOrderID(context.Background(), "42")
	require.Len(t, saved.Items, 1)
	assert.Equal(t, "Pack A", saved.Items[0].Name)
}

// Una falla transitoria de la base no habilita a recrear la orden
func TestInitOrderPropagaErrorDeBase(t *testing.T) {
	repo := newFakeRepo()
	repo.findErr = errors.New("mongo: connection reset")
	svc := NewOrderService(repo, nil)

	_, err := svc.InitOrder(context.Background(), &model.Order{OrderID: "42"})
	assert.EqualError(t, err, "mongo: connection reset")
	assert.Empty(t, repo.orders)
}

func TestInitOrderFuerzaPendiente(t *testing.T) {
	repo := newFakeRepo()
	svc := NewOrderService(repo, nil)

	o, err := svc.InitOrder(context.Background(), &model.Order{
		OrderID: "42",
		Status:  model.StatusPaid, // venga lo que venga
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, o.Status)
}

func TestPreparePaymentCreaSiNoExiste(t *testing.T) {
	repo := newFakeRepo()
	svc := NewOrderService(repo, nil)

	o, err := svc.PreparePayment(context.Background(), "42", "Pack A", 5000, "a@b.cl", "FLOW")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, o.Status)
	assert.Equal(t, "FLOW", o.PaymentMethod)

	saved, err := repo.FindByOrderID(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), saved.Amount)
}

func TestPreparePaymentActualizaExistente(t *testing.T) {
	repo := newFakeRepo()
	repo.orders["42"] = &model.Order{
		OrderID: "42",
		Status:  model.StatusPending,
		Items:   []model.LineItem{{Name: "Pack A", UnitPrice: 2500, Quantity: 2}},
	}
	svc := NewOrderService(repo, nil)

	_, err := svc.PreparePayment(context.Background(), "42", "Pack A", 5000, "a@b.cl", "PayPal")
	require.NoError(t, err)

	saved, _ := repo.FindByOrderID(context.Background(), "42")
	assert.Equal(t, "PayPal", saved.PaymentMethod)
	// Los ítems que mandó la tienda no se pierden
	assert.Len(t, saved.Items, 1)
}

// Si la base falla al leer, se devuelve el error al cliente en vez de
// recrear la orden desde cero pisando los ítems existentes
func TestPreparePaymentPropagaErrorDeBase(t *testing.T) {
	repo := newFakeRepo()
	repo.orders["42"] = &model.Order{
		OrderID: "42",
		Status:  model.StatusPending,
		Items:   []model.LineItem{{Name: "Pack A", UnitPrice: 2500, Quantity: 2}},
	}
	repo.findErr = errors.New("mongo: connection reset")
	svc := NewOrderService(repo, nil)

	_, err := svc.PreparePayment(context.Background(), "42", "Pack A", 5000, "a@b.cl", "FLOW")
	assert.EqualError(t, err, "mongo: connection reset")

	// La orden guardada quedó intacta
	repo.findErr = nil
	saved, _ := repo.FindByOrderID(context.Background(), "42")
	assert.Len(t, saved.Items, 1)
}

func TestGetByStatus(t *testing.T) {
	repo := newFakeRepo()
	seedOrder(repo, "1", model.StatusPending)
	seedOrder(repo, "2", model.StatusPaid)
	seedOrder(repo, "3", model.StatusPending)
	svc := NewOrderService(repo, nil)

	orders, err := svc.GetByStatus(context.Background(), model.StatusPending)
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestGetByStatusInvalido(t *testing.T) {
	svc := NewOrderService(newFakeRepo(), nil)

	_, err := svc.GetByStatus(context.Background(), "Enviado")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
