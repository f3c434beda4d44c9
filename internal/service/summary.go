package service

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"payment-gateway-service/internal/model"
)

// Etiquetas para los atributos de extensión conocidos. Una clave que no
// esté acá se muestra con su nombre tal cual: el catálogo de productos
// agrega atributos sin avisar.
var extraLabels = map[string]string{
	"deliveryMethod":  "Método de entrega",
	"accountEmail":    "Correo de la cuenta",
	"accountPassword": "Contraseña de la cuenta",
	"playerId":        "ID de jugador",
}

// FormatSummary arma el resumen del pedido que ve el comprador al volver
// a la tienda. Función pura: no toca red ni base.
//
// El total se recalcula siempre desde los ítems; el monto guardado en la
// orden puede haber quedado viejo si el carrito cambió.
func FormatSummary(o *model.Order) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Pedido #%s\n", o.OrderID)

	var total int64
	for _, it := range o.Items {
		fmt.Fprintf(&b, "%s x%d - %s\n", it.Name, it.Quantity, FormatCLP(it.UnitPrice))
		total += it.UnitPrice * int64(it.Quantity)
	}

	fmt.Fprintf(&b, "Total: %s\n", FormatCLP(total))

	if o.PaymentMethod != "" {
		fmt.Fprintf(&b, "Medio de pago: %s\n", o.PaymentMethod)
	}
	fmt.Fprintf(&b, "Contacto: %s\n", o.Email)

	// Un bloque por atributo presente; los ausentes no aportan ni una
	// línea. Orden alfabético de clave para que el texto sea estable.
	keys := make([]string, 0, len(o.Extras))
	for k := range o.Extras {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		label := extraLabels[k]
		if label == "" {
			label = k
		}
		fmt.Fprintf(&b, "%s: %s\n", label, o.Extras[k])
	}

	return strings.TrimRight(b.String(), "\n")
}

// FormatCLP formatea un monto en pesos chilenos: $5.000
func FormatCLP(amount int64) string {
	s := strconv.FormatInt(amount, 10)

	var b strings.Builder
	b.WriteString("$")
	for i, d := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteString(".")
		}
		b.WriteRune(d)
	}
	return b.String()
}
