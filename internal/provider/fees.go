package provider

import (
	"math"
	"strconv"
)

// GrossUp calcula cuánto cobrar para que, después de la comisión
// porcentual y el cargo fijo del proveedor, quede el monto deseado:
//
//	cobrado = (deseado + cargoFijo) / (1 - tasa)
//
// Está separado porque las fórmulas de comisión son fuente clásica de
// errores de centavos y así se prueba sola.
func GrossUp(desired, feeRate, fixedFee float64) float64 {
	return (desired + fixedFee) / (1 - feeRate)
}

// FormatUSD redondea a dos decimales y formatea como string, que es
// como los proveedores en USD esperan el monto.
func FormatUSD(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', 2, 64)
}
