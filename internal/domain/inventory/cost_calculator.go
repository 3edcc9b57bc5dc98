package inventory

import "github.com/shopspring/decimal"

// PriceScale es la cantidad de decimales con que se fijan los precios derivados.
const PriceScale int32 = 6

// WeightedAveragePrice implementa el costo promedio ponderado (servicio de dominio).
// Precio = Σ valor / Σ cantidad; cero cuando la cantidad acumulada no es positiva.
func WeightedAveragePrice(totalValue, totalQuantity decimal.Decimal) decimal.Decimal {
	if totalQuantity.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return totalValue.DivRound(totalQuantity, PriceScale)
}

// BaseUnitPrice convierte un precio por unidad de lote a precio por unidad base.
func BaseUnitPrice(unitPrice, factor decimal.Decimal) decimal.Decimal {
	if !factor.IsPositive() {
		return decimal.Zero
	}
	return unitPrice.DivRound(factor, PriceScale)
}

// LineValue es cantidad × precio; el signo sigue a la cantidad.
func LineValue(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitPrice)
}
