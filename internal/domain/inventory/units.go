package inventory

import (
	"strings"

	"github.com/jhoicas/Inventario-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// FactorScale y NativeScale fijan la precisión de factores y de cantidades en unidad de lote.
const (
	FactorScale int32 = 9
	NativeScale int32 = 12
)

type unitDef struct {
	dimension string
	toRef     decimal.Decimal
}

func u(dim, v string) unitDef { return unitDef{dimension: dim, toRef: decimal.RequireFromString(v)} }

// Tabla de conversión: kg para peso, litro para volumen, metro para longitud, m² para área.
var units = map[string]unitDef{
	"mg":     u("weight", "0.000001"),
	"g":      u("weight", "0.001"),
	"kg":     u("weight", "1"),
	"ton":    u("weight", "1000"),
	"oz":     u("weight", "0.0283495"),
	"lb":     u("weight", "0.453592"),
	"ml":     u("volume", "0.001"),
	"liter":  u("volume", "1"),
	"liters": u("volume", "1"),
	"gallon": u("volume", "3.78541"),
	"m3":     u("volume", "1000"),
	"mm":     u("length", "0.001"),
	"cm":     u("length", "0.01"),
	"m":      u("length", "1"),
	"km":     u("length", "1000"),
	"ft":     u("length", "0.3048"),
	"inch":   u("length", "0.0254"),
	"sqcm":   u("area", "0.0001"),
	"sqm":    u("area", "1"),
	"sqft":   u("area", "0.092903"),
}

func normalizeUnit(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// ConversionFactor devuelve cuántas unidades `to` hay en una unidad `from`.
// La misma unidad siempre da 1; unidades de dimensiones distintas o desconocidas son inválidas.
func ConversionFactor(from, to string) (decimal.Decimal, error) {
	f, t := normalizeUnit(from), normalizeUnit(to)
	if f == "" || t == "" {
		return decimal.Zero, domain.Invalid("unidad vacía")
	}
	if f == t {
		return decimal.NewFromInt(1), nil
	}
	a, okA := units[f]
	b, okB := units[t]
	if !okA || !okB || a.dimension != b.dimension {
		return decimal.Zero, domain.Invalid("no se puede convertir %s a %s", from, to)
	}
	return a.toRef.DivRound(b.toRef, FactorScale), nil
}

// ToBase convierte una cantidad en unidad de lote a unidades base.
func ToBase(native, factor decimal.Decimal) decimal.Decimal {
	return native.Mul(factor)
}

// FromBase convierte unidades base a unidad de lote.
func FromBase(base, factor decimal.Decimal) decimal.Decimal {
	return base.DivRound(factor, NativeScale)
}

// FloorFromBase convierte unidades base a unidad de lote truncando a NativeScale.
// Un lote nunca entrega más de lo que el libro mayor registra.
func FloorFromBase(base, factor decimal.Decimal) decimal.Decimal {
	q, _ := base.QuoRem(factor, NativeScale)
	return q
}

// Tolerance es la holgura, en unidades base, bajo la que un saldo de lote se considera agotado.
var Tolerance = decimal.New(1, -9)

// slack es la holgura de un lote: Tolerance o una unidad mínima de su unidad nativa, lo mayor.
func slack(factor decimal.Decimal) decimal.Decimal {
	return decimal.Max(Tolerance, factor.Shift(-NativeScale))
}
