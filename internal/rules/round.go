package rules

import (
	"math"

	"github.com/shopspring/decimal"
)

// Round arredonda value para places casas decimais (meio para longe do zero).
// NaN e infinitos são devolvidos sem alteração.
func Round(value float64, places int32) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return value
	}
	rounded, _ := decimal.NewFromFloat(value).Round(places).Float64()
	return rounded
}
