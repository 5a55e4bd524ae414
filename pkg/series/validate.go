package series

import (
	"math"

	"github.com/HatiCode/skillhalflife/pkg/validation"
)

// RequiredYears is the fixed length of a demand series.
const RequiredYears = 40

// Validate checks that values is a usable demand series of exactly required
// points: finite, non-negative, and not constant.
func Validate(values []float64, required int) error {
	if len(values) != required {
		return validation.Invalid("Demand data must include exactly %d years; received %d.", required, len(values))
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return validation.Invalid("Demand data contains NaN or infinite values.")
		}
	}
	for _, v := range values {
		if v < 0 {
			return validation.Invalid("Demand data cannot contain negative values.")
		}
	}
	if len(values) > 0 && AllClose(values, values[0]) {
		return validation.Invalid("Demand data has no variation; half-life analytics is not meaningful.")
	}
	return nil
}
