package ra

import "math"

// log2 is math.Log2 given its own name so call sites read in the
// information-theoretic vocabulary of this package.
func log2(x float64) float64 {
	return math.Log2(x)
}
