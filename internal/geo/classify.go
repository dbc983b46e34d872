// Package geo provides the point type, great-circle distance and distance
// banding used when scoring restaurants against a user's location.
package geo

// Band is a coarse distance classification.
type Band int

// Distance bands, nearest first.
const (
	BandNear Band = iota
	BandClose
	BandFar
)

func (b Band) String() string {
	switch b {
	case BandNear:
		return "near"
	case BandClose:
		return "close"
	default:
		return "far"
	}
}

// Classify returns the band for a distance given two exclusive upper bounds:
//   - near:  km < nearKM
//   - close: nearKM <= km < closeKM
//   - far:   everything else
func Classify(km, nearKM, closeKM float64) Band {
	if km < nearKM {
		return BandNear
	}
	if km < closeKM {
		return BandClose
	}
	return BandFar
}
