package scoring

// Band is the presentation tier of a score.
type Band int

const (
	BandNeutral Band = iota // 3000-4999
	BandGood                // >= 8000
	BandMid                 // 5000-7999
	BandPoor                // < 3000
)

// String returns the string representation of the band.
func (b Band) String() string {
	switch b {
	case BandGood:
		return "good"
	case BandMid:
		return "mid"
	case BandPoor:
		return "poor"
	default:
		return "neutral"
	}
}

// BandOf returns the band of a score on the 0-10000 scale.
func BandOf(score int) Band {
	switch {
	case score >= 8000:
		return BandGood
	case score >= 5000:
		return BandMid
	case score < 3000:
		return BandPoor
	default:
		return BandNeutral
	}
}
