package grid

// RiskLabel is the failure-risk tier of an asset.
type RiskLabel string

const (
	RiskHigh   RiskLabel = "HIGH"
	RiskMedium RiskLabel = "MEDIUM"
	RiskLow    RiskLabel = "LOW"
)

// Cut points on failure_risk_score. Comparisons are strict, so a score equal
// to a cut point falls into the lower tier.
const (
	HighRiskCut   = 0.70
	MediumRiskCut = 0.40
)

// Weak-supervision rule thresholds.
const (
	WeakLabelMinAge  = 20.0
	WeakLabelMinLoss = 20.0
)

// LabelFor maps a failure risk score onto its tier.
func LabelFor(score float64) RiskLabel {
	switch {
	case score > HighRiskCut:
		return RiskHigh
	case score > MediumRiskCut:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Valid reports whether l is one of the three tiers.
func (l RiskLabel) Valid() bool {
	switch l {
	case RiskHigh, RiskMedium, RiskLow:
		return true
	}
	return false
}

// IsWeakPositive is the weak-supervision target: an old transformer on a
// lossy feeder.
func IsWeakPositive(transformerAge, lossPercentage float64) bool {
	return transformerAge > WeakLabelMinAge && lossPercentage > WeakLabelMinLoss
}
