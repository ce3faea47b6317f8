package domain

// ScoreResult is the output of the scoring engine for one establishment.
type ScoreResult struct {
	Identifier string `json:"identifier"`

	// Score is bounded to [0, 100].
	Score int `json:"score"`

	Category       string `json:"category"`
	ClassLabel     string `json:"classLabel"`
	Recommendation string `json:"recommendation"`

	PositiveSignals []string `json:"positiveSignals"`
	AlertSignals    []string `json:"alertSignals"`

	ReportStats  ReportStats `json:"reportStats"`
	PenaltyCount int         `json:"penaltyCount"`
}

// Score categories. The strings are user facing and must not change
// without a product decision.
const (
	CategoryTrustworthy = "Trustworthy"
	CategoryCaution     = "Caution advised"
	CategoryHighRisk    = "High risk - avoid"

	ClassHigh   = "high"
	ClassMedium = "medium"
	ClassLow    = "low"
)

// Fixed recommendation per category.
const (
	RecommendationTrustworthy = "This establishment shows good reliability indicators."
	RecommendationCaution     = "Some points of attention were identified. Evaluate with care."
	RecommendationHighRisk    = "Risk indicators were identified. Avoiding this establishment is recommended."
)

// Categorize maps a bounded score onto its category triple.
func Categorize(score int) (category, classLabel, recommendation string) {
	switch {
	case score >= 80:
		return CategoryTrustworthy, ClassHigh, RecommendationTrustworthy
	case score >= 50:
		return CategoryCaution, ClassMedium, RecommendationCaution
	default:
		return CategoryHighRisk, ClassLow, RecommendationHighRisk
	}
}
