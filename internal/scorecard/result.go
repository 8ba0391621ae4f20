// Package scorecard defines the menu analysis result and the contract the
// generative model must satisfy to produce one.
package scorecard

// QuickWinCount is the number of quick wins every result carries.
const QuickWinCount = 5

type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
)

type SizeCategory string

const (
	SizeSmall  SizeCategory = "Small"
	SizeMedium SizeCategory = "Medium"
	SizeLarge  SizeCategory = "Large"
)

// SizeCategoryFor buckets a menu by item count: Small (<25), Medium (25-50), Large (>50).
func SizeCategoryFor(totalItems int) SizeCategory {
	switch {
	case totalItems < 25:
		return SizeSmall
	case totalItems <= 50:
		return SizeMedium
	default:
		return SizeLarge
	}
}

type Pricing struct {
	MinPrice    float64 `json:"minPrice"`
	MaxPrice    float64 `json:"maxPrice"`
	MedianPrice float64 `json:"medianPrice"`
}

type Metrics struct {
	TotalItems      int          `json:"totalItems"`
	SizeCategory    SizeCategory `json:"sizeCategory"`
	ComplexityScore int          `json:"complexityScore"`
	Pricing         Pricing      `json:"pricing"`
}

// Breakdown holds the four rubric scores, each out of 25. Their sum is not
// required to equal the overall score.
type Breakdown struct {
	SimplicityScore int `json:"simplicityScore"`
	PricingScore    int `json:"pricingScore"`
	BalanceScore    int `json:"balanceScore"`
	MarginScore     int `json:"marginScore"`
}

// AnalysisResult is the scorecard for one menu. Values produced by Decode
// always satisfy the documented ranges and carry exactly QuickWinCount quick wins.
type AnalysisResult struct {
	OverallScore       int        `json:"overallScore"`
	OneSentenceSummary string     `json:"oneSentenceSummary"`
	ConfidenceLevel    Confidence `json:"confidenceLevel"`
	Metrics            Metrics    `json:"metrics"`
	Breakdown          Breakdown  `json:"breakdown"`
	Positives          []string   `json:"positives"`
	Issues             []string   `json:"issues"`
	QuickWins          []string   `json:"quickWins"`
}
