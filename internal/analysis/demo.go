package analysis

import (
	"context"
	"fmt"
	"time"

	"menu-scorecard/internal/capture"
	apperrors "menu-scorecard/internal/common/errors"
	"menu-scorecard/internal/scorecard"
)

// DemoSummaryPrefix marks every scorecard produced without a model.
const DemoSummaryPrefix = "[DEMO]"

// DemoAnalyzer returns a fixed sample scorecard. It is used when no model
// credential is configured so the rest of the flow stays usable.
type DemoAnalyzer struct {
	delay time.Duration
}

func NewDemoAnalyzer(delay time.Duration) *DemoAnalyzer {
	return &DemoAnalyzer{delay: delay}
}

func (d *DemoAnalyzer) Name() string { return "demo" }

func (d *DemoAnalyzer) Analyze(ctx context.Context, in capture.Input) (*scorecard.AnalysisResult, error) {
	if in.Size() == 0 {
		return nil, apperrors.NewAnalysisFailedError(ErrEmptyCapture)
	}

	if d.delay > 0 {
		timer := time.NewTimer(d.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("analysis cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis cancelled: %w", err)
	}

	result, err := scorecard.DecodeMap(demoResponse())
	if err != nil {
		return nil, apperrors.NewResultDecodeFailedError(err)
	}
	return result, nil
}

// demoResponse mimics a model reply, including the short quick win list the
// repair pass has to fill.
func demoResponse() map[string]interface{} {
	return map[string]interface{}{
		"overallScore":       float64(0),
		"oneSentenceSummary": DemoSummaryPrefix + " No model credential is configured; this is sample data, not an analysis of your menu.",
		"confidenceLevel":    string(scorecard.ConfidenceLow),
		"metrics": map[string]interface{}{
			"totalItems":      float64(0),
			"sizeCategory":    string(scorecard.SizeCategoryFor(0)),
			"complexityScore": float64(0),
			"pricing": map[string]interface{}{
				"minPrice":    float64(0),
				"maxPrice":    float64(0),
				"medianPrice": float64(0),
			},
		},
		"breakdown": map[string]interface{}{
			"simplicityScore": float64(0),
			"pricingScore":    float64(0),
			"balanceScore":    float64(0),
			"marginScore":     float64(0),
		},
		"positives": []interface{}{"Demo mode: configure GENAI_API_KEY to analyze real menus."},
		"issues":    []interface{}{"No analysis was performed."},
		"quickWins": []interface{}{},
	}
}
