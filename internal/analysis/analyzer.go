// Package analysis scores menu captures with an external generative model.
package analysis

import (
	"context"
	"errors"
	"time"

	"menu-scorecard/internal/capture"
	apperrors "menu-scorecard/internal/common/errors"
	"menu-scorecard/internal/common/logger"
	"menu-scorecard/internal/common/metrics"
	"menu-scorecard/internal/common/observability"
	"menu-scorecard/internal/scorecard"

	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrEmptyCapture    = errors.New("EMPTY_CAPTURE")
	ErrNoCandidates    = errors.New("NO_CANDIDATES")
	ErrResponseBlocked = errors.New("RESPONSE_BLOCKED")
)

// Analyzer turns one capture into one scorecard. Implementations issue at
// most one model call per invocation and never retry.
type Analyzer interface {
	Analyze(ctx context.Context, in capture.Input) (*scorecard.AnalysisResult, error)
	Name() string
}

// New returns the Gemini analyzer when a credential is configured and the
// demo analyzer otherwise. Either way the result is instrumented.
func New(cfg *Config, log logger.Logger, obs *observability.Observability) (Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var a Analyzer
	if cfg.APIKey == "" {
		log.Warn("No model credential configured, using demo analyzer", nil)
		a = NewDemoAnalyzer(cfg.DemoDelay)
	} else {
		a = NewGeminiAnalyzer(cfg, log)
	}
	return Instrument(a, log, obs), nil
}

type instrumented struct {
	next Analyzer
	log  logger.Logger
	obs  *observability.Observability
}

// Instrument wraps a with logging, prometheus metrics and a tracing span.
func Instrument(a Analyzer, log logger.Logger, obs *observability.Observability) Analyzer {
	return &instrumented{next: a, log: log, obs: obs}
}

func (i *instrumented) Name() string { return i.next.Name() }

func (i *instrumented) Analyze(ctx context.Context, in capture.Input) (*scorecard.AnalysisResult, error) {
	name := i.next.Name()
	ctx, end := i.obs.StartSpan(ctx, "analysis.generate",
		attribute.String("analyzer", name),
		attribute.String("mediaType", in.MediaType),
		attribute.Int("bytes", in.Size()),
	)

	metrics.AnalysesInFlight.Inc()
	start := time.Now()
	result, err := i.next.Analyze(ctx, in)
	elapsed := time.Since(start)
	metrics.AnalysesInFlight.Dec()
	end(err)

	metrics.AnalysisDuration.WithLabelValues(name).Observe(elapsed.Seconds())

	fields := map[string]interface{}{
		"analyzer":   name,
		"mediaType":  in.MediaType,
		"source":     string(in.Source),
		"bytes":      in.Size(),
		"durationMs": elapsed.Milliseconds(),
	}

	if err != nil {
		code := string(apperrors.ErrCodeInternalError)
		if stdErr, ok := apperrors.AsStandard(err); ok {
			code = string(stdErr.Code)
		}
		if errors.Is(err, context.Canceled) {
			code = "CANCELLED"
			i.log.Info("Menu analysis cancelled", fields)
		} else {
			fields["errorCode"] = code
			i.log.WithError(err).Error("Menu analysis failed", fields)
		}
		metrics.AnalysesFailed.WithLabelValues(name, code).Inc()
		i.obs.RecordAnalysis(ctx, name, "failed", elapsed)
		return nil, err
	}

	fields["overallScore"] = result.OverallScore
	fields["confidence"] = string(result.ConfidenceLevel)
	i.log.Info("Menu analysis completed", fields)

	metrics.AnalysesCompleted.WithLabelValues(name, string(result.ConfidenceLevel)).Inc()
	metrics.OverallScore.Observe(float64(result.OverallScore))
	i.obs.RecordAnalysis(ctx, name, "success", elapsed)
	return result, nil
}
