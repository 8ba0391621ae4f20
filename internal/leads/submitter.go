package leads

import (
	"context"
	"sync"
	"time"

	apperrors "menu-scorecard/internal/common/errors"
	"menu-scorecard/internal/common/logger"
	"menu-scorecard/internal/common/metrics"
	"menu-scorecard/internal/common/observability"
)

// Sink is one destination for a submitted lead.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, p Payload) error
}

// Delivery is the outcome of one submission. Err is set only when the
// primary sink failed; Failed lists every sink that failed.
type Delivery struct {
	SubmissionID string
	Err          error
	Failed       []string
}

// Submitter delivers leads in the background. The primary sink decides the
// outcome; secondary sinks are best effort.
type Submitter struct {
	primary   Sink
	secondary []Sink
	timeout   time.Duration
	logger    logger.Logger
	obs       *observability.Observability

	wg sync.WaitGroup
}

func NewSubmitter(primary Sink, timeout time.Duration, log logger.Logger, obs *observability.Observability, secondary ...Sink) *Submitter {
	return &Submitter{
		primary:   primary,
		secondary: secondary,
		timeout:   timeout,
		logger:    log.With(map[string]interface{}{"component": "lead-submitter"}),
		obs:       obs,
	}
}

// Submit starts delivery and returns at once. The returned channel receives
// exactly one Delivery and is then closed. Delivery is detached from ctx
// cancellation so a finished HTTP request does not abort it.
func (s *Submitter) Submit(ctx context.Context, id string, p Payload) <-chan Delivery {
	out := make(chan Delivery, 1)
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		defer close(out)

		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		out <- s.deliver(dctx, id, p)
	}()

	return out
}

func (s *Submitter) deliver(ctx context.Context, id string, p Payload) Delivery {
	result := Delivery{SubmissionID: id}
	log := s.logger.With(map[string]interface{}{"submissionId": id})

	sinks := append([]Sink{s.primary}, s.secondary...)
	errs := make([]error, len(sinks))

	var wg sync.WaitGroup
	for i, sink := range sinks {
		wg.Add(1)
		go func(i int, sink Sink) {
			defer wg.Done()
			errs[i] = sink.Deliver(ctx, p)
		}(i, sink)
	}
	wg.Wait()

	for i, sink := range sinks {
		outcome := "delivered"
		if err := errs[i]; err != nil {
			outcome = "failed"
			result.Failed = append(result.Failed, sink.Name())
			log.WithError(err).Warn("Lead delivery failed", map[string]interface{}{"sink": sink.Name()})
			if i == 0 {
				result.Err = apperrors.NewSubmissionFailedError(sink.Name(), err)
			}
		}
		metrics.LeadSubmissions.WithLabelValues(sink.Name(), outcome).Inc()
		s.obs.RecordLeadDelivery(ctx, sink.Name(), outcome)
	}

	if result.Err == nil {
		log.Info("Lead delivered", map[string]interface{}{
			"businessType": p.BusinessType,
			"overallScore": p.OverallScore,
			"failedSinks":  len(result.Failed),
		})
	}

	return result
}

// Wait blocks until every in-flight delivery has finished or ctx is done.
func (s *Submitter) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
