package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"menu-scorecard/internal/analysis"
	"menu-scorecard/internal/capture"
	apperrors "menu-scorecard/internal/common/errors"
	"menu-scorecard/internal/common/logger"
	"menu-scorecard/internal/leads"

	"github.com/google/uuid"
)

// LeadSubmitter delivers a submitted lead in the background.
type LeadSubmitter interface {
	Submit(ctx context.Context, id string, p leads.Payload) <-chan leads.Delivery
}

// Session is one visitor's state machine. All methods are safe for concurrent use.
//
// Every transition that abandons work bumps gen; background completions carry
// the gen they started under and are dropped when it no longer matches.
type Session struct {
	id        string
	analyzer  analysis.Analyzer
	submitter LeadSubmitter
	logger    logger.Logger
	now       func() time.Time

	mu       sync.Mutex
	state    State
	gen      uint64
	cancel   context.CancelFunc
	lease    capture.Lease
	changed  chan struct{}
	updated  time.Time
	lastSeen time.Time
}

func New(id string, analyzer analysis.Analyzer, submitter LeadSubmitter, log logger.Logger) *Session {
	now := time.Now()
	return &Session{
		id:        id,
		analyzer:  analyzer,
		submitter: submitter,
		logger:    log.With(map[string]interface{}{"sessionId": id}),
		now:       time.Now,
		state:     Idle{},
		changed:   make(chan struct{}),
		updated:   now,
		lastSeen:  now,
	}
}

func (s *Session) ID() string { return s.id }

// State returns the current state value.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return newView(s.id, s.state, s.updated)
}

// setLocked replaces the state and wakes every Wait caller.
func (s *Session) setLocked(st State) {
	s.state = st
	s.updated = s.now()
	close(s.changed)
	s.changed = make(chan struct{})
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = s.now()
	s.mu.Unlock()
}

func (s *Session) idleSince(t time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen.Before(t)
}

// ==========================
// Camera
// ==========================

// StartCamera acquires the camera. A refused device moves the session to
// Error; that outcome is not returned as an error.
func (s *Session) StartCamera(ctx context.Context, device capture.Device) error {
	s.mu.Lock()
	idle, ok := s.state.(Idle)
	if !ok {
		phase := s.state.Phase()
		s.mu.Unlock()
		return apperrors.NewSessionBusyError(string(phase))
	}
	if idle.CameraActive {
		s.mu.Unlock()
		return nil
	}
	gen := s.gen
	s.mu.Unlock()

	lease, err := device.Acquire(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		if lease != nil {
			lease.Release()
		}
		return nil
	}
	if cur, ok := s.state.(Idle); !ok || cur.CameraActive {
		if lease != nil {
			lease.Release()
		}
		return nil
	}

	if err != nil {
		s.logger.WithError(err).Warn("Camera unavailable", nil)
		s.gen++
		s.setLocked(Error{Message: apperrors.MsgCameraUnavailable, Code: apperrors.ErrCodeCaptureFailed})
		return nil
	}

	s.lease = lease
	s.setLocked(Idle{CameraActive: true})
	return nil
}

// CancelCamera closes the camera and stays Idle.
func (s *Session) CancelCamera() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.(Idle); !ok {
		return apperrors.NewInvalidTransitionError("camera cancel", string(s.state.Phase()))
	}
	s.releaseLocked()
	s.setLocked(Idle{})
	return nil
}

func (s *Session) releaseLocked() {
	if s.lease != nil {
		s.lease.Release()
		s.lease = nil
	}
}

// ==========================
// Capture & Analysis
// ==========================

// SubmitFile starts analysis of an uploaded menu.
func (s *Session) SubmitFile(in capture.Input) error {
	in.Source = capture.SourceFile
	return s.begin(in, false)
}

// CapturePhoto starts analysis of a camera frame. The camera must be active
// and is released before analysis begins.
func (s *Session) CapturePhoto(in capture.Input) error {
	in.Source = capture.SourceCamera
	return s.begin(in, true)
}

func (s *Session) begin(in capture.Input, needCamera bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idle, ok := s.state.(Idle)
	if !ok {
		return apperrors.NewSessionBusyError(string(s.state.Phase()))
	}
	if needCamera && !idle.CameraActive {
		return apperrors.NewInvalidTransitionError("capture", "camera inactive")
	}

	s.releaseLocked()
	s.gen++
	gen := s.gen

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.setLocked(Uploading{Source: in.Source})

	s.logger.Info("Capture received", map[string]interface{}{
		"source":    string(in.Source),
		"mediaType": in.MediaType,
		"bytes":     in.Size(),
	})

	go s.analyze(ctx, gen, in)
	return nil
}

func (s *Session) analyze(ctx context.Context, gen uint64, in capture.Input) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.setLocked(Analyzing{Source: in.Source, StartedAt: s.now()})
	s.mu.Unlock()

	res, err := s.analyzer.Analyze(ctx, in)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		s.logger.Debug("Discarding analysis outcome for abandoned capture", nil)
		return
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	if err != nil {
		code, msg := userError(err)
		s.setLocked(Error{Message: msg, Code: code})
		return
	}

	s.setLocked(Result{Scorecard: res, QuickWin: 0, Wizard: leads.NewWizard()})
}

func userError(err error) (apperrors.ErrorCode, string) {
	if se, ok := apperrors.AsStandard(err); ok {
		return se.Code, se.Message
	}
	return apperrors.ErrCodeAnalysisFailed, apperrors.MsgAnalysisFailed
}

// Reset returns to Idle from any state. In-flight analysis is cancelled and
// its outcome discarded; the camera is released.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.releaseLocked()
	s.gen++
	s.setLocked(Idle{})
}

// Wait blocks while a capture is uploading or being analyzed.
func (s *Session) Wait(ctx context.Context) (View, error) {
	for {
		s.mu.Lock()
		if !busy(s.state) {
			v := newView(s.id, s.state, s.updated)
			s.mu.Unlock()
			return v, nil
		}
		ch := s.changed
		s.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return s.Snapshot(), ctx.Err()
		}
	}
}

// ==========================
// Quick-win carousel
// ==========================

func (s *Session) NextQuickWin() error {
	return s.withResult("quick win next", func(r *Result) error {
		n := len(r.Scorecard.QuickWins)
		if n > 0 {
			r.QuickWin = (r.QuickWin + 1) % n
		}
		return nil
	})
}

func (s *Session) PrevQuickWin() error {
	return s.withResult("quick win prev", func(r *Result) error {
		n := len(r.Scorecard.QuickWins)
		if n > 0 {
			r.QuickWin = (r.QuickWin - 1 + n) % n
		}
		return nil
	})
}

func (s *Session) JumpQuickWin(i int) error {
	return s.withResult("quick win jump", func(r *Result) error {
		if i < 0 || i >= len(r.Scorecard.QuickWins) {
			return apperrors.NewInvalidInputError(fmt.Sprintf("quick win index %d out of range", i))
		}
		r.QuickWin = i
		return nil
	})
}

// ==========================
// Lead wizard
// ==========================

func (s *Session) WizardNext() error {
	return s.withWizard("wizard next", (*leads.Wizard).Next)
}

func (s *Session) WizardBack() error {
	return s.withWizard("wizard back", (*leads.Wizard).Back)
}

func (s *Session) WizardSkip() error {
	return s.withWizard("wizard skip", (*leads.Wizard).Skip)
}

func (s *Session) ChooseCategory(v string) error {
	return s.withWizard("wizard category", func(w *leads.Wizard) error { return w.ChooseCategory(v) })
}

func (s *Session) ChooseRevenue(v string) error {
	return s.withWizard("wizard revenue", func(w *leads.Wizard) error { return w.ChooseRevenue(v) })
}

func (s *Session) SetCountry(code string) error {
	return s.withWizard("wizard country", func(w *leads.Wizard) error { return w.SetCountry(code) })
}

// SubmitLead validates the contact form and hands the lead to the submitter.
// The wizard reports submitted at once; the delivery outcome only updates
// its delivery status.
func (s *Session) SubmitLead(ctx context.Context, contact leads.Contact) error {
	var (
		id      string
		payload leads.Payload
		gen     uint64
	)

	err := s.withWizardResult("wizard submit", func(r *Result) error {
		id = uuid.NewString()
		p, err := r.Wizard.Submit(contact, leads.Summary{
			OverallScore: r.Scorecard.OverallScore,
			Text:         r.Scorecard.OneSentenceSummary,
		}, id, s.now())
		if err != nil {
			return err
		}
		payload = p
		gen = s.gen
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Lead submitted", map[string]interface{}{
		"submissionId": id,
		"businessType": payload.BusinessType,
	})

	done := s.submitter.Submit(ctx, id, payload)
	go s.awaitDelivery(gen, id, done)
	return nil
}

func (s *Session) awaitDelivery(gen uint64, id string, done <-chan leads.Delivery) {
	d, ok := <-done
	status := leads.DeliveryDelivered
	if !ok || d.Err != nil {
		status = leads.DeliveryFailed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, isResult := s.state.(Result)
	if gen != s.gen || !isResult || r.Wizard.SubmissionID != id {
		return
	}
	r.Wizard.Delivery = status
	s.setLocked(r)
}

func (s *Session) withWizard(action string, fn func(w *leads.Wizard) error) error {
	return s.withWizardResult(action, func(r *Result) error { return fn(&r.Wizard) })
}

// withWizardResult keeps wizard edits even when fn fails, so a rejected
// contact form still remembers what was typed.
func (s *Session) withWizardResult(action string, fn func(r *Result) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.state.(Result)
	if !ok {
		return apperrors.NewInvalidTransitionError(action, string(s.state.Phase()))
	}
	err := fn(&r)
	s.setLocked(r)
	return err
}

func (s *Session) withResult(action string, fn func(r *Result) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.state.(Result)
	if !ok {
		return apperrors.NewInvalidTransitionError(action, string(s.state.Phase()))
	}
	if err := fn(&r); err != nil {
		return err
	}
	s.setLocked(r)
	return nil
}

// IsBusy reports whether err was caused by acting on a busy session.
func IsBusy(err error) bool {
	return apperrors.HasCode(err, apperrors.ErrCodeSessionBusy)
}
