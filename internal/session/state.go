// Package session holds the per-visitor state machine: capture, analysis,
// the scorecard result with its quick-win carousel, and the lead wizard.
package session

import (
	"time"

	"menu-scorecard/internal/capture"
	apperrors "menu-scorecard/internal/common/errors"
	"menu-scorecard/internal/leads"
	"menu-scorecard/internal/scorecard"
)

type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseUploading Phase = "uploading"
	PhaseAnalyzing Phase = "analyzing"
	PhaseResult    Phase = "result"
	PhaseError     Phase = "error"
)

// State is one of Idle, Uploading, Analyzing, Result or Error.
type State interface {
	Phase() Phase
	state()
}

// Idle waits for a capture. CameraActive is set while a camera lease is held.
type Idle struct {
	CameraActive bool
}

type Uploading struct {
	Source capture.Source
}

type Analyzing struct {
	Source    capture.Source
	StartedAt time.Time
}

// Result holds a decoded scorecard, the quick win on display and the lead wizard.
type Result struct {
	Scorecard *scorecard.AnalysisResult
	QuickWin  int
	Wizard    leads.Wizard
}

type Error struct {
	Message string
	Code    apperrors.ErrorCode
}

func (Idle) Phase() Phase      { return PhaseIdle }
func (Uploading) Phase() Phase { return PhaseUploading }
func (Analyzing) Phase() Phase { return PhaseAnalyzing }
func (Result) Phase() Phase    { return PhaseResult }
func (Error) Phase() Phase     { return PhaseError }

func (Idle) state()      {}
func (Uploading) state() {}
func (Analyzing) state() {}
func (Result) state()    {}
func (Error) state()     {}

func busy(st State) bool {
	switch st.(type) {
	case Uploading, Analyzing:
		return true
	}
	return false
}

const (
	stepExtracting = "Extracting menu items..."
	stepProcessing = "Processing capture..."
	stepHeuristics = "Running rule-based heuristics..."
)

// loadingStep is the progress label shown while a capture is in flight.
func loadingStep(st State) string {
	switch s := st.(type) {
	case Uploading:
		if s.Source == capture.SourceCamera {
			return stepProcessing
		}
		return stepExtracting
	case Analyzing:
		return stepHeuristics
	}
	return ""
}
