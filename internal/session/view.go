package session

import (
	"time"

	apperrors "menu-scorecard/internal/common/errors"
	"menu-scorecard/internal/leads"
	"menu-scorecard/internal/scorecard"
)

// View is a point in time copy of a session, safe to render.
type View struct {
	ID            string                    `json:"id"`
	State         Phase                     `json:"state"`
	CameraActive  bool                      `json:"cameraActive"`
	LoadingStep   string                    `json:"loadingStep,omitempty"`
	Result        *scorecard.AnalysisResult `json:"result,omitempty"`
	QuickWinIndex int                       `json:"quickWinIndex"`
	QuickWin      string                    `json:"quickWin,omitempty"`
	Wizard        *leads.Wizard             `json:"wizard,omitempty"`
	Error         *ErrorView                `json:"error,omitempty"`
	UpdatedAt     time.Time                 `json:"updatedAt"`
}

type ErrorView struct {
	Code    apperrors.ErrorCode `json:"code"`
	Message string              `json:"message"`
}

func newView(id string, st State, updated time.Time) View {
	v := View{
		ID:          id,
		State:       st.Phase(),
		LoadingStep: loadingStep(st),
		UpdatedAt:   updated,
	}

	switch s := st.(type) {
	case Idle:
		v.CameraActive = s.CameraActive
	case Result:
		v.Result = s.Scorecard
		v.QuickWinIndex = s.QuickWin
		if s.QuickWin < len(s.Scorecard.QuickWins) {
			v.QuickWin = s.Scorecard.QuickWins[s.QuickWin]
		}
		w := s.Wizard
		v.Wizard = &w
	case Error:
		v.Error = &ErrorView{Code: s.Code, Message: s.Message}
	}

	return v
}
