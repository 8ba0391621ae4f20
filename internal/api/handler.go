// Package api exposes scorecard analysis and visitor sessions over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"menu-scorecard/internal/analysis"
	"menu-scorecard/internal/capture"
	apperrors "menu-scorecard/internal/common/errors"
	"menu-scorecard/internal/common/logger"
	"menu-scorecard/internal/common/metrics"
	"menu-scorecard/internal/leads"
	"menu-scorecard/internal/session"

	"github.com/gin-gonic/gin"
)

const menuField = "menu"

type Options struct {
	MaxUploadBytes int64
	// MaxWait bounds how long ?wait=true may hold a request.
	MaxWait time.Duration
}

type Handler struct {
	store    *session.Store
	analyzer analysis.Analyzer
	errs     *apperrors.ErrorHandler
	logger   logger.Logger
	opts     Options
}

func NewHandler(store *session.Store, analyzer analysis.Analyzer, log logger.Logger, opts Options) *Handler {
	return &Handler{
		store:    store,
		analyzer: analyzer,
		errs:     apperrors.NewErrorHandler(log),
		logger:   log,
		opts:     opts,
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	status, stdErr := h.errs.Resolve(c.FullPath(), err)
	Fail(c, status, stdErr)
}

// ==========================
// Stateless analysis
// ==========================

func (h *Handler) Analyze(c *gin.Context) {
	in, err := h.readUpload(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	result, err := h.analyzer.Analyze(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, result)
}

func (h *Handler) readUpload(c *gin.Context) (capture.Input, error) {
	fh, err := c.FormFile(menuField)
	if err != nil {
		return capture.Input{}, apperrors.NewInvalidCaptureError(fmt.Sprintf("multipart field %q: %v", menuField, err))
	}
	if fh.Size > h.opts.MaxUploadBytes {
		return capture.Input{}, apperrors.NewCaptureTooLargeError(h.opts.MaxUploadBytes)
	}

	f, err := fh.Open()
	if err != nil {
		return capture.Input{}, apperrors.NewInvalidCaptureError(err.Error())
	}
	defer f.Close()

	in, err := capture.FromFile(f, fh.Header.Get("Content-Type"), h.opts.MaxUploadBytes)
	if err != nil {
		return capture.Input{}, err
	}
	metrics.CapturesReceived.WithLabelValues(string(capture.SourceFile), in.MediaType).Inc()
	return in, nil
}

// ==========================
// Sessions
// ==========================

func (h *Handler) CreateSession(c *gin.Context) {
	s := h.store.Create()
	Respond(c, http.StatusCreated, s.Snapshot())
}

func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.store.Delete(c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	Success(c, nil)
}

// sessionAction loads the session, applies fn and answers with the new view.
// With ?wait=true the answer is held until the session settles or MaxWait passes.
func (h *Handler) sessionAction(fn func(c *gin.Context, s *session.Session) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := h.store.Get(c.Param("id"))
		if err != nil {
			h.fail(c, err)
			return
		}
		if fn != nil {
			if err := fn(c, s); err != nil {
				h.fail(c, err)
				return
			}
		}

		if c.Query("wait") != "true" {
			Success(c, s.Snapshot())
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), h.opts.MaxWait)
		defer cancel()
		view, err := s.Wait(ctx)
		if errors.Is(err, context.Canceled) && c.Request.Context().Err() != nil {
			// client went away
			c.Abort()
			return
		}
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			h.fail(c, err)
			return
		}
		Success(c, view)
	}
}

func (h *Handler) GetSession() gin.HandlerFunc {
	return h.sessionAction(nil)
}

func (h *Handler) Reset() gin.HandlerFunc {
	return h.sessionAction(func(c *gin.Context, s *session.Session) error {
		s.Reset()
		return nil
	})
}

func (h *Handler) Upload() gin.HandlerFunc {
	return h.sessionAction(func(c *gin.Context, s *session.Session) error {
		in, err := h.readUpload(c)
		if err != nil {
			return err
		}
		return s.SubmitFile(in)
	})
}

type cameraStartRequest struct {
	Granted bool `json:"granted"`
}

func (h *Handler) StartCamera() gin.HandlerFunc {
	return h.sessionAction(func(c *gin.Context, s *session.Session) error {
		var req cameraStartRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		return s.StartCamera(c.Request.Context(), capture.ClientDevice{Granted: req.Granted})
	})
}

func (h *Handler) CancelCamera() gin.HandlerFunc {
	return h.sessionAction(func(c *gin.Context, s *session.Session) error {
		return s.CancelCamera()
	})
}

type captureRequest struct {
	DataURL string `json:"dataUrl" binding:"required"`
}

func (h *Handler) CapturePhoto() gin.HandlerFunc {
	return h.sessionAction(func(c *gin.Context, s *session.Session) error {
		var req captureRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		in, err := capture.FromDataURL(req.DataURL, h.opts.MaxUploadBytes)
		if err != nil {
			return err
		}
		metrics.CapturesReceived.WithLabelValues(string(capture.SourceCamera), in.MediaType).Inc()
		return s.CapturePhoto(in)
	})
}

// ==========================
// Quick wins
// ==========================

func (h *Handler) NextQuickWin() gin.HandlerFunc {
	return h.sessionAction(func(c *gin.Context, s *session.Session) error { return s.NextQuickWin() })
}

func (h *Handler) PrevQuickWin() gin.HandlerFunc {
	return h.sessionAction(func(c *gin.Context, s *session.Session) error { return s.PrevQuickWin() })
}

func (h *Handler) JumpQuickWin() gin.HandlerFunc {
	return h.sessionAction(func(c *gin.Context, s *session.Session) error {
		i, err := strconv.Atoi(c.Param("index"))
		if err != nil {
			return apperrors.NewInvalidInputError(fmt.Sprintf("quick win index %q is not a number", c.Param("index")))
		}
		return s.JumpQuickWin(i)
	})
}

// ==========================
// Lead wizard
// ==========================

type valueRequest struct {
	Value string `json:"value" binding:"required"`
}

type countryRequest struct {
	Code string `json:"code" binding:"required"`
}

func (h *Handler) ChooseCategory() gin.HandlerFunc {
	return h.sessionAction(func(c *gin.Context, s *session.Session) error {
		var req valueRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		return s.ChooseCategory(req.Value)
	})
}

func (h *Handler) ChooseRevenue() gin.HandlerFunc {
	return h.sessionAction(func(c *gin.Context, s *session.Session) error {
		var req valueRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		return s.ChooseRevenue(req.Value)
	})
}

func (h *Handler) WizardSkip() gin.HandlerFunc {
	return h.sessionAction(func(c *gin.Context, s *session.Session) error { return s.WizardSkip() })
}

func (h *Handler) WizardNext() gin.HandlerFunc {
	return h.sessionAction(func(c *gin.Context, s *session.Session) error { return s.WizardNext() })
}

func (h *Handler) WizardBack() gin.HandlerFunc {
	return h.sessionAction(func(c *gin.Context, s *session.Session) error { return s.WizardBack() })
}

func (h *Handler) SetCountry() gin.HandlerFunc {
	return h.sessionAction(func(c *gin.Context, s *session.Session) error {
		var req countryRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		return s.SetCountry(req.Code)
	})
}

func (h *Handler) SubmitLead() gin.HandlerFunc {
	return h.sessionAction(func(c *gin.Context, s *session.Session) error {
		var contact leads.Contact
		if err := bind(c, &contact); err != nil {
			return err
		}
		return s.SubmitLead(c.Request.Context(), contact)
	})
}

func (h *Handler) Disclosure(c *gin.Context) {
	Success(c, aiDisclosure)
}

func bind(c *gin.Context, v interface{}) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return apperrors.NewInvalidInputError(err.Error())
	}
	return nil
}
