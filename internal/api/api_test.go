package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"menu-scorecard/internal/analysis"
	"menu-scorecard/internal/capture"
	apperrors "menu-scorecard/internal/common/errors"
	"menu-scorecard/internal/common/logger"
	"menu-scorecard/internal/common/observability"
	"menu-scorecard/internal/leads"
	"menu-scorecard/internal/ratelimit"
	"menu-scorecard/internal/scorecard"
	"menu-scorecard/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var jpegBytes = append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, []byte("menu")...)

const scenarioJSON = `{"overallScore":82,"breakdown":{"simplicityScore":20,"pricingScore":18,"balanceScore":22,"marginScore":22},"quickWins":["A","B"],"positives":[],"issues":[],"metrics":{"totalItems":30,"sizeCategory":"Medium","complexityScore":15,"pricing":{"minPrice":5,"maxPrice":40,"medianPrice":18}},"confidenceLevel":"High","oneSentenceSummary":"Solid."}`

type stubAnalyzer struct {
	result *scorecard.AnalysisResult
	err    error
	hold   chan struct{}
}

func (s *stubAnalyzer) Name() string { return "stub" }

func (s *stubAnalyzer) Analyze(ctx context.Context, in capture.Input) (*scorecard.AnalysisResult, error) {
	if s.hold != nil {
		select {
		case <-s.hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.result, s.err
}

type testEnv struct {
	router   *gin.Engine
	store    *session.Store
	webhooks atomic.Int32
}

func newTestEnv(t *testing.T, a analysis.Analyzer, cfg RouterConfig) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{}
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.webhooks.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(hook.Close)

	log := logger.NewNoOpLogger()
	sub := leads.NewSubmitter(leads.NewWebhookSink(hook.URL, time.Second), time.Second, log, observability.Noop())
	env.store = session.NewStore(a, sub, time.Hour, log)
	t.Cleanup(env.store.Close)

	h := NewHandler(env.store, a, log, Options{MaxUploadBytes: 1024, MaxWait: 2 * time.Second})
	env.router = NewRouter(h, cfg, log)
	return env
}

func scenarioAnalyzer(t *testing.T) *stubAnalyzer {
	t.Helper()
	res, err := scorecard.Decode([]byte(scenarioJSON))
	require.NoError(t, err)
	return &stubAnalyzer{result: res}
}

func multipartBody(t *testing.T, field string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile(field, "menu.jpg")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	var req *http.Request
	switch b := body.(type) {
	case nil:
		req = httptest.NewRequest(method, path, nil)
	case string:
		req = httptest.NewRequest(method, path, strings.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(data))
		req.Header.Set("Content-Type", "application/json")
	}
	return e.serve(t, req)
}

func (e *testEnv) upload(t *testing.T, path string, data []byte) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	body, ct := multipartBody(t, menuField, data)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", ct)
	return e.serve(t, req)
}

func (e *testEnv) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var resp Response
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

// view decodes resp.Data as a session view.
func view(t *testing.T, resp Response) session.View {
	t.Helper()
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var v session.View
	require.NoError(t, json.Unmarshal(data, &v))
	return v
}

func (e *testEnv) createSession(t *testing.T) string {
	t.Helper()
	w, resp := e.do(t, http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	return view(t, resp).ID
}

// ==========================
// Service Routes
// ==========================

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, scenarioAnalyzer(t), RouterConfig{})

	w, _ := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = env.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = env.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReady_DependencyDown(t *testing.T) {
	env := newTestEnv(t, scenarioAnalyzer(t), RouterConfig{
		Ready: func(ctx context.Context) error { return errors.New("redis ping failed") },
	})

	w, _ := env.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestDisclosure(t *testing.T) {
	env := newTestEnv(t, scenarioAnalyzer(t), RouterConfig{})

	w, resp := env.do(t, http.MethodGet, "/api/v1/disclosure", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "AI Disclosure & Legal Notice", data["title"])
	assert.Contains(t, data["text"], "Artificial Intelligence (AI)")
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, scenarioAnalyzer(t), RouterConfig{AllowedOrigins: []string{"https://menus.example.com"}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/disclosure", nil)
	req.Header.Set("Origin", "https://menus.example.com")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, "https://menus.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/disclosure", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

// ==========================
// Stateless Analysis
// ==========================

func TestAnalyze(t *testing.T) {
	env := newTestEnv(t, scenarioAnalyzer(t), RouterConfig{})

	w, resp := env.upload(t, "/api/v1/analyze", jpegBytes)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, codeOK, resp.Meta.Code)

	data := resp.Data.(map[string]interface{})
	assert.EqualValues(t, 82, data["overallScore"])
	assert.Len(t, data["quickWins"], scorecard.QuickWinCount)
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name       string
		analyzer   *stubAnalyzer
		body       func(t *testing.T) (*bytes.Buffer, string)
		wantStatus int
		wantCode   apperrors.ErrorCode
	}{
		{
			name:     "missing file",
			analyzer: &stubAnalyzer{},
			body: func(t *testing.T) (*bytes.Buffer, string) {
				return multipartBody(t, "other", jpegBytes)
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.ErrCodeInvalidCapture,
		},
		{
			name:     "too large",
			analyzer: &stubAnalyzer{},
			body: func(t *testing.T) (*bytes.Buffer, string) {
				return multipartBody(t, menuField, bytes.Repeat([]byte{0xFF}, 2048))
			},
			wantStatus: http.StatusRequestEntityTooLarge,
			wantCode:   apperrors.ErrCodeCaptureTooLarge,
		},
		{
			name:     "model failure",
			analyzer: &stubAnalyzer{err: apperrors.NewAnalysisFailedError(errors.New("503"))},
			body: func(t *testing.T) (*bytes.Buffer, string) {
				return multipartBody(t, menuField, jpegBytes)
			},
			wantStatus: http.StatusBadGateway,
			wantCode:   apperrors.ErrCodeAnalysisFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.analyzer, RouterConfig{})
			body, ct := tt.body(t)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", body)
			req.Header.Set("Content-Type", ct)

			w, resp := env.serve(t, req)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, string(tt.wantCode), resp.Meta.Code)
		})
	}
}

func TestAnalyze_RateLimited(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(1, time.Minute)
	defer limiter.Stop()
	env := newTestEnv(t, scenarioAnalyzer(t), RouterConfig{Limiter: limiter})

	w, _ := env.upload(t, "/api/v1/analyze", jpegBytes)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := env.upload(t, "/api/v1/analyze", jpegBytes)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, string(apperrors.ErrCodeRateLimited), resp.Meta.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	w, _ = env.do(t, http.MethodGet, "/api/v1/disclosure", nil)
	assert.Equal(t, http.StatusOK, w.Code, "only analysis routes are limited")
}

// ==========================
// Session Flow
// ==========================

func TestSessionFlow(t *testing.T) {
	env := newTestEnv(t, scenarioAnalyzer(t), RouterConfig{})
	id := env.createSession(t)
	base := "/api/v1/sessions/" + id

	w, resp := env.upload(t, base+"/upload?wait=true", jpegBytes)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	v := view(t, resp)
	require.Equal(t, session.PhaseResult, v.State)
	assert.Equal(t, 0, v.QuickWinIndex)
	assert.Equal(t, 10, v.Result.Metrics.ComplexityScore)

	_, resp = env.do(t, http.MethodPost, base+"/quick-wins/prev", nil)
	assert.Equal(t, scorecard.QuickWinCount-1, view(t, resp).QuickWinIndex)

	_, resp = env.do(t, http.MethodPut, base+"/quick-wins/1", nil)
	assert.Equal(t, "B", view(t, resp).QuickWin)

	w, _ = env.do(t, http.MethodPut, base+"/quick-wins/x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	_, resp = env.do(t, http.MethodPost, base+"/wizard/category", map[string]string{"value": "Cafe"})
	assert.Equal(t, leads.StepRevenue, view(t, resp).Wizard.Step)

	_, resp = env.do(t, http.MethodPost, base+"/wizard/skip", nil)
	assert.Equal(t, leads.StepContact, view(t, resp).Wizard.Step)

	_, resp = env.do(t, http.MethodPost, base+"/wizard/country", map[string]string{"code": "+64"})
	assert.Equal(t, "+64", view(t, resp).Wizard.CountryCode)

	w, resp = env.do(t, http.MethodPost, base+"/wizard/submit", map[string]string{"fullName": "Jane"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(apperrors.ErrCodeLeadValidationFailed), resp.Meta.Code)

	w, resp = env.do(t, http.MethodPost, base+"/wizard/submit", leads.Contact{
		FullName: "Jane Doe", Email: "jane@bistro.com", Phone: "21 000 000", Company: "Bistro",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, view(t, resp).Wizard.Submitted)

	assert.Eventually(t, func() bool {
		_, resp := env.do(t, http.MethodGet, base, nil)
		return view(t, resp).Wizard.Delivery == leads.DeliveryDelivered
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), env.webhooks.Load())

	_, resp = env.do(t, http.MethodPost, base+"/reset", nil)
	v = view(t, resp)
	assert.Equal(t, session.PhaseIdle, v.State)
	assert.Nil(t, v.Result)
	assert.Nil(t, v.Wizard)
}

func TestSession_NotFound(t *testing.T) {
	env := newTestEnv(t, scenarioAnalyzer(t), RouterConfig{})

	w, resp := env.do(t, http.MethodGet, "/api/v1/sessions/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(apperrors.ErrCodeSessionNotFound), resp.Meta.Code)

	id := env.createSession(t)
	w, _ = env.do(t, http.MethodDelete, "/api/v1/sessions/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = env.do(t, http.MethodGet, "/api/v1/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSession_BusyUpload(t *testing.T) {
	a := scenarioAnalyzer(t)
	a.hold = make(chan struct{})
	env := newTestEnv(t, a, RouterConfig{})
	id := env.createSession(t)
	base := "/api/v1/sessions/" + id

	w, _ := env.upload(t, base+"/upload", jpegBytes)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := env.upload(t, base+"/upload", jpegBytes)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, string(apperrors.ErrCodeSessionBusy), resp.Meta.Code)

	close(a.hold)
	_, resp = env.do(t, http.MethodGet, base+"?wait=true", nil)
	assert.Equal(t, session.PhaseResult, view(t, resp).State)
}

func TestSession_WaitClientGone(t *testing.T) {
	a := scenarioAnalyzer(t)
	a.hold = make(chan struct{})
	defer close(a.hold)
	env := newTestEnv(t, a, RouterConfig{})
	id := env.createSession(t)
	base := "/api/v1/sessions/" + id

	w, _ := env.upload(t, base+"/upload", jpegBytes)
	require.Equal(t, http.StatusOK, w.Code)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, base+"?wait=true", nil).WithContext(ctx)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.NotEqual(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestSession_AnalysisFailure(t *testing.T) {
	env := newTestEnv(t, &stubAnalyzer{err: apperrors.NewAnalysisFailedError(errors.New("quota"))}, RouterConfig{})
	id := env.createSession(t)

	w, resp := env.upload(t, "/api/v1/sessions/"+id+"/upload?wait=true", jpegBytes)
	require.Equal(t, http.StatusOK, w.Code)

	v := view(t, resp)
	assert.Equal(t, session.PhaseError, v.State)
	require.NotNil(t, v.Error)
	assert.Equal(t, apperrors.MsgAnalysisFailed, v.Error.Message)
}

func TestSession_Camera(t *testing.T) {
	env := newTestEnv(t, scenarioAnalyzer(t), RouterConfig{})

	t.Run("denied", func(t *testing.T) {
		id := env.createSession(t)
		_, resp := env.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/camera/start", map[string]bool{"granted": false})
		v := view(t, resp)
		assert.Equal(t, session.PhaseError, v.State)
		assert.Equal(t, apperrors.MsgCameraUnavailable, v.Error.Message)
	})

	t.Run("capture", func(t *testing.T) {
		id := env.createSession(t)
		base := "/api/v1/sessions/" + id

		_, resp := env.do(t, http.MethodPost, base+"/camera/start", map[string]bool{"granted": true})
		assert.True(t, view(t, resp).CameraActive)

		dataURL := "data:image/jpeg;base64,/9j/4AAQSkZJRg=="
		w, resp := env.do(t, http.MethodPost, base+"/camera/capture?wait=true", map[string]string{"dataUrl": dataURL})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		v := view(t, resp)
		assert.Equal(t, session.PhaseResult, v.State)
		assert.False(t, v.CameraActive)
	})

	t.Run("capture without camera", func(t *testing.T) {
		id := env.createSession(t)
		w, _ := env.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/camera/capture", map[string]string{"dataUrl": "data:image/png;base64,iVBORw0KGgo="})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("bad body", func(t *testing.T) {
		id := env.createSession(t)
		w, resp := env.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/camera/capture", "{")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, string(apperrors.ErrCodeInvalidInput), resp.Meta.Code)
	})
}

func TestSession_ResultOnlyRoutes(t *testing.T) {
	env := newTestEnv(t, scenarioAnalyzer(t), RouterConfig{})
	id := env.createSession(t)

	for _, path := range []string{"/quick-wins/next", "/wizard/next", "/wizard/skip"} {
		w, resp := env.do(t, http.MethodPost, "/api/v1/sessions/"+id+path, nil)
		assert.Equal(t, http.StatusConflict, w.Code, path)
		assert.Equal(t, string(apperrors.ErrCodeInvalidTransition), resp.Meta.Code, path)
	}
}
