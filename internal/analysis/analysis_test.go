package analysis

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"menu-scorecard/internal/capture"
	apperrors "menu-scorecard/internal/common/errors"
	"menu-scorecard/internal/common/logger"
	"menu-scorecard/internal/common/observability"
	"menu-scorecard/internal/scorecard"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig(baseURL string) *Config {
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.APIKey = "test-key"
	cfg.Model = "test-model"
	cfg.Timeout = 5 * time.Second
	return cfg
}

func testInput() capture.Input {
	return capture.Input{Data: []byte("menu-bytes"), MediaType: "image/jpeg", Source: capture.SourceFile}
}

const scenarioJSON = `{"overallScore":82,"breakdown":{"simplicityScore":20,"pricingScore":18,"balanceScore":22,"marginScore":22},"quickWins":["A","B"],"positives":[],"issues":[],"metrics":{"totalItems":30,"sizeCategory":"Medium","complexityScore":15,"pricing":{"minPrice":5,"maxPrice":40,"medianPrice":18}},"confidenceLevel":"High","oneSentenceSummary":"Solid."}`

func createModelResponse(text string) string {
	resp := map[string]interface{}{
		"candidates": []interface{}{
			map[string]interface{}{
				"content": map[string]interface{}{
					"role":  "model",
					"parts": []interface{}{map[string]interface{}{"text": text}},
				},
				"finishReason": "STOP",
			},
		},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func newModelServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

// ==========================
// Gemini Analyzer Tests
// ==========================

func TestGeminiAnalyzer_Scenario(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/v1beta/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.Query().Get("key"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		require.Len(t, req.Contents[0].Parts, 2)

		img := req.Contents[0].Parts[0].InlineData
		require.NotNil(t, img)
		assert.Equal(t, "image/jpeg", img.MimeType)
		decoded, err := base64.StdEncoding.DecodeString(img.Data)
		require.NoError(t, err)
		assert.Equal(t, "menu-bytes", string(decoded))

		assert.Contains(t, req.Contents[0].Parts[1].Text, "EXACTLY 5 STRATEGIC RECOMMENDATIONS")
		assert.Equal(t, "application/json", req.GenerationConfig.ResponseMimeType)
		assert.Equal(t, "OBJECT", req.GenerationConfig.ResponseSchema["type"])

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(createModelResponse(scenarioJSON)))
	}))
	defer server.Close()

	analyzer := NewGeminiAnalyzer(createTestConfig(server.URL), logger.NewTestLogger(t))
	result, err := analyzer.Analyze(context.Background(), testInput())

	require.NoError(t, err)
	assert.Equal(t, 82, result.OverallScore)
	assert.Equal(t, 10, result.Metrics.ComplexityScore)
	assert.Equal(t, []string{"A", "B", scorecard.QuickWinFillers[2], scorecard.QuickWinFillers[3], scorecard.QuickWinFillers[4]}, result.QuickWins)
}

func TestGeminiAnalyzer_Failures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode apperrors.ErrorCode
		wantErr  error
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":"boom"}`, wantCode: apperrors.ErrCodeAnalysisFailed},
		{name: "quota exceeded", status: http.StatusTooManyRequests, body: `{"error":"quota"}`, wantCode: apperrors.ErrCodeAnalysisFailed},
		{name: "envelope not json", status: http.StatusOK, body: `<html>`, wantCode: apperrors.ErrCodeAnalysisFailed},
		{name: "no candidates", status: http.StatusOK, body: `{"candidates":[]}`, wantCode: apperrors.ErrCodeAnalysisFailed, wantErr: ErrNoCandidates},
		{name: "blocked prompt", status: http.StatusOK, body: `{"promptFeedback":{"blockReason":"SAFETY"}}`, wantCode: apperrors.ErrCodeAnalysisFailed, wantErr: ErrResponseBlocked},
		{name: "text not json", status: http.StatusOK, body: createModelResponse("Looks tasty"), wantCode: apperrors.ErrCodeResultDecodeFailed, wantErr: scorecard.ErrMalformedResult},
		{name: "missing overall score", status: http.StatusOK, body: createModelResponse(strings.Replace(scenarioJSON, `"overallScore":82,`, "", 1)), wantCode: apperrors.ErrCodeResultDecodeFailed, wantErr: scorecard.ErrMalformedResult},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newModelServer(t, tt.status, tt.body)
			analyzer := NewGeminiAnalyzer(createTestConfig(server.URL), logger.NewNoOpLogger())

			result, err := analyzer.Analyze(context.Background(), testInput())

			assert.Nil(t, result)
			stdErr, ok := apperrors.AsStandard(err)
			require.True(t, ok, "expected StandardError, got %v", err)
			assert.Equal(t, tt.wantCode, stdErr.Code)
			assert.Equal(t, apperrors.MsgAnalysisFailed, stdErr.Message)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestGeminiAnalyzer_Cancellation(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	analyzer := NewGeminiAnalyzer(createTestConfig(server.URL), logger.NewNoOpLogger())
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, err := analyzer.Analyze(ctx, testInput())
		errCh <- err
	}()

	<-started
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
		_, isStandard := apperrors.AsStandard(err)
		assert.False(t, isStandard)
	case <-time.After(5 * time.Second):
		t.Fatal("analysis did not stop after cancellation")
	}
}

func TestGeminiAnalyzer_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	cfg := createTestConfig(server.URL)
	cfg.Timeout = 50 * time.Millisecond

	_, err := NewGeminiAnalyzer(cfg, logger.NewNoOpLogger()).Analyze(context.Background(), testInput())

	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAnalysisTimeout), "got %v", err)
}

func TestGeminiAnalyzer_EmptyCapture(t *testing.T) {
	analyzer := NewGeminiAnalyzer(createTestConfig("http://unused.invalid"), logger.NewNoOpLogger())
	_, err := analyzer.Analyze(context.Background(), capture.Input{MediaType: "image/png"})
	assert.ErrorIs(t, err, ErrEmptyCapture)
}

func TestExtractText_SkipsThoughtParts(t *testing.T) {
	body := `{"candidates":[{"content":{"parts":[{"text":"thinking...","thought":true},{"text":"{\"a\":"},{"text":"1}"}]}}]}`
	text, err := extractText([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, text)
}

// ==========================
// Demo Analyzer & Factory Tests
// ==========================

func TestDemoAnalyzer(t *testing.T) {
	result, err := NewDemoAnalyzer(0).Analyze(context.Background(), testInput())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.OneSentenceSummary, DemoSummaryPrefix))
	assert.Equal(t, scorecard.ConfidenceLow, result.ConfidenceLevel)
	assert.Equal(t, scorecard.QuickWinFillers, result.QuickWins)
	assert.Equal(t, 1, result.Metrics.ComplexityScore)
}

func TestDemoAnalyzer_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewDemoAnalyzer(time.Second).Analyze(ctx, testInput())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_SelectsAnalyzer(t *testing.T) {
	cfg := DefaultConfig()
	a, err := New(cfg, logger.NewNoOpLogger(), observability.Noop())
	require.NoError(t, err)
	assert.Equal(t, "demo", a.Name())

	cfg.APIKey = "key"
	a, err = New(cfg, logger.NewNoOpLogger(), observability.Noop())
	require.NoError(t, err)
	assert.Equal(t, "gemini", a.Name())

	cfg.Model = ""
	_, err = New(cfg, logger.NewNoOpLogger(), observability.Noop())
	assert.Error(t, err)
}

type failingAnalyzer struct{ err error }

func (f failingAnalyzer) Name() string { return "failing" }
func (f failingAnalyzer) Analyze(context.Context, capture.Input) (*scorecard.AnalysisResult, error) {
	return nil, f.err
}

func TestInstrument_PassesThroughErrors(t *testing.T) {
	cause := apperrors.NewAnalysisFailedError(errors.New("upstream"))
	a := Instrument(failingAnalyzer{err: cause}, logger.NewNoOpLogger(), observability.Noop())

	_, err := a.Analyze(context.Background(), testInput())
	assert.Same(t, cause, err)
	assert.Equal(t, "failing", a.Name())
}
