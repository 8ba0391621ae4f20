package scorecard

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrMalformedResult matches every *DecodeError via errors.Is.
var ErrMalformedResult = errors.New("malformed analysis result")

// FieldError names one violated constraint. Field is a dotted path such as
// "metrics.pricing.minPrice"; it is empty for document level problems.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// DecodeError reports why a model response could not become an AnalysisResult.
type DecodeError struct {
	Fields []FieldError
	cause  error
}

func (e *DecodeError) Error() string {
	if len(e.Fields) == 0 {
		if e.cause != nil {
			return fmt.Sprintf("%s: %v", ErrMalformedResult, e.cause)
		}
		return ErrMalformedResult.Error()
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		if f.Field == "" {
			parts[i] = f.Reason
		} else {
			parts[i] = f.Field + ": " + f.Reason
		}
	}
	return fmt.Sprintf("%s: %s", ErrMalformedResult, strings.Join(parts, "; "))
}

func (e *DecodeError) Is(target error) bool { return target == ErrMalformedResult }

func (e *DecodeError) Unwrap() error { return e.cause }

var resultSchema = mustCompile(validationSchema)

func mustCompile(doc string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(doc))
	if err != nil {
		panic(fmt.Sprintf("scorecard: invalid result schema: %v", err))
	}
	return schema
}

// integerFields are rounded to whole numbers before validation.
var integerFields = [][]string{
	{"overallScore"},
	{"metrics", "totalItems"},
	{"metrics", "complexityScore"},
	{"breakdown", "simplicityScore"},
	{"breakdown", "pricingScore"},
	{"breakdown", "balanceScore"},
	{"breakdown", "marginScore"},
}

// Decode turns a model response body into an AnalysisResult. It parses the
// JSON, applies Repair, validates every field and returns either a complete
// result or a *DecodeError.
func Decode(body []byte) (*AnalysisResult, error) {
	body = bytes.TrimSpace(stripCodeFence(body))
	if len(body) == 0 {
		return nil, &DecodeError{Fields: []FieldError{{Reason: "empty response"}}}
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &DecodeError{Fields: []FieldError{{Reason: "response is not a JSON object"}}, cause: err}
	}
	if raw == nil {
		return nil, &DecodeError{Fields: []FieldError{{Reason: "response is null"}}}
	}

	return DecodeMap(raw)
}

// DecodeMap is Decode for an already parsed document. raw is modified in place.
func DecodeMap(raw map[string]interface{}) (*AnalysisResult, error) {
	Repair(raw)
	normalize(raw)

	validation, err := resultSchema.Validate(gojsonschema.NewGoLoader(raw))
	if err != nil {
		return nil, &DecodeError{Fields: []FieldError{{Reason: "validation error"}}, cause: err}
	}
	if !validation.Valid() {
		return nil, &DecodeError{Fields: fieldErrors(validation.Errors())}
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, &DecodeError{cause: err}
	}
	var result AnalysisResult
	if err := json.Unmarshal(encoded, &result); err != nil {
		return nil, &DecodeError{cause: err}
	}

	if len(result.QuickWins) > QuickWinCount {
		result.QuickWins = result.QuickWins[:QuickWinCount]
	}
	if result.Positives == nil {
		result.Positives = []string{}
	}
	if result.Issues == nil {
		result.Issues = []string{}
	}

	return &result, nil
}

// normalize rounds whole-number fields and canonicalizes enum spelling so
// "high" or "Medium (25-50)" validate. Wrong types are left for validation.
func normalize(raw map[string]interface{}) {
	for _, path := range integerFields {
		parent := raw
		for _, key := range path[:len(path)-1] {
			next, ok := parent[key].(map[string]interface{})
			if !ok {
				parent = nil
				break
			}
			parent = next
		}
		if parent == nil {
			continue
		}
		leaf := path[len(path)-1]
		if v, ok := parent[leaf].(float64); ok {
			parent[leaf] = math.Round(v)
		}
	}

	if v, ok := raw["confidenceLevel"].(string); ok {
		raw["confidenceLevel"] = canonical(v, string(ConfidenceHigh), string(ConfidenceMedium), string(ConfidenceLow))
	}
	if metrics, ok := raw["metrics"].(map[string]interface{}); ok {
		if v, ok := metrics["sizeCategory"].(string); ok {
			metrics["sizeCategory"] = canonical(v, string(SizeSmall), string(SizeMedium), string(SizeLarge))
		}
	}
}

// canonical returns the option whose name matches the first word of v,
// ignoring case, or v unchanged.
func canonical(v string, options ...string) string {
	fields := strings.FieldsFunc(v, func(r rune) bool { return r == ' ' || r == '(' || r == ',' })
	if len(fields) == 0 {
		return v
	}
	for _, option := range options {
		if strings.EqualFold(fields[0], option) {
			return option
		}
	}
	return v
}

func fieldErrors(errs []gojsonschema.ResultError) []FieldError {
	out := make([]FieldError, 0, len(errs))
	for _, e := range errs {
		field := e.Field()
		if field == "(root)" {
			field = ""
		}
		if e.Type() == "required" {
			if prop, ok := e.Details()["property"].(string); ok && !strings.HasSuffix(field, prop) {
				if field == "" {
					field = prop
				} else {
					field = field + "." + prop
				}
			}
		}
		out = append(out, FieldError{Field: field, Reason: e.Description()})
	}
	return out
}

// stripCodeFence removes a ```json fence some models wrap around JSON output.
func stripCodeFence(body []byte) []byte {
	trimmed := bytes.TrimSpace(body)
	if !bytes.HasPrefix(trimmed, []byte("```")) {
		return body
	}
	trimmed = bytes.TrimPrefix(trimmed, []byte("```"))
	if nl := bytes.IndexByte(trimmed, '\n'); nl >= 0 {
		trimmed = trimmed[nl+1:]
	}
	return bytes.TrimSuffix(bytes.TrimSpace(trimmed), []byte("```"))
}
