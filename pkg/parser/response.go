// Package parser decodes and validates the translation service's payloads.
package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/helmcode/error-translator/pkg/errs"
	"github.com/helmcode/error-translator/pkg/model"
)

// wireResponse mirrors model.TranslationResponse with pointers on the
// required fields so absence can be told apart from zero values.
type wireResponse struct {
	Explanation      *string         `json:"explanation"`
	Solutions        *[]wireSolution `json:"solutions"`
	Confidence       *float64        `json:"confidence"`
	ErrorType        *string         `json:"errorType"`
	Language         string          `json:"language"`
	Severity         string          `json:"severity"`
	EstimatedFixTime string          `json:"estimatedFixTime"`
	PreventionTips   []string        `json:"preventionTips"`
}

type wireSolution struct {
	Title       *string  `json:"title"`
	Description string   `json:"description"`
	Code        *string  `json:"code"`
	FilePath    *string  `json:"filePath"`
	LineNumber  *int     `json:"lineNumber"`
	Confidence  *float64 `json:"confidence"`
	Steps       []string `json:"steps"`
	RelatedDocs []string `json:"relatedDocs"`
}

// fenceRe matches a markdown fence wrapping the whole body. Backticks inside
// JSON string values are left alone.
var fenceRe = regexp.MustCompile("(?s)^```[a-zA-Z]*\r?\n(.*?)\r?\n?```$")

// stripFences unwraps a body sent as a ```json ... ``` block.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

// ParseTranslationResponse decodes a 2xx body. Missing required fields or
// out-of-range confidences yield an *errs.Error of kind MalformedResponse.
func ParseTranslationResponse(raw []byte) (*model.TranslationResponse, error) {
	cleaned := stripFences(string(raw))
	if cleaned == "" {
		return nil, errs.New(errs.KindMalformedResponse, "empty response body")
	}

	var w wireResponse
	if err := json.Unmarshal([]byte(cleaned), &w); err != nil {
		return nil, errs.Wrap(errs.KindMalformedResponse, err, "response is not valid JSON")
	}

	switch {
	case w.Explanation == nil:
		return nil, missing("explanation")
	case w.Solutions == nil:
		return nil, missing("solutions")
	case w.Confidence == nil:
		return nil, missing("confidence")
	case w.ErrorType == nil:
		return nil, missing("errorType")
	}
	if err := checkConfidence("confidence", *w.Confidence); err != nil {
		return nil, err
	}

	resp := &model.TranslationResponse{
		Explanation:      *w.Explanation,
		Solutions:        make([]model.Solution, 0, len(*w.Solutions)),
		Confidence:       *w.Confidence,
		ErrorType:        *w.ErrorType,
		Language:         w.Language,
		Severity:         w.Severity,
		EstimatedFixTime: w.EstimatedFixTime,
		PreventionTips:   w.PreventionTips,
	}
	for i, s := range *w.Solutions {
		if s.Title == nil {
			return nil, missing(fmt.Sprintf("solutions[%d].title", i))
		}
		if s.Confidence == nil {
			return nil, missing(fmt.Sprintf("solutions[%d].confidence", i))
		}
		if err := checkConfidence(fmt.Sprintf("solutions[%d].confidence", i), *s.Confidence); err != nil {
			return nil, err
		}
		if s.LineNumber != nil && *s.LineNumber < 1 {
			return nil, errs.New(errs.KindMalformedResponse, "solutions[%d].lineNumber %d is not 1-based", i, *s.LineNumber)
		}
		steps := s.Steps
		if steps == nil {
			steps = []string{}
		}
		resp.Solutions = append(resp.Solutions, model.Solution{
			Title:       *s.Title,
			Description: s.Description,
			Code:        s.Code,
			FilePath:    s.FilePath,
			LineNumber:  s.LineNumber,
			Confidence:  *s.Confidence,
			Steps:       steps,
			RelatedDocs: s.RelatedDocs,
		})
	}
	return resp, nil
}

func missing(field string) error {
	return errs.New(errs.KindMalformedResponse, "response is missing %s", field)
}

func checkConfidence(field string, v float64) error {
	if v < 0 || v > 1 {
		return errs.New(errs.KindMalformedResponse, "%s %.2f is outside [0,1]", field, v)
	}
	return nil
}

// ParseHealth decodes the body of GET /health.
func ParseHealth(raw []byte) (*model.HealthStatus, error) {
	var h model.HealthStatus
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, errs.Wrap(errs.KindMalformedResponse, err, "health response is not valid JSON")
	}
	if h.Status == "" {
		return nil, missing("status")
	}
	return &h, nil
}

type languagesBody struct {
	Languages *[]string `json:"languages"`
}

// ParseSupportedLanguages decodes the body of GET /supported-languages.
func ParseSupportedLanguages(raw []byte) ([]string, error) {
	var body languagesBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, errs.Wrap(errs.KindMalformedResponse, err, "languages response is not valid JSON")
	}
	if body.Languages == nil {
		return nil, missing("languages")
	}
	return *body.Languages, nil
}
