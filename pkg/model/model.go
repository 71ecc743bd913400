package model

import "sort"

// ErrorContext is the evidence sent alongside the raw error text. Optional
// fields are nil when the signal was not available, which is different from
// an available but empty value.
type ErrorContext struct {
	ErrorText        string              `json:"errorText" yaml:"errorText"`
	Language         string              `json:"language" yaml:"language"`
	FilePath         *string             `json:"filePath,omitempty" yaml:"filePath,omitempty"`
	LineNumber       *int                `json:"lineNumber,omitempty" yaml:"lineNumber,omitempty"`
	SurroundingCode  *string             `json:"surroundingCode,omitempty" yaml:"surroundingCode,omitempty"`
	ProjectStructure []string            `json:"projectStructure" yaml:"projectStructure"`
	RecentChanges    *string             `json:"recentChanges,omitempty" yaml:"recentChanges,omitempty"`
	Dependencies     map[string][]string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	UserContext      *string             `json:"userContext,omitempty" yaml:"userContext,omitempty"`
}

type TranslationRequest struct {
	ErrorText string        `json:"errorText"`
	Context   *ErrorContext `json:"context"`
}

type TranslationResponse struct {
	Explanation      string     `json:"explanation" yaml:"explanation"`
	Solutions        []Solution `json:"solutions" yaml:"solutions"`
	Confidence       float64    `json:"confidence" yaml:"confidence"`
	ErrorType        string     `json:"errorType" yaml:"errorType"`
	Language         string     `json:"language,omitempty" yaml:"language,omitempty"`
	Severity         string     `json:"severity,omitempty" yaml:"severity,omitempty"`
	EstimatedFixTime string     `json:"estimatedFixTime,omitempty" yaml:"estimatedFixTime,omitempty"`
	PreventionTips   []string   `json:"preventionTips,omitempty" yaml:"preventionTips,omitempty"`
}

// SortedSolutions returns a copy of the solutions ordered by confidence,
// highest first. The service does not guarantee any ordering.
func (r *TranslationResponse) SortedSolutions() []Solution {
	out := make([]Solution, len(r.Solutions))
	copy(out, r.Solutions)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

type Solution struct {
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Code        *string  `json:"code,omitempty" yaml:"code,omitempty"`
	FilePath    *string  `json:"filePath,omitempty" yaml:"filePath,omitempty"`
	LineNumber  *int     `json:"lineNumber,omitempty" yaml:"lineNumber,omitempty"`
	Confidence  float64  `json:"confidence" yaml:"confidence"`
	Steps       []string `json:"steps" yaml:"steps"`
	RelatedDocs []string `json:"relatedDocs,omitempty" yaml:"relatedDocs,omitempty"`
}

// HasCode is false for explanation-only solutions.
func (s *Solution) HasCode() bool {
	return s != nil && s.Code != nil
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status   string         `json:"status" yaml:"status"`
	Services map[string]any `json:"services,omitempty" yaml:"services,omitempty"`
}

// Ptr returns a pointer to v. Handy for the optional fields above.
func Ptr[T any](v T) *T {
	return &v
}
