package parser

import (
	"encoding/json"
	"time"
)

// ErrorDetail is what the service reports on a non-2xx response. The body is
// {"detail": ..., "status_code": N} where detail is either a string or, for
// rate limiting, an object.
type ErrorDetail struct {
	Message    string
	RetryAfter time.Duration
}

type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

type rateLimitDetail struct {
	Error      string  `json:"error"`
	Message    string  `json:"message"`
	RetryAfter float64 `json:"retry_after"`
}

const maxDetailLen = 300

// ParseErrorDetail extracts the server message from an error body. Bodies
// that do not follow the service format, such as proxy error pages, yield an
// empty message so their content never reaches the user.
func ParseErrorDetail(raw []byte) ErrorDetail {
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Detail) == 0 || string(body.Detail) == "null" {
		return ErrorDetail{}
	}

	var s string
	if err := json.Unmarshal(body.Detail, &s); err == nil {
		return ErrorDetail{Message: clip(s)}
	}

	var obj rateLimitDetail
	if err := json.Unmarshal(body.Detail, &obj); err == nil {
		msg := obj.Error
		if msg == "" {
			msg = obj.Message
		}
		return ErrorDetail{
			Message:    clip(msg),
			RetryAfter: time.Duration(obj.RetryAfter * float64(time.Second)),
		}
	}

	// FastAPI validation errors come back as a list.
	return ErrorDetail{Message: clip(string(body.Detail))}
}

func clip(s string) string {
	if len(s) <= maxDetailLen {
		return s
	}
	return s[:maxDetailLen] + "..."
}
