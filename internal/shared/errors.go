package shared

import (
	"fmt"
	"net/http"
)

// Kind classifies a failure the user can recover from by retrying.
type Kind int

const (
	KindMissingCredential Kind = iota + 1
	KindInvalidCredential
	KindRateLimited
	KindUpstream
	KindUnexpectedResponse
	KindParseFailure
	KindExportFailure
	KindValidationIncomplete
)

func (k Kind) String() string {
	switch k {
	case KindMissingCredential:
		return "MissingCredential"
	case KindInvalidCredential:
		return "InvalidCredential"
	case KindRateLimited:
		return "RateLimited"
	case KindUpstream:
		return "UpstreamHTTPError"
	case KindUnexpectedResponse:
		return "UnexpectedResponseShape"
	case KindParseFailure:
		return "ParseFailure"
	case KindExportFailure:
		return "ExportFailure"
	case KindValidationIncomplete:
		return "ValidationIncomplete"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is a classified failure. Status is only meaningful for KindUpstream,
// where 0 means the request never got an HTTP answer.
type Error struct {
	Kind   Kind
	Status int
	Err    error
}

// Sentinels for errors.Is. Matching compares Kind only, except that a
// sentinel with a non-zero Status also requires the same Status.
var (
	ErrMissingCredential    = &Error{Kind: KindMissingCredential}
	ErrInvalidCredential    = &Error{Kind: KindInvalidCredential}
	ErrRateLimited          = &Error{Kind: KindRateLimited}
	ErrUpstream             = &Error{Kind: KindUpstream}
	ErrUnexpectedResponse   = &Error{Kind: KindUnexpectedResponse}
	ErrParseFailure         = &Error{Kind: KindParseFailure}
	ErrExportFailure        = &Error{Kind: KindExportFailure}
	ErrValidationIncomplete = &Error{Kind: KindValidationIncomplete}
)

// NewError classifies err as kind.
func NewError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Status == 0 || t.Status == e.Status)
}

// Message is the text shown to the user in a notification.
func (e *Error) Message() string {
	switch e.Kind {
	case KindMissingCredential:
		return "Please enter your Gemini API key first."
	case KindInvalidCredential:
		return "Invalid API key. Please check and try again."
	case KindRateLimited:
		return "API rate limit exceeded. Please wait a minute and try again, or check your quota at ai.google.dev."
	case KindUpstream:
		if e.Status == 0 {
			return "Could not reach the Gemini API. Please check your connection and try again."
		}
		return fmt.Sprintf("API error: %d %s", e.Status, http.StatusText(e.Status))
	case KindUnexpectedResponse:
		return "Unexpected response from Gemini API."
	case KindParseFailure:
		return "Failed to parse diet plan. Please try again."
	case KindExportFailure:
		return "Failed to generate the plan document."
	case KindValidationIncomplete:
		return "Please complete all required fields."
	default:
		return "Something went wrong. Please try again."
	}
}
