package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hyperengineering/pavilion/internal/controller"
	"github.com/hyperengineering/pavilion/internal/gateway"
	"github.com/hyperengineering/pavilion/internal/session"
	"github.com/hyperengineering/pavilion/internal/store"
	"github.com/hyperengineering/pavilion/internal/validation"
)

// Problem represents an RFC 7807 Problem Details response.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
}

type problemType struct {
	typeURI string
	title   string
}

// problemTypes maps HTTP status codes to RFC 7807 type URIs and titles.
var problemTypes = map[int]problemType{
	http.StatusBadRequest:          {"https://pavilion.dev/errors/bad-request", "Bad Request"},
	http.StatusUnauthorized:        {"https://pavilion.dev/errors/unauthorized", "Unauthorized"},
	http.StatusNotFound:            {"https://pavilion.dev/errors/not-found", "Not Found"},
	http.StatusConflict:            {"https://pavilion.dev/errors/conflict", "Conflict"},
	http.StatusUnprocessableEntity: {"https://pavilion.dev/errors/validation-error", "Validation Error"},
	http.StatusTooManyRequests:     {"https://pavilion.dev/errors/rate-limit", "Too Many Requests"},
	http.StatusInternalServerError: {"https://pavilion.dev/errors/internal-error", "Internal Server Error"},
	http.StatusBadGateway:          {"https://pavilion.dev/errors/upstream-error", "Bad Gateway"},
	http.StatusServiceUnavailable:  {"https://pavilion.dev/errors/service-unavailable", "Service Unavailable"},
}

// UpstreamFailureDetail is the fixed notice shown when the AI service fails.
const UpstreamFailureDetail = "思绪受阻（网络错误），请稍后重试。"

func lookupProblemType(status int) problemType {
	if pt, ok := problemTypes[status]; ok {
		return pt
	}
	return problemType{typeURI: "https://pavilion.dev/errors/unknown", title: http.StatusText(status)}
}

func writeProblemBody(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode problem response", "component", "api", "error", err)
	}
}

// WriteProblem writes an RFC 7807 Problem Details response.
func WriteProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	pt := lookupProblemType(status)
	writeProblemBody(w, status, Problem{
		Type:     pt.typeURI,
		Title:    pt.title,
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
	})
}

// ProblemWithErrors extends Problem with validation error details.
type ProblemWithErrors struct {
	Problem
	Errors []validation.ValidationError `json:"errors,omitempty"`
}

// WriteProblemWithErrors writes a 422 Problem Details response with field errors.
func WriteProblemWithErrors(w http.ResponseWriter, r *http.Request, detail string, errs []validation.ValidationError) {
	pt := lookupProblemType(http.StatusUnprocessableEntity)
	writeProblemBody(w, http.StatusUnprocessableEntity, ProblemWithErrors{
		Problem: Problem{
			Type:     pt.typeURI,
			Title:    pt.title,
			Status:   http.StatusUnprocessableEntity,
			Detail:   detail,
			Instance: r.URL.Path,
		},
		Errors: errs,
	})
}

// MapError converts domain errors to Problem Details responses.
func MapError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, controller.ErrEmptyQuery),
		errors.Is(err, controller.ErrEmptyMessage),
		errors.Is(err, controller.ErrEmptyTitle),
		errors.Is(err, controller.ErrInvalidOption),
		errors.Is(err, gateway.ErrEmptyInput):
		WriteProblem(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, session.ErrInvalidID):
		WriteProblem(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, controller.ErrBusy):
		WriteProblem(w, r, http.StatusConflict, "A request of this kind is already in progress")
	case errors.Is(err, controller.ErrReaderClosed),
		errors.Is(err, controller.ErrNoQuiz):
		WriteProblem(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, controller.ErrBookNotFound),
		errors.Is(err, store.ErrNotFound):
		WriteProblem(w, r, http.StatusNotFound, "Resource not found")
	case errors.Is(err, gateway.ErrMissingCredential):
		WriteProblem(w, r, http.StatusServiceUnavailable, "AI service is not configured")
	case errors.Is(err, gateway.ErrUpstream):
		WriteProblem(w, r, http.StatusBadGateway, UpstreamFailureDetail)
	default:
		// Never expose internal error details to client
		slog.Error("unhandled error",
			"component", "api",
			"path", r.URL.Path,
			"error", err,
		)
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
	}
}
