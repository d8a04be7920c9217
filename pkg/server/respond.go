package server

import (
	"encoding/json"
	"net/http"

	"github.com/matzehuels/kitchen/pkg/errors"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (s *Server) respondJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("cannot encode response", "path", r.URL.Path, "err", err, "request_id", RequestID(r.Context()))
	}
}

func (s *Server) respondStatus(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	s.respondJSON(w, r, status, ErrorResponse{Code: code, Message: message, Status: status})
}

// respondError maps err to a status. Messages of structured errors are meant
// for users; anything else is logged and hidden.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	status := statusFor(code)
	msg := errors.UserMessage(err)
	if code == "" {
		code = errors.ErrCodeInternal
		msg = "Internal server error"
	}
	if status >= 500 {
		s.logger.Error("request failed", "path", r.URL.Path, "code", code, "err", err, "request_id", RequestID(r.Context()))
	}
	s.respondStatus(w, r, status, string(code), msg)
}

func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeRepositoryUnavailable:
		return http.StatusServiceUnavailable
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case errors.ErrCodeRenderTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrCodeRenderFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
