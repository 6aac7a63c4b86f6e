package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/alanmeadows/lit-critic/internal/core"
	"github.com/alanmeadows/lit-critic/internal/errs"
)

const maxRequestBytes = 4 << 20 // 4 MB; scenes and indexes are plain text, not binary

// decode reads the request body into v, rejecting unknown fields per
// spec.md §4.9's "all request/response schemas reject unknown fields" rule.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" && ct != "application/json" {
		http.Error(w, "Content-Type must be application/json", http.StatusBadRequest)
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps an internal engine error to its status code per
// spec.md §7: ValidationError -> 400, CoordinationError -> 422 (structural,
// not retried), TransientTransportError -> 503 (retried by the caller),
// everything else -> 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if e, ok := err.(*errs.Error); ok {
		switch e.Kind {
		case errs.KindValidation:
			status = http.StatusBadRequest
		case errs.KindTransientTransport:
			status = http.StatusServiceUnavailable
		}
	}
	if _, ok := err.(*errs.CoordinationError); ok {
		status = http.StatusUnprocessableEntity
	}
	if _, ok := err.(*errs.SceneValidationError); ok {
		status = http.StatusConflict
	}
	http.Error(w, err.Error(), status)
}

func handleAnalyze(svc *core.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req core.AnalyzeRequest
		if !decode(w, r, &req) {
			return
		}
		resp, err := svc.Analyze(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleDiscuss(svc *core.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req core.DiscussRequest
		if !decode(w, r, &req) {
			return
		}
		resp, err := svc.Discuss(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleReEvaluate(svc *core.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req core.ReEvaluateRequest
		if !decode(w, r, &req) {
			return
		}
		resp, err := svc.ReEvaluate(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
