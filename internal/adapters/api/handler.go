// Package api serves the orchestrator over HTTP for `ea serve` and offers the client
// that the other commands use to reach it.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/bnema/engagement-accounts-cli/internal/application"
	"github.com/bnema/engagement-accounts-cli/internal/domain"
	"github.com/bnema/engagement-accounts-cli/internal/metrics"
	"github.com/gorilla/mux"
)

const maxBodyBytes = 1 << 20

// Orchestrator is the part of application.Orchestrator the API drives.
type Orchestrator interface {
	Submit(ctx context.Context, cmd application.SubmitCommand) (*application.Execution, error)
	Abort(target domain.TargetID) error
	Status(target domain.TargetID) (domain.RequestEntry, bool)
	List() []domain.RequestEntry
	FailureDetail(target domain.TargetID) (map[domain.AccountID]domain.FailureDetail, error)
}

type Handler struct {
	orchestrator Orchestrator
	metrics      *metrics.Collector
}

func NewHandler(orchestrator Orchestrator, collector *metrics.Collector) *Handler {
	return &Handler{orchestrator: orchestrator, metrics: collector}
}

// Router mounts every route. /metrics is served from the collector's registry.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.observe)

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.Handle("/metrics", h.metrics.Handler()).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/requests", h.SubmitRequest).Methods(http.MethodPost)
	v1.HandleFunc("/requests", h.ListRequests).Methods(http.MethodGet)
	v1.HandleFunc("/requests/{target}", h.GetRequest).Methods(http.MethodGet)
	v1.HandleFunc("/requests/{target}", h.AbortRequest).Methods(http.MethodDelete)
	v1.HandleFunc("/requests/{target}/failures", h.GetFailures).Methods(http.MethodGet)

	return r
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "read request body")
		return
	}

	var req SubmitRequest
	if err := json.Unmarshal(body, &req); err != nil {
		if errors.Is(err, domain.ErrInvalidAmount) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondWithError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	kind, err := domain.ParseActionKind(req.Kind)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Target == "" || req.User == "" {
		respondWithError(w, http.StatusBadRequest, "target and user are required")
		return
	}

	exec, err := h.orchestrator.Submit(r.Context(), application.SubmitCommand{
		Kind:   kind,
		Amount: req.Amount.AmountSpec,
		Target: domain.TargetID(req.Target),
		User:   domain.UserID(req.User),
	})
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	w.Header().Set("Location", "/api/v1/requests/"+string(exec.Entry.Target))
	respondWithJSON(w, http.StatusAccepted, requestFromEntry(exec.Entry))
}

func (h *Handler) ListRequests(w http.ResponseWriter, _ *http.Request) {
	entries := h.orchestrator.List()
	out := make([]Request, 0, len(entries))
	for _, entry := range entries {
		out = append(out, requestFromEntry(entry))
	}
	respondWithJSON(w, http.StatusOK, out)
}

func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.orchestrator.Status(targetVar(r))
	if !ok {
		respondWithError(w, http.StatusNotFound, domain.ErrRequestNotFound.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, requestFromEntry(entry))
}

func (h *Handler) AbortRequest(w http.ResponseWriter, r *http.Request) {
	target := targetVar(r)
	if err := h.orchestrator.Abort(target); err != nil {
		respondWithDomainError(w, err)
		return
	}

	slog.Info("abort requested over http", "target", target)
	respondWithJSON(w, http.StatusAccepted, map[string]string{"status": string(domain.RequestAborted)})
}

func (h *Handler) GetFailures(w http.ResponseWriter, r *http.Request) {
	failures, err := h.orchestrator.FailureDetail(targetVar(r))
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, failuresFromMap(failures))
}

func (h *Handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		h.metrics.HTTPRequest(r.Method, route, rec.status, time.Since(start).Seconds())
		slog.Debug("http request", "method", r.Method, "route", route, "status", rec.status)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func targetVar(r *http.Request) domain.TargetID {
	return domain.TargetID(mux.Vars(r)["target"])
}

// statusFor maps rejections to a status code and an optional retry delay.
func statusFor(err error) (int, time.Duration) {
	var cooldown *domain.CooldownError
	var busy *domain.BusyError
	var insufficient *domain.InsufficientAccountsError

	switch {
	case errors.As(err, &cooldown):
		return http.StatusTooManyRequests, cooldown.Remaining
	case errors.As(err, &busy):
		return http.StatusConflict, busy.Remaining
	case errors.As(err, &insufficient):
		return http.StatusConflict, insufficient.Wait
	case errors.Is(err, domain.ErrTargetBusy), errors.Is(err, domain.ErrAccountsEngaged), errors.Is(err, domain.ErrRequestNotActive):
		return http.StatusConflict, 0
	case errors.Is(err, domain.ErrUnsupportedAction), errors.Is(err, domain.ErrInvalidAmount):
		return http.StatusBadRequest, 0
	case errors.Is(err, domain.ErrCommandRestricted):
		return http.StatusForbidden, 0
	case errors.Is(err, domain.ErrAmountExceedsLimit), errors.Is(err, domain.ErrNoEligibleAccounts):
		return http.StatusUnprocessableEntity, 0
	case errors.Is(err, domain.ErrTargetUnresolvable), errors.Is(err, domain.ErrRequestNotFound):
		return http.StatusNotFound, 0
	default:
		return http.StatusInternalServerError, 0
	}
}

func respondWithDomainError(w http.ResponseWriter, err error) {
	code, wait := statusFor(err)
	if code == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}

	body := errorBody{Error: err.Error()}
	if wait > 0 {
		seconds := int64(math.Ceil(wait.Seconds()))
		body.RetryAfterSeconds = seconds
		w.Header().Set("Retry-After", strconv.FormatInt(seconds, 10))
	}
	respondWithJSON(w, code, body)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, errorBody{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}
