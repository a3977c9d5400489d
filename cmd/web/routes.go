package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/AdamBeresnev/fedbrackets/internal/bracket"
	"github.com/AdamBeresnev/fedbrackets/internal/httputil"
	"github.com/AdamBeresnev/fedbrackets/internal/middleware"
	"github.com/AdamBeresnev/fedbrackets/internal/service"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type generateRequest struct {
	Seeds []bracket.SeedAssignment `json:"seeds"`
}

type resultRequest struct {
	WinnerID uuid.UUID           `json:"winner_id"`
	LoserID  *uuid.UUID          `json:"loser_id,omitempty"`
	Games    []service.GameScore `json:"games,omitempty"`
}

func newRouter(app *application) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: app.origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}))

	r.Get("/events", func(w http.ResponseWriter, r *http.Request) {
		events, err := app.events.ListEvents(r.Context())
		if err != nil {
			httputil.InternalServerError(w, "Failed to list events", err)
			return
		}
		if events == nil {
			events = []bracket.Event{}
		}
		httputil.WriteJSON(w, http.StatusOK, events)
	})

	r.Get("/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		eventID, ok := parseID(w, r, "Invalid event ID")
		if !ok {
			return
		}
		event, err := app.events.GetEvent(r.Context(), eventID)
		if err != nil {
			writeServiceError(w, "Failed to get event", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, event)
	})

	r.Get("/events/{id}/bracket", func(w http.ResponseWriter, r *http.Request) {
		eventID, ok := parseID(w, r, "Invalid event ID")
		if !ok {
			return
		}
		view, err := app.brackets.GetBracket(r.Context(), eventID)
		if err != nil {
			writeServiceError(w, "Failed to get bracket", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, view)
	})

	r.Get("/matches/{id}", func(w http.ResponseWriter, r *http.Request) {
		matchID, ok := parseID(w, r, "Invalid match ID")
		if !ok {
			return
		}
		match, err := app.matches.GetMatch(r.Context(), matchID)
		if err != nil {
			writeServiceError(w, "Failed to get match", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, match)
	})

	// Writes share a per-address budget
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(app.limiter))

		r.Post("/events", func(w http.ResponseWriter, r *http.Request) {
			var input service.EventInput
			if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}
			event, err := app.events.CreateEvent(r.Context(), input)
			if err != nil {
				writeServiceError(w, "Failed to create event", err)
				return
			}
			httputil.WriteJSON(w, http.StatusCreated, event)
		})

		r.Post("/events/{id}/bracket", func(w http.ResponseWriter, r *http.Request) {
			eventID, ok := parseID(w, r, "Invalid event ID")
			if !ok {
				return
			}
			// The body is optional, stored seeds apply without one
			var req generateRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}
			result, err := app.brackets.GenerateForEvent(r.Context(), eventID, req.Seeds)
			if err != nil {
				writeServiceError(w, "Failed to generate bracket", err)
				return
			}
			httputil.WriteJSON(w, http.StatusCreated, result)
		})

		r.Delete("/events/{id}/bracket", func(w http.ResponseWriter, r *http.Request) {
			eventID, ok := parseID(w, r, "Invalid event ID")
			if !ok {
				return
			}
			if err := app.brackets.ResetBracket(r.Context(), eventID); err != nil {
				writeServiceError(w, "Failed to reset bracket", err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Post("/matches/{id}/result", func(w http.ResponseWriter, r *http.Request) {
			matchID, ok := parseID(w, r, "Invalid match ID")
			if !ok {
				return
			}
			var req resultRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}
			if req.WinnerID == uuid.Nil {
				httputil.BadRequest(w, "winner_id is required", nil)
				return
			}
			adv, err := app.matches.AdvanceWinner(r.Context(), service.ResultInput{
				MatchID:  matchID,
				WinnerID: req.WinnerID,
				LoserID:  req.LoserID,
				Games:    req.Games,
			})
			if err != nil {
				writeServiceError(w, "Failed to record result", err)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, adv)
		})

		r.Post("/matches/{id}/unplay", func(w http.ResponseWriter, r *http.Request) {
			matchID, ok := parseID(w, r, "Invalid match ID")
			if !ok {
				return
			}
			match, err := app.matches.UnmarkPlayed(r.Context(), matchID)
			if err != nil {
				writeServiceError(w, "Failed to unmark match", err)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, match)
		})
	})

	return r
}

func parseID(w http.ResponseWriter, r *http.Request, msg string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.BadRequest(w, msg, err)
		return uuid.Nil, false
	}
	return id, true
}

// writeServiceError maps service errors to a status. Broken bracket invariants
// and unknown errors answer 500 without detail.
func writeServiceError(w http.ResponseWriter, msg string, err error) {
	var seedErr *service.InvalidSeedError
	var validationErr *service.ValidationError

	switch {
	case service.IsConsistencyError(err):
		httputil.InternalServerError(w, msg, err)
	case errors.Is(err, service.ErrEventNotFound), errors.Is(err, service.ErrMatchNotFound),
		errors.Is(err, service.ErrNoBracket):
		httputil.NotFound(w, err.Error(), err)
	case errors.Is(err, service.ErrBracketExists), errors.Is(err, service.ErrMatchAlreadyPlayed),
		errors.Is(err, service.ErrResetPlayed):
		httputil.Conflict(w, err.Error(), err)
	case errors.As(err, &seedErr), errors.As(err, &validationErr),
		errors.Is(err, service.ErrUnsupportedFormat),
		errors.Is(err, service.ErrNotEnoughRegistrants),
		errors.Is(err, service.ErrInvalidBestOf),
		errors.Is(err, service.ErrMatchNotPlayed),
		errors.Is(err, service.ErrMatchNotReady),
		errors.Is(err, service.ErrWinnerNotInMatch),
		errors.Is(err, service.ErrLoserNotInMatch),
		errors.Is(err, service.ErrInvalidScore),
		errors.Is(err, service.ErrInvalidBracketInput):
		httputil.BadRequest(w, err.Error(), nil)
	default:
		httputil.InternalServerError(w, msg, err)
	}
}
