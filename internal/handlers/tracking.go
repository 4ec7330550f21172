package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/loctrack/field-tracker/internal/broker"
	"github.com/loctrack/field-tracker/internal/db"
	"github.com/loctrack/field-tracker/internal/middleware"
	"github.com/loctrack/field-tracker/internal/models"
	"github.com/loctrack/field-tracker/internal/trip"
)

const (
	defaultHistoryLimit  = 50
	defaultSessionsLimit = 20

	// maxIngestBody caps a location batch upload at 1 MiB.
	maxIngestBody = 1 << 20
)

// TrackingHandler owns the session lifecycle and location ingestion routes.
type TrackingHandler struct {
	store db.TrackingStore
	live  broker.Publisher
}

// NewTrackingHandler creates a tracking handler. live may be nil when no
// broker is configured.
func NewTrackingHandler(store db.TrackingStore, live broker.Publisher) *TrackingHandler {
	return &TrackingHandler{store: store, live: live}
}

// Start handles POST /api/tracking/start. Any prior active session is closed
// inside the same transaction that opens the new one.
func (h *TrackingHandler) Start(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user context not found")
		return
	}

	session, err := h.store.StartSession(r.Context(), claims.UserID)
	if err != nil {
		log.WithError(err).WithField("owner_id", claims.UserID).Error("Start tracking failed")
		writeError(w, http.StatusInternalServerError, "failed to start tracking")
		return
	}

	log.WithFields(log.Fields{
		"owner_id":   claims.UserID,
		"session_id": session.SessionID,
	}).Info("Tracking session started")

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "session": session})
}

// Ingest handles POST /api/tracking/locations. The batch is validated as a
// whole before anything is stored: one bad sample rejects the entire request
// and no partial insert happens.
func (h *TrackingHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user context not found")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxIngestBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req models.IngestRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.Locations) == 0 {
		writeError(w, http.StatusBadRequest, "no locations provided")
		return
	}

	for _, payload := range req.Locations {
		if err := payload.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	now := time.Now().UTC()
	samples := make([]models.LocationSample, len(req.Locations))
	for i, payload := range req.Locations {
		samples[i] = payload.ToSample(claims.UserID, now)
	}

	count, err := h.store.AppendLocations(r.Context(), claims.UserID, samples)
	if err != nil {
		log.WithError(err).WithField("owner_id", claims.UserID).Error("Location batch insert failed")
		writeError(w, http.StatusInternalServerError, "failed to update locations")
		return
	}

	if h.live != nil {
		h.live.PublishPosition(claims.UserID, samples[len(samples)-1])
	}

	log.WithFields(log.Fields{
		"owner_id": claims.UserID,
		"count":    count,
	}).Info("Synced location batch")

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "count": count})
}

// Stop handles POST /api/tracking/stop. Stopping without an active session is
// a no-op, not an error; clients call stop defensively.
func (h *TrackingHandler) Stop(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user context not found")
		return
	}

	var req models.StopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	session, err := h.store.StopSession(r.Context(), claims.UserID, req.Distance)
	if err != nil {
		log.WithError(err).WithField("owner_id", claims.UserID).Error("Stop tracking failed")
		writeError(w, http.StatusInternalServerError, "failed to stop tracking")
		return
	}
	if session == nil {
		writeJSON(w, http.StatusOK, map[string]string{"message": "no active session"})
		return
	}

	log.WithFields(log.Fields{
		"owner_id":    claims.UserID,
		"session_id":  session.SessionID,
		"distance_km": session.TotalDistanceKm,
	}).Info("Tracking session stopped")

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "session": session})
}

// ActiveSession handles GET /api/tracking/session. Absence is a normal
// answer, never an error.
func (h *TrackingHandler) ActiveSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user context not found")
		return
	}

	session, err := h.store.ActiveSession(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"active":  session != nil,
		"session": session,
	})
}

// History handles GET /api/tracking/history: the caller's raw samples,
// newest first.
func (h *TrackingHandler) History(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user context not found")
		return
	}

	limit := queryLimit(r, defaultHistoryLimit)
	samples, err := h.store.RecentLocations(r.Context(), claims.UserID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch history")
		return
	}
	if samples == nil {
		samples = []models.LocationSample{}
	}
	writeJSON(w, http.StatusOK, samples)
}

// Sessions handles GET /api/tracking/sessions: recent session summaries with
// derived endpoints and movement stats.
func (h *TrackingHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user context not found")
		return
	}

	limit := queryLimit(r, defaultSessionsLimit)
	sessions, err := h.store.RecentSessions(r.Context(), claims.UserID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch sessions")
		return
	}

	now := time.Now().UTC()
	summaries := make([]models.SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		start, end := session.Window(now)
		samples, err := h.store.LocationsInRange(r.Context(), claims.UserID, start, end, true, 0)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to fetch session locations")
			return
		}
		startLoc, endLoc, stats := trip.Summarize(samples)
		summaries = append(summaries, models.SessionSummary{
			TrackingSession: session,
			StartLocation:   startLoc,
			EndLocation:     endLoc,
			Movement:        stats,
		})
	}

	writeJSON(w, http.StatusOK, summaries)
}

// SessionDetail handles GET /api/tracking/sessions/{id}: full route and stop
// reconstruction for one session. A session owned by someone else is
// indistinguishable from a missing one.
func (h *TrackingHandler) SessionDetail(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user context not found")
		return
	}

	sessionID := mux.Vars(r)["id"]
	session, err := h.store.SessionByID(r.Context(), claims.UserID, sessionID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch session")
		return
	}

	start, end := session.Window(time.Now().UTC())
	samples, err := h.store.LocationsInRange(r.Context(), claims.UserID, start, end, true, 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch session locations")
		return
	}

	analysis := trip.Analyze(samples)
	writeJSON(w, http.StatusOK, models.SessionDetail{
		Session:  *session,
		Route:    analysis.Route,
		Stops:    analysis.Stops,
		Movement: analysis.Movement,
	})
}

func queryLimit(r *http.Request, def int64) int64 {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return def
}
