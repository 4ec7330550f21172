package handlers

import (
	"math"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/loctrack/field-tracker/internal/db"
)

const (
	liveMapWindow = 24 * time.Hour
	onlineWithin  = 5 * time.Minute
	statusOnline  = "online"
	statusOffline = "offline"
)

// AdminHandler serves the cross-owner fleet read model.
type AdminHandler struct {
	store db.TrackingStore
	users db.UserCollection
}

// NewAdminHandler creates an admin handler.
func NewAdminHandler(store db.TrackingStore, users db.UserCollection) *AdminHandler {
	return &AdminHandler{store: store, users: users}
}

// LiveTechnician is one row of the live-map snapshot.
type LiveTechnician struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	Position [2]float64 `json:"position"` // [lat, lng]
	Heading  float64    `json:"heading"`
	SpeedKmh int        `json:"speed"`
	Battery  *int       `json:"battery,omitempty"`
	LastSeen time.Time  `json:"last_seen"`
	Status   string     `json:"status"`
}

// LiveMap handles GET /api/admin/live-map: the latest position per owner seen
// in the last 24 hours, joined with the mirrored user for display. Owners
// without a mirrored user are dropped, matching the inner join semantics of
// the reporting view.
func (h *AdminHandler) LiveMap(w http.ResponseWriter, r *http.Request) {
	samples, err := h.store.LatestPerOwner(r.Context(), liveMapWindow)
	if err != nil {
		log.WithError(err).Error("Live map query failed")
		writeError(w, http.StatusInternalServerError, "failed to fetch fleet data")
		return
	}

	ownerIDs := make([]string, 0, len(samples))
	for _, s := range samples {
		ownerIDs = append(ownerIDs, s.OwnerID)
	}
	users, err := h.users.UsersByIDs(r.Context(), ownerIDs)
	if err != nil {
		log.WithError(err).Error("Live map user lookup failed")
		writeError(w, http.StatusInternalServerError, "failed to fetch fleet data")
		return
	}

	now := time.Now().UTC()
	technicians := make([]LiveTechnician, 0, len(samples))
	for _, s := range samples {
		user, ok := users[s.OwnerID]
		if !ok {
			continue
		}

		row := LiveTechnician{
			ID:       s.OwnerID,
			Name:     user.FullName(),
			Email:    user.Email,
			Position: [2]float64{s.Latitude, s.Longitude},
			Battery:  s.BatteryLevel,
			LastSeen: s.Timestamp,
			Status:   statusOffline,
		}
		if s.Heading != nil {
			row.Heading = *s.Heading
		}
		if s.Speed != nil {
			row.SpeedKmh = int(math.Round(*s.Speed * 3.6))
		}
		if now.Sub(s.Timestamp) < onlineWithin {
			row.Status = statusOnline
		}
		technicians = append(technicians, row)
	}

	writeJSON(w, http.StatusOK, technicians)
}
