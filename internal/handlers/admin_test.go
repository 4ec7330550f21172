package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/loctrack/field-tracker/internal/models"
)

func TestAdminHandler_LiveMap(t *testing.T) {
	store := new(MockTrackingStore)
	users := new(MockUserCollection)
	handler := NewAdminHandler(store, users)

	now := time.Now().UTC()
	battery := 72
	samples := []models.LocationSample{
		{
			OwnerID:      "owner-a",
			Latitude:     51.5,
			Longitude:    -0.12,
			Speed:        f64(2.0),
			Heading:      f64(45),
			BatteryLevel: &battery,
			Timestamp:    now.Add(-time.Minute),
		},
		{
			OwnerID:   "owner-b",
			Latitude:  52.2,
			Longitude: 0.12,
			Timestamp: now.Add(-30 * time.Minute),
		},
		{
			// No mirrored user; dropped from the snapshot
			OwnerID:   "owner-c",
			Latitude:  53.4,
			Longitude: -2.9,
			Timestamp: now.Add(-time.Minute),
		},
	}
	store.On("LatestPerOwner", mock.Anything, liveMapWindow).Return(samples, nil)
	users.On("UsersByIDs", mock.Anything, []string{"owner-a", "owner-b", "owner-c"}).Return(map[string]models.User{
		"owner-a": {Email: "alice@example.com", FirstName: "Alice", LastName: "Reed", Role: models.RoleTechnician},
		"owner-b": {Email: "bob@example.com", FirstName: "Bob", LastName: "Shaw", Role: models.RoleTechnician},
	}, nil)

	w := httptest.NewRecorder()
	handler.LiveMap(w, httptest.NewRequest("GET", "/api/admin/live-map", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var rows []LiveTechnician
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	require.Len(t, rows, 2)

	alice := rows[0]
	assert.Equal(t, "owner-a", alice.ID)
	assert.Equal(t, "Alice Reed", alice.Name)
	assert.Equal(t, [2]float64{51.5, -0.12}, alice.Position)
	assert.Equal(t, 7, alice.SpeedKmh) // 2.0 m/s rounds to 7 km/h
	assert.Equal(t, 45.0, alice.Heading)
	require.NotNil(t, alice.Battery)
	assert.Equal(t, 72, *alice.Battery)
	assert.Equal(t, statusOnline, alice.Status)

	// Seen 30 minutes ago, outside the online window
	bob := rows[1]
	assert.Equal(t, statusOffline, bob.Status)
	assert.Equal(t, 0, bob.SpeedKmh)
	assert.Nil(t, bob.Battery)
}

func TestAdminHandler_LiveMap_Empty(t *testing.T) {
	store := new(MockTrackingStore)
	users := new(MockUserCollection)
	handler := NewAdminHandler(store, users)

	store.On("LatestPerOwner", mock.Anything, liveMapWindow).Return([]models.LocationSample{}, nil)
	users.On("UsersByIDs", mock.Anything, []string{}).Return(map[string]models.User{}, nil)

	w := httptest.NewRecorder()
	handler.LiveMap(w, httptest.NewRequest("GET", "/api/admin/live-map", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}
