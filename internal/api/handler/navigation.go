package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/uyirkavalan/uyirkavalan/internal/api/models"
	"github.com/uyirkavalan/uyirkavalan/internal/api/response"
	"github.com/uyirkavalan/uyirkavalan/internal/boat"
	"github.com/uyirkavalan/uyirkavalan/internal/geo"
	"github.com/uyirkavalan/uyirkavalan/internal/navigation"
)

// NavigationHandler handles positions, harbours and advisories.
type NavigationHandler struct {
	navigationService *navigation.Service
}

// NewNavigationHandler creates a new NavigationHandler.
func NewNavigationHandler(navigationService *navigation.Service) *NavigationHandler {
	return &NavigationHandler{navigationService: navigationService}
}

// ListPorts handles GET /v1/navigation/ports.
func (h *NavigationHandler) ListPorts(w http.ResponseWriter, r *http.Request) {
	ports, err := h.navigationService.ListPorts(r.Context())
	if err != nil {
		writeNavigationError(w, r, err)
		return
	}

	items := make([]models.Port, 0, len(ports))
	for _, p := range ports {
		items = append(items, toAPIPort(p))
	}
	response.JSON(w, r, http.StatusOK, models.PortList{Items: items, Meta: models.ListMeta{Count: len(items)}})
}

// CreatePort handles POST /v1/navigation/ports.
func (h *NavigationHandler) CreatePort(w http.ResponseWriter, r *http.Request) {
	var input models.PortCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	p, err := h.navigationService.AddPort(r.Context(), &navigation.PortInput{
		ID:            input.ID,
		Name:          input.Name,
		LocalizedName: input.LocalizedName,
		Location:      fromAPIPoint(input.Location),
		Capacity:      input.Capacity,
		Facilities:    input.Facilities,
	})
	if err != nil {
		writeNavigationError(w, r, err)
		return
	}
	response.Created(w, r, "/v1/navigation/ports/"+p.ID, toAPIPort(p))
}

// UpdatePort handles PUT /v1/navigation/ports/{portId}.
func (h *NavigationHandler) UpdatePort(w http.ResponseWriter, r *http.Request) {
	var input models.PortUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	update := &navigation.PortUpdate{
		Name:          input.Name,
		LocalizedName: input.LocalizedName,
		Capacity:      input.Capacity,
		Facilities:    input.Facilities,
		Active:        input.IsActive,
	}
	if input.Location != nil {
		loc := fromAPIPoint(*input.Location)
		update.Location = &loc
	}

	p, err := h.navigationService.UpdatePort(r.Context(), chi.URLParam(r, "portId"), update)
	if err != nil {
		writeNavigationError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toAPIPort(p))
}

// DeactivatePort handles POST /v1/navigation/ports/{portId}/deactivate.
func (h *NavigationHandler) DeactivatePort(w http.ResponseWriter, r *http.Request) {
	p, err := h.navigationService.DeactivatePort(r.Context(), chi.URLParam(r, "portId"))
	if err != nil {
		writeNavigationError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toAPIPort(p))
}

// UpdateLocation handles POST /v1/navigation/boats/{boatId}/location and
// returns the recomputed advisory.
func (h *NavigationHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var input models.LocationUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	adv, err := h.navigationService.UpdateLocation(r.Context(), chi.URLParam(r, "boatId"), fromAPILocation(input.Location))
	if err != nil {
		writeNavigationError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toAPIAdvisory(adv))
}

// GetAdvisory handles GET /v1/navigation/boats/{boatId}/advisory.
func (h *NavigationHandler) GetAdvisory(w http.ResponseWriter, r *http.Request) {
	adv, err := h.navigationService.Advisory(r.Context(), chi.URLParam(r, "boatId"))
	if err != nil {
		writeNavigationError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toAPIAdvisory(adv))
}

// GetHistory handles GET /v1/navigation/boats/{boatId}/history?limit=.
func (h *NavigationHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit")
	if !ok {
		response.BadRequest(w, r, "invalid limit", []models.FieldError{{Field: "limit", Message: "must be a positive integer"}})
		return
	}

	boatID := chi.URLParam(r, "boatId")
	entries, err := h.navigationService.History(r.Context(), boatID, limit)
	if err != nil {
		writeNavigationError(w, r, err)
		return
	}

	items := make([]models.LocationHistoryEntry, 0, len(entries))
	track := make([]geo.Point, len(entries))
	for i, e := range entries {
		items = append(items, models.LocationHistoryEntry{
			Location:   toAPILocation(e.Location),
			RecordedAt: models.Timestamp(e.RecordedAt),
		})
		track[len(entries)-1-i] = e.Location.Point
	}
	response.JSON(w, r, http.StatusOK, models.LocationHistory{
		BoatID:        boatID,
		Items:         items,
		Track:         geo.EncodeTrack(track),
		TrackLengthKm: geo.TrackLength(track),
		Meta:          models.ListMeta{Count: len(items)},
	})
}

// ListBoatLocations handles GET /v1/navigation/boats/locations.
func (h *NavigationHandler) ListBoatLocations(w http.ResponseWriter, r *http.Request) {
	positions, err := h.navigationService.ActiveBoatLocations(r.Context())
	if err != nil {
		writeNavigationError(w, r, err)
		return
	}

	items := make([]models.BoatPosition, 0, len(positions))
	for _, p := range positions {
		items = append(items, models.BoatPosition{BoatID: p.Boat, OwnerName: p.OwnerName, Location: toAPILocation(p.Location)})
	}
	response.JSON(w, r, http.StatusOK, models.BoatPositionList{Items: items, Meta: models.ListMeta{Count: len(items)}})
}

// ComputeRoute handles POST /v1/navigation/route.
func (h *NavigationHandler) ComputeRoute(w http.ResponseWriter, r *http.Request) {
	var input models.RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	route, err := h.navigationService.Route(r.Context(), fromAPIPoint(input.From), fromAPIPoint(input.To), input.SpeedKmh)
	if err != nil {
		writeNavigationError(w, r, err)
		return
	}

	waypoints := make([]models.Point, 0, len(route.Waypoints))
	for _, p := range route.Waypoints {
		waypoints = append(waypoints, toAPIPoint(p))
	}
	response.JSON(w, r, http.StatusOK, models.Route{
		DistanceKm: route.DistanceKm,
		BearingDeg: route.BearingDeg,
		ETAMinutes: route.ETAMinutes,
		Waypoints:  waypoints,
		Polyline:   geo.EncodeTrack(route.Waypoints),
	})
}

// NearestPort handles POST /v1/navigation/nearest-port.
func (h *NavigationHandler) NearestPort(w http.ResponseWriter, r *http.Request) {
	var input models.NearestPortRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	at := fromAPIPoint(input.Location)
	if errs := geo.ValidatePoint(at, "location"); len(errs) > 0 {
		response.BadRequest(w, r, "validation failed", errs)
		return
	}

	n, err := h.navigationService.NearestPort(r.Context(), at)
	if err != nil {
		writeNavigationError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.NearestPort{
		Port:       toAPIPort(n.Port),
		DistanceKm: n.DistanceKm,
		BearingDeg: n.BearingDeg,
		ETAMinutes: n.ETAMinutes,
	})
}

func writeNavigationError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *navigation.ValidationError
	switch {
	case errors.As(err, &vErr):
		response.BadRequest(w, r, "validation failed", vErr.Errors)
	case errors.Is(err, boat.ErrBoatNotFound):
		response.NotFound(w, r, "boat not found")
	case errors.Is(err, navigation.ErrPortNotFound):
		response.NotFound(w, r, "port not found")
	case errors.Is(err, navigation.ErrNoAdvisory):
		response.NotFound(w, r, "no navigation advisory yet, report a location first")
	case errors.Is(err, navigation.ErrNoActivePort):
		response.NotFound(w, r, "no active port")
	case errors.Is(err, navigation.ErrPortExists):
		response.Conflict(w, r, "port already exists")
	default:
		response.InternalError(w, r, "internal server error")
	}
}
