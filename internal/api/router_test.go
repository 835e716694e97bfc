package api_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uyirkavalan/uyirkavalan/internal/alert"
	"github.com/uyirkavalan/uyirkavalan/internal/api"
	"github.com/uyirkavalan/uyirkavalan/internal/api/handler"
	"github.com/uyirkavalan/uyirkavalan/internal/api/models"
	"github.com/uyirkavalan/uyirkavalan/internal/audit"
	"github.com/uyirkavalan/uyirkavalan/internal/auth"
	"github.com/uyirkavalan/uyirkavalan/internal/boat"
	"github.com/uyirkavalan/uyirkavalan/internal/bus"
	"github.com/uyirkavalan/uyirkavalan/internal/chat"
	"github.com/uyirkavalan/uyirkavalan/internal/dispatch"
	"github.com/uyirkavalan/uyirkavalan/internal/geo"
	"github.com/uyirkavalan/uyirkavalan/internal/inbox"
	"github.com/uyirkavalan/uyirkavalan/internal/navigation"
	"github.com/uyirkavalan/uyirkavalan/internal/sos"
	"github.com/uyirkavalan/uyirkavalan/internal/weather"
)

const (
	fishermanA = "TN01-AB123"
	fishermanB = "TN02-CD456"
	adminBoat  = "TN00-AD001"
)

// okLink delivers every message.
type okLink struct{}

func (okLink) Transmit(_ context.Context, _ *chat.Message) (chat.TransportStatus, error) {
	return chat.TransportTransmitted, nil
}

func (okLink) Status(_ context.Context, _ string) (*chat.LinkStatus, error) {
	return &chat.LinkStatus{Connected: true, SignalStrength: -70, NearbyNodes: 3, BatteryLevel: 80, LastSeen: time.Now()}, nil
}

// calmProvider reports light winds everywhere.
type calmProvider struct{}

func (calmProvider) GetCurrentWeather(_ context.Context, lat, lon float64) (*weather.Observation, error) {
	return &weather.Observation{
		Lat:          lat,
		Lon:          lon,
		Temperature:  29,
		Humidity:     70,
		WindSpeed:    8,
		Pressure:     1010,
		VisibilityKm: 10,
		Condition:    weather.ConditionClear,
		ObservedAt:   time.Now(),
		FetchedAt:    time.Now(),
	}, nil
}

func (calmProvider) GetForecast(_ context.Context, lat, lon float64) (*weather.Forecast, error) {
	return &weather.Forecast{
		Lat: lat,
		Lon: lon,
		Entries: []weather.ForecastEntry{
			{Time: time.Now().Add(3 * time.Hour), WindSpeed: 12, Condition: weather.ConditionClouds},
		},
		FetchedAt: time.Now(),
	}, nil
}

func (calmProvider) Name() string { return "calm" }

type testEnv struct {
	router http.Handler
	tokens *auth.JWTService
	boats  *boat.InMemoryRepository
	bus    *bus.PubSubBus
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	logger := zerolog.Nop()

	boats := boat.NewInMemoryRepository()
	for _, b := range []*boat.Boat{
		{
			ID:        fishermanA,
			OwnerName: "Murugan",
			Phone:     "+919876543210",
			Role:      boat.RoleFisherman,
			Language:  boat.LanguageTamil,
			Active:    true,
			EmergencyContacts: []boat.EmergencyContact{
				{Name: "Lakshmi", Phone: "+919876500001", Relationship: "wife", Primary: true},
			},
		},
		{ID: fishermanB, OwnerName: "Selvam", Phone: "+919876543211", Role: boat.RoleFisherman, Language: boat.LanguageTamil, Active: true},
		{ID: adminBoat, OwnerName: "Control Room", Phone: "+919876543212", Role: boat.RoleAdmin, Language: boat.LanguageEnglish, Active: true},
	} {
		require.NoError(t, boats.Upsert(ctx, b))
	}

	messageBus := bus.New(logger)
	t.Cleanup(messageBus.Close)

	auditRepo := audit.NewInMemoryRepository()
	inboxRepo := inbox.NewInMemoryRepository()
	dispatcher := dispatch.New(dispatch.Config{
		Inbox:     inboxRepo,
		Audit:     auditRepo,
		Directory: boats,
		Bus:       messageBus,
		Logger:    logger,
	})

	weatherService := weather.NewService(weather.ServiceConfig{Provider: calmProvider{}, Logger: logger})
	boatService := boat.NewService(boats, logger)

	tokens := auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-secret-key-for-testing-only",
		Issuer:     "https://api.uyirkavalan.in",
		Audience:   "uyirkavalan-api",
	})

	router := api.NewRouter(api.RouterConfig{
		Ops:         handler.OpsConfig{Version: "test", BuildTime: "2026-01-01T00:00:00Z", Weather: weatherService},
		Logger:      logger,
		Tokens:      tokens,
		Bus:         messageBus,
		BoatService: boatService,
		ChatService: chat.NewService(chat.ServiceConfig{
			Repo:      chat.NewInMemoryRepository(),
			Directory: boats,
			Link:      okLink{},
			Bus:       messageBus,
			Logger:    logger,
		}),
		SOSService: sos.NewService(sos.ServiceConfig{
			Repo:      sos.NewInMemoryRepository(),
			Directory: boats,
			Notifier:  dispatcher,
			Audit:     auditRepo,
			Logger:    logger,
		}),
		AlertService: alert.NewService(alert.ServiceConfig{
			Repo:      alert.NewInMemoryRepository(),
			Inbox:     inboxRepo,
			Directory: boats,
			Notifier:  dispatcher,
			Audit:     auditRepo,
			Logger:    logger,
		}),
		NavigationService: navigation.NewService(navigation.ServiceConfig{
			Ports:  navigation.NewInMemoryPortRepository(navigation.DefaultPorts(time.Now())...),
			Tracks: navigation.NewInMemoryTrackRepository(),
			Boats:  boats,
			Risk:   weatherService,
			Logger: logger,
		}),
		WeatherService: weatherService,
	})

	return &testEnv{router: router, tokens: tokens, boats: boats, bus: messageBus}
}

func (e *testEnv) token(t *testing.T, boatID string, role boat.Role) string {
	t.Helper()
	token, _, err := e.tokens.GenerateAccessToken(auth.Principal{Boat: boatID, Role: role})
	require.NoError(t, err)
	return token
}

// do sends a request as the given boat. An empty boatID sends no token.
func (e *testEnv) do(t *testing.T, method, path, boatID string, role boat.Role, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if boatID != "" {
		req.Header.Set("Authorization", "Bearer "+e.token(t, boatID, role))
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestRouter_HealthCheck(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/ops/health", "", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	health := decode[models.Health](t, w)
	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "test", health.Details["version"])
}

func TestRouter_ReadinessCheck(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/ops/ready", "", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	health := decode[models.Health](t, w)
	assert.Equal(t, models.HealthStatusOK, health.Status)
}

func TestRouter_SystemStatus(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/ops/status", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodGet, "/v1/ops/status", adminBoat, boat.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	status := decode[models.SystemStatus](t, w)
	assert.Equal(t, models.HealthStatusOK, status.Status)
	assert.Contains(t, status.Details, "weatherCache")
}

func TestRouter_RequiresAuthentication(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/boats/"+fishermanA, "", "", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
}

func TestRouter_GetBoat_OwnerRule(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/boats/"+fishermanA, fishermanA, boat.RoleFisherman, nil)
	require.Equal(t, http.StatusOK, w.Code)
	b := decode[models.Boat](t, w)
	assert.Equal(t, fishermanA, b.BoatID)
	assert.Equal(t, "Murugan", b.OwnerName)
	require.Len(t, b.EmergencyContacts, 1)
	assert.True(t, b.EmergencyContacts[0].IsPrimary)

	w = env.do(t, http.MethodGet, "/v1/boats/"+fishermanA, fishermanB, boat.RoleFisherman, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodGet, "/v1/boats/"+fishermanA, adminBoat, boat.RoleAdmin, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/v1/boats/TN09-ZZ999", adminBoat, boat.RoleAdmin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_UpsertBoat(t *testing.T) {
	env := newTestEnv(t)
	input := models.BoatUpsertRequest{
		OwnerName: "Kannan",
		Phone:     "+919876543219",
		EmergencyContacts: []models.EmergencyContact{
			{Name: "Devi", Phone: "+919876500009", Relationship: "sister"},
		},
	}

	w := env.do(t, http.MethodPut, "/v1/boats/TN05-GH321", fishermanA, boat.RoleFisherman, input)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPut, "/v1/boats/TN05-GH321", adminBoat, boat.RoleAdmin, input)
	require.Equal(t, http.StatusOK, w.Code)
	b := decode[models.Boat](t, w)
	assert.Equal(t, "TN05-GH321", b.BoatID)
	assert.Equal(t, "fisherman", b.Role)
	assert.Equal(t, "tamil", b.Language)
	assert.True(t, b.IsActive)

	input.Phone = "12345"
	w = env.do(t, http.MethodPut, "/v1/boats/TN05-GH321", adminBoat, boat.RoleAdmin, input)
	require.Equal(t, http.StatusBadRequest, w.Code)
	problem := decode[models.Problem](t, w)
	require.Len(t, problem.Errors, 1)
	assert.Equal(t, "phone", problem.Errors[0].Field)
}

func TestRouter_DeactivateBoat(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/boats/"+fishermanB+"/deactivate", adminBoat, boat.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	b := decode[models.Boat](t, w)
	assert.False(t, b.IsActive)
}

func TestRouter_CreateSOS(t *testing.T) {
	env := newTestEnv(t)
	input := models.SOSCreateRequest{
		BoatID:   fishermanA,
		Location: models.Location{Lat: 13.0827, Lon: 80.2707},
	}

	w := env.do(t, http.MethodPost, "/v1/sos", fishermanA, boat.RoleFisherman, input)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := decode[models.SOSCreateResponse](t, w)
	assert.Equal(t, fishermanA, resp.Case.BoatID)
	assert.Equal(t, "active", resp.Case.Status)
	assert.Equal(t, "critical", resp.Case.Priority)
	assert.Equal(t, sos.DefaultMessage, resp.Case.Message)
	assert.Contains(t, resp.Case.VoiceText, fishermanA)
	assert.Equal(t, "/v1/sos/"+resp.Case.ID, w.Header().Get("Location"))

	authorities := 0
	for _, n := range resp.Notifications {
		if n.TargetKind == string(audit.TargetAuthority) {
			authorities++
		}
	}
	assert.Equal(t, 2, authorities)

	// The case is visible to its owner but not to another fisherman.
	w = env.do(t, http.MethodGet, "/v1/sos/"+resp.Case.ID, fishermanA, boat.RoleFisherman, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodGet, "/v1/sos/"+resp.Case.ID, fishermanB, boat.RoleFisherman, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodGet, "/v1/sos/"+resp.Case.ID+"/attempts", fishermanA, boat.RoleFisherman, nil)
	require.Equal(t, http.StatusOK, w.Code)
	attempts := decode[models.NotificationAttemptList](t, w)
	require.NotEmpty(t, attempts.Items)
	assert.Equal(t, "created", attempts.Items[0].Event)
}

func TestRouter_CreateSOS_ForAnotherBoatForbidden(t *testing.T) {
	env := newTestEnv(t)
	input := models.SOSCreateRequest{BoatID: fishermanA, Location: models.Location{Lat: 13.0827, Lon: 80.2707}}

	w := env.do(t, http.MethodPost, "/v1/sos", fishermanB, boat.RoleFisherman, input)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouter_CreateSOS_Validation(t *testing.T) {
	env := newTestEnv(t)
	input := models.SOSCreateRequest{BoatID: fishermanA, Location: models.Location{Lat: 95, Lon: 80.2707}}

	w := env.do(t, http.MethodPost, "/v1/sos", fishermanA, boat.RoleFisherman, input)

	require.Equal(t, http.StatusBadRequest, w.Code)
	problem := decode[models.Problem](t, w)
	require.NotEmpty(t, problem.Errors)
	assert.Equal(t, "location.lat", problem.Errors[0].Field)
}

func TestRouter_ResolveSOS(t *testing.T) {
	env := newTestEnv(t)
	input := models.SOSCreateRequest{BoatID: fishermanA, Location: models.Location{Lat: 13.0827, Lon: 80.2707}}
	w := env.do(t, http.MethodPost, "/v1/sos", fishermanA, boat.RoleFisherman, input)
	require.Equal(t, http.StatusCreated, w.Code)
	caseID := decode[models.SOSCreateResponse](t, w).Case.ID

	w = env.do(t, http.MethodPost, "/v1/sos/"+caseID+"/resolve", fishermanA, boat.RoleFisherman, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/v1/sos/"+caseID+"/resolve", adminBoat, boat.RoleAuthority, models.SOSResolveRequest{Notes: "towed to harbour"})
	require.Equal(t, http.StatusOK, w.Code)
	resolved := decode[models.SOSCase](t, w)
	assert.Equal(t, "resolved", resolved.Status)
	assert.Equal(t, adminBoat, resolved.ResolvedBy)
	assert.NotNil(t, resolved.ResolvedAt)

	w = env.do(t, http.MethodGet, "/v1/sos/active", adminBoat, boat.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[models.SOSCaseList](t, w).Items)

	w = env.do(t, http.MethodGet, "/v1/sos/stats", fishermanA, boat.RoleFisherman, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.SOSStats{Active: 0, Resolved: 1, Total: 1}, decode[models.SOSStats](t, w))
}

func TestRouter_ChatRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/chat/messages", fishermanA, boat.RoleFisherman, models.ChatSendRequest{
		FromBoatID: fishermanA,
		ToBoatID:   fishermanB,
		Message:    "Nets are full, heading back",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	msg := decode[models.ChatMessage](t, w)
	assert.Equal(t, "text", msg.MessageType)
	assert.True(t, msg.IsDelivered)
	assert.Equal(t, "transmitted", msg.TransportStatus)

	w = env.do(t, http.MethodGet, "/v1/chat/threads/"+fishermanB+"/"+fishermanA, fishermanB, boat.RoleFisherman, nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[models.ChatMessageList](t, w)
	require.Len(t, history.Items, 1)
	assert.Equal(t, msg.ID, history.Items[0].ID)

	w = env.do(t, http.MethodGet, "/v1/chat/boats/"+fishermanB+"/unread-count", fishermanB, boat.RoleFisherman, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[models.ChatCount](t, w).Count)

	w = env.do(t, http.MethodPost, "/v1/chat/threads/"+msg.ThreadID+"/read", fishermanB, boat.RoleFisherman, models.ChatReadRequest{BoatID: fishermanB})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[models.ChatCount](t, w).Count)

	// Marking read again changes nothing.
	w = env.do(t, http.MethodPost, "/v1/chat/threads/"+msg.ThreadID+"/read", fishermanB, boat.RoleFisherman, models.ChatReadRequest{BoatID: fishermanB})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[models.ChatCount](t, w).Count)
}

func TestRouter_Chat_CannotSendAsAnotherBoat(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/chat/messages", fishermanB, boat.RoleFisherman, models.ChatSendRequest{
		FromBoatID: fishermanA,
		ToBoatID:   fishermanB,
		Message:    "spoofed",
	})

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouter_ChatBackupDrainAckClear(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []string{"first", "second"} {
		w := env.do(t, http.MethodPost, "/v1/chat/messages", fishermanA, boat.RoleFisherman, models.ChatSendRequest{
			FromBoatID: fishermanA, ToBoatID: fishermanB, Message: body,
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := env.do(t, http.MethodGet, "/v1/chat/boats/"+fishermanB+"/backup", fishermanB, boat.RoleFisherman, nil)
	require.Equal(t, http.StatusOK, w.Code)
	backup := decode[models.ChatBackupList](t, w)
	require.Len(t, backup.Items, 2)
	assert.Equal(t, "first", backup.Items[0].Message)

	w = env.do(t, http.MethodPost, "/v1/chat/messages", fishermanA, boat.RoleFisherman, models.ChatSendRequest{
		FromBoatID: fishermanA, ToBoatID: fishermanB, Message: "third",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodPost, "/v1/chat/boats/"+fishermanB+"/backup/ack", fishermanB, boat.RoleFisherman, models.ChatBackupAckRequest{
		MessageIDs: []string{backup.Items[0].ID, backup.Items[1].ID},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[models.ChatBackupAcked](t, w).Acked)

	w = env.do(t, http.MethodGet, "/v1/chat/boats/"+fishermanB+"/backup", fishermanB, boat.RoleFisherman, nil)
	require.Equal(t, http.StatusOK, w.Code)
	left := decode[models.ChatBackupList](t, w)
	require.Len(t, left.Items, 1)
	assert.Equal(t, "third", left.Items[0].Message)

	w = env.do(t, http.MethodDelete, "/v1/chat/boats/"+fishermanB+"/backup", fishermanB, boat.RoleFisherman, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[models.ChatBackupCleared](t, w).Cleared)

	w = env.do(t, http.MethodGet, "/v1/chat/boats/"+fishermanB+"/backup", fishermanB, boat.RoleFisherman, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[models.ChatBackupList](t, w).Items)
}

func TestRouter_AlertLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.boats.UpdateLastLocation(ctx, fishermanA, geo.Location{Point: geo.Point{Lat: 13.05, Lon: 80.3}}))

	input := models.AlertCreateRequest{
		Type:               "cyclone",
		Severity:           "high",
		Title:              "Cyclone warning for Chennai coast",
		Description:        "Deep depression expected to intensify over the next 24 hours.",
		AffectedAreas:      []string{"Chennai"},
		EstimatedTime:      models.Timestamp(time.Now().Add(12 * time.Hour)),
		RecommendedActions: []string{"Return to harbour"},
		VoiceAlertText:     "புயல் எச்சரிக்கை",
	}

	w := env.do(t, http.MethodPost, "/v1/alerts", fishermanA, boat.RoleFisherman, input)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/v1/alerts", adminBoat, boat.RoleAdmin, input)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.AlertCreateResponse](t, w)
	assert.True(t, created.Alert.IsActive)
	assert.Equal(t, adminBoat, created.Alert.CreatedBy)
	assert.Equal(t, 1, created.Delivered)

	w = env.do(t, http.MethodGet, "/v1/alerts/boats/"+fishermanA, fishermanA, boat.RoleFisherman, nil)
	require.Equal(t, http.StatusOK, w.Code)
	entries := decode[models.InboxList](t, w)
	require.Len(t, entries.Items, 1)
	entry := entries.Items[0]
	assert.Equal(t, created.Alert.ID, entry.SourceID)

	w = env.do(t, http.MethodPost, "/v1/alerts/boats/"+fishermanA+"/"+entry.ID+"/acknowledge", fishermanA, boat.RoleFisherman, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[models.InboxEntry](t, w).IsAcknowledged)

	w = env.do(t, http.MethodGet, "/v1/alerts/stats", adminBoat, boat.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[models.AlertStats](t, w)
	assert.Equal(t, 1, stats.Active)
	assert.Equal(t, 1, stats.Acknowledgments)

	w = env.do(t, http.MethodPost, "/v1/alerts/"+created.Alert.ID+"/deactivate", adminBoat, boat.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[models.Alert](t, w).IsActive)

	w = env.do(t, http.MethodGet, "/v1/alerts/boats/"+fishermanA, fishermanA, boat.RoleFisherman, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[models.InboxList](t, w).Items)
}

func TestRouter_TestVoice_NotConfigured(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/alerts/boats/"+fishermanA+"/test-voice", fishermanA, boat.RoleFisherman, nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouter_NavigationFlow(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/navigation/boats/"+fishermanA+"/advisory", fishermanA, boat.RoleFisherman, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/v1/navigation/boats/"+fishermanA+"/location", fishermanA, boat.RoleFisherman,
		models.LocationUpdateRequest{Location: models.Location{Lat: 13.05, Lon: 80.35}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	adv := decode[models.NavigationAdvisory](t, w)
	require.NotNil(t, adv.NearestPort)
	assert.Equal(t, "chennai", adv.NearestPort.ID)
	assert.Greater(t, adv.DistanceKm, 0.0)

	w = env.do(t, http.MethodGet, "/v1/navigation/boats/"+fishermanA+"/history", fishermanA, boat.RoleFisherman, nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[models.LocationHistory](t, w)
	assert.Len(t, history.Items, 1)
	assert.NotEmpty(t, history.Track)
	assert.Zero(t, history.TrackLengthKm)

	w = env.do(t, http.MethodGet, "/v1/navigation/boats/locations", fishermanB, boat.RoleFisherman, nil)
	require.Equal(t, http.StatusOK, w.Code)
	positions := decode[models.BoatPositionList](t, w)
	require.Len(t, positions.Items, 1)
	assert.Equal(t, fishermanA, positions.Items[0].BoatID)

	w = env.do(t, http.MethodPost, "/v1/navigation/boats/"+fishermanA+"/location", fishermanB, boat.RoleFisherman,
		models.LocationUpdateRequest{Location: models.Location{Lat: 13.05, Lon: 80.35}})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouter_RouteAndNearestPort(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/navigation/route", fishermanA, boat.RoleFisherman, models.RouteRequest{
		From: models.Point{Lat: 13.0827, Lon: 80.2707},
		To:   models.Point{Lat: 9.2876, Lon: 79.3129},
	})
	require.Equal(t, http.StatusOK, w.Code)
	route := decode[models.Route](t, w)
	assert.Greater(t, route.DistanceKm, 400.0)
	assert.Len(t, route.Waypoints, 2)
	waypoints, err := geo.DecodeTrack(route.Polyline)
	require.NoError(t, err)
	assert.Len(t, waypoints, 2)

	w = env.do(t, http.MethodPost, "/v1/navigation/nearest-port", fishermanA, boat.RoleFisherman,
		models.NearestPortRequest{Location: models.Point{Lat: 13.0827, Lon: 80.2707}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "chennai", decode[models.NearestPort](t, w).Port.ID)

	w = env.do(t, http.MethodPost, "/v1/navigation/nearest-port", fishermanA, boat.RoleFisherman,
		models.NearestPortRequest{Location: models.Point{Lat: 91, Lon: 80}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_PortAdministration(t *testing.T) {
	env := newTestEnv(t)
	input := models.PortCreateRequest{
		ID:       "pamban",
		Name:     "Pamban",
		Location: models.Point{Lat: 9.2787, Lon: 79.2177},
		Capacity: 80,
	}

	w := env.do(t, http.MethodPost, "/v1/navigation/ports", fishermanA, boat.RoleFisherman, input)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/v1/navigation/ports", adminBoat, boat.RoleAdmin, input)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "/v1/navigation/ports/pamban", w.Header().Get("Location"))

	w = env.do(t, http.MethodPost, "/v1/navigation/ports", adminBoat, boat.RoleAdmin, input)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPost, "/v1/navigation/ports/pamban/deactivate", adminBoat, boat.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[models.Port](t, w).IsActive)
}

func TestRouter_Weather(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/weather/current?lat=13.08&lon=80.27", fishermanA, boat.RoleFisherman, nil)
	require.Equal(t, http.StatusOK, w.Code)
	current := decode[models.Weather](t, w)
	assert.Equal(t, 8.0, current.WindSpeed)
	assert.Equal(t, "slight", current.SeaCondition)

	w = env.do(t, http.MethodGet, "/v1/weather/current?lat=abc&lon=80.27", fishermanA, boat.RoleFisherman, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/v1/weather/forecast?lat=13.08&lon=80.27", fishermanA, boat.RoleFisherman, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[models.Forecast](t, w).Entries, 1)
}

func TestRouter_RefreshBoatWeather(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/weather/boats/"+fishermanA, fishermanA, boat.RoleFisherman, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/v1/weather/boats/"+fishermanA+"/refresh", fishermanA, boat.RoleFisherman, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	require.NoError(t, env.boats.UpdateLastLocation(context.Background(), fishermanA, geo.Location{Point: geo.Point{Lat: 13.05, Lon: 80.3}}))

	w = env.do(t, http.MethodPost, "/v1/weather/boats/"+fishermanA+"/refresh", fishermanA, boat.RoleFisherman, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	bw := decode[models.BoatWeather](t, w)
	assert.Equal(t, fishermanA, bw.Weather.BoatID)
	require.NotNil(t, bw.Risk)
	assert.Equal(t, "green", bw.Risk.Level)

	w = env.do(t, http.MethodGet, "/v1/weather/boats/"+fishermanA, fishermanA, boat.RoleFisherman, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_EventStream(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(env.router)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/v1/boats/"+fishermanB+"/events", http.NoBody)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+env.token(t, fishermanB, boat.RoleFisherman))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected\n", line)

	// The subscription exists once the connected comment arrives.
	w := env.do(t, http.MethodPost, "/v1/chat/messages", fishermanA, boat.RoleFisherman, models.ChatSendRequest{
		FromBoatID: fishermanA, ToBoatID: fishermanB, Message: "Storm coming, head in",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var eventLine, dataLine string
	for eventLine == "" || dataLine == "" {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		switch {
		case strings.HasPrefix(line, "event: "):
			eventLine = strings.TrimSpace(strings.TrimPrefix(line, "event: "))
		case strings.HasPrefix(line, "data: "):
			dataLine = strings.TrimPrefix(line, "data: ")
		}
	}

	assert.Equal(t, bus.KindChatMessage, eventLine)

	var evt struct {
		Kind    string             `json:"kind"`
		Boat    string             `json:"boat"`
		Payload models.ChatMessage `json:"payload"`
	}
	require.NoError(t, json.Unmarshal([]byte(dataLine), &evt))
	assert.Equal(t, fishermanB, evt.Boat)
	assert.Equal(t, "Storm coming, head in", evt.Payload.Message)
}

func TestRouter_EventStream_OtherBoatForbidden(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/boats/"+fishermanB+"/events", fishermanA, boat.RoleFisherman, nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouter_RequestID_Preserved(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	req.Header.Set("X-Request-Id", "custom-request-id-123")
	w := httptest.NewRecorder()

	env.router.ServeHTTP(w, req)

	assert.Equal(t, "custom-request-id-123", w.Header().Get("X-Request-Id"))
}

func TestRouter_NotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/nonexistent", "", "", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
