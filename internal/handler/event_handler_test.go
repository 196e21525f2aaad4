package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/attendly/ticketing/internal/domain"
	"github.com/attendly/ticketing/internal/dto"
)

// MockEventService is a mock implementation of EventService for testing
type MockEventService struct {
	CreateEventFunc        func(ctx context.Context, organizerID string, req *dto.CreateEventRequest) (*dto.EventResponse, error)
	GetEventFunc           func(ctx context.Context, eventID string) (*dto.EventResponse, error)
	GetOrganizerEventsFunc func(ctx context.Context, organizerID string, page, pageSize int) (*dto.PaginatedResponse, error)
	UpdateEventFunc        func(ctx context.Context, eventID, organizerID string, req *dto.UpdateEventRequest) (*dto.EventResponse, error)
	PublishEventFunc       func(ctx context.Context, eventID, organizerID string) error
	CancelEventFunc        func(ctx context.Context, eventID, organizerID string) error
	CompleteEventFunc      func(ctx context.Context, eventID, organizerID string) error
	DeleteEventFunc        func(ctx context.Context, eventID, organizerID string) error
	CreateTierFunc         func(ctx context.Context, eventID, organizerID string, req *dto.CreateTierRequest) (*dto.TierResponse, error)
	GetEventTiersFunc      func(ctx context.Context, eventID string) ([]*dto.TierResponse, error)
	UpdateTierFunc         func(ctx context.Context, tierID, organizerID string, req *dto.UpdateTierRequest) (*dto.TierResponse, error)
	DeleteTierFunc         func(ctx context.Context, tierID, organizerID string) error
}

func (m *MockEventService) CreateEvent(ctx context.Context, organizerID string, req *dto.CreateEventRequest) (*dto.EventResponse, error) {
	if m.CreateEventFunc != nil {
		return m.CreateEventFunc(ctx, organizerID, req)
	}
	return nil, nil
}

func (m *MockEventService) GetEvent(ctx context.Context, eventID string) (*dto.EventResponse, error) {
	if m.GetEventFunc != nil {
		return m.GetEventFunc(ctx, eventID)
	}
	return nil, nil
}

func (m *MockEventService) GetOrganizerEvents(ctx context.Context, organizerID string, page, pageSize int) (*dto.PaginatedResponse, error) {
	if m.GetOrganizerEventsFunc != nil {
		return m.GetOrganizerEventsFunc(ctx, organizerID, page, pageSize)
	}
	return nil, nil
}

func (m *MockEventService) UpdateEvent(ctx context.Context, eventID, organizerID string, req *dto.UpdateEventRequest) (*dto.EventResponse, error) {
	if m.UpdateEventFunc != nil {
		return m.UpdateEventFunc(ctx, eventID, organizerID, req)
	}
	return nil, nil
}

func (m *MockEventService) PublishEvent(ctx context.Context, eventID, organizerID string) error {
	if m.PublishEventFunc != nil {
		return m.PublishEventFunc(ctx, eventID, organizerID)
	}
	return nil
}

func (m *MockEventService) CancelEvent(ctx context.Context, eventID, organizerID string) error {
	if m.CancelEventFunc != nil {
		return m.CancelEventFunc(ctx, eventID, organizerID)
	}
	return nil
}

func (m *MockEventService) CompleteEvent(ctx context.Context, eventID, organizerID string) error {
	if m.CompleteEventFunc != nil {
		return m.CompleteEventFunc(ctx, eventID, organizerID)
	}
	return nil
}

func (m *MockEventService) DeleteEvent(ctx context.Context, eventID, organizerID string) error {
	if m.DeleteEventFunc != nil {
		return m.DeleteEventFunc(ctx, eventID, organizerID)
	}
	return nil
}

func (m *MockEventService) CreateTier(ctx context.Context, eventID, organizerID string, req *dto.CreateTierRequest) (*dto.TierResponse, error) {
	if m.CreateTierFunc != nil {
		return m.CreateTierFunc(ctx, eventID, organizerID, req)
	}
	return nil, nil
}

func (m *MockEventService) GetEventTiers(ctx context.Context, eventID string) ([]*dto.TierResponse, error) {
	if m.GetEventTiersFunc != nil {
		return m.GetEventTiersFunc(ctx, eventID)
	}
	return nil, nil
}

func (m *MockEventService) UpdateTier(ctx context.Context, tierID, organizerID string, req *dto.UpdateTierRequest) (*dto.TierResponse, error) {
	if m.UpdateTierFunc != nil {
		return m.UpdateTierFunc(ctx, tierID, organizerID, req)
	}
	return nil, nil
}

func (m *MockEventService) DeleteTier(ctx context.Context, tierID, organizerID string) error {
	if m.DeleteTierFunc != nil {
		return m.DeleteTierFunc(ctx, tierID, organizerID)
	}
	return nil
}

func setupEventRouter(h *EventHandler, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	if userID != "" {
		router.Use(func(c *gin.Context) {
			c.Set("user_id", userID)
			c.Next()
		})
	}

	events := router.Group("/events")
	{
		events.POST("", h.CreateEvent)
		events.GET("", h.GetOrganizerEvents)
		events.GET("/:id", h.GetEvent)
		events.PUT("/:id", h.UpdateEvent)
		events.DELETE("/:id", h.DeleteEvent)
		events.POST("/:id/publish", h.PublishEvent)
		events.POST("/:id/cancel", h.CancelEvent)
		events.POST("/:id/complete", h.CompleteEvent)
		events.POST("/:id/tiers", h.CreateTier)
		events.GET("/:id/tiers", h.GetEventTiers)
	}
	tiers := router.Group("/tiers")
	{
		tiers.PUT("/:id", h.UpdateTier)
		tiers.DELETE("/:id", h.DeleteTier)
		tiers.GET("/:id/availability", h.GetTierAvailability)
	}

	return router
}

func validCreateEventRequest() *dto.CreateEventRequest {
	now := time.Now()
	return &dto.CreateEventRequest{
		Name:        "GopherCon",
		StartTime:   now.Add(72 * time.Hour),
		EndTime:     now.Add(80 * time.Hour),
		RegOpensAt:  now,
		RegClosesAt: now.Add(48 * time.Hour),
	}
}

func TestEventHandler_CreateEvent(t *testing.T) {
	tests := []struct {
		name           string
		userID         string
		mockFunc       func(ctx context.Context, organizerID string, req *dto.CreateEventRequest) (*dto.EventResponse, error)
		expectedStatus int
	}{
		{
			name:   "successful create",
			userID: "org-123",
			mockFunc: func(ctx context.Context, organizerID string, req *dto.CreateEventRequest) (*dto.EventResponse, error) {
				return &dto.EventResponse{ID: "event-123", OrganizerID: organizerID, Status: "draft"}, nil
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "unauthorized",
			userID:         "",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:   "invalid window",
			userID: "org-123",
			mockFunc: func(ctx context.Context, organizerID string, req *dto.CreateEventRequest) (*dto.EventResponse, error) {
				return nil, domain.ErrInvalidWindow
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewEventHandler(&MockEventService{CreateEventFunc: tt.mockFunc}, &MockRegistrationService{})
			router := setupEventRouter(h, tt.userID)

			body, _ := json.Marshal(validCreateEventRequest())
			req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestEventHandler_PublishEvent(t *testing.T) {
	tests := []struct {
		name           string
		mockFunc       func(ctx context.Context, eventID, organizerID string) error
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "successful publish",
			mockFunc:       func(ctx context.Context, eventID, organizerID string) error { return nil },
			expectedStatus: http.StatusOK,
		},
		{
			name: "already published",
			mockFunc: func(ctx context.Context, eventID, organizerID string) error {
				return domain.ErrInvalidEventStatus
			},
			expectedStatus: http.StatusConflict,
			expectedCode:   "INVALID_EVENT_STATUS",
		},
		{
			name: "not owned",
			mockFunc: func(ctx context.Context, eventID, organizerID string) error {
				return domain.ErrEventNotFound
			},
			expectedStatus: http.StatusNotFound,
			expectedCode:   "NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewEventHandler(&MockEventService{PublishEventFunc: tt.mockFunc}, &MockRegistrationService{})
			router := setupEventRouter(h, "org-123")

			req := httptest.NewRequest(http.MethodPost, "/events/event-123/publish", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.expectedCode != "" {
				resp := decodeError(t, w)
				if resp.Code != tt.expectedCode {
					t.Errorf("expected code %s, got %s", tt.expectedCode, resp.Code)
				}
			}
		})
	}
}

func TestEventHandler_CreateTier(t *testing.T) {
	h := NewEventHandler(&MockEventService{
		CreateTierFunc: func(ctx context.Context, eventID, organizerID string, req *dto.CreateTierRequest) (*dto.TierResponse, error) {
			return &dto.TierResponse{
				ID:        "tier-123",
				EventID:   eventID,
				Name:      req.Name,
				Capacity:  req.Capacity,
				UnitPrice: req.UnitPrice,
				Currency:  req.Currency,
				Available: req.Capacity,
			}, nil
		},
	}, &MockRegistrationService{})
	router := setupEventRouter(h, "org-123")

	body, _ := json.Marshal(&dto.CreateTierRequest{
		Name:      "GA",
		Capacity:  100,
		UnitPrice: 2500,
		Currency:  "USD",
	})
	req := httptest.NewRequest(http.MethodPost, "/events/event-123/tiers", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp dto.TierResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.EventID != "event-123" || resp.Available != 100 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestEventHandler_CreateTier_InvalidCurrency(t *testing.T) {
	h := NewEventHandler(&MockEventService{}, &MockRegistrationService{})
	router := setupEventRouter(h, "org-123")

	// Binding rejects currency codes that are not three letters
	body := []byte(`{"name":"GA","capacity":100,"unit_price":2500,"currency":"USDX"}`)
	req := httptest.NewRequest(http.MethodPost, "/events/event-123/tiers", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestEventHandler_DeleteTier_InUse(t *testing.T) {
	h := NewEventHandler(&MockEventService{
		DeleteTierFunc: func(ctx context.Context, tierID, organizerID string) error {
			return domain.ErrTierInUse
		},
	}, &MockRegistrationService{})
	router := setupEventRouter(h, "org-123")

	req := httptest.NewRequest(http.MethodDelete, "/tiers/tier-123", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	resp := decodeError(t, w)
	if resp.Code != "TIER_IN_USE" {
		t.Errorf("expected code TIER_IN_USE, got %s", resp.Code)
	}
}

func TestEventHandler_GetTierAvailability(t *testing.T) {
	h := NewEventHandler(&MockEventService{}, &MockRegistrationService{
		GetTierAvailabilityFunc: func(ctx context.Context, tierID string) (*dto.TierAvailabilityResponse, error) {
			if tierID != "tier-123" {
				return nil, domain.ErrTierNotFound
			}
			return &dto.TierAvailabilityResponse{
				TierID:    tierID,
				EventID:   "event-123",
				Capacity:  100,
				Available: 37,
			}, nil
		},
	})
	// Availability is public, no auth middleware
	router := setupEventRouter(h, "")

	req := httptest.NewRequest(http.MethodGet, "/tiers/tier-123/availability", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp dto.TierAvailabilityResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Available != 37 {
		t.Errorf("expected available 37, got %d", resp.Available)
	}

	req = httptest.NewRequest(http.MethodGet, "/tiers/tier-999/availability", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
