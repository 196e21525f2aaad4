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

// MockRegistrationService is a mock implementation of RegistrationService for testing
type MockRegistrationService struct {
	CreateRegistrationFunc   func(ctx context.Context, userID string, req *dto.CreateRegistrationRequest) (*dto.CreateRegistrationResponse, error)
	ConfirmPaymentFunc       func(ctx context.Context, registrationID, userID string, req *dto.ConfirmPaymentRequest) (*dto.ConfirmPaymentResponse, error)
	CancelRegistrationFunc   func(ctx context.Context, registrationID, userID, reason string) (*dto.CancelRegistrationResponse, error)
	GetRegistrationFunc      func(ctx context.Context, registrationID, userID string) (*dto.RegistrationResponse, error)
	GetUserRegistrationsFunc func(ctx context.Context, userID string, page, pageSize int) (*dto.PaginatedResponse, error)
	GetTierAvailabilityFunc  func(ctx context.Context, tierID string) (*dto.TierAvailabilityResponse, error)
	HandlePaymentSettledFunc func(ctx context.Context, paymentRef string, succeeded bool, reason string) error
	ExpireReservationsFunc   func(ctx context.Context, limit int) (int, error)
}

func (m *MockRegistrationService) CreateRegistration(ctx context.Context, userID string, req *dto.CreateRegistrationRequest) (*dto.CreateRegistrationResponse, error) {
	if m.CreateRegistrationFunc != nil {
		return m.CreateRegistrationFunc(ctx, userID, req)
	}
	return nil, nil
}

func (m *MockRegistrationService) ConfirmPayment(ctx context.Context, registrationID, userID string, req *dto.ConfirmPaymentRequest) (*dto.ConfirmPaymentResponse, error) {
	if m.ConfirmPaymentFunc != nil {
		return m.ConfirmPaymentFunc(ctx, registrationID, userID, req)
	}
	return nil, nil
}

func (m *MockRegistrationService) CancelRegistration(ctx context.Context, registrationID, userID, reason string) (*dto.CancelRegistrationResponse, error) {
	if m.CancelRegistrationFunc != nil {
		return m.CancelRegistrationFunc(ctx, registrationID, userID, reason)
	}
	return nil, nil
}

func (m *MockRegistrationService) GetRegistration(ctx context.Context, registrationID, userID string) (*dto.RegistrationResponse, error) {
	if m.GetRegistrationFunc != nil {
		return m.GetRegistrationFunc(ctx, registrationID, userID)
	}
	return nil, nil
}

func (m *MockRegistrationService) GetUserRegistrations(ctx context.Context, userID string, page, pageSize int) (*dto.PaginatedResponse, error) {
	if m.GetUserRegistrationsFunc != nil {
		return m.GetUserRegistrationsFunc(ctx, userID, page, pageSize)
	}
	return nil, nil
}

func (m *MockRegistrationService) GetTierAvailability(ctx context.Context, tierID string) (*dto.TierAvailabilityResponse, error) {
	if m.GetTierAvailabilityFunc != nil {
		return m.GetTierAvailabilityFunc(ctx, tierID)
	}
	return nil, nil
}

func (m *MockRegistrationService) HandlePaymentSettled(ctx context.Context, paymentRef string, succeeded bool, reason string) error {
	if m.HandlePaymentSettledFunc != nil {
		return m.HandlePaymentSettledFunc(ctx, paymentRef, succeeded, reason)
	}
	return nil
}

func (m *MockRegistrationService) ExpireReservations(ctx context.Context, limit int) (int, error) {
	if m.ExpireReservationsFunc != nil {
		return m.ExpireReservationsFunc(ctx, limit)
	}
	return 0, nil
}

// MockCheckInService is a mock implementation of CheckInService for testing
type MockCheckInService struct {
	CheckInFunc func(ctx context.Context, registrationID string, req *dto.CheckInRequest) (*dto.CheckInResponse, error)
}

func (m *MockCheckInService) CheckIn(ctx context.Context, registrationID string, req *dto.CheckInRequest) (*dto.CheckInResponse, error) {
	if m.CheckInFunc != nil {
		return m.CheckInFunc(ctx, registrationID, req)
	}
	return nil, nil
}

func setupRegistrationRouter(h *RegistrationHandler, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	if userID != "" {
		router.Use(func(c *gin.Context) {
			c.Set("user_id", userID)
			c.Next()
		})
	}

	registrations := router.Group("/registrations")
	{
		registrations.POST("", h.CreateRegistration)
		registrations.GET("", h.GetUserRegistrations)
		registrations.GET("/:id", h.GetRegistration)
		registrations.POST("/:id/confirm", h.ConfirmPayment)
		registrations.POST("/:id/cancel", h.CancelRegistration)
		registrations.POST("/:id/checkin", h.CheckIn)
	}

	return router
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var resp dto.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp
}

func TestRegistrationHandler_CreateRegistration(t *testing.T) {
	tests := []struct {
		name           string
		userID         string
		request        *dto.CreateRegistrationRequest
		mockFunc       func(ctx context.Context, userID string, req *dto.CreateRegistrationRequest) (*dto.CreateRegistrationResponse, error)
		expectedStatus int
		expectedCode   string
	}{
		{
			name:   "successful registration",
			userID: "user-123",
			request: &dto.CreateRegistrationRequest{
				EventID:  "event-123",
				TierID:   "tier-123",
				Quantity: 2,
			},
			mockFunc: func(ctx context.Context, userID string, req *dto.CreateRegistrationRequest) (*dto.CreateRegistrationResponse, error) {
				return &dto.CreateRegistrationResponse{
					RegistrationID: "reg-123",
					Status:         "confirmed",
					Amount:         5000,
					Currency:       "USD",
					ExpiresAt:      time.Now().Add(15 * time.Minute),
				}, nil
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "unauthorized without user",
			userID:         "",
			request:        &dto.CreateRegistrationRequest{EventID: "event-123", TierID: "tier-123", Quantity: 1},
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   "UNAUTHORIZED",
		},
		{
			name:   "sold out",
			userID: "user-123",
			request: &dto.CreateRegistrationRequest{
				EventID:  "event-123",
				TierID:   "tier-123",
				Quantity: 4,
			},
			mockFunc: func(ctx context.Context, userID string, req *dto.CreateRegistrationRequest) (*dto.CreateRegistrationResponse, error) {
				return nil, domain.ErrInsufficientCapacity
			},
			expectedStatus: http.StatusConflict,
			expectedCode:   "SOLD_OUT",
		},
		{
			name:   "registration window closed",
			userID: "user-123",
			request: &dto.CreateRegistrationRequest{
				EventID:  "event-123",
				TierID:   "tier-123",
				Quantity: 1,
			},
			mockFunc: func(ctx context.Context, userID string, req *dto.CreateRegistrationRequest) (*dto.CreateRegistrationResponse, error) {
				return nil, domain.ErrEventNotOpen
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   "REGISTRATION_CLOSED",
		},
		{
			name:   "payment declined",
			userID: "user-123",
			request: &dto.CreateRegistrationRequest{
				EventID:  "event-123",
				TierID:   "tier-123",
				Quantity: 1,
			},
			mockFunc: func(ctx context.Context, userID string, req *dto.CreateRegistrationRequest) (*dto.CreateRegistrationResponse, error) {
				return nil, domain.ErrPaymentFailed
			},
			expectedStatus: http.StatusPaymentRequired,
			expectedCode:   "PAYMENT_FAILED",
		},
		{
			name:   "unknown tier",
			userID: "user-123",
			request: &dto.CreateRegistrationRequest{
				EventID:  "event-123",
				TierID:   "no-such-tier",
				Quantity: 1,
			},
			mockFunc: func(ctx context.Context, userID string, req *dto.CreateRegistrationRequest) (*dto.CreateRegistrationResponse, error) {
				return nil, domain.ErrTierNotFound
			},
			expectedStatus: http.StatusNotFound,
			expectedCode:   "NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockRegistrationService{CreateRegistrationFunc: tt.mockFunc}
			h := NewRegistrationHandler(mockService, &MockCheckInService{})
			router := setupRegistrationRouter(h, tt.userID)

			body, _ := json.Marshal(tt.request)
			req := httptest.NewRequest(http.MethodPost, "/registrations", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
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

func TestRegistrationHandler_CreateRegistration_IdempotencyHeader(t *testing.T) {
	var captured string
	mockService := &MockRegistrationService{
		CreateRegistrationFunc: func(ctx context.Context, userID string, req *dto.CreateRegistrationRequest) (*dto.CreateRegistrationResponse, error) {
			captured = req.IdempotencyKey
			return &dto.CreateRegistrationResponse{RegistrationID: "reg-123", Status: "pending"}, nil
		},
	}
	h := NewRegistrationHandler(mockService, &MockCheckInService{})
	router := setupRegistrationRouter(h, "user-123")

	body, _ := json.Marshal(&dto.CreateRegistrationRequest{
		EventID:  "event-123",
		TierID:   "tier-123",
		Quantity: 1,
	})
	req := httptest.NewRequest(http.MethodPost, "/registrations", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", "idem-abc")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if captured != "idem-abc" {
		t.Errorf("expected idempotency key from header, got %q", captured)
	}
}

func TestRegistrationHandler_CreateRegistration_InvalidBody(t *testing.T) {
	h := NewRegistrationHandler(&MockRegistrationService{}, &MockCheckInService{})
	router := setupRegistrationRouter(h, "user-123")

	// Quantity below minimum fails binding
	body := []byte(`{"event_id":"event-123","tier_id":"tier-123","quantity":0}`)
	req := httptest.NewRequest(http.MethodPost, "/registrations", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestRegistrationHandler_CancelRegistration(t *testing.T) {
	tests := []struct {
		name           string
		mockFunc       func(ctx context.Context, registrationID, userID, reason string) (*dto.CancelRegistrationResponse, error)
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "successful cancel",
			mockFunc: func(ctx context.Context, registrationID, userID, reason string) (*dto.CancelRegistrationResponse, error) {
				return &dto.CancelRegistrationResponse{RegistrationID: registrationID, Status: "cancelled"}, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "not found",
			mockFunc: func(ctx context.Context, registrationID, userID, reason string) (*dto.CancelRegistrationResponse, error) {
				return nil, domain.ErrRegistrationNotFound
			},
			expectedStatus: http.StatusNotFound,
			expectedCode:   "NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockRegistrationService{CancelRegistrationFunc: tt.mockFunc}
			h := NewRegistrationHandler(mockService, &MockCheckInService{})
			router := setupRegistrationRouter(h, "user-123")

			body, _ := json.Marshal(&dto.CancelRegistrationRequest{Reason: "change of plans"})
			req := httptest.NewRequest(http.MethodPost, "/registrations/reg-123/cancel", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
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

func TestRegistrationHandler_GetRegistration(t *testing.T) {
	mockService := &MockRegistrationService{
		GetRegistrationFunc: func(ctx context.Context, registrationID, userID string) (*dto.RegistrationResponse, error) {
			if registrationID != "reg-123" || userID != "user-123" {
				return nil, domain.ErrRegistrationNotFound
			}
			return &dto.RegistrationResponse{ID: registrationID, Status: "confirmed"}, nil
		},
	}
	h := NewRegistrationHandler(mockService, &MockCheckInService{})
	router := setupRegistrationRouter(h, "user-123")

	req := httptest.NewRequest(http.MethodGet, "/registrations/reg-123", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/registrations/reg-999", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestRegistrationHandler_GetUserRegistrations_Pagination(t *testing.T) {
	var gotPage, gotPageSize int
	mockService := &MockRegistrationService{
		GetUserRegistrationsFunc: func(ctx context.Context, userID string, page, pageSize int) (*dto.PaginatedResponse, error) {
			gotPage = page
			gotPageSize = pageSize
			return &dto.PaginatedResponse{Page: page, PageSize: pageSize}, nil
		},
	}
	h := NewRegistrationHandler(mockService, &MockCheckInService{})
	router := setupRegistrationRouter(h, "user-123")

	req := httptest.NewRequest(http.MethodGet, "/registrations?page=3&page_size=50", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotPage != 3 || gotPageSize != 50 {
		t.Errorf("expected page=3 pageSize=50, got page=%d pageSize=%d", gotPage, gotPageSize)
	}

	// Out-of-range values fall back to defaults
	req = httptest.NewRequest(http.MethodGet, "/registrations?page=-1&page_size=9999", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if gotPage != 1 || gotPageSize != 20 {
		t.Errorf("expected defaults page=1 pageSize=20, got page=%d pageSize=%d", gotPage, gotPageSize)
	}
}

func TestRegistrationHandler_CheckIn(t *testing.T) {
	tests := []struct {
		name           string
		mockFunc       func(ctx context.Context, registrationID string, req *dto.CheckInRequest) (*dto.CheckInResponse, error)
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "successful check-in",
			mockFunc: func(ctx context.Context, registrationID string, req *dto.CheckInRequest) (*dto.CheckInResponse, error) {
				return &dto.CheckInResponse{RegistrationID: registrationID, CheckedInAt: time.Now(), Quantity: 2}, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "duplicate scan is a no-op success",
			mockFunc: func(ctx context.Context, registrationID string, req *dto.CheckInRequest) (*dto.CheckInResponse, error) {
				return &dto.CheckInResponse{RegistrationID: registrationID, Quantity: 2, AlreadyCheckedIn: true}, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "not confirmed",
			mockFunc: func(ctx context.Context, registrationID string, req *dto.CheckInRequest) (*dto.CheckInResponse, error) {
				return nil, domain.ErrRegistrationNotConfirmed
			},
			expectedStatus: http.StatusConflict,
			expectedCode:   "NOT_CONFIRMED",
		},
		{
			name: "wrong code hides the registration",
			mockFunc: func(ctx context.Context, registrationID string, req *dto.CheckInRequest) (*dto.CheckInResponse, error) {
				return nil, domain.ErrRegistrationNotFound
			},
			expectedStatus: http.StatusNotFound,
			expectedCode:   "NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewRegistrationHandler(&MockRegistrationService{}, &MockCheckInService{CheckInFunc: tt.mockFunc})
			router := setupRegistrationRouter(h, "staff-001")

			body, _ := json.Marshal(&dto.CheckInRequest{ConfirmationCode: "A1B2C3D4"})
			req := httptest.NewRequest(http.MethodPost, "/registrations/reg-123/checkin", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
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
