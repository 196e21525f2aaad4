package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockGateway implements PaymentGateway in memory. It charges with a
// configurable success rate, which makes registration failure paths easy
// to exercise in tests and load runs.
type MockGateway struct {
	config       *MockGatewayConfig
	transactions sync.Map
	mu           sync.RWMutex
}

// MockGatewayConfig holds configuration for the mock gateway
type MockGatewayConfig struct {
	// SuccessRate is the probability of a successful charge (0.0 to 1.0)
	SuccessRate float64

	// DelayMs is the simulated processing delay in milliseconds
	DelayMs int

	// FailureReasons is the pool of reasons returned on a failed charge
	FailureReasons []string
}

// DefaultMockGatewayConfig returns default configuration
func DefaultMockGatewayConfig() *MockGatewayConfig {
	return &MockGatewayConfig{
		SuccessRate: 0.95,
		DelayMs:     0,
		FailureReasons: []string{
			"insufficient_funds",
			"card_declined",
			"expired_card",
			"processing_error",
		},
	}
}

// NewMockGateway creates a new mock gateway
func NewMockGateway(config *MockGatewayConfig) *MockGateway {
	if config == nil {
		config = DefaultMockGatewayConfig()
	}
	if config.SuccessRate < 0 {
		config.SuccessRate = 0
	}
	if config.SuccessRate > 1 {
		config.SuccessRate = 1
	}
	return &MockGateway{config: config}
}

// Charge processes a mock charge
func (g *MockGateway) Charge(ctx context.Context, req *ChargeRequest) (*ChargeResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("charge request is required")
	}

	if err := g.delay(ctx); err != nil {
		return nil, err
	}

	paymentRef := fmt.Sprintf("mock_txn_%s", uuid.New().String()[:8])

	g.mu.RLock()
	successRate := g.config.SuccessRate
	g.mu.RUnlock()

	resp := &ChargeResponse{
		PaymentRef: paymentRef,
		CreatedAt:  time.Now(),
	}

	if rand.Float64() < successRate {
		resp.Status = ChargeStatusSucceeded
		g.transactions.Store(paymentRef, &TransactionInfo{
			PaymentRef: paymentRef,
			Status:     ChargeStatusSucceeded,
			Amount:     req.Amount,
			Currency:   req.Currency,
		})
	} else {
		resp.Status = ChargeStatusFailed
		resp.FailReason = g.config.FailureReasons[rand.Intn(len(g.config.FailureReasons))]
	}

	return resp, nil
}

// Refund processes a mock refund
func (g *MockGateway) Refund(ctx context.Context, paymentRef string) error {
	if paymentRef == "" {
		return fmt.Errorf("payment ref is required")
	}

	if err := g.delay(ctx); err != nil {
		return err
	}

	txn, ok := g.transactions.Load(paymentRef)
	if !ok {
		return fmt.Errorf("transaction not found: %s", paymentRef)
	}

	info := txn.(*TransactionInfo)
	info.Status = ChargeStatusRefunded
	g.transactions.Store(paymentRef, info)
	return nil
}

// GetTransaction retrieves transaction details
func (g *MockGateway) GetTransaction(ctx context.Context, paymentRef string) (*TransactionInfo, error) {
	if paymentRef == "" {
		return nil, fmt.Errorf("payment ref is required")
	}

	txn, ok := g.transactions.Load(paymentRef)
	if !ok {
		return nil, fmt.Errorf("transaction not found: %s", paymentRef)
	}
	return txn.(*TransactionInfo), nil
}

// Name returns the gateway name
func (g *MockGateway) Name() string {
	return "mock"
}

// SetSuccessRate updates the success rate (for testing)
func (g *MockGateway) SetSuccessRate(rate float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	g.config.SuccessRate = rate
}

func (g *MockGateway) delay(ctx context.Context) error {
	if g.config.DelayMs <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(g.config.DelayMs) * time.Millisecond):
		return nil
	}
}

// Ensure MockGateway implements PaymentGateway
var _ PaymentGateway = (*MockGateway)(nil)
