package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockGateway_Charge(t *testing.T) {
	ctx := context.Background()

	t.Run("always succeeds at rate 1", func(t *testing.T) {
		g := NewMockGateway(&MockGatewayConfig{SuccessRate: 1.0})

		resp, err := g.Charge(ctx, &ChargeRequest{
			RegistrationID: "reg-1",
			UserID:         "user-1",
			Amount:         5000,
			Currency:       "USD",
		})
		require.NoError(t, err)
		assert.Equal(t, ChargeStatusSucceeded, resp.Status)
		assert.NotEmpty(t, resp.PaymentRef)

		txn, err := g.GetTransaction(ctx, resp.PaymentRef)
		require.NoError(t, err)
		assert.Equal(t, int64(5000), txn.Amount)
		assert.Equal(t, "USD", txn.Currency)
	})

	t.Run("always fails at rate 0", func(t *testing.T) {
		g := NewMockGateway(&MockGatewayConfig{
			SuccessRate:    0.0,
			FailureReasons: []string{"card_declined"},
		})

		resp, err := g.Charge(ctx, &ChargeRequest{
			RegistrationID: "reg-1",
			Amount:         5000,
			Currency:       "USD",
		})
		require.NoError(t, err)
		assert.Equal(t, ChargeStatusFailed, resp.Status)
		assert.Equal(t, "card_declined", resp.FailReason)
	})

	t.Run("nil request", func(t *testing.T) {
		g := NewMockGateway(nil)
		_, err := g.Charge(ctx, nil)
		assert.Error(t, err)
	})
}

func TestMockGateway_Refund(t *testing.T) {
	ctx := context.Background()
	g := NewMockGateway(&MockGatewayConfig{SuccessRate: 1.0})

	resp, err := g.Charge(ctx, &ChargeRequest{
		RegistrationID: "reg-1",
		Amount:         1000,
		Currency:       "USD",
	})
	require.NoError(t, err)

	require.NoError(t, g.Refund(ctx, resp.PaymentRef))

	txn, err := g.GetTransaction(ctx, resp.PaymentRef)
	require.NoError(t, err)
	assert.Equal(t, ChargeStatusRefunded, txn.Status)

	assert.Error(t, g.Refund(ctx, "missing-ref"))
}
