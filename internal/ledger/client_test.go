package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedClientMintIsDeterministic(t *testing.T) {
	client := NewSimulatedClient("testnet")
	req := MintRequest{
		ProjectID:     uuid.New(),
		Amount:        decimal.NewFromInt(350),
		WalletAddress: "GABC",
		Reference:     uuid.NewString(),
	}

	first, err := client.Mint(context.Background(), req)
	require.NoError(t, err)
	second, err := client.Mint(context.Background(), req)
	require.NoError(t, err)

	assert.Len(t, first.TransactionID, 64)
	assert.Equal(t, first.TransactionID, second.TransactionID)
	assert.Equal(t, "testnet", first.Network)
}

func TestSimulatedClientOutage(t *testing.T) {
	client := NewSimulatedClient("testnet")
	client.SetOutage(true)

	_, err := client.Mint(context.Background(), MintRequest{Reference: "r"})
	assert.ErrorIs(t, err, ErrUnavailable)

	client.SetOutage(false)
	_, err = client.Mint(context.Background(), MintRequest{Reference: "r"})
	assert.NoError(t, err)
}

func TestSimulatedClientHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSimulatedClient("testnet").Mint(ctx, MintRequest{})
	assert.ErrorIs(t, err, ErrUnavailable)
}
