package stripe

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropmart/dropmart-backend/pkg/config"
)

func TestNewClientValidatesKeys(t *testing.T) {
	ctx := context.Background()

	_, err := NewClient(ctx, config.StripeConfig{Env: "test", Secret: "whsec"}, nil)
	assert.ErrorIs(t, err, errAPIKeyRequired)

	_, err = NewClient(ctx, config.StripeConfig{Env: "test", APIKey: "sk_test_123"}, nil)
	assert.ErrorIs(t, err, errSecretRequired)

	_, err = NewClient(ctx, config.StripeConfig{Env: "live", APIKey: "sk_test_123", Secret: "whsec"}, nil)
	assert.Error(t, err)

	_, err = NewClient(ctx, config.StripeConfig{Env: "staging", APIKey: "sk_test_123", Secret: "whsec"}, nil)
	assert.ErrorIs(t, err, errInvalidStripeEnv)
}

func TestNewClientDefaults(t *testing.T) {
	client, err := NewClient(context.Background(), config.StripeConfig{APIKey: "sk_test_123", Secret: " whsec_abc "}, nil)
	require.NoError(t, err)
	assert.Equal(t, "test", client.Environment())
	assert.Equal(t, "whsec_abc", client.SigningSecret())
	assert.Equal(t, defaultRequestTimeout, client.timeout)

	custom, err := NewClient(context.Background(), config.StripeConfig{APIKey: "rk_live_1", Secret: "whsec", Env: "LIVE", RequestTimeout: 2 * time.Second}, nil)
	require.NoError(t, err)
	assert.Equal(t, "live", custom.Environment())
	assert.Equal(t, 2*time.Second, custom.timeout)
}

func TestPaymentsRejectInvalidRequestsLocally(t *testing.T) {
	client, err := NewClient(context.Background(), config.StripeConfig{APIKey: "sk_test_123", Secret: "whsec"}, nil)
	require.NoError(t, err)

	_, err = client.Authorize(context.Background(), AuthorizeRequest{AmountMinor: 0, Currency: "usd"})
	assert.Error(t, err)

	_, err = client.Transfer(context.Background(), TransferRequest{AmountMinor: 100, Currency: "usd"})
	assert.Error(t, err)

	_, err = client.Transfer(context.Background(), TransferRequest{AmountMinor: 0, Currency: "usd", Destination: "acct_1"})
	assert.Error(t, err)

	var nilClient *Client
	_, err = nilClient.Authorize(context.Background(), AuthorizeRequest{AmountMinor: 100})
	assert.Error(t, err)
	assert.Empty(t, nilClient.SigningSecret())
}
