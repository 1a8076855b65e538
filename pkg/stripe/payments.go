package stripe

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v84"
)

// AuthorizeRequest describes a PaymentIntent to open for a pending order.
type AuthorizeRequest struct {
	AmountMinor    int64
	Currency       string
	Metadata       map[string]string
	IdempotencyKey string
}

// Authorization is the processor's handle on an opened payment.
type Authorization struct {
	ExternalRef  string
	ClientSecret string
}

// TransferRequest moves funds from the platform balance to a connected account.
type TransferRequest struct {
	AmountMinor    int64
	Currency       string
	Destination    string
	Group          string
	Metadata       map[string]string
	IdempotencyKey string
}

// Transfer is the processor's record of a completed transfer.
type Transfer struct {
	ID string
}

// Authorize opens a PaymentIntent the storefront confirms client side.
func (c *Client) Authorize(ctx context.Context, req AuthorizeRequest) (*Authorization, error) {
	if c == nil || c.api == nil {
		return nil, errors.New("stripe client not initialized")
	}
	if req.AmountMinor <= 0 {
		return nil, errors.New("authorization amount must be positive")
	}

	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(req.AmountMinor),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	ctx, cancel := c.bounded(ctx)
	defer cancel()
	intent, err := c.api.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		return nil, err
	}
	return &Authorization{ExternalRef: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

// CancelAuthorization cancels an unconfirmed PaymentIntent. Stripe rejects the
// call once the intent has succeeded.
func (c *Client) CancelAuthorization(ctx context.Context, externalRef string) error {
	if c == nil || c.api == nil {
		return errors.New("stripe client not initialized")
	}
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	_, err := c.api.V1PaymentIntents.Cancel(ctx, externalRef, &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonAbandoned)),
	})
	return err
}

// Transfer pays a connected account.
func (c *Client) Transfer(ctx context.Context, req TransferRequest) (*Transfer, error) {
	if c == nil || c.api == nil {
		return nil, errors.New("stripe client not initialized")
	}
	if strings.TrimSpace(req.Destination) == "" {
		return nil, errors.New("transfer destination is required")
	}
	if req.AmountMinor <= 0 {
		return nil, errors.New("transfer amount must be positive")
	}

	params := &stripe.TransferCreateParams{
		Amount:      stripe.Int64(req.AmountMinor),
		Currency:    stripe.String(strings.ToLower(req.Currency)),
		Destination: stripe.String(req.Destination),
	}
	if req.Group != "" {
		params.TransferGroup = stripe.String(req.Group)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	ctx, cancel := c.bounded(ctx)
	defer cancel()
	tr, err := c.api.V1Transfers.Create(ctx, params)
	if err != nil {
		return nil, err
	}
	return &Transfer{ID: tr.ID}, nil
}
