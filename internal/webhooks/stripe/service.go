package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v84"

	"github.com/dropmart/dropmart-backend/internal/settlement"
	pkgerrors "github.com/dropmart/dropmart-backend/pkg/errors"
	"github.com/dropmart/dropmart-backend/pkg/logger"
	"github.com/dropmart/dropmart-backend/pkg/metrics"
)

type settler interface {
	HandlePaymentSucceeded(ctx context.Context, paymentRef string) (*settlement.Result, error)
}

type ServiceParams struct {
	Settlement settler
	Metrics    *metrics.SettlementMetrics
	Logger     *logger.Logger
}

// Service routes verified Stripe events to the payment flows.
type Service struct {
	settlement settler
	metrics    *metrics.SettlementMetrics
	logg       *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Settlement == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settlement service required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{settlement: params.Settlement, metrics: params.Metrics, logg: logg}, nil
}

// HandleEvent processes one event. Types the marketplace does not act on are
// acknowledged.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"stripe_event_id": event.ID, "stripe_event_type": string(event.Type)})

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		intent, err := decodeIntent(event)
		if err != nil {
			return err
		}
		res, err := s.settlement.HandlePaymentSucceeded(ctx, intent.ID)
		if err != nil {
			s.metrics.IncWebhook("stripe", "error")
			return err
		}
		outcome := "settled"
		if res.Skipped != "" {
			outcome = res.Skipped
		}
		s.metrics.IncWebhook("stripe", outcome)
		return nil
	case stripe.EventTypePaymentIntentPaymentFailed, stripe.EventTypePaymentIntentCanceled:
		intent, err := decodeIntent(event)
		if err != nil {
			return err
		}
		// The order stays pending; the cron worker expires it.
		s.logg.Info(s.logg.WithField(ctx, "payment_intent_id", intent.ID), "payment did not complete")
		s.metrics.IncWebhook("stripe", "payment_not_completed")
		return nil
	default:
		s.metrics.IncWebhook("stripe", "ignored")
		return nil
	}
}

func decodeIntent(event *stripe.Event) (*stripe.PaymentIntent, error) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
	}
	if intent.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}
	return &intent, nil
}
