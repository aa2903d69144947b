// Package gateway executes payment requests against configured gateways.
// Each gateway is a dispatch table from request kind to handler; the
// factory named in its configuration decides which kinds it supports.
package gateway

import (
	"context"
	"fmt"

	"github.com/erp/commerce/internal/domain/shared"
	"github.com/erp/commerce/internal/domain/trade"
	"github.com/erp/commerce/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RequestKind selects a handler.
type RequestKind string

const (
	KindCapture RequestKind = "CAPTURE"
	KindStatus  RequestKind = "STATUS"
	KindSync    RequestKind = "SYNC"
	KindAccept  RequestKind = "ACCEPT"
	KindCancel  RequestKind = "CANCEL"
	KindRefund  RequestKind = "REFUND"
)

// Payment detail keys written by the handlers.
const (
	DetailStatus  = "status"
	DetailGateway = "gateway"
	DetailReason  = "reason"
)

// Request asks a gateway to act on a payment. Customers, when set, replaces
// the gateway's customer finder for this request so that the handlers change
// the instances the caller already holds.
type Request struct {
	Kind      RequestKind
	Payment   *trade.Payment
	Reason    string
	Customers CustomerFinder
}

// Response reports the gateway view of the payment after the request.
// Changed is set when the payment state was written.
type Response struct {
	State   trade.PaymentState
	Changed bool
}

// Handler serves one request kind.
type Handler func(ctx context.Context, req *Request) (*Response, error)

// Gateway is a configured gateway instance.
type Gateway struct {
	config   Config
	handlers map[RequestKind]Handler
	limiter  *rate.Limiter
	logger   *zap.Logger
	metrics  *telemetry.ReconciliationMetrics
}

// Name returns the configured name, which matches PaymentMethod.Code.
func (g *Gateway) Name() string {
	return g.config.Name
}

// Factory returns the factory that built the handlers.
func (g *Gateway) Factory() string {
	return g.config.Factory
}

// Supports reports whether kind has a handler.
func (g *Gateway) Supports(kind RequestKind) bool {
	_, ok := g.handlers[kind]
	return ok
}

// Execute dispatches req. SYNC requests wait on the gateway rate limiter.
func (g *Gateway) Execute(ctx context.Context, req *Request) (*Response, error) {
	if req == nil || req.Payment == nil {
		return nil, shared.InvalidArgument("gateway request needs a payment")
	}
	handler, ok := g.handlers[req.Kind]
	if !ok {
		return nil, shared.InvalidArgument(fmt.Sprintf("gateway %q does not support %s requests", g.config.Name, req.Kind))
	}
	if g.config.Currency != "" && string(req.Payment.Currency) != g.config.Currency {
		return nil, shared.ErrCurrencyMismatch
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "gateway", string(req.Kind),
		telemetry.WithAttribute(telemetry.SpanAttrGateway, g.config.Name),
		telemetry.WithAttribute(telemetry.SpanAttrPaymentNumber, req.Payment.Number),
	)
	defer span.End()

	if req.Kind == KindSync && g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("gateway %q: sync throttled: %w", g.config.Name, err)
		}
	}

	resp, err := handler(ctx, req)
	g.metrics.RecordGatewayRequest(ctx, g.config.Factory, string(req.Kind), err)
	if err != nil {
		telemetry.RecordError(span, err)
		g.logger.Warn("Gateway request failed",
			zap.String("kind", string(req.Kind)),
			zap.String("payment", req.Payment.Number),
			zap.Error(err),
		)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrPaymentState, string(resp.State))
	g.logger.Debug("Gateway request executed",
		zap.String("kind", string(req.Kind)),
		zap.String("payment", req.Payment.Number),
		zap.String("state", string(resp.State)),
		zap.Bool("changed", resp.Changed),
	)
	return resp, nil
}

// transition writes state to the payment and mirrors it into its details.
func transition(p *trade.Payment, gateway string, state trade.PaymentState) (*Response, error) {
	changed, err := p.SetState(state)
	if err != nil {
		return nil, err
	}
	if p.Details == nil {
		p.Details = make(map[string]string)
	}
	p.Details[DetailStatus] = string(state)
	p.Details[DetailGateway] = gateway
	return &Response{State: p.State, Changed: changed}, nil
}

// statusOf reads the gateway status stored in the payment details. Payments
// never seen by a gateway report their own state; unreadable statuses are UNKNOWN.
func statusOf(p *trade.Payment) trade.PaymentState {
	raw, ok := p.Details[DetailStatus]
	if !ok || raw == "" {
		return p.State
	}
	state := trade.PaymentState(raw)
	if !state.IsValid() {
		return trade.PaymentStateUnknown
	}
	return state
}

func handleStatus(_ context.Context, req *Request) (*Response, error) {
	return &Response{State: statusOf(req.Payment)}, nil
}

func handleSync(_ context.Context, req *Request) (*Response, error) {
	state := statusOf(req.Payment)
	changed, err := req.Payment.SetState(state)
	if err != nil {
		return nil, err
	}
	return &Response{State: req.Payment.State, Changed: changed}, nil
}

func invalidState(p *trade.Payment, kind RequestKind) error {
	return shared.NewDomainError(shared.CodeInvalidState,
		fmt.Sprintf("cannot %s payment %s in state %s", kind, p.Number, p.State))
}
