package gateway

import (
	"context"
	"fmt"
	"sort"

	"github.com/erp/commerce/internal/domain/partner"
	"github.com/erp/commerce/internal/domain/shared"
	"github.com/erp/commerce/internal/domain/trade"
	"github.com/erp/commerce/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// CustomerFinder loads the customer owning a sale.
type CustomerFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*partner.Customer, error)
}

// Dependencies are the collaborators handlers may need. Balance factories
// require Customers and Persister; changed customers are scheduled on the
// Persister and written by the caller's flush.
type Dependencies struct {
	Customers CustomerFinder
	Persister shared.Persister
	Logger    *zap.Logger
	Metrics   *telemetry.ReconciliationMetrics
}

type factoryFunc func(name string, deps Dependencies) (map[RequestKind]Handler, error)

var factories = map[string]factoryFunc{
	FactoryOffline:            offlineHandlers,
	FactoryOutstandingBalance: outstandingHandlers,
	FactoryCreditBalance:      creditHandlers,
}

// New validates cfg and builds the gateway its factory describes.
func New(cfg Config, deps Dependencies) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	build, ok := factories[cfg.Factory]
	if !ok {
		return nil, shared.UnexpectedValue(fmt.Sprintf("unknown gateway factory %q", cfg.Factory))
	}
	handlers, err := build(cfg.Name, deps)
	if err != nil {
		return nil, err
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gateway{
		config:   cfg,
		handlers: handlers,
		logger:   logger.With(zap.String("gateway", cfg.Name)),
		metrics:  deps.Metrics,
	}
	if cfg.SyncRate > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.SyncRate), cfg.SyncBurst)
	}
	return g, nil
}

func commonHandlers() map[RequestKind]Handler {
	return map[RequestKind]Handler{
		KindStatus: handleStatus,
		KindSync:   handleSync,
	}
}

// offlineHandlers serve manual payments (check, bank transfer): capture
// leaves the payment pending until an operator accepts it.
func offlineHandlers(name string, _ Dependencies) (map[RequestKind]Handler, error) {
	h := commonHandlers()
	h[KindCapture] = func(_ context.Context, req *Request) (*Response, error) {
		p := req.Payment
		if p.State != trade.PaymentStateNew {
			return nil, invalidState(p, req.Kind)
		}
		return transition(p, name, trade.PaymentStatePending)
	}
	h[KindAccept] = func(_ context.Context, req *Request) (*Response, error) {
		p := req.Payment
		switch p.State {
		case trade.PaymentStateNew, trade.PaymentStatePending, trade.PaymentStateAuthorized, trade.PaymentStateCaptured:
			return transition(p, name, trade.PaymentStateCaptured)
		}
		return nil, invalidState(p, req.Kind)
	}
	h[KindCancel] = func(_ context.Context, req *Request) (*Response, error) {
		p := req.Payment
		if !cancelable(p) {
			return nil, invalidState(p, req.Kind)
		}
		return cancel(p, name, req.Reason)
	}
	h[KindRefund] = func(_ context.Context, req *Request) (*Response, error) {
		p := req.Payment
		if p.State != trade.PaymentStateCaptured {
			return nil, invalidState(p, req.Kind)
		}
		return transition(p, name, trade.PaymentStateRefunded)
	}
	return h, nil
}

// outstandingHandlers defer the payment against the customer's outstanding
// limit. Capture authorizes; accept records the settlement and gives the
// limit back.
func outstandingHandlers(name string, deps Dependencies) (map[RequestKind]Handler, error) {
	if err := requireBalanceDeps(name, deps); err != nil {
		return nil, err
	}
	h := commonHandlers()
	h[KindCapture] = func(ctx context.Context, req *Request) (*Response, error) {
		p := req.Payment
		if p.State != trade.PaymentStateNew {
			return nil, invalidState(p, req.Kind)
		}
		customer, err := customerOf(ctx, customersFor(deps, req), p)
		if err != nil {
			return nil, err
		}
		if p.Amount.GreaterThan(customer.AvailableOutstanding()) {
			return fail(p, name, "outstanding limit exceeded")
		}
		if err := customer.UseOutstanding(p.Amount); err != nil {
			return nil, err
		}
		if err := deps.Persister.Persist(customer); err != nil {
			return nil, err
		}
		return transition(p, name, trade.PaymentStateAuthorized)
	}
	h[KindAccept] = func(ctx context.Context, req *Request) (*Response, error) {
		p := req.Payment
		if p.State != trade.PaymentStateAuthorized {
			return nil, invalidState(p, req.Kind)
		}
		if err := releaseOutstanding(ctx, deps, req); err != nil {
			return nil, err
		}
		return transition(p, name, trade.PaymentStateCaptured)
	}
	h[KindCancel] = func(ctx context.Context, req *Request) (*Response, error) {
		p := req.Payment
		if !cancelable(p) && p.State != trade.PaymentStateAuthorized {
			return nil, invalidState(p, req.Kind)
		}
		if p.State == trade.PaymentStateAuthorized {
			if err := releaseOutstanding(ctx, deps, req); err != nil {
				return nil, err
			}
		}
		return cancel(p, name, req.Reason)
	}
	return h, nil
}

// creditHandlers pay from the customer's credit balance; refunds go back to it.
func creditHandlers(name string, deps Dependencies) (map[RequestKind]Handler, error) {
	if err := requireBalanceDeps(name, deps); err != nil {
		return nil, err
	}
	h := commonHandlers()
	h[KindCapture] = func(ctx context.Context, req *Request) (*Response, error) {
		p := req.Payment
		if p.State != trade.PaymentStateNew {
			return nil, invalidState(p, req.Kind)
		}
		customer, err := customerOf(ctx, customersFor(deps, req), p)
		if err != nil {
			return nil, err
		}
		if customer.CreditBalance.LessThan(p.Amount) {
			return fail(p, name, "insufficient credit balance")
		}
		if err := customer.UseCredit(p.Amount); err != nil {
			return nil, err
		}
		if err := deps.Persister.Persist(customer); err != nil {
			return nil, err
		}
		return transition(p, name, trade.PaymentStateCaptured)
	}
	h[KindCancel] = func(_ context.Context, req *Request) (*Response, error) {
		p := req.Payment
		if !cancelable(p) {
			return nil, invalidState(p, req.Kind)
		}
		return cancel(p, name, req.Reason)
	}
	h[KindRefund] = func(ctx context.Context, req *Request) (*Response, error) {
		p := req.Payment
		if p.State != trade.PaymentStateCaptured {
			return nil, invalidState(p, req.Kind)
		}
		customer, err := customerOf(ctx, customersFor(deps, req), p)
		if err != nil {
			return nil, err
		}
		if err := customer.AddCredit(p.Amount); err != nil {
			return nil, err
		}
		if err := deps.Persister.Persist(customer); err != nil {
			return nil, err
		}
		return transition(p, name, trade.PaymentStateRefunded)
	}
	return h, nil
}

func requireBalanceDeps(name string, deps Dependencies) error {
	if deps.Customers == nil || deps.Persister == nil {
		return shared.PreconditionFailed(fmt.Sprintf("gateway %q needs a customer finder and a persister", name))
	}
	return nil
}

func cancelable(p *trade.Payment) bool {
	return p.State == trade.PaymentStateNew || p.State == trade.PaymentStatePending
}

func cancel(p *trade.Payment, name, reason string) (*Response, error) {
	resp, err := transition(p, name, trade.PaymentStateCanceled)
	if err != nil {
		return nil, err
	}
	if reason != "" {
		p.Details[DetailReason] = reason
	}
	return resp, nil
}

func fail(p *trade.Payment, name, reason string) (*Response, error) {
	resp, err := transition(p, name, trade.PaymentStateFailed)
	if err != nil {
		return nil, err
	}
	p.Details[DetailReason] = reason
	return resp, nil
}

func customerOf(ctx context.Context, customers CustomerFinder, p *trade.Payment) (*partner.Customer, error) {
	if p.Sale == nil || p.Sale.CustomerID == uuid.Nil {
		return nil, shared.InvalidArgument(fmt.Sprintf("payment %s has no customer", p.Number))
	}
	customer, err := customers.FindByID(ctx, p.Sale.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}
	if customer == nil {
		return nil, fmt.Errorf("customer %s: %w", p.Sale.CustomerID, shared.ErrNotFound)
	}
	return customer, nil
}

func customersFor(deps Dependencies, req *Request) CustomerFinder {
	if req.Customers != nil {
		return req.Customers
	}
	return deps.Customers
}

func releaseOutstanding(ctx context.Context, deps Dependencies, req *Request) error {
	p := req.Payment
	customer, err := customerOf(ctx, customersFor(deps, req), p)
	if err != nil {
		return err
	}
	if err := customer.ReleaseOutstanding(p.Amount); err != nil {
		return err
	}
	return deps.Persister.Persist(customer)
}

// Registry holds the configured gateways by name.
type Registry struct {
	gateways map[string]*Gateway
}

// NewRegistry builds every configured gateway. Names must be unique.
func NewRegistry(configs []Config, deps Dependencies) (*Registry, error) {
	r := &Registry{gateways: make(map[string]*Gateway, len(configs))}
	for _, cfg := range configs {
		if _, dup := r.gateways[cfg.Name]; dup {
			return nil, shared.InvalidArgument(fmt.Sprintf("duplicate gateway %q", cfg.Name))
		}
		g, err := New(cfg, deps)
		if err != nil {
			return nil, err
		}
		r.gateways[cfg.Name] = g
	}
	return r, nil
}

// Get returns the named gateway. An unknown name is UNEXPECTED_VALUE.
func (r *Registry) Get(name string) (*Gateway, error) {
	g, ok := r.gateways[name]
	if !ok {
		return nil, shared.UnexpectedValue(fmt.Sprintf("unknown gateway %q", name))
	}
	return g, nil
}

// ForPayment returns the gateway serving the payment's method.
func (r *Registry) ForPayment(p *trade.Payment) (*Gateway, error) {
	if p == nil {
		return nil, shared.InvalidArgument("payment is nil")
	}
	return r.Get(p.Method.Code)
}

// Names returns the configured gateway names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.gateways))
	for name := range r.gateways {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
