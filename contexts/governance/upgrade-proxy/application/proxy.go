package application

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"ballotproxy/contexts/governance/upgrade-proxy/domain/entities"
	domainerrors "ballotproxy/contexts/governance/upgrade-proxy/domain/errors"
	"ballotproxy/contexts/governance/upgrade-proxy/ports"
	accesscontrol "ballotproxy/contexts/identity-access/access-control/application"
	accesscommands "ballotproxy/contexts/identity-access/access-control/application/commands"
	"ballotproxy/contexts/identity-access/access-control/domain/valueobjects"
	"ballotproxy/internal/shared/dispatch"
	"ballotproxy/internal/shared/events"
	"ballotproxy/internal/shared/outbox"
	"ballotproxy/internal/shared/storagelayout"
)

const (
	routeProxy     = "proxy"
	routeForwarded = "forwarded"
	sourceService  = "ballotproxy"
)

// Dependencies wires a Proxy to its storage and collaborators.
type Dependencies struct {
	Store    ports.StateStore
	Registry ports.Registry
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Metrics  ports.Metrics
	Logger   *slog.Logger
}

// Proxy forwards calls to the current logic provider against its own storage.
// Calls are serialized: at most one runs at a time, and each one commits or
// rolls back as a unit.
type Proxy struct {
	mu   sync.Mutex
	deps Dependencies
}

type dispatchKey struct{}

// Deploy initializes empty storage with deployer as owner and initial as the
// implementation. It is the only Uninitialized to Configured transition.
func Deploy(ctx context.Context, deps Dependencies, deployer string, initial string) (*Proxy, error) {
	p := newProxy(deps)
	logger := ResolveLogger(deps.Logger)

	owner, err := valueobjects.NewIdentity(deployer)
	if err != nil {
		return nil, err
	}
	address, logic, err := p.resolveLogic(ctx, initial)
	if err != nil {
		return nil, err
	}
	if logic.LayoutVersion() != storagelayout.Version {
		return nil, domainerrors.ErrIncompatibleLayout
	}

	now := p.now()
	err = deps.Store.Atomically(ctx, func(ctx context.Context, tx storagelayout.Tx) error {
		if _, found, err := tx.Slots().Implementation(ctx); err != nil {
			return err
		} else if found {
			return domainerrors.ErrAlreadyDeployed
		}
		if err := tx.Slots().SetLayoutVersion(ctx, storagelayout.Version); err != nil {
			return err
		}
		if err := tx.Slots().SetOwner(ctx, owner.String()); err != nil {
			return err
		}
		if err := tx.Slots().SetImplementation(ctx, address.String()); err != nil {
			return err
		}
		_, err := p.appendEvents(ctx, tx, now, []dispatch.Event{{
			Type:       entities.EventTypeDeployed,
			EntityType: "proxy",
			EntityID:   address.String(),
			Payload: entities.Deployed{
				Owner:          owner.String(),
				Implementation: address.String(),
				LayoutVersion:  storagelayout.Version,
				DeployedAt:     now,
			},
		}})
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info("proxy deployed", append([]any{
		"event", "proxy_deployed",
		"module", "governance/upgrade-proxy",
		"layer", "application",
		"owner", owner.String(),
		"implementation", address.String(),
		"layout_version", storagelayout.Version,
	}, describeLogic(logic)...)...)
	return p, nil
}

// Attach opens a proxy over storage that Deploy has already initialized.
func Attach(ctx context.Context, deps Dependencies) (*Proxy, error) {
	p := newProxy(deps)
	var (
		address string
		version int
	)
	err := deps.Store.Atomically(ctx, func(ctx context.Context, tx storagelayout.Tx) error {
		current, found, err := tx.Slots().Implementation(ctx)
		if err != nil {
			return err
		}
		if !found {
			return domainerrors.ErrNotDeployed
		}
		stored, _, err := tx.Slots().LayoutVersion(ctx)
		if err != nil {
			return err
		}
		address, version = current, stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	_, logic, err := p.resolveLogic(ctx, address)
	if err != nil {
		return nil, err
	}
	if logic.LayoutVersion() != version {
		return nil, domainerrors.ErrIncompatibleLayout
	}

	ResolveLogger(deps.Logger).Info("proxy attached", append([]any{
		"event", "proxy_attached",
		"module", "governance/upgrade-proxy",
		"layer", "application",
		"implementation", address,
		"layout_version", version,
	}, describeLogic(logic)...)...)
	return p, nil
}

func newProxy(deps Dependencies) *Proxy {
	if deps.Metrics == nil {
		deps.Metrics = noopMetrics{}
	}
	return &Proxy{deps: deps}
}

// Dispatch runs call. Methods the proxy recognizes are handled here; any
// other method is forwarded to the current implementation. A failure from the
// implementation is returned unchanged and nothing the call wrote is kept.
func (p *Proxy) Dispatch(ctx context.Context, call dispatch.Call) (dispatch.Receipt, error) {
	if ctx.Value(dispatchKey{}) != nil {
		return dispatch.Receipt{}, domainerrors.ErrReentrantCall
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	ctx = context.WithValue(ctx, dispatchKey{}, struct{}{})

	started := time.Now()
	route := routeForwarded
	if entities.IsProxyMethod(call.Method) {
		route = routeProxy
	}
	now := p.now()

	var receipt dispatch.Receipt
	err := p.deps.Store.Atomically(ctx, func(ctx context.Context, tx storagelayout.Tx) error {
		receipt = dispatch.Receipt{}
		var (
			result dispatch.Result
			err    error
		)
		if route == routeProxy {
			result, err = p.handleProxyCall(ctx, tx, call)
		} else {
			receipt.Implementation, result, err = p.forward(ctx, tx, now, call)
		}
		if err != nil {
			return err
		}
		envelopes, err := p.appendEvents(ctx, tx, now, result.Events)
		if err != nil {
			return err
		}
		receipt.Return = result.Return
		receipt.Events = envelopes
		return nil
	})

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	p.deps.Metrics.ObserveDispatch(route, outcome, time.Since(started))
	logger := ResolveLogger(p.deps.Logger)
	if err != nil {
		logger.Warn("proxy call failed",
			"event", "proxy_call_failed",
			"module", "governance/upgrade-proxy",
			"layer", "application",
			"route", route,
			"method", call.Method,
			"caller", call.Caller,
			"error", err.Error(),
		)
		return dispatch.Receipt{}, err
	}
	if call.Method == entities.MethodSetImplementation {
		p.deps.Metrics.ObserveUpgrade()
	}
	logger.Debug("proxy call committed",
		"event", "proxy_call_committed",
		"module", "governance/upgrade-proxy",
		"layer", "application",
		"route", route,
		"method", call.Method,
		"caller", call.Caller,
		"event_count", len(receipt.Events),
	)
	return receipt, nil
}

func (p *Proxy) forward(
	ctx context.Context,
	tx storagelayout.Tx,
	now time.Time,
	call dispatch.Call,
) (string, dispatch.Result, error) {
	current, found, err := tx.Slots().Implementation(ctx)
	if err != nil {
		return "", dispatch.Result{}, err
	}
	if !found {
		return "", dispatch.Result{}, domainerrors.ErrNotDeployed
	}
	address, logic, err := p.resolveLogic(ctx, current)
	if err != nil {
		return "", dispatch.Result{}, err
	}
	result, err := logic.Invoke(ctx, dispatch.Frame{
		Now:     now,
		Storage: storagelayout.ImplementationView(tx),
		Logger:  p.deps.Logger,
	}, call)
	if err != nil {
		return "", dispatch.Result{}, err
	}
	return address.String(), result, nil
}

func (p *Proxy) handleProxyCall(ctx context.Context, tx storagelayout.Tx, call dispatch.Call) (dispatch.Result, error) {
	switch call.Method {
	case entities.MethodOwner, entities.MethodGetOwner:
		owner, err := accesscontrol.Guard{Owners: tx.Slots()}.Owner(ctx)
		if err != nil {
			return dispatch.Result{}, err
		}
		return encodeResult(entities.OwnerDocument{Owner: owner.String()})

	case entities.MethodGetImplementation:
		current, found, err := tx.Slots().Implementation(ctx)
		if err != nil {
			return dispatch.Result{}, err
		}
		if !found {
			return dispatch.Result{}, domainerrors.ErrNotDeployed
		}
		return encodeResult(entities.ImplementationDocument{Implementation: current})

	case entities.MethodLayoutVersion:
		version, found, err := tx.Slots().LayoutVersion(ctx)
		if err != nil {
			return dispatch.Result{}, err
		}
		if !found {
			return dispatch.Result{}, domainerrors.ErrNotDeployed
		}
		return encodeResult(entities.LayoutVersionDocument{LayoutVersion: version})

	case entities.MethodSetImplementation:
		var args entities.SetImplementationArgs
		if err := decodeArgs(call, &args); err != nil {
			return dispatch.Result{}, err
		}
		return p.setImplementation(ctx, tx, call.Caller, args.Address)

	case entities.MethodTransferOwnership:
		var args entities.TransferOwnershipArgs
		if err := decodeArgs(call, &args); err != nil {
			return dispatch.Result{}, err
		}
		result, err := accesscommands.TransferOwnershipUseCase{
			Owners: tx.Slots(),
			Logger: p.deps.Logger,
		}.Execute(ctx, accesscommands.TransferOwnershipCommand{
			Caller:   call.Caller,
			NewOwner: args.NewOwner,
		})
		if err != nil {
			return dispatch.Result{}, err
		}
		return encodeResult(entities.OwnerDocument{Owner: result.Next.String()}, dispatch.Event{
			Type:       entities.EventTypeOwnershipTransferred,
			EntityType: "proxy",
			EntityID:   result.Next.String(),
			Payload: entities.OwnershipTransferred{
				Previous: result.Previous.String(),
				Next:     result.Next.String(),
			},
		})
	}
	return dispatch.Result{}, domainerrors.ErrInvalidCallArgs
}

// setImplementation is the only place the implementation pointer changes.
// The owner check runs first so that a non-owner is rejected whatever the
// argument.
func (p *Proxy) setImplementation(
	ctx context.Context,
	tx storagelayout.Tx,
	caller string,
	next string,
) (dispatch.Result, error) {
	if err := (accesscontrol.Guard{Owners: tx.Slots(), Logger: p.deps.Logger}).RequireOwner(ctx, caller); err != nil {
		return dispatch.Result{}, err
	}
	address, logic, err := p.resolveLogic(ctx, next)
	if err != nil {
		return dispatch.Result{}, err
	}
	version, found, err := tx.Slots().LayoutVersion(ctx)
	if err != nil {
		return dispatch.Result{}, err
	}
	if !found || logic.LayoutVersion() != version {
		return dispatch.Result{}, domainerrors.ErrIncompatibleLayout
	}
	previous, _, err := tx.Slots().Implementation(ctx)
	if err != nil {
		return dispatch.Result{}, err
	}
	if err := tx.Slots().SetImplementation(ctx, address.String()); err != nil {
		return dispatch.Result{}, err
	}

	ResolveLogger(p.deps.Logger).Info("implementation upgraded", append([]any{
		"event", "proxy_implementation_upgraded",
		"module", "governance/upgrade-proxy",
		"layer", "application",
		"caller", caller,
		"previous", previous,
		"next", address.String(),
	}, describeLogic(logic)...)...)
	return encodeResult(entities.ImplementationDocument{Implementation: address.String()}, dispatch.Event{
		Type:       entities.EventTypeImplementationUpgraded,
		EntityType: "proxy",
		EntityID:   address.String(),
		Payload: entities.ImplementationUpgraded{
			Previous:      previous,
			Next:          address.String(),
			LayoutVersion: version,
		},
	})
}

// describeLogic returns log attrs naming logic and its methods, or nothing
// when logic does not describe itself.
func describeLogic(logic dispatch.Logic) []any {
	described, ok := logic.(dispatch.Describer)
	if !ok {
		return nil
	}
	return []any{
		"implementation_name", described.Name(),
		"methods", described.Methods(),
	}
}

func (p *Proxy) resolveLogic(ctx context.Context, raw string) (entities.Address, dispatch.Logic, error) {
	address := entities.NormalizeAddress(raw)
	if address.IsZero() {
		return "", nil, domainerrors.ErrInvalidImplementation
	}
	logic, found, err := p.deps.Registry.Lookup(ctx, address.String())
	if err != nil {
		return "", nil, err
	}
	if !found {
		return "", nil, domainerrors.ErrInvalidImplementation
	}
	return address, logic, nil
}

func (p *Proxy) appendEvents(
	ctx context.Context,
	tx storagelayout.Tx,
	now time.Time,
	emitted []dispatch.Event,
) ([]events.Envelope, error) {
	if len(emitted) == 0 {
		return nil, nil
	}
	envelopes := make([]events.Envelope, 0, len(emitted))
	for _, event := range emitted {
		eventID, err := p.deps.IDGen.NewID(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(event.Payload)
		if err != nil {
			return nil, err
		}
		envelope := events.Envelope{
			EventID:          eventID,
			EventType:        event.Type,
			OccurredAt:       now,
			SourceService:    sourceService,
			TraceID:          eventID,
			SchemaVersion:    1,
			PartitionKeyPath: event.EntityType,
			PartitionKey:     event.EntityID,
			Data:             data,
		}
		payload, err := json.Marshal(envelope)
		if err != nil {
			return nil, err
		}
		if err := tx.Outbox().AppendOutbox(ctx, outbox.Message{
			OutboxID:     eventID,
			EventType:    event.Type,
			PartitionKey: event.EntityID,
			Payload:      payload,
			CreatedAt:    now,
		}); err != nil {
			return nil, err
		}
		envelopes = append(envelopes, envelope)
	}
	return envelopes, nil
}

// now is the call timestamp, truncated to whole seconds.
func (p *Proxy) now() time.Time {
	return p.deps.Clock.Now().UTC().Truncate(time.Second)
}

// Owner returns the owner identity.
func (p *Proxy) Owner(ctx context.Context) (string, error) {
	var out entities.OwnerDocument
	if err := p.query(ctx, entities.MethodOwner, &out); err != nil {
		return "", err
	}
	return out.Owner, nil
}

// Implementation returns the current implementation address.
func (p *Proxy) Implementation(ctx context.Context) (string, error) {
	var out entities.ImplementationDocument
	if err := p.query(ctx, entities.MethodGetImplementation, &out); err != nil {
		return "", err
	}
	return out.Implementation, nil
}

// LayoutVersion returns the storage layout version recorded at deployment.
func (p *Proxy) LayoutVersion(ctx context.Context) (int, error) {
	var out entities.LayoutVersionDocument
	if err := p.query(ctx, entities.MethodLayoutVersion, &out); err != nil {
		return 0, err
	}
	return out.LayoutVersion, nil
}

// SetImplementation replaces the implementation pointer as caller.
func (p *Proxy) SetImplementation(ctx context.Context, caller string, address string) (dispatch.Receipt, error) {
	args, err := dispatch.Encode(entities.SetImplementationArgs{Address: address})
	if err != nil {
		return dispatch.Receipt{}, err
	}
	return p.Dispatch(ctx, dispatch.Call{Caller: caller, Method: entities.MethodSetImplementation, Args: args})
}

// TransferOwnership hands ownership to newOwner as caller.
func (p *Proxy) TransferOwnership(ctx context.Context, caller string, newOwner string) (dispatch.Receipt, error) {
	args, err := dispatch.Encode(entities.TransferOwnershipArgs{NewOwner: newOwner})
	if err != nil {
		return dispatch.Receipt{}, err
	}
	return p.Dispatch(ctx, dispatch.Call{Caller: caller, Method: entities.MethodTransferOwnership, Args: args})
}

func (p *Proxy) query(ctx context.Context, method string, out any) error {
	receipt, err := p.Dispatch(ctx, dispatch.Call{Method: method})
	if err != nil {
		return err
	}
	return json.Unmarshal(receipt.Return, out)
}

func decodeArgs(call dispatch.Call, out any) error {
	if len(call.Args) == 0 {
		return domainerrors.ErrInvalidCallArgs
	}
	if err := json.Unmarshal(call.Args, out); err != nil {
		return domainerrors.ErrInvalidCallArgs
	}
	return nil
}

func encodeResult(value any, emitted ...dispatch.Event) (dispatch.Result, error) {
	payload, err := dispatch.Encode(value)
	if err != nil {
		return dispatch.Result{}, err
	}
	return dispatch.Result{Return: payload, Events: emitted}, nil
}

type noopMetrics struct{}

func (noopMetrics) ObserveDispatch(string, string, time.Duration) {}
func (noopMetrics) ObserveUpgrade()                               {}
