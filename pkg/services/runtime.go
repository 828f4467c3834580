// Package services implements the runtime operations behind the HTTP
// handlers: execution-scoped state access, tool-action forwarding and
// audit publishing. Handlers never touch the store directly.
package services

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/runcept/runcept/pkg/eventbus"
	"github.com/runcept/runcept/pkg/events"
	"github.com/runcept/runcept/pkg/models"
	"github.com/runcept/runcept/pkg/otelhelper"
	"github.com/runcept/runcept/pkg/store"
	"github.com/runcept/runcept/pkg/tools"
)

// Runtime orchestrates the state store, the tool-action forwarder and the
// audit stream for one verified execution at a time. Stateless: every call
// carries the claims it acts for.
type Runtime struct {
	store  store.Store
	tools  tools.Executor
	audit  eventbus.Publisher
	tracer trace.Tracer
	logger *slog.Logger
}

func NewRuntime(stateStore store.Store, executor tools.Executor, audit eventbus.Publisher, logger *slog.Logger) *Runtime {
	return &Runtime{
		store:  stateStore,
		tools:  executor,
		audit:  audit,
		tracer: otel.Tracer("runcept-runtime"),
		logger: logger.With("module", "runtime"),
	}
}

// GetInput returns the payload the orchestrator seeded for this execution.
func (r *Runtime) GetInput(ctx context.Context, claims *models.Claims) (*models.InputData, error) {
	ctx, span := r.span(ctx, "runtime.get_input", claims)
	defer span.End()

	input, err := r.store.GetInput(ctx, claims.ExecutionID)
	if err != nil {
		return nil, r.fail(span, err)
	}

	r.publishAudit(ctx, claims.ExecutionID, events.InputRead{
		BaseEvent: events.NewBaseEvent(events.InputReadEvent, claims.ExecutionID, claims.UserID),
	})

	return input, nil
}

// SetOutput stores the script's result payload. Overwrites are
// last-write-wins.
func (r *Runtime) SetOutput(ctx context.Context, claims *models.Claims, data any) error {
	ctx, span := r.span(ctx, "runtime.set_output", claims)
	defer span.End()

	if err := r.store.SetOutput(ctx, claims.ExecutionID, data); err != nil {
		return r.fail(span, err)
	}

	r.publishAudit(ctx, claims.ExecutionID, events.OutputWritten{
		BaseEvent: events.NewBaseEvent(events.OutputWrittenEvent, claims.ExecutionID, claims.UserID),
	})

	return nil
}

// GetVariable returns one execution-scoped variable.
func (r *Runtime) GetVariable(ctx context.Context, claims *models.Claims, key string) (*models.Variable, error) {
	ctx, span := r.span(ctx, "runtime.get_variable", claims,
		attribute.String(otelhelper.VariableKeyKey, key))
	defer span.End()

	variable, err := r.store.GetVariable(ctx, claims.ExecutionID, key)
	if err != nil {
		return nil, r.fail(span, err)
	}

	r.publishAudit(ctx, claims.ExecutionID, events.VariableRead{
		BaseEvent: events.NewBaseEvent(events.VariableReadEvent, claims.ExecutionID, claims.UserID),
		Key:       key,
	})

	return variable, nil
}

// SetVariable writes one execution-scoped variable. A nil value is the
// deletion convention.
func (r *Runtime) SetVariable(ctx context.Context, claims *models.Claims, key string, value any) error {
	ctx, span := r.span(ctx, "runtime.set_variable", claims,
		attribute.String(otelhelper.VariableKeyKey, key))
	defer span.End()

	if err := r.store.SetVariable(ctx, claims.ExecutionID, key, value); err != nil {
		return r.fail(span, err)
	}

	r.publishAudit(ctx, claims.ExecutionID, events.VariableWritten{
		BaseEvent: events.NewBaseEvent(events.VariableWrittenEvent, claims.ExecutionID, claims.UserID),
		Key:       key,
		Deleted:   value == nil,
	})

	return nil
}

// SetCondition records the boolean branch decision for the orchestrator.
func (r *Runtime) SetCondition(ctx context.Context, claims *models.Claims, result bool) error {
	ctx, span := r.span(ctx, "runtime.set_condition", claims)
	defer span.End()

	if err := r.store.SetCondition(ctx, claims.ExecutionID, result); err != nil {
		return r.fail(span, err)
	}

	r.publishAudit(ctx, claims.ExecutionID, events.ConditionSet{
		BaseEvent: events.NewBaseEvent(events.ConditionSetEvent, claims.ExecutionID, claims.UserID),
		Result:    result,
	})

	return nil
}

// GetContext returns the read-only event metadata for this execution.
func (r *Runtime) GetContext(ctx context.Context, claims *models.Claims) (*models.ExecutionContext, error) {
	ctx, span := r.span(ctx, "runtime.get_context", claims)
	defer span.End()

	execContext, err := r.store.GetContext(ctx, claims.ExecutionID)
	if err != nil {
		return nil, r.fail(span, err)
	}

	r.publishAudit(ctx, claims.ExecutionID, events.ContextRead{
		BaseEvent: events.NewBaseEvent(events.ContextReadEvent, claims.ExecutionID, claims.UserID),
	})

	return execContext, nil
}

// ExecuteToolAction validates and forwards a tool action under the caller's
// verified identity. Not retried here: the action may have side effects.
func (r *Runtime) ExecuteToolAction(ctx context.Context, claims *models.Claims, config models.ToolActionConfig) (*models.ToolActionResult, error) {
	ctx, span := r.span(ctx, "runtime.execute_tool_action", claims,
		attribute.String(otelhelper.ToolKey, config.Tool),
		attribute.String(otelhelper.ToolActionKey, config.Action))
	defer span.End()

	result, err := r.tools.Execute(ctx, claims.ExecutionID, claims.UserID, config)
	if err != nil {
		return nil, r.fail(span, err)
	}

	r.publishAudit(ctx, claims.ExecutionID, events.ToolActionExecuted{
		BaseEvent: events.NewBaseEvent(events.ToolActionExecutedEvent, claims.ExecutionID, claims.UserID),
		Tool:      config.Tool,
		Action:    config.Action,
		Success:   result.Success,
	})

	return result, nil
}

// HealthCheck reports whether the backing store is reachable.
func (r *Runtime) HealthCheck(ctx context.Context) (string, bool) {
	if err := r.store.HealthCheck(ctx); err != nil {
		return "State store is unhealthy: " + err.Error(), false
	}

	return "State store is healthy", true
}

func (r *Runtime) span(ctx context.Context, name string, claims *models.Claims, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String(otelhelper.ExecutionIDKey, claims.ExecutionID),
		attribute.String(otelhelper.JobIDKey, claims.JobID),
	)

	return otelhelper.StartSpan(ctx, r.tracer, name, attrs...)
}

func (r *Runtime) fail(span trace.Span, err error) error {
	if !store.IsNotFound(err) {
		otelhelper.SetError(span, err)
	}

	return err
}

// publishAudit is fire-and-forget: an audit gap never fails the script's
// request. WithoutCancel keeps the publish alive past the response.
func (r *Runtime) publishAudit(ctx context.Context, key string, event eventbus.Event) {
	publishCtx := context.WithoutCancel(ctx)

	if err := r.audit.Publish(publishCtx, key, event); err != nil {
		r.logger.ErrorContext(ctx, "Failed to publish audit event",
			"event_type", event.GetType(), "error", err)
	}
}
