package tools

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	apierrors "github.com/pagerduty-mcp/pagerduty-mcp-server/internal/errors"
	"github.com/pagerduty-mcp/pagerduty-mcp-server/internal/services"
	"github.com/pagerduty-mcp/pagerduty-mcp-server/internal/users"
	"github.com/pagerduty-mcp/pagerduty-mcp-server/metrics"
	"github.com/pagerduty-mcp/pagerduty-mcp-server/tracing"
)

// HandlerRegistry provides type-safe tool registration by mapping
// tool names to their concrete handler implementations.
type HandlerRegistry struct {
	servicesClient *services.Client
	usersClient    *users.Client
	logger         *slog.Logger
}

// NewHandlerRegistry creates a new handler registry.
func NewHandlerRegistry(servicesClient *services.Client, usersClient *users.Client, logger *slog.Logger) *HandlerRegistry {
	return &HandlerRegistry{
		servicesClient: servicesClient,
		usersClient:    usersClient,
		logger:         logger,
	}
}

// RegisterAll registers all tools with the MCP server.
func (h *HandlerRegistry) RegisterAll(server *mcp.Server) {
	registered := 0
	for _, spec := range AllTools {
		if h.registerByName(server, spec) {
			registered++
		}
	}
	h.logger.Info("Registered all tools", "count", registered)
}

// registerByName dispatches to the correct typed registration function.
func (h *HandlerRegistry) registerByName(server *mcp.Server, spec ToolSpec) bool {
	tool := h.buildTool(spec)

	switch spec.Method {
	case "ListServices":
		register(h, server, tool, spec, h.ListServices)
	case "ShowService":
		register(h, server, tool, spec, h.servicesClient.ShowServiceMCP)
	case "BuildUserContext":
		register(h, server, tool, spec, h.usersClient.BuildUserContextMCP)
	case "ShowCurrentUser":
		register(h, server, tool, spec, h.usersClient.ShowCurrentUserMCP)
	default:
		h.logger.Error("Unknown method, tool not registered", "method", spec.Method, "tool", spec.Name)
		return false
	}
	return true
}

// ListServices resolves the team filter from current_user_context and lists
// services. With the flag set (the default) the current user's teams are
// used and explicit team_ids are rejected; without it team_ids are required.
func (h *HandlerRegistry) ListServices(ctx context.Context, args services.ListServicesArgs) (services.ListServicesResult, error) {
	if args.UseCurrentUser() {
		if args.TeamIDs != nil {
			return services.ListServicesResult{}, apierrors.NewValidationError("team_ids",
				"cannot specify team_ids when current_user_context is true")
		}
		uc, err := h.usersClient.BuildUserContext(ctx)
		if err != nil {
			return services.ListServicesResult{}, err
		}
		if len(uc.TeamIDs) == 0 {
			return services.ListServicesResult{}, apierrors.NewValidationError("current_user_context",
				"current user belongs to no teams; set current_user_context to false and pass team_ids")
		}
		args.TeamIDs = uc.TeamIDs
	} else if len(args.TeamIDs) == 0 {
		return services.ListServicesResult{}, apierrors.NewValidationError("team_ids",
			"must specify at least one team ID when current_user_context is false")
	}

	return h.servicesClient.ListServicesMCP(ctx, args)
}

// buildTool creates an mcp.Tool from a ToolSpec.
func (h *HandlerRegistry) buildTool(spec ToolSpec) *mcp.Tool {
	annotations := &mcp.ToolAnnotations{
		Title:          spec.Title,
		ReadOnlyHint:   spec.ReadOnly,
		IdempotentHint: spec.Idempotent,
	}
	if spec.Destructive {
		annotations.DestructiveHint = ptr(true)
	}
	if spec.OpenWorld {
		annotations.OpenWorldHint = ptr(true)
	}

	return &mcp.Tool{
		Name:        spec.Name,
		Description: spec.Description,
		Annotations: annotations,
	}
}

// register is a generic helper that registers a tool with the MCP server.
// It wraps the handler with panic recovery, metrics, tracing, and logging.
func register[Args, Result any](
	h *HandlerRegistry,
	server *mcp.Server,
	tool *mcp.Tool,
	spec ToolSpec,
	method func(context.Context, Args) (Result, error),
) {
	mcp.AddTool(server, tool, func(ctx context.Context, req *mcp.CallToolRequest, args Args) (*mcp.CallToolResult, Result, error) {
		return invoke(ctx, h, spec, args, func(ctx context.Context) (Result, error) {
			return method(ctx, args)
		})
	})
}

// invoke runs one tool call. It is split from register so the wrapping can
// be exercised without an MCP session.
func invoke[Args, Result any](ctx context.Context, h *HandlerRegistry, spec ToolSpec, args Args, call func(context.Context) (Result, error)) (_ *mcp.CallToolResult, result Result, err error) {
	callID := uuid.NewString()
	defer h.recoverPanic(spec.Name, callID, &err)

	ctx, span := tracing.StartSpan(ctx, "mcp.tool."+spec.Name)
	defer span.End()

	tracing.AddToolAttributes(span, spec.Name, spec.Category)
	span.SetAttributes(
		attribute.String("mcp.tool.call_id", callID),
		attribute.String("mcp.tool.resource", spec.Resource),
		attribute.Bool("mcp.tool.readonly", spec.ReadOnly),
	)

	// Track in-flight requests
	metrics.RequestInFlight.WithLabelValues(spec.Name).Inc()
	defer metrics.RequestInFlight.WithLabelValues(spec.Name).Dec()

	start := time.Now()
	result, err = call(ctx)
	duration := time.Since(start).Seconds()

	span.SetAttributes(attribute.Float64("mcp.tool.duration_seconds", duration))

	if err != nil {
		tracing.RecordError(span, err)
		metrics.RecordRequest(spec.Name, duration, false)
		h.logger.Warn("Tool failed", "tool", spec.Name, "call_id", callID, "error", err)
		var zero Result
		return nil, zero, fmt.Errorf("%s failed: %w", spec.Name, err)
	}

	span.SetStatus(codes.Ok, "")
	metrics.RecordRequest(spec.Name, duration, true)
	h.logExecution(spec, callID, args, result)
	return nil, result, nil
}

// recoverPanic recovers from panics in tool handlers and turns them into a
// tool error.
func (h *HandlerRegistry) recoverPanic(toolName, callID string, err *error) {
	if rec := recover(); rec != nil {
		metrics.PanicsRecovered.WithLabelValues(toolName).Inc()
		metrics.RecordRequest(toolName, 0, false)
		h.logger.Error("Panic recovered",
			"tool", toolName,
			"call_id", callID,
			"panic", rec,
			"stack", string(debug.Stack()))
		if err != nil {
			*err = fmt.Errorf("%s failed: internal error", toolName)
		}
	}
}

// logExecution logs tool execution details.
func (h *HandlerRegistry) logExecution(spec ToolSpec, callID string, args, result any) {
	attrs := []any{"tool", spec.Name, "call_id", callID, "resource", spec.Resource}

	switch a := args.(type) {
	case services.ListServicesArgs:
		attrs = append(attrs, "team_ids", len(a.TeamIDs), "current_user_context", a.UseCurrentUser())
		if a.Query != "" {
			attrs = append(attrs, "query", a.Query)
		}
	case services.ShowServiceArgs:
		attrs = append(attrs, "service_id", a.ServiceID)
	case users.BuildUserContextArgs, users.ShowCurrentUserArgs:
		// No args to log
	}

	switch r := result.(type) {
	case services.ListServicesResult:
		attrs = append(attrs, "count", r.Metadata.Count)
		if r.Error != nil {
			attrs = append(attrs, "envelope_error", r.Error.Code)
		}
	case services.ShowServiceResult:
		attrs = append(attrs, "count", r.Metadata.Count)
	case users.UserContext:
		attrs = append(attrs, "user_id", r.UserID, "teams", len(r.TeamIDs), "services", len(r.ServiceIDs))
	case users.User:
		attrs = append(attrs, "user_id", r.ID, "teams", len(r.Teams))
	}

	h.logger.Info("Tool executed", attrs...)
}
