package services

import (
	"context"

	"github.com/pagerduty-mcp/pagerduty-mcp-server/internal/envelope"
)

// MCP Tool wrapper methods
// These methods wrap the client methods with Args/Result types for MCP integration.

// ListServicesMCP is the MCP wrapper for ListServices. TeamIDs must already
// be resolved; CurrentUserContext is handled by the tool layer.
func (c *Client) ListServicesMCP(ctx context.Context, args ListServicesArgs) (ListServicesResult, error) {
	env, err := c.ListServices(ctx, args)
	if err != nil {
		return ListServicesResult{}, err
	}
	return toListResult(env), nil
}

// ShowServiceMCP is the MCP wrapper for ShowService
func (c *Client) ShowServiceMCP(ctx context.Context, args ShowServiceArgs) (ShowServiceResult, error) {
	env, err := c.ShowService(ctx, args.ServiceID)
	if err != nil {
		return ShowServiceResult{}, err
	}

	return ShowServiceResult{
		Service:  env.Records,
		Metadata: env.Metadata,
		Error:    env.Error,
	}, nil
}

func toListResult(env envelope.Envelope[Service]) ListServicesResult {
	result := ListServicesResult{
		Metadata: env.Metadata,
		Error:    env.Error,
	}
	if env.Error == nil {
		result.Services = env.Records
		if result.Services == nil {
			result.Services = []Service{}
		}
	}
	return result
}
