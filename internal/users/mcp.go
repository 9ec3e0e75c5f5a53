package users

import "context"

// BuildUserContextArgs takes no parameters; the user is the API key owner
type BuildUserContextArgs struct{}

// BuildUserContextMCP is the MCP wrapper for BuildUserContext
func (c *Client) BuildUserContextMCP(ctx context.Context, _ BuildUserContextArgs) (UserContext, error) {
	return c.BuildUserContext(ctx)
}

// ShowCurrentUserArgs takes no parameters
type ShowCurrentUserArgs struct{}

// ShowCurrentUserMCP is the MCP wrapper for ShowCurrentUser
func (c *Client) ShowCurrentUserMCP(ctx context.Context, _ ShowCurrentUserArgs) (User, error) {
	return c.ShowCurrentUser(ctx)
}
