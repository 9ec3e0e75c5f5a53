package users

import (
	"context"
	"strings"

	"github.com/pagerduty-mcp/pagerduty-mcp-server/internal/base"
	apierrors "github.com/pagerduty-mcp/pagerduty-mcp-server/internal/errors"
)

const (
	// CurrentUserPath returns the user owning the API key
	CurrentUserPath = "/users/me"

	// ResourceSingle is the response field holding a user
	ResourceSingle = "user"
)

// ServiceIDFetcher resolves the services owned by a set of teams
type ServiceIDFetcher interface {
	FetchServiceIDs(ctx context.Context, teamIDs []string) ([]string, error)
}

// Client provides access to PagerDuty users
type Client struct {
	*base.Client
	services ServiceIDFetcher
}

// NewClient creates a users client. svc resolves service IDs for the user
// context and is usually a *services.Client sharing the same base client.
func NewClient(b *base.Client, svc ServiceIDFetcher) *Client {
	return &Client{
		Client:   b,
		services: svc,
	}
}

// ShowCurrentUser fetches the profile of the user owning the API key
func (c *Client) ShowCurrentUser(ctx context.Context) (User, error) {
	user, err := c.currentUser(ctx)
	if err != nil {
		return User{}, apierrors.HandleAPIError(c.Logger, "show current user", err)
	}
	return user, nil
}

func (c *Client) currentUser(ctx context.Context) (User, error) {
	obj, err := c.Get(ctx, CurrentUserPath)
	if err != nil {
		return User{}, err
	}

	raw, ok := obj[ResourceSingle]
	if !ok {
		return User{}, apierrors.NewContractError("current user", "", ResourceSingle)
	}
	user, err := ParseUser(raw)
	if err != nil {
		return User{}, err
	}
	if user.ID == "" {
		return User{}, apierrors.NewValidationError("id", "invalid user object: missing ID")
	}
	return user, nil
}

// BuildUserContext resolves the current user, their teams, and the services
// those teams own. Service IDs are only looked up when the user has teams.
func (c *Client) BuildUserContext(ctx context.Context) (UserContext, error) {
	user, err := c.ShowCurrentUser(ctx)
	if err != nil {
		return UserContext{}, err
	}

	uc := UserContext{
		UserID:     user.ID,
		Name:       user.Name,
		Email:      user.Email,
		TeamIDs:    user.TeamIDs(),
		ServiceIDs: []string{},
	}

	if len(uc.TeamIDs) > 0 {
		ids, err := c.services.FetchServiceIDs(ctx, uc.TeamIDs)
		if err != nil {
			if apierrors.IsHandled(err) {
				return UserContext{}, err
			}
			return UserContext{}, apierrors.HandleAPIError(c.Logger, "build user context", err)
		}
		for _, id := range ids {
			if id = strings.TrimSpace(id); id != "" {
				uc.ServiceIDs = append(uc.ServiceIDs, id)
			}
		}
	}

	c.Logger.Debug("Built user context",
		"user_id", uc.UserID,
		"teams", len(uc.TeamIDs),
		"services", len(uc.ServiceIDs),
	)
	return uc, nil
}
