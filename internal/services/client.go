package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/pagerduty-mcp/pagerduty-mcp-server/internal/base"
	"github.com/pagerduty-mcp/pagerduty-mcp-server/internal/envelope"
	apierrors "github.com/pagerduty-mcp/pagerduty-mcp-server/internal/errors"
	"github.com/pagerduty-mcp/pagerduty-mcp-server/metrics"
)

const (
	// Path is the services collection endpoint
	Path = "/services"

	// ResourceList labels listing envelopes
	ResourceList = "services"

	// ResourceSingle labels single-service envelopes
	ResourceSingle = "service"
)

// Client provides access to PagerDuty services
type Client struct {
	*base.Client
}

// NewClient creates a services client on top of a shared PagerDuty client
func NewClient(b *base.Client) *Client {
	return &Client{Client: b}
}

// ListServices lists services matching the filters, following every page.
// A result set larger than the envelope limit is reported in-band.
func (c *Client) ListServices(ctx context.Context, args ListServicesArgs) (envelope.Envelope[Service], error) {
	if err := ValidateListArgs(args); err != nil {
		return envelope.Envelope[Service]{}, err
	}

	records, err := c.fetch(ctx, listParams(args.TeamIDs, args.Query, args.Limit))
	if err != nil {
		return envelope.Envelope[Service]{}, apierrors.HandleAPIError(c.Logger, "list services", err)
	}

	env, err := envelope.New(ResourceList, records)
	if err != nil {
		return envelope.Envelope[Service]{}, apierrors.HandleAPIError(c.Logger, "list services", err)
	}
	if env.Exceeded() {
		metrics.RecordLimitExceeded(ResourceList)
		c.Logger.Warn("Service listing exceeds response limit", "count", env.Metadata.Count, "limit", envelope.DefaultLimit)
	}
	return env, nil
}

// ShowService fetches one service by ID
func (c *Client) ShowService(ctx context.Context, serviceID string) (envelope.Envelope[Service], error) {
	if err := ValidateServiceID(serviceID); err != nil {
		return envelope.Envelope[Service]{}, err
	}

	svc, err := c.get(ctx, serviceID)
	if err != nil {
		return envelope.Envelope[Service]{}, apierrors.HandleAPIError(c.Logger, "show service", err)
	}

	env, err := envelope.Single(ResourceSingle, svc)
	if err != nil {
		return envelope.Envelope[Service]{}, apierrors.HandleAPIError(c.Logger, "show service", err)
	}
	if env.Metadata.Count != 1 || env.Error != nil {
		return envelope.Envelope[Service]{}, apierrors.HandleAPIError(c.Logger, "show service",
			fmt.Errorf("single service envelope has count %d", env.Metadata.Count))
	}
	return env, nil
}

// FetchServiceIDs returns the IDs of the services owned by teamIDs in
// listing order. It is a building block for other resources and never
// applies the envelope limit.
func (c *Client) FetchServiceIDs(ctx context.Context, teamIDs []string) ([]string, error) {
	if err := ValidateTeamIDs(teamIDs); err != nil {
		return nil, err
	}

	records, err := c.fetch(ctx, listParams(teamIDs, "", 0))
	if err != nil {
		return nil, apierrors.HandleAPIError(c.Logger, "fetch service IDs", err)
	}

	ids := make([]string, 0, len(records))
	for _, svc := range records {
		ids = append(ids, svc.ID)
	}
	return ids, nil
}

// fetch lists and parses every service matching params
func (c *Client) fetch(ctx context.Context, params url.Values) ([]Service, error) {
	raw, err := c.ListAll(ctx, Path, params)
	if err != nil {
		return nil, err
	}
	return parseServices(raw)
}

// get fetches and parses GET /services/{id}
func (c *Client) get(ctx context.Context, serviceID string) (Service, error) {
	obj, err := c.Get(ctx, Path+"/"+url.PathEscape(serviceID))
	if err != nil {
		return Service{}, err
	}

	raw, ok := obj[ResourceSingle]
	if !ok {
		return Service{}, apierrors.NewContractError(ResourceSingle, serviceID, ResourceSingle)
	}
	return ParseService(raw)
}

// listParams builds listing query parameters, omitting unset filters
func listParams(teamIDs []string, query string, limit int) url.Values {
	params := url.Values{}
	if len(teamIDs) > 0 {
		params["team_ids[]"] = append([]string(nil), teamIDs...)
	}
	if query != "" {
		params.Set("query", query)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	return params
}
