package services

import (
	"encoding/json"

	"github.com/pagerduty-mcp/pagerduty-mcp-server/internal/envelope"
)

// ListServicesArgs contains parameters for listing services.
// A nil TeamIDs means "not provided"; a non-nil empty slice is rejected.
type ListServicesArgs struct {
	CurrentUserContext *bool    `json:"current_user_context,omitempty" jsonschema:"Filter by the teams of the user owning the API key (default: true, cannot be combined with team_ids)"`
	TeamIDs            []string `json:"team_ids,omitempty" jsonschema:"Only services owned by these team IDs (required when current_user_context is false)"`
	Query              string   `json:"query,omitempty" jsonschema:"Only services whose name contains this text"`
	Limit              int      `json:"limit,omitempty" jsonschema:"Page size requested from PagerDuty"`
}

// UseCurrentUser reports whether the listing should be scoped to the
// current user's teams. Unset means true.
func (a ListServicesArgs) UseCurrentUser() bool {
	return a.CurrentUserContext == nil || *a.CurrentUserContext
}

// ListServicesResult is the services envelope as returned to MCP clients
type ListServicesResult struct {
	Services []Service         `json:"services,omitempty"`
	Metadata envelope.Metadata `json:"metadata"`
	Error    *envelope.Error   `json:"error,omitempty"`
}

// MarshalJSON keeps the services key present, even when empty, unless the
// result carries an error.
func (r ListServicesResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(envelope.Envelope[Service]{
		Resource: ResourceList,
		Records:  r.Services,
		Metadata: r.Metadata,
		Error:    r.Error,
	})
}

// ShowServiceArgs contains parameters for getting a service by ID
type ShowServiceArgs struct {
	ServiceID string `json:"service_id" jsonschema:"PagerDuty service ID, e.g. PABC123"`
}

// ShowServiceResult is the single-service envelope as returned to MCP clients.
// Service holds exactly one record, matching the listing envelope shape.
type ShowServiceResult struct {
	Service  []Service         `json:"service,omitempty"`
	Metadata envelope.Metadata `json:"metadata"`
	Error    *envelope.Error   `json:"error,omitempty"`
}

// MarshalJSON writes the record under the singular "service" key
func (r ShowServiceResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(envelope.Envelope[Service]{
		Resource: ResourceSingle,
		Records:  r.Service,
		Metadata: r.Metadata,
		Error:    r.Error,
	})
}
