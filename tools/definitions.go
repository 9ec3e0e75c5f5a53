package tools

// AllTools contains all tool specifications for the PagerDuty MCP server.
// Tool descriptions follow a structured format for optimal LLM tool selection:
// - USE WHEN: Natural language triggers
// - NOT FOR: Disambiguation from similar tools
// - PARAMETERS: Key arguments with defaults
// - RETURNS: What the tool returns
var AllTools = []ToolSpec{
	// ==========================================================================
	// SERVICE TOOLS
	// ==========================================================================
	{
		Name:     "pagerduty_list_services",
		Method:   "ListServices",
		Title:    "List PagerDuty Services",
		Category: "list",
		Resource: "services",
		Description: `List PagerDuty services, by default those owned by the current user's teams.

USE WHEN: User asks "what services do I own", "list services for team X", "find the checkout service", or needs service IDs for a follow-up call.

NOT FOR: Details of one known service (use pagerduty_show_service instead).

PARAMETERS:
- current_user_context: Scope to the current user's teams (default true, cannot be combined with team_ids)
- team_ids: Team IDs to filter by (required when current_user_context is false)
- query: Substring match on service name (optional)
- limit: Page size requested from PagerDuty (optional)

RETURNS: services with metadata (count, description). More than 500 matches returns a LIMIT_EXCEEDED error instead of results; narrow the query and retry.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "pagerduty_show_service",
		Method:   "ShowService",
		Title:    "Show PagerDuty Service",
		Category: "read",
		Resource: "services",
		Description: `Get details about one PagerDuty service by ID.

USE WHEN: User asks "show service PABC123", "who owns this service", "what escalation policy does service X use".

NOT FOR: Finding services by name or team (use pagerduty_list_services first to get the ID).

PARAMETERS:
- service_id: PagerDuty service ID (required)

RETURNS: service (one-element list) with status, timeouts, escalation policy, teams and integrations, plus metadata.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},

	// ==========================================================================
	// USER CONTEXT TOOLS
	// ==========================================================================
	{
		Name:     "pagerduty_build_user_context",
		Method:   "BuildUserContext",
		Title:    "Build PagerDuty User Context",
		Category: "context",
		Resource: "users",
		Description: `Resolve the PagerDuty user behind the API key with their team and service IDs.

USE WHEN: User asks "who am I in PagerDuty", "which teams am I on", "what services does my team own", or another call needs the current user's IDs.

NOT FOR: Listing services with filters (use pagerduty_list_services).

PARAMETERS: none

RETURNS: user_id, name, email, team_ids and service_ids.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "pagerduty_show_current_user",
		Method:   "ShowCurrentUser",
		Title:    "Show Current PagerDuty User",
		Category: "read",
		Resource: "users",
		Description: `Get the PagerDuty profile of the user behind the API key.

USE WHEN: User asks "show my PagerDuty profile", "what is my email and role", "what is my job title".

NOT FOR: Team or service IDs for follow-up calls (use pagerduty_build_user_context).

PARAMETERS: none

RETURNS: id, name, email, role, job_title, description, time_zone, html_url and teams (id, summary).`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
}

// ToolsByResource returns the tools working on the given PagerDuty resource
func ToolsByResource(resource string) []ToolSpec {
	var out []ToolSpec
	for _, spec := range AllTools {
		if spec.Resource == resource {
			out = append(out, spec)
		}
	}
	return out
}

// ToolsByCategory returns the tools in the given category
func ToolsByCategory(category string) []ToolSpec {
	var out []ToolSpec
	for _, spec := range AllTools {
		if spec.Category == category {
			out = append(out, spec)
		}
	}
	return out
}
