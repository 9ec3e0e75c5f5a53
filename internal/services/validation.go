package services

import (
	"strings"

	apierrors "github.com/pagerduty-mcp/pagerduty-mcp-server/internal/errors"
)

// ValidateServiceID validates a service ID before it is used in a path
func ValidateServiceID(id string) error {
	if strings.TrimSpace(id) == "" {
		return apierrors.NewValidationError("service_id", "service_id cannot be empty")
	}
	return nil
}

// ValidateListArgs validates listing filters.
// An explicit empty team list is a caller mistake, distinct from omitting it.
func ValidateListArgs(args ListServicesArgs) error {
	if args.TeamIDs != nil && len(args.TeamIDs) == 0 {
		return apierrors.NewValidationError("team_ids", "team_ids cannot be an empty list")
	}
	for _, id := range args.TeamIDs {
		if strings.TrimSpace(id) == "" {
			return apierrors.NewValidationError("team_ids", "team_ids cannot contain empty IDs")
		}
	}
	if args.Limit < 0 {
		return apierrors.NewValidationError("limit", "limit must be a positive integer")
	}
	return nil
}

// ValidateTeamIDs validates the required team list of FetchServiceIDs
func ValidateTeamIDs(teamIDs []string) error {
	if len(teamIDs) == 0 {
		return apierrors.NewValidationError("team_ids", "team IDs must be specified")
	}
	return nil
}
