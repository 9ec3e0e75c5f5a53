// Package users resolves the PagerDuty user that owns the API key and builds
// the user context the tools use to scope queries to that user's teams.
package users

import "github.com/pagerduty-mcp/pagerduty-mcp-server/internal/services"

// User is the normalized profile of a PagerDuty user
type User struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Email       string               `json:"email"`
	Role        string               `json:"role,omitempty"`
	JobTitle    string               `json:"job_title,omitempty"`
	Description string               `json:"description,omitempty"`
	TimeZone    string               `json:"time_zone,omitempty"`
	HTMLURL     string               `json:"html_url,omitempty"`
	Teams       []services.Reference `json:"teams,omitempty"`
}

// UserContext identifies the current user and the resources they own.
// TeamIDs and ServiceIDs are never nil.
type UserContext struct {
	UserID     string   `json:"user_id"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	TeamIDs    []string `json:"team_ids"`
	ServiceIDs []string `json:"service_ids"`
}

// rawUser mirrors a user object as returned by the REST API
type rawUser struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Summary     string `json:"summary"`
	Self        string `json:"self"`
	HTMLURL     string `json:"html_url"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	JobTitle    string `json:"job_title"`
	Description string `json:"description"`
	TimeZone    string `json:"time_zone"`
	Teams       []struct {
		ID      string `json:"id"`
		Summary string `json:"summary"`
		HTMLURL string `json:"html_url"`
	} `json:"teams"`
}
