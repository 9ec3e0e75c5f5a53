// Package services provides read access to PagerDuty services: listing with
// team and name filters, lookup by ID, and resolving the service IDs owned by
// a set of teams.
package services

// Reference is a compact pointer to another PagerDuty object
type Reference struct {
	ID      string `json:"id"`
	Summary string `json:"summary,omitempty"`
	HTMLURL string `json:"html_url,omitempty"`
}

// Service is the normalized service record returned by every operation
type Service struct {
	ID                     string      `json:"id"`
	Name                   string      `json:"name"`
	Description            string      `json:"description,omitempty"`
	Status                 string      `json:"status,omitempty"` // active, warning, critical, maintenance, disabled
	HTMLURL                string      `json:"html_url,omitempty"`
	CreatedAt              string      `json:"created_at,omitempty"`
	UpdatedAt              string      `json:"updated_at,omitempty"`
	LastIncidentTimestamp  string      `json:"last_incident_timestamp,omitempty"`
	AcknowledgementTimeout *int        `json:"acknowledgement_timeout,omitempty"` // seconds, null when disabled
	AutoResolveTimeout     *int        `json:"auto_resolve_timeout,omitempty"`    // seconds, null when disabled
	AlertCreation          string      `json:"alert_creation,omitempty"`
	EscalationPolicy       *Reference  `json:"escalation_policy,omitempty"`
	Teams                  []Reference `json:"teams,omitempty"`
	Integrations           []Reference `json:"integrations,omitempty"`
}

// rawReference mirrors a nested reference object in API responses
type rawReference struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Summary string `json:"summary"`
	Self    string `json:"self"`
	HTMLURL string `json:"html_url"`
}

// rawService mirrors a service object as returned by the REST API
type rawService struct {
	ID                     string         `json:"id"`
	Type                   string         `json:"type"`
	Summary                string         `json:"summary"`
	Self                   string         `json:"self"`
	HTMLURL                string         `json:"html_url"`
	Name                   string         `json:"name"`
	Description            string         `json:"description"`
	Status                 string         `json:"status"`
	CreatedAt              string         `json:"created_at"`
	UpdatedAt              string         `json:"updated_at"`
	LastIncidentTimestamp  string         `json:"last_incident_timestamp"`
	AcknowledgementTimeout *int           `json:"acknowledgement_timeout"`
	AutoResolveTimeout     *int           `json:"auto_resolve_timeout"`
	AlertCreation          string         `json:"alert_creation"`
	EscalationPolicy       *rawReference  `json:"escalation_policy"`
	Teams                  []rawReference `json:"teams"`
	Integrations           []rawReference `json:"integrations"`
}
