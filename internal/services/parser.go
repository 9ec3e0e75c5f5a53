package services

import (
	"encoding/json"
	"fmt"
)

// ParseService maps a raw API service object onto Service, dropping the
// fields callers never need (self links, type tags, nested object bodies).
// A JSON null yields the zero Service.
func ParseService(raw json.RawMessage) (Service, error) {
	var r rawService
	if err := json.Unmarshal(raw, &r); err != nil {
		return Service{}, fmt.Errorf("failed to parse service: %w", err)
	}

	svc := Service{
		ID:                     r.ID,
		Name:                   r.Name,
		Description:            r.Description,
		Status:                 r.Status,
		HTMLURL:                r.HTMLURL,
		CreatedAt:              r.CreatedAt,
		UpdatedAt:              r.UpdatedAt,
		LastIncidentTimestamp:  r.LastIncidentTimestamp,
		AcknowledgementTimeout: r.AcknowledgementTimeout,
		AutoResolveTimeout:     r.AutoResolveTimeout,
		AlertCreation:          r.AlertCreation,
		Teams:                  parseReferences(r.Teams),
		Integrations:           parseReferences(r.Integrations),
	}
	if svc.Name == "" {
		svc.Name = r.Summary
	}
	if r.EscalationPolicy != nil {
		ref := parseReference(*r.EscalationPolicy)
		svc.EscalationPolicy = &ref
	}
	return svc, nil
}

// parseServices parses every raw record, failing on the first bad one
func parseServices(raw []json.RawMessage) ([]Service, error) {
	out := make([]Service, 0, len(raw))
	for i, r := range raw {
		svc, err := ParseService(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, svc)
	}
	return out, nil
}

func parseReference(r rawReference) Reference {
	return Reference{
		ID:      r.ID,
		Summary: r.Summary,
		HTMLURL: r.HTMLURL,
	}
}

func parseReferences(refs []rawReference) []Reference {
	if len(refs) == 0 {
		return nil
	}
	out := make([]Reference, len(refs))
	for i, r := range refs {
		out[i] = parseReference(r)
	}
	return out
}
