package users

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pagerduty-mcp/pagerduty-mcp-server/internal/services"
)

// ParseUser maps a raw API user object onto User. A JSON null yields the
// zero User.
func ParseUser(raw json.RawMessage) (User, error) {
	var r rawUser
	if err := json.Unmarshal(raw, &r); err != nil {
		return User{}, fmt.Errorf("failed to parse user: %w", err)
	}

	user := User{
		ID:          strings.TrimSpace(r.ID),
		Name:        r.Name,
		Email:       r.Email,
		Role:        r.Role,
		JobTitle:    r.JobTitle,
		Description: r.Description,
		TimeZone:    r.TimeZone,
		HTMLURL:     r.HTMLURL,
	}
	if user.Name == "" {
		user.Name = r.Summary
	}
	for _, t := range r.Teams {
		user.Teams = append(user.Teams, services.Reference{
			ID:      t.ID,
			Summary: t.Summary,
			HTMLURL: t.HTMLURL,
		})
	}
	return user, nil
}

// TeamIDs returns the IDs of the user's teams, trimmed, with blanks dropped
func (u User) TeamIDs() []string {
	ids := make([]string, 0, len(u.Teams))
	for _, t := range u.Teams {
		if id := strings.TrimSpace(t.ID); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
