package tools

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/pagerduty-mcp/pagerduty-mcp-server/internal/base"
	"github.com/pagerduty-mcp/pagerduty-mcp-server/internal/config"
	apierrors "github.com/pagerduty-mcp/pagerduty-mcp-server/internal/errors"
	"github.com/pagerduty-mcp/pagerduty-mcp-server/internal/services"
	"github.com/pagerduty-mcp/pagerduty-mcp-server/internal/users"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestRegistry wires a registry to a fake PagerDuty API
func newTestRegistry(t *testing.T, handler http.HandlerFunc) *HandlerRegistry {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.APIKey = "test-key"
	cfg.RateLimit = 1000
	b := base.NewClient(cfg, base.WithBaseURL(server.URL), base.WithLogger(testLogger()))
	svc := services.NewClient(b)
	return NewHandlerRegistry(svc, users.NewClient(b, svc), testLogger())
}

// fakePagerDuty serves /users/me with the given teams and /services per team
func fakePagerDuty(t *testing.T, teams string, seen *[]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			*seen = append(*seen, r.URL.Path+"?"+r.URL.RawQuery)
		}
		switch r.URL.Path {
		case "/users/me":
			_, _ = w.Write([]byte(`{"user": {"id": "PU1", "name": "Ada", "teams": ` + teams + `}}`))
		case "/services":
			_, _ = w.Write([]byte(`{"services": [{"id": "S1", "name": "Checkout"}], "more": false}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func TestNewHandlerRegistry(t *testing.T) {
	logger := testLogger()
	b := base.NewClient(nil)
	svc := services.NewClient(b)
	usr := users.NewClient(b, svc)

	registry := NewHandlerRegistry(svc, usr, logger)

	if registry.servicesClient != svc {
		t.Error("Registry should hold the services client reference")
	}
	if registry.usersClient != usr {
		t.Error("Registry should hold the users client reference")
	}
	if registry.logger != logger {
		t.Error("Registry should hold the logger reference")
	}
}

func TestBuildTool(t *testing.T) {
	registry := NewHandlerRegistry(nil, nil, testLogger())

	tests := []struct {
		name      string
		spec      ToolSpec
		wantRO    bool
		wantIdem  bool
		wantDestr bool
		wantOpen  bool
	}{
		{
			name: "read-only tool",
			spec: ToolSpec{
				Name:        "pagerduty_show_service",
				Title:       "Show PagerDuty Service",
				Description: "Get a service by ID",
				Method:      "ShowService",
				Resource:    "services",
				ReadOnly:    true,
				Idempotent:  true,
			},
			wantRO:   true,
			wantIdem: true,
		},
		{
			name: "destructive open world tool",
			spec: ToolSpec{
				Name:        "pagerduty_delete_service",
				Description: "Delete a service",
				Destructive: true,
				OpenWorld:   true,
			},
			wantDestr: true,
			wantOpen:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tool := registry.buildTool(tt.spec)

			if tool.Name != tt.spec.Name {
				t.Errorf("Name = %q, want %q", tool.Name, tt.spec.Name)
			}
			if tool.Description != tt.spec.Description {
				t.Errorf("Description = %q, want %q", tool.Description, tt.spec.Description)
			}
			if tool.Annotations == nil {
				t.Fatal("Expected annotations")
			}
			if tool.Annotations.ReadOnlyHint != tt.wantRO {
				t.Errorf("ReadOnlyHint = %v, want %v", tool.Annotations.ReadOnlyHint, tt.wantRO)
			}
			if tool.Annotations.IdempotentHint != tt.wantIdem {
				t.Errorf("IdempotentHint = %v, want %v", tool.Annotations.IdempotentHint, tt.wantIdem)
			}
			if tt.wantDestr != (tool.Annotations.DestructiveHint != nil && *tool.Annotations.DestructiveHint) {
				t.Errorf("DestructiveHint = %v, want %v", tool.Annotations.DestructiveHint, tt.wantDestr)
			}
			if tt.wantOpen != (tool.Annotations.OpenWorldHint != nil && *tool.Annotations.OpenWorldHint) {
				t.Errorf("OpenWorldHint = %v, want %v", tool.Annotations.OpenWorldHint, tt.wantOpen)
			}
		})
	}
}

func TestListServices_CurrentUserContext(t *testing.T) {
	var seen []string
	registry := newTestRegistry(t, fakePagerDuty(t, `[{"id": "T1"}, {"id": "T2"}]`, &seen))

	result, err := registry.ListServices(context.Background(), services.ListServicesArgs{Query: "check"})
	if err != nil {
		t.Fatalf("ListServices failed: %v", err)
	}
	if len(result.Services) != 1 || result.Services[0].ID != "S1" {
		t.Errorf("Services = %+v", result.Services)
	}

	// user context, its service lookup, then the filtered listing
	if len(seen) != 3 {
		t.Fatalf("requests = %v", seen)
	}
	last := seen[len(seen)-1]
	for _, want := range []string{"team_ids%5B%5D=T1", "team_ids%5B%5D=T2", "query=check"} {
		if !strings.Contains(last, want) {
			t.Errorf("listing request %q missing %q", last, want)
		}
	}
}

func TestListServices_ArgumentRules(t *testing.T) {
	yes, no := true, false
	tests := []struct {
		name    string
		args    services.ListServicesArgs
		teams   string
		wantErr string
	}{
		{
			name:    "team_ids with implicit current user",
			args:    services.ListServicesArgs{TeamIDs: []string{"T1"}},
			wantErr: "cannot specify team_ids when current_user_context is true",
		},
		{
			name:    "team_ids with explicit current user",
			args:    services.ListServicesArgs{CurrentUserContext: &yes, TeamIDs: []string{}},
			wantErr: "cannot specify team_ids when current_user_context is true",
		},
		{
			name:    "no context and no teams",
			args:    services.ListServicesArgs{CurrentUserContext: &no},
			wantErr: "must specify at least one team ID when current_user_context is false",
		},
		{
			name:    "current user without teams",
			args:    services.ListServicesArgs{},
			teams:   `[]`,
			wantErr: "current user belongs to no teams; set current_user_context to false and pass team_ids",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen []string
			teams := tt.teams
			if teams == "" {
				teams = `[{"id": "T1"}]`
			}
			registry := newTestRegistry(t, fakePagerDuty(t, teams, &seen))

			_, err := registry.ListServices(context.Background(), tt.args)
			if !apierrors.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if err.Error() != tt.wantErr {
				t.Errorf("error = %q, want %q", err.Error(), tt.wantErr)
			}
			for _, req := range seen {
				if strings.HasPrefix(req, "/services") {
					t.Errorf("no listing should be made, saw %s", req)
				}
			}
		})
	}
}

func TestListServices_ExplicitTeams(t *testing.T) {
	no := false
	var seen []string
	registry := newTestRegistry(t, fakePagerDuty(t, `[]`, &seen))

	_, err := registry.ListServices(context.Background(), services.ListServicesArgs{
		CurrentUserContext: &no,
		TeamIDs:            []string{"T7"},
	})
	if err != nil {
		t.Fatalf("ListServices failed: %v", err)
	}
	if len(seen) != 1 || !strings.Contains(seen[0], "team_ids%5B%5D=T7") {
		t.Errorf("requests = %v, want a single listing for T7", seen)
	}
}

func TestInvoke_WrapsErrors(t *testing.T) {
	registry := NewHandlerRegistry(nil, nil, testLogger())
	spec := ToolSpec{Name: "pagerduty_show_service"}
	cause := apierrors.NewValidationError("service_id", "service_id cannot be empty")

	_, _, err := invoke(context.Background(), registry, spec, services.ShowServiceArgs{},
		func(context.Context) (services.ShowServiceResult, error) {
			return services.ShowServiceResult{}, cause
		})

	if err == nil || err.Error() != "pagerduty_show_service failed: service_id cannot be empty" {
		t.Errorf("err = %v", err)
	}
	if !errors.Is(err, cause) {
		t.Error("tool error should wrap the cause")
	}
}

func TestInvoke_RecoversPanic(t *testing.T) {
	registry := NewHandlerRegistry(nil, nil, testLogger())
	spec := ToolSpec{Name: "pagerduty_build_user_context"}

	_, _, err := invoke(context.Background(), registry, spec, users.BuildUserContextArgs{},
		func(context.Context) (users.UserContext, error) {
			panic("test panic")
		})

	if err == nil || !strings.Contains(err.Error(), "internal error") {
		t.Errorf("expected internal error after panic, got %v", err)
	}
}

func TestInvoke_Success(t *testing.T) {
	registry := NewHandlerRegistry(nil, nil, testLogger())
	spec := ToolSpec{Name: "pagerduty_build_user_context", Resource: "users"}
	want := users.UserContext{UserID: "PU1", TeamIDs: []string{}, ServiceIDs: []string{}}

	res, got, err := invoke(context.Background(), registry, spec, users.BuildUserContextArgs{},
		func(context.Context) (users.UserContext, error) {
			return want, nil
		})

	if err != nil {
		t.Fatalf("invoke failed: %v", err)
	}
	if res != nil {
		t.Error("CallToolResult should be left to the SDK")
	}
	if got.UserID != "PU1" {
		t.Errorf("result = %+v", got)
	}
}

func TestRegisterAll(t *testing.T) {
	registry := newTestRegistry(t, fakePagerDuty(t, `[]`, nil))
	server := mcp.NewServer(&mcp.Implementation{Name: "test", Version: "0.0.0"}, nil)

	for _, spec := range AllTools {
		if !registry.registerByName(server, spec) {
			t.Errorf("tool %s was not registered", spec.Name)
		}
	}
	if registry.registerByName(server, ToolSpec{Name: "bogus", Method: "Bogus"}) {
		t.Error("unknown method should not register")
	}
}

func TestLogExecution(t *testing.T) {
	registry := NewHandlerRegistry(nil, nil, testLogger())
	spec := ToolSpec{Name: "test_tool", Resource: "services"}

	registry.logExecution(spec, "call-1",
		services.ListServicesArgs{Query: "api"},
		services.ListServicesResult{Services: []services.Service{{ID: "S1"}}})
	registry.logExecution(spec, "call-2",
		services.ShowServiceArgs{ServiceID: "S1"},
		services.ShowServiceResult{})
	registry.logExecution(spec, "call-3",
		users.BuildUserContextArgs{},
		users.UserContext{UserID: "PU1"})
	registry.logExecution(spec, "call-4",
		users.ShowCurrentUserArgs{},
		users.User{ID: "PU1"})
}

func TestAllToolsNotEmpty(t *testing.T) {
	if len(AllTools) == 0 {
		t.Error("AllTools should not be empty")
	}

	// Verify each tool has required fields
	for i, spec := range AllTools {
		if spec.Name == "" {
			t.Errorf("Tool %d has empty Name", i)
		}
		if !strings.HasPrefix(spec.Name, "pagerduty_") {
			t.Errorf("Tool %s should be prefixed with pagerduty_", spec.Name)
		}
		if spec.Method == "" {
			t.Errorf("Tool %s has empty Method", spec.Name)
		}
		if spec.Description == "" {
			t.Errorf("Tool %s has empty Description", spec.Name)
		}
		if spec.Resource == "" {
			t.Errorf("Tool %s has empty Resource", spec.Name)
		}
		if !spec.ReadOnly || spec.Destructive {
			t.Errorf("Tool %s must be read-only", spec.Name)
		}
	}
}

func TestToolsByResource(t *testing.T) {
	serviceTools := ToolsByResource("services")
	if len(serviceTools) != 2 {
		t.Errorf("Expected 2 service tools, got %d", len(serviceTools))
	}
	for _, tool := range serviceTools {
		if tool.Resource != "services" {
			t.Errorf("Tool %s has resource %s, expected services", tool.Name, tool.Resource)
		}
	}

	if len(ToolsByResource("incidents")) != 0 {
		t.Error("Expected no incident tools")
	}
}

func TestToolsByCategory(t *testing.T) {
	listTools := ToolsByCategory("list")
	if len(listTools) != 1 || listTools[0].Name != "pagerduty_list_services" {
		t.Errorf("list tools = %+v", listTools)
	}

	userTools := ToolsByResource("users")
	if len(userTools) != 2 {
		t.Errorf("Expected 2 user tools, got %+v", userTools)
	}
}
