package roles

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/withmystar/chatrelay/agent"
)

func TestResolveRole(t *testing.T) {
	p := Default()
	tests := []struct {
		caller string
		want   Role
	}{
		{"127.0.0.1", Admin},
		{"::1", Admin},
		{"frontend", Admin},
		{"10.0.0.7", Dev},
		{"", Dev},
	}
	for _, tt := range tests {
		if got := p.ResolveRole(tt.caller); got != tt.want {
			t.Errorf("ResolveRole(%q) = %q, want %q", tt.caller, got, tt.want)
		}
	}
}

func TestAuthorize(t *testing.T) {
	p := Default()
	tests := []struct {
		name string
		role Role
		typ  agent.Type
		want bool
	}{
		{"absent type always allowed", Auditor, agent.General, true},
		{"admin compliance", Admin, agent.Compliance, true},
		{"dev debug", Dev, agent.Debug, true},
		{"dev resource", Dev, agent.Resource, true},
		{"dev compliance denied", Dev, agent.Compliance, false},
		{"auditor debug denied", Auditor, agent.Debug, false},
		{"unknown type denied", Admin, agent.Type("weather"), false},
		{"unknown role denied", Role("guest"), agent.Debug, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Authorize(tt.role, tt.typ); got != tt.want {
				t.Errorf("Authorize(%q, %q) = %v, want %v", tt.role, tt.typ, got, tt.want)
			}
		})
	}
}

func TestPermittedReturnsCopy(t *testing.T) {
	p := Default()
	got := p.Permitted(Dev)
	got[0] = agent.Compliance
	if p.Authorize(Dev, agent.Compliance) {
		t.Fatal("mutating Permitted result changed the policy")
	}
}

func TestLoadPolicy_EmptyPath(t *testing.T) {
	p, err := LoadPolicy("")
	if err != nil {
		t.Fatalf("LoadPolicy(\"\"): %v", err)
	}
	if p.ResolveRole("127.0.0.1") != Admin {
		t.Error("expected built-in tables")
	}
}

func TestLoadPolicy_MissingFile(t *testing.T) {
	p, err := LoadPolicy(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadPolicy(missing): %v", err)
	}
	if p.ResolveRole("anyone") != Dev {
		t.Error("expected default role dev")
	}
}

func TestLoadPolicy_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	content := []byte(`
default_role: auditor
callers:
  10.1.2.3: admin
  192.168.0.9: dev
roles:
  admin: [debug, compliance, resource]
  dev: [debug]
  auditor: [compliance]
`)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}
	p, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("LoadPolicy: %v", err)
	}
	if got := p.ResolveRole("10.1.2.3"); got != Admin {
		t.Errorf("10.1.2.3 => %q, want admin", got)
	}
	if got := p.ResolveRole("127.0.0.1"); got != Auditor {
		t.Errorf("127.0.0.1 => %q, want auditor (callers table replaced)", got)
	}
	if p.Authorize(Dev, agent.Resource) {
		t.Error("dev should no longer use resource")
	}
}

func TestLoadPolicy_UnknownRole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	if err := os.WriteFile(path, []byte("callers:\n  1.2.3.4: root\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPolicy(path); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestLoadPolicy_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	if err := os.WriteFile(path, []byte("roles: [::"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPolicy(path); err == nil {
		t.Fatal("expected unmarshal error")
	}
}
