// Package roles maps callers to roles and roles to the agents they may use.
package roles

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/withmystar/chatrelay/agent"
)

type Role string

const (
	Admin   Role = "admin"
	Dev     Role = "dev"
	Auditor Role = "auditor"
)

// Policy is immutable once built; share it freely between requests.
type Policy struct {
	callers     map[string]Role
	permissions map[Role][]agent.Type
	defaultRole Role
}

// Default returns the built-in tables: loopback and the "frontend" caller are
// admins, everyone else is a dev.
func Default() *Policy {
	return &Policy{
		callers: map[string]Role{
			"127.0.0.1":        Admin,
			"::1":              Admin,
			"::ffff:127.0.0.1": Admin,
			"frontend":         Admin,
		},
		permissions: map[Role][]agent.Type{
			Admin:   {agent.Debug, agent.Compliance, agent.Resource},
			Dev:     {agent.Debug, agent.Resource},
			Auditor: {agent.Compliance},
		},
		defaultRole: Dev,
	}
}

// ResolveRole looks up the caller, falling back to the default role.
func (p *Policy) ResolveRole(callerID string) Role {
	if r, ok := p.callers[callerID]; ok {
		return r
	}
	return p.defaultRole
}

// Authorize reports whether role may invoke t. The absent agent type is
// always allowed.
func (p *Policy) Authorize(role Role, t agent.Type) bool {
	if t == agent.General {
		return true
	}
	return slices.Contains(p.permissions[role], t)
}

// Permitted returns a copy of the agent types role may use.
func (p *Policy) Permitted(role Role) []agent.Type {
	return slices.Clone(p.permissions[role])
}

// File is the on-disk YAML layout. Sections that are omitted keep the
// built-in values.
type File struct {
	DefaultRole string              `yaml:"default_role,omitempty"`
	Callers     map[string]string   `yaml:"callers,omitempty"`
	Roles       map[string][]string `yaml:"roles,omitempty"`
}

// LoadPolicy builds a Policy from the YAML file at path. An empty path or a
// missing file yields Default().
func LoadPolicy(path string) (*Policy, error) {
	p := Default()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return nil, fmt.Errorf("roles policy read: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("roles policy unmarshal: %w", err)
	}

	if len(f.Roles) > 0 {
		p.permissions = make(map[Role][]agent.Type, len(f.Roles))
		for role, types := range f.Roles {
			list := make([]agent.Type, 0, len(types))
			for _, t := range types {
				list = append(list, agent.Normalize(t))
			}
			p.permissions[Role(role)] = list
		}
	}
	if len(f.Callers) > 0 {
		p.callers = make(map[string]Role, len(f.Callers))
		for caller, role := range f.Callers {
			if _, ok := p.permissions[Role(role)]; !ok {
				return nil, fmt.Errorf("roles policy: caller %q has unknown role %q", caller, role)
			}
			p.callers[caller] = Role(role)
		}
	}
	if f.DefaultRole != "" {
		if _, ok := p.permissions[Role(f.DefaultRole)]; !ok {
			return nil, fmt.Errorf("roles policy: unknown default role %q", f.DefaultRole)
		}
		p.defaultRole = Role(f.DefaultRole)
	}
	return p, nil
}
