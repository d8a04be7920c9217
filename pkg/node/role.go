package node

import (
	"encoding/json"
	"strings"
)

// Role is a named bundle of configuration applied to nodes.
type Role struct {
	Name               string          `json:"name"`
	Description        string          `json:"description,omitempty"`
	RunList            []string        `json:"run_list"`
	DefaultAttributes  json.RawMessage `json:"default_attributes,omitempty"`
	OverrideAttributes json.RawMessage `json:"override_attributes,omitempty"`
}

// Group returns the role's group prefix (see [Prefix]).
func (r Role) Group() string {
	return Prefix(r.Name)
}

// DecodeRole parses a role document.
func DecodeRole(data []byte) (Role, error) {
	var r Role
	if err := json.Unmarshal(data, &r); err != nil {
		return Role{}, err
	}
	return r, nil
}

// RoleList returns the roles referenced by a run list ("role[name]"
// entries), skipping those that start with excludePrefix. An empty
// excludePrefix keeps every role.
func RoleList(runList []string, excludePrefix string) []string {
	var roles []string
	for _, entry := range runList {
		role, ok := unwrap(entry, "role[")
		if !ok {
			continue
		}
		if excludePrefix != "" && strings.HasPrefix(role, excludePrefix) {
			continue
		}
		roles = append(roles, role)
	}
	return roles
}

// RecipeList returns the recipes referenced by a run list ("recipe[name]"
// entries).
func RecipeList(runList []string) []string {
	var recipes []string
	for _, entry := range runList {
		if recipe, ok := unwrap(entry, "recipe["); ok {
			recipes = append(recipes, recipe)
		}
	}
	return recipes
}

func unwrap(entry, prefix string) (string, bool) {
	_, rest, found := strings.Cut(entry, prefix)
	if !found {
		return "", false
	}
	return strings.TrimSuffix(rest, "]"), true
}
