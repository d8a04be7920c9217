package node

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Well-known values.
const (
	// EnvNone is the environment reported for nodes without chef_environment.
	EnvNone = "none"

	// VirtHost marks a physical machine running guests.
	VirtHost = "host"

	// VirtGuest marks a virtualized machine.
	VirtGuest = "guest"
)

// Attributes holds the top-level keys of a node that have no typed field,
// in source order. Values are kept as raw JSON.
type Attributes = orderedmap.OrderedMap[string, json.RawMessage]

// NewAttributes returns an empty attribute map.
func NewAttributes() *Attributes {
	return orderedmap.New[string, json.RawMessage]()
}

// ExternalLink is a link attached to a node by a plugin (monitoring, load
// balancer stats, ...). It is serialized under kitchen.data.links.
type ExternalLink struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
	Img   string `json:"img,omitempty"`
}

// Virtualization describes the virtualization facts of a node.
type Virtualization struct {
	// Role is "host", "guest", or empty when undeclared.
	Role string

	// Guests lists the guests a host declares. Entries are usually stubs
	// carrying little more than an fqdn.
	Guests []Node

	// Extra keeps the remaining keys (system, state, ...) in source order.
	Extra *Attributes
}

// Node is a managed host or guest.
//
// A nil slice means the key was absent from the source document; an empty
// non-nil slice means it was present and empty.
type Node struct {
	Name            string
	FQDN            string
	ChefEnvironment string
	Roles           []string // merged role names, e.g. "webserver_v2"
	Role            []string // raw role labels used for display
	RunList         []string
	Recipes         []string
	Tags            []string
	Virtualization  *Virtualization
	Links           []ExternalLink
	Attributes      *Attributes
}

// Env returns the node's environment, or [EnvNone] when it has none.
func (n Node) Env() string {
	if n.ChefEnvironment == "" {
		return EnvNone
	}
	return n.ChefEnvironment
}

// HasRoles reports whether the source document carried a roles key, even an
// empty one.
func (n Node) HasRoles() bool {
	return n.Roles != nil
}

// VirtRole returns the declared virtualization role, or "" when undeclared.
func (n Node) VirtRole() string {
	if n.Virtualization == nil {
		return ""
	}
	return n.Virtualization.Role
}

// Guests returns the guests declared by a host.
func (n Node) Guests() []Node {
	if n.Virtualization == nil {
		return nil
	}
	return n.Virtualization.Guests
}

// RoleGroups returns the group prefix of every entry in Roles, in order.
func (n Node) RoleGroups() []string {
	groups := make([]string, 0, len(n.Roles))
	for _, r := range n.Roles {
		groups = append(groups, Prefix(r))
	}
	return groups
}

// Attribute returns the raw value of an untyped top-level attribute.
func (n Node) Attribute(key string) (json.RawMessage, bool) {
	if n.Attributes == nil {
		return nil, false
	}
	return n.Attributes.Get(key)
}

// Clone returns a copy of n that shares no mutable state with it.
// Raw attribute values are shared; they are never modified in place.
func (n Node) Clone() Node {
	out := n
	out.Roles = slices.Clone(n.Roles)
	out.Role = slices.Clone(n.Role)
	out.RunList = slices.Clone(n.RunList)
	out.Recipes = slices.Clone(n.Recipes)
	out.Tags = slices.Clone(n.Tags)
	out.Links = slices.Clone(n.Links)
	out.Attributes = cloneAttributes(n.Attributes)
	if n.Virtualization != nil {
		v := &Virtualization{
			Role:  n.Virtualization.Role,
			Extra: cloneAttributes(n.Virtualization.Extra),
		}
		if n.Virtualization.Guests != nil {
			v.Guests = make([]Node, len(n.Virtualization.Guests))
			for i, g := range n.Virtualization.Guests {
				v.Guests[i] = g.Clone()
			}
		}
		out.Virtualization = v
	}
	return out
}

func cloneAttributes(a *Attributes) *Attributes {
	if a == nil {
		return nil
	}
	out := NewAttributes()
	for p := a.Oldest(); p != nil; p = p.Next() {
		out.Set(p.Key, p.Value)
	}
	return out
}

// Merge overlays full onto stub and returns the result. Fields set on full
// win; fields only present on stub survive. Neither argument is modified.
//
// This is how a host's lightweight guest descriptor is upgraded to the
// guest's complete record.
func Merge(stub, full Node) Node {
	out := full.Clone()
	if out.Name == "" {
		out.Name = stub.Name
	}
	if out.FQDN == "" {
		out.FQDN = stub.FQDN
	}
	if out.ChefEnvironment == "" {
		out.ChefEnvironment = stub.ChefEnvironment
	}
	if out.Roles == nil {
		out.Roles = slices.Clone(stub.Roles)
	}
	if out.Role == nil {
		out.Role = slices.Clone(stub.Role)
	}
	if out.RunList == nil {
		out.RunList = slices.Clone(stub.RunList)
	}
	if out.Recipes == nil {
		out.Recipes = slices.Clone(stub.Recipes)
	}
	if out.Tags == nil {
		out.Tags = slices.Clone(stub.Tags)
	}
	if out.Links == nil {
		out.Links = slices.Clone(stub.Links)
	}
	if out.Virtualization == nil && stub.Virtualization != nil {
		out.Virtualization = stub.Clone().Virtualization
	}
	if stub.Attributes != nil {
		if out.Attributes == nil {
			out.Attributes = NewAttributes()
		}
		for p := stub.Attributes.Oldest(); p != nil; p = p.Next() {
			if _, ok := out.Attributes.Get(p.Key); !ok {
				out.Attributes.Set(p.Key, p.Value)
			}
		}
	}
	return out
}

// LinkPoint is an attribute that declares relationships to other nodes by
// role name.
type LinkPoint struct {
	Attribute   string
	ClientRoles []string // roles of nodes that are clients of this node
	NeedsRoles  []string // roles of nodes this node depends on
}

// LinkPoints returns every object-valued attribute that declares
// client_roles or needs_roles, in attribute order. Each list is read on its
// own: a list that is not an array is ignored, and non-string entries are
// dropped from an otherwise valid list.
func (n Node) LinkPoints() []LinkPoint {
	if n.Attributes == nil {
		return nil
	}
	var points []LinkPoint
	for p := n.Attributes.Oldest(); p != nil; p = p.Next() {
		if !isObject(p.Value) {
			continue
		}
		var decl map[string]json.RawMessage
		if err := json.Unmarshal(p.Value, &decl); err != nil {
			continue
		}
		point := LinkPoint{
			Attribute:   p.Key,
			ClientRoles: stringList(decl["client_roles"]),
			NeedsRoles:  stringList(decl["needs_roles"]),
		}
		if len(point.ClientRoles) == 0 && len(point.NeedsRoles) == 0 {
			continue
		}
		points = append(points, point)
	}
	return points
}

// stringList decodes the string entries of a JSON array, skipping the rest.
func stringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	var out []string
	for _, item := range items {
		var s *string
		if err := json.Unmarshal(item, &s); err == nil && s != nil {
			out = append(out, *s)
		}
	}
	return out
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// Prefix returns the group part of a role name: everything before the first
// underscore, or the whole name when it has none.
func Prefix(role string) string {
	group, _, _ := strings.Cut(role, "_")
	return group
}

// DataBagItem returns the file name of a node's item in the "node" data bag.
// LittleChef stores node "a.b.c" as "a_b_c.json".
func DataBagItem(name string) string {
	return strings.ReplaceAll(name, ".", "_") + ".json"
}

// String implements fmt.Stringer.
func (n Node) String() string {
	return fmt.Sprintf("%s (%s)", n.Name, n.Env())
}
