package dashboard

import (
	"net/url"
	"strings"

	"github.com/matzehuels/kitchen/pkg/config"
	"github.com/matzehuels/kitchen/pkg/errors"
	"github.com/matzehuels/kitchen/pkg/inventory"
	"github.com/matzehuels/kitchen/pkg/node"
)

// Query holds the filter a view was asked for. Roles and Virt are
// comma-separated lists.
type Query struct {
	Env   string `json:"env"`
	Roles string `json:"roles"`
	Virt  string `json:"virt"`
}

// ParseQuery reads env, roles and virt from request parameters. A parameter
// that is absent takes its default from repo; one that is present but empty
// means "no filter".
func ParseQuery(v url.Values, repo config.Repo) Query {
	q := Query{
		Env:   strings.TrimSpace(v.Get("env")),
		Roles: v.Get("roles"),
		Virt:  v.Get("virt"),
	}
	if !v.Has("env") {
		q.Env = repo.DefaultEnv
	}
	if !v.Has("virt") {
		q.Virt = repo.DefaultVirt
	}
	return q
}

// Values encodes q as request parameters. Empty fields are kept so a
// round trip through ParseQuery does not bring defaults back.
func (q Query) Values() url.Values {
	return url.Values{
		"env":   {q.Env},
		"roles": {q.Roles},
		"virt":  {q.Virt},
	}
}

// Validate rejects virtualization roles other than host and guest.
func (q Query) Validate() error {
	return errors.ValidateVirtRoles(q.Virt)
}

// Criteria converts q for the inventory filter.
func (q Query) Criteria() inventory.Criteria {
	return inventory.ParseCriteria(q.Env, q.Roles, q.Virt)
}

// forGraph returns q restricted to guests, which is what the node map shows.
func (q Query) forGraph() Query {
	q.Virt = node.VirtGuest
	return q
}
