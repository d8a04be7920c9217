package plugins

import (
	"slices"
	"strings"

	"github.com/matzehuels/kitchen/pkg/config"
	"github.com/matzehuels/kitchen/pkg/node"
)

// Built-in plugin names.
const (
	NameMonitoring     = "monitoring"
	NameMonitoringVirt = "monitoring-virt"
	NameHAProxy        = "haproxy"
	NameStats          = "stats"
)

// RegisterBuiltins registers the plugins shipped with the dashboard.
func RegisterBuiltins(r *Registry, cfg config.Dashboard) error {
	injectors := []Injector{
		Monitoring{BaseURL: cfg.MonitoringURL, Img: cfg.MonitoringImg},
		MonitoringVirt{BaseURL: cfg.MonitoringURL, Img: cfg.MonitoringImg},
		HAProxy{},
	}
	for _, p := range injectors {
		if err := r.RegisterInjector(p); err != nil {
			return err
		}
	}
	return r.RegisterView(Stats{})
}

// Monitoring links every node to its page on the monitoring server.
type Monitoring struct {
	BaseURL string
	Img     string
}

// Name implements Injector.
func (Monitoring) Name() string { return NameMonitoring }

// Inject implements Injector. Nodes without an fqdn are left alone.
func (m Monitoring) Inject(n node.Node) node.Node {
	if n.FQDN == "" {
		return n
	}
	n.Links = append(n.Links, m.link(n.FQDN))
	return n
}

func (m Monitoring) link(path ...string) node.ExternalLink {
	return node.ExternalLink{
		URL:   strings.TrimSuffix(m.BaseURL, "/") + "/" + strings.Join(path, "/"),
		Title: NameMonitoring,
		Img:   m.Img,
	}
}

// MonitoringVirt links hosts and their guests to a monitoring server that
// organizes pages as <host>/<guest>. A host's own page is <host>/<host>.
type MonitoringVirt struct {
	BaseURL string
	Img     string
}

// Name implements Injector.
func (MonitoringVirt) Name() string { return NameMonitoringVirt }

// Inject implements Injector.
func (m MonitoringVirt) Inject(n node.Node) node.Node {
	if n.FQDN == "" {
		return n
	}
	base := Monitoring(m)
	n.Links = append(n.Links, base.link(n.FQDN, n.FQDN))
	if n.Virtualization != nil {
		for i, g := range n.Virtualization.Guests {
			if g.FQDN == "" {
				continue
			}
			n.Virtualization.Guests[i].Links = append(g.Links, base.link(n.FQDN, g.FQDN))
		}
	}
	return n
}

// HAProxyRecipe marks nodes that run the application load balancer.
const HAProxyRecipe = "haproxy::app_lb"

// HAProxy links load balancers to their stats page.
type HAProxy struct{}

// Name implements Injector.
func (HAProxy) Name() string { return NameHAProxy }

// Inject implements Injector. Guests of a host are decorated as well.
func (HAProxy) Inject(n node.Node) node.Node {
	n = haproxyLink(n)
	if n.Virtualization != nil {
		for i, g := range n.Virtualization.Guests {
			n.Virtualization.Guests[i] = haproxyLink(g)
		}
	}
	return n
}

func haproxyLink(n node.Node) node.Node {
	if n.FQDN == "" || !slices.Contains(n.Recipes, HAProxyRecipe) {
		return n
	}
	n.Links = append(n.Links, node.ExternalLink{
		URL:   "http://" + n.FQDN + ":22002",
		Title: NameHAProxy,
	})
	return n
}
