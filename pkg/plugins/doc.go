// Package plugins extends nodes and the HTTP API with optional behavior.
//
// There are two capabilities:
//
//   - An [Injector] decorates each node before it is presented, typically by
//     attaching external links (monitoring dashboards, load balancer stats).
//   - A [View] answers a request under /plugins/<name> with data computed
//     from the current nodes.
//
// Plugins are compiled in and registered explicitly on a [Registry]; the
// configuration then enables a subset by name:
//
//	reg := plugins.NewRegistry(logger)
//	plugins.RegisterBuiltins(reg, cfg.Dashboard)
//	reg.Enable(cfg.Dashboard.Plugins)
//	nodes = reg.InjectAll(nodes)
//
// Injectors work on copies. A panicking injector is logged and skipped; the
// node is presented as it was before that injector ran.
package plugins
