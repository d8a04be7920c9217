// Package dashboard assembles the data behind each dashboard view.
//
// A [Dashboard] ties together the kitchen snapshot, the plugin registry and
// the node map renderer. Each view runs the same pass over one snapshot:
//
//  1. aggregate environments, role groups and tags over all nodes
//  2. filter the nodes by the request's [Query]
//  3. group by host (virt view) or derive links and render (graph view)
//  4. let enabled plugins decorate the result
//
// Both the HTTP server and the CLI use a Dashboard, so views behave the same
// on either surface.
package dashboard
