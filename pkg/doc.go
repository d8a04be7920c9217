// Package pkg provides the libraries behind the Kitchen dashboard.
//
// # Overview
//
// Kitchen reads a LittleChef kitchen (node files, role files and the "node"
// data bag) and presents it as a filterable node list, a host/guest view and
// a node map showing how nodes depend on each other. The pkg directory is
// organized in layers:
//
//  1. [node], [inventory] - Domain model and the pure query engine
//  2. [store], [reposync] - Reading the kitchen and keeping it in sync
//  3. [nodemap], [plugins] - Node map rendering and node decorations
//  4. [dashboard], [server] - View orchestration and the HTTP API
//  5. [config], [cache], [errors], [observability], [buildinfo] - Shared infrastructure
//
// # Architecture
//
// The typical data flow of a request:
//
//	kitchen files on disk (synced from git by [reposync])
//	         ↓
//	    [store] package (load + snapshot, invalidated on change)
//	         ↓
//	    [inventory] package (filter, group by host, derive links)
//	         ↓
//	    [plugins] package (attach monitoring and load balancer links)
//	         ↓
//	    [dashboard] package (view data, node map via [nodemap])
//	         ↓
//	    JSON / SVG / PNG over [server], or tables in the CLI
//
// # Quick Start
//
// List the production guests of a kitchen:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/kitchen/pkg/inventory"
//	    "github.com/matzehuels/kitchen/pkg/store"
//	)
//
//	k := store.NewKitchen("dashboard/testrepo", nil)
//	snaps := store.NewSnapshots(k, nil)
//	snap, _ := snaps.Snapshot(context.Background())
//	guests := inventory.Filter(snap.Extended, "production", "", "guest")
//
// Render the node map of those guests:
//
//	mapper := nodemap.NewMapper(nodemap.GraphvizRenderer{}, nil, nil, nil)
//	art, _ := mapper.Render(ctx, guests, snap.Roles, nodemap.FormatSVG)
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/inventory/...          # Specific package
//	go test -run Example                 # Examples only
//
// [node]: https://pkg.go.dev/github.com/matzehuels/kitchen/pkg/node
// [inventory]: https://pkg.go.dev/github.com/matzehuels/kitchen/pkg/inventory
// [store]: https://pkg.go.dev/github.com/matzehuels/kitchen/pkg/store
// [reposync]: https://pkg.go.dev/github.com/matzehuels/kitchen/pkg/reposync
// [nodemap]: https://pkg.go.dev/github.com/matzehuels/kitchen/pkg/nodemap
// [plugins]: https://pkg.go.dev/github.com/matzehuels/kitchen/pkg/plugins
// [dashboard]: https://pkg.go.dev/github.com/matzehuels/kitchen/pkg/dashboard
// [server]: https://pkg.go.dev/github.com/matzehuels/kitchen/pkg/server
// [config]: https://pkg.go.dev/github.com/matzehuels/kitchen/pkg/config
// [cache]: https://pkg.go.dev/github.com/matzehuels/kitchen/pkg/cache
// [errors]: https://pkg.go.dev/github.com/matzehuels/kitchen/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/kitchen/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/kitchen/pkg/buildinfo
package pkg
