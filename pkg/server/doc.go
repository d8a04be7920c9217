// Package server exposes the dashboard over HTTP.
//
// All views are served as JSON:
//
//	GET /                         node list (env, roles, virt)
//	GET /virt/                    hosts with their guests (env, roles)
//	GET /graph/                   node map view; publishes the image (env, roles, format)
//	GET /graph/node_map.{format}  the node map image itself
//	GET /api/nodes                node files (?extended=1 for data bag records)
//	GET /api/nodes/{name}         one extended node
//	GET /api/roles                roles
//	GET /plugins/{name}           an enabled plugin view
//	GET /static/*                 published files
//	GET /metrics                  Prometheus metrics, when configured
//	GET /healthz                  liveness and snapshot freshness
//
// An absent env or virt parameter takes the configured default; an empty one
// disables that filter.
//
// Errors are JSON objects carrying the error code and a message that can be
// shown to users. The status follows the code: REPOSITORY_UNAVAILABLE is 503,
// NOT_FOUND 404, INVALID_INPUT 400, RENDER_TIMEOUT 504, RENDER_FAILURE 502 and
// anything else 500.
package server
