// Package nodemap draws the node map: a Graphviz digraph of nodes and the
// client/needs links between them.
//
// Drawing happens in two steps. [Describe] turns nodes, their links and the
// known role groups into DOT source; it is pure and never fails. A
// [Renderer] then turns DOT into SVG or PNG, either in-process
// ([GraphvizRenderer], goccy/go-graphviz) or through the dot binary
// ([CommandRenderer]). Rendering is the one step that can block, so it always
// runs under a deadline and reports RENDER_TIMEOUT separately from
// RENDER_FAILURE.
//
// [Mapper] ties both steps together with the artifact cache and writes the
// result where the dashboard serves it from.
package nodemap
