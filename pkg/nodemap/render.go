package nodemap

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"time"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/kitchen/pkg/config"
	"github.com/matzehuels/kitchen/pkg/errors"
	"github.com/matzehuels/kitchen/pkg/observability"
)

// Output formats.
const (
	FormatSVG = "svg"
	FormatPNG = "png"
)

// Renderer turns DOT source into an image.
//
// Implementations must return promptly once ctx is done. Use [Render] to get
// the deadline and error classification applied consistently.
type Renderer interface {
	Name() string
	Render(ctx context.Context, dot, format string) ([]byte, error)
}

// NewRenderer returns the renderer for a configured engine.
func NewRenderer(cfg config.Graph) (Renderer, error) {
	switch cfg.Engine {
	case config.EngineGraphviz, "":
		return GraphvizRenderer{}, nil
	case config.EngineDot:
		return CommandRenderer{Binary: cfg.DotBinary}, nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown graph engine %q", cfg.Engine)
	}
}

// Render runs r with the given timeout and classifies the outcome: a missed
// deadline is RENDER_TIMEOUT, anything else RENDER_FAILURE.
func Render(ctx context.Context, r Renderer, dot, format string, timeout time.Duration) ([]byte, error) {
	if format != FormatSVG && format != FormatPNG {
		return nil, errors.New(errors.ErrCodeInvalidInput, "unsupported image format %q", format)
	}

	hooks := observability.Render()
	hooks.OnRenderStart(ctx, r.Name(), format)
	start := time.Now()

	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	data, err := r.Render(rctx, dot, format)
	if err != nil {
		if rctx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			err = errors.Wrap(errors.ErrCodeRenderTimeout, err, "Rendering the node map timed out after %s", timeout)
		} else if errors.GetCode(err) == "" {
			err = errors.Wrap(errors.ErrCodeRenderFailure, err, "Could not render the node map")
		}
	}

	hooks.OnRenderComplete(ctx, r.Name(), format, time.Since(start), err)
	return data, err
}

// ===== In-process =====

// GraphvizRenderer renders with the Graphviz library compiled into the
// binary. PNG output is converted from SVG with rsvg-convert.
type GraphvizRenderer struct{}

// Name implements Renderer.
func (GraphvizRenderer) Name() string { return config.EngineGraphviz }

// Render implements Renderer. The library call cannot be interrupted, so it
// runs in its own goroutine and is abandoned when ctx ends first.
func (GraphvizRenderer) Render(ctx context.Context, dot, format string) ([]byte, error) {
	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		svg, err := renderSVG(ctx, dot)
		done <- result{svg, err}
	}()

	var svg []byte
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		svg = r.data
	}

	if format == FormatPNG {
		return ToPNG(ctx, svg, 1.0)
	}
	return svg, nil
}

func renderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces the root element with one that has a zero-origin
// viewBox and pixel size, so the map scales cleanly inside the page.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}

// ===== External process =====

// CommandRenderer runs the Graphviz dot binary.
type CommandRenderer struct {
	Binary string // default "dot"
}

// Name implements Renderer.
func (CommandRenderer) Name() string { return config.EngineDot }

// Render implements Renderer. The process is killed when ctx ends.
func (r CommandRenderer) Render(ctx context.Context, dot, format string) ([]byte, error) {
	bin := r.Binary
	if bin == "" {
		bin = "dot"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRenderFailure, err,
			"Graphviz is not installed: %q not found in PATH", bin)
	}

	cmd := exec.CommandContext(ctx, path, "-T"+format)
	cmd.Stdin = bytes.NewReader([]byte(dot))

	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s: %v: %s", bin, err, bytes.TrimSpace(errBuf.Bytes()))
	}
	return out.Bytes(), nil
}
