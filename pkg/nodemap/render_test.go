package nodemap

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/kitchen/pkg/config"
	kerrors "github.com/matzehuels/kitchen/pkg/errors"
)

// fakeRenderer returns canned output after an optional delay.
type fakeRenderer struct {
	delay time.Duration
	err   error
	calls int
}

func (f *fakeRenderer) Name() string { return "fake" }

func (f *fakeRenderer) Render(ctx context.Context, dot, format string) ([]byte, error) {
	f.calls++
	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return []byte("<" + format + ">" + dot), nil
}

func TestRender_Classification(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		r        *fakeRenderer
		format   string
		wantCode kerrors.Code
	}{
		{"ok", &fakeRenderer{}, FormatSVG, ""},
		{"timeout", &fakeRenderer{delay: time.Second}, FormatSVG, kerrors.ErrCodeRenderTimeout},
		{"failure", &fakeRenderer{err: errors.New("syntax error in line 1")}, FormatPNG, kerrors.ErrCodeRenderFailure},
		{"bad format", &fakeRenderer{}, "pdf", kerrors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Render(ctx, tt.r, "digraph G {}", tt.format, 20*time.Millisecond)
			if got := kerrors.GetCode(err); got != tt.wantCode {
				t.Fatalf("code = %q, want %q (err %v)", got, tt.wantCode, err)
			}
			if tt.wantCode == "" && !bytes.HasPrefix(data, []byte("<svg>")) {
				t.Errorf("data = %q", data)
			}
		})
	}
}

func TestRender_TimeoutMessage(t *testing.T) {
	_, err := Render(context.Background(), &fakeRenderer{delay: time.Second}, "", FormatSVG, 10*time.Millisecond)
	if msg := kerrors.UserMessage(err); msg != "Rendering the node map timed out after 10ms" {
		t.Errorf("message = %q", msg)
	}
}

func TestRender_ParentCancelIsNotTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Render(ctx, &fakeRenderer{delay: time.Second}, "", FormatSVG, time.Minute)
	if kerrors.Is(err, kerrors.ErrCodeRenderTimeout) {
		t.Errorf("cancelled request reported as timeout: %v", err)
	}
}

func TestNewRenderer(t *testing.T) {
	r, err := NewRenderer(config.Graph{Engine: config.EngineGraphviz})
	if err != nil || r.Name() != "graphviz" {
		t.Errorf("graphviz: %v, %v", r, err)
	}
	r, err = NewRenderer(config.Graph{Engine: config.EngineDot, DotBinary: "/usr/bin/dot"})
	if err != nil || r.(CommandRenderer).Binary != "/usr/bin/dot" {
		t.Errorf("dot: %v, %v", r, err)
	}
	if _, err := NewRenderer(config.Graph{Engine: "neato"}); !kerrors.Is(err, kerrors.ErrCodeInvalidInput) {
		t.Errorf("neato: err = %v", err)
	}
}

func TestCommandRenderer_MissingBinary(t *testing.T) {
	r := CommandRenderer{Binary: "kitchen-test-no-such-dot"}
	_, err := Render(context.Background(), r, "digraph G {}", FormatSVG, time.Second)
	if !kerrors.Is(err, kerrors.ErrCodeRenderFailure) {
		t.Fatalf("err = %v, want RENDER_FAILURE", err)
	}
	if !strings.Contains(kerrors.UserMessage(err), "not found in PATH") {
		t.Errorf("message = %q", kerrors.UserMessage(err))
	}
}

func TestGraphvizRenderer_SVG(t *testing.T) {
	desc := Describe(sampleNodes(), sampleLinks(), []string{"dbserver", "webserver"}, Options{ExcludeRolePrefix: "env"})
	svg, err := Render(context.Background(), GraphvizRenderer{}, desc.DOT, FormatSVG, 30*time.Second)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !bytes.Contains(svg, []byte("<svg")) || !bytes.Contains(svg, []byte("web1")) {
		t.Errorf("output is not the expected SVG: %.200s", svg)
	}
	if !bytes.Contains(svg, []byte(`viewBox="0 0 `)) {
		t.Errorf("viewBox not normalized: %.200s", svg)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="62pt" height="116pt" viewBox="0.00 0.00 62.00 116.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := string(normalizeViewBox(in))
	if !strings.Contains(out, `viewBox="0 0 62.00 116.00" width="62" height="116"`) {
		t.Errorf("normalizeViewBox() = %s", out)
	}
	if !strings.HasSuffix(out, "<g/></svg>") {
		t.Errorf("body changed: %s", out)
	}

	plain := []byte("<svg><g/></svg>")
	if got := normalizeViewBox(plain); !bytes.Equal(got, plain) {
		t.Errorf("svg without viewBox changed: %s", got)
	}
}
