// Package render defines the boundary between the job engine and the
// document renderer. The engine never looks inside a renderer: it hands over
// one document's data, waits for an artifact reference or a typed error, and
// records the outcome. Template languages, storage layout of rendered bytes,
// and delivery are all on the renderer's side of the line.
package render

import (
	"context"
	"time"
)

// ArtifactRef is an opaque handle to a rendered document.
//
// The engine stores it verbatim on the completed item; only the renderer (or
// the storage backend it writes through) knows how to dereference Location.
type ArtifactRef struct {
	// Location identifies the rendered output.
	// LocalRenderer: workspace-relative file path.
	// Remote renderers: URL or object-store key.
	Location string `json:"location"`

	// ContentType is the MIME type of the artifact (e.g., "application/pdf").
	ContentType string `json:"content_type,omitempty"`

	// Size is the artifact size in bytes, if known.
	Size int64 `json:"size,omitempty"`
}

// Request carries one document's identifying data into a render call.
//
// Fields mirror the job item but are plain strings/numbers so renderer
// implementations do not depend on the engine's types.
type Request struct {
	// JobID and ItemID identify the work unit for tracing and artifact naming.
	JobID  string
	ItemID string

	// TemplateID selects the document template. Interpretation is
	// renderer-specific.
	TemplateID string

	// DocumentType is the business document kind ("invoice", "quote",
	// "receipt", "statement").
	DocumentType string

	// DocumentNumber is the human-readable reference printed on the document.
	DocumentNumber string

	// Amount and Currency are informational fields carried onto the document.
	Amount   float64
	Currency string

	// OutputFormat is the job-level output mode ("single_archive",
	// "individual_files"). Renderers may use it to choose artifact naming.
	OutputFormat string
}

// Renderer turns one document's data into a rendered artifact.
//
// The engine invokes Render at most once per item per job. Implementations
// should honor ctx cancellation; the engine cancels the context when the job
// is cancelled and discards any result that arrives afterwards, so a renderer
// that ignores ctx wastes work but cannot corrupt job state.
type Renderer interface {
	Render(ctx context.Context, req Request) (ArtifactRef, error)
}

// Func adapts a plain function to the Renderer interface. Used heavily in
// tests and for small in-process renderers.
type Func func(ctx context.Context, req Request) (ArtifactRef, error)

// Render implements Renderer.
func (f Func) Render(ctx context.Context, req Request) (ArtifactRef, error) {
	return f(ctx, req)
}

// Sleeper wraps a renderer with a fixed artificial delay. It exists for demo
// manifests and load tests; production renderers take however long they take.
func Sleeper(next Renderer, delay time.Duration) Renderer {
	return Func(func(ctx context.Context, req Request) (ArtifactRef, error) {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ArtifactRef{}, ctx.Err()
		}
		return next.Render(ctx, req)
	})
}
