package render

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/docugen/docugen/pkg/storage"
)

// LocalRenderer is the bundled renderer: it lays out one document as plain
// text and writes it through the storage backend's artifact store. It stands
// behind the Renderer interface where a real template/PDF engine would go —
// the job engine is indifferent to which one it talks to.
type LocalRenderer struct {
	backend storage.Backend
}

// NewLocalRenderer creates a renderer that writes artifacts through the
// given backend.
func NewLocalRenderer(backend storage.Backend) *LocalRenderer {
	return &LocalRenderer{backend: backend}
}

// Render implements Renderer.
func (r *LocalRenderer) Render(ctx context.Context, req Request) (ArtifactRef, error) {
	if err := ctx.Err(); err != nil {
		return ArtifactRef{}, err
	}
	if req.DocumentNumber == "" {
		return ArtifactRef{}, NewError(KindData, "document number is required")
	}

	body := r.layout(req)
	name := artifactName(req)

	location, err := r.backend.Jobs().WriteArtifact(ctx, req.JobID, name, strings.NewReader(body))
	if err != nil {
		return ArtifactRef{}, WrapError(KindIO, "write artifact", err)
	}

	return ArtifactRef{
		Location:    location,
		ContentType: "text/plain; charset=utf-8",
		Size:        int64(len(body)),
	}, nil
}

// layout produces the document body. Deliberately simple: one header block
// per document, stable field order so repeated renders are byte-identical.
func (r *LocalRenderer) layout(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", strings.ToUpper(req.DocumentType), req.DocumentNumber)
	fmt.Fprintf(&b, "template: %s\n", req.TemplateID)
	fmt.Fprintf(&b, "amount: %.2f %s\n", req.Amount, req.Currency)
	fmt.Fprintf(&b, "generated: %s\n", time.Now().UTC().Format(time.RFC3339))
	return b.String()
}

// artifactName derives a filesystem-safe artifact file name from the
// document reference, falling back to the item ID.
func artifactName(req Request) string {
	base := req.DocumentNumber
	if base == "" {
		base = req.ItemID
	}
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String() + ".txt"
}
