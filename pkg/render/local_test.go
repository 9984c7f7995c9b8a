package render

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/docugen/docugen/pkg/storage"
)

func testBackend(t *testing.T) storage.Backend {
	t.Helper()
	ctx := context.Background()
	backend, err := storage.NewBackend(ctx, &storage.Config{WorkspaceRoot: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, backend.Initialize(ctx))
	t.Cleanup(func() { _ = backend.Close() })
	return backend
}

func invoiceRequest() Request {
	return Request{
		JobID:          "job-1",
		ItemID:         "item-1",
		TemplateID:     "invoice-a4",
		DocumentType:   "invoice",
		DocumentNumber: "INV-1042",
		Amount:         1299.5,
		Currency:       "EUR",
		OutputFormat:   "individual_files",
	}
}

func TestLocalRenderer_Render(t *testing.T) {
	backend := testBackend(t)
	renderer := NewLocalRenderer(backend)
	ctx := context.Background()

	ref, err := renderer.Render(ctx, invoiceRequest())
	require.NoError(t, err)
	require.NotEmpty(t, ref.Location)
	require.Equal(t, "text/plain; charset=utf-8", ref.ContentType)
	require.Greater(t, ref.Size, int64(0))

	rc, err := backend.Jobs().OpenArtifact(ctx, "job-1", "INV-1042.txt")
	require.NoError(t, err)
	defer rc.Close()

	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, int64(len(body)), ref.Size)
	require.Contains(t, string(body), "INVOICE INV-1042")
	require.Contains(t, string(body), "template: invoice-a4")
	require.Contains(t, string(body), "amount: 1299.50 EUR")
}

func TestLocalRenderer_MissingDocumentNumber(t *testing.T) {
	renderer := NewLocalRenderer(testBackend(t))

	req := invoiceRequest()
	req.DocumentNumber = ""
	_, err := renderer.Render(context.Background(), req)
	require.Error(t, err)
	require.Equal(t, KindData, Classify(err))
}

func TestLocalRenderer_CancelledContext(t *testing.T) {
	renderer := NewLocalRenderer(testBackend(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := renderer.Render(ctx, invoiceRequest())
	require.ErrorIs(t, err, context.Canceled)
}

func TestArtifactName(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{"plain", Request{DocumentNumber: "INV-1042"}, "INV-1042.txt"},
		{"path characters replaced", Request{DocumentNumber: "INV/2026/001"}, "INV-2026-001.txt"},
		{"spaces replaced", Request{DocumentNumber: "Q3 recap"}, "Q3-recap.txt"},
		{"falls back to item id", Request{ItemID: "item-7"}, "item-7.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, artifactName(tt.req))
		})
	}
}

func TestSleeper(t *testing.T) {
	inner := Func(func(ctx context.Context, req Request) (ArtifactRef, error) {
		return ArtifactRef{Location: "out.txt"}, nil
	})

	t.Run("delays then delegates", func(t *testing.T) {
		start := time.Now()
		ref, err := Sleeper(inner, 20*time.Millisecond).Render(context.Background(), invoiceRequest())
		require.NoError(t, err)
		require.Equal(t, "out.txt", ref.Location)
		require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	})

	t.Run("honors the deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := Sleeper(inner, time.Second).Render(ctx, invoiceRequest())
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"typed error keeps its kind", NewError(KindTemplate, "missing block"), KindTemplate},
		{"wrapped typed error keeps its kind", WrapError(KindIO, "write artifact", errors.New("disk full")), KindIO},
		{"deadline becomes timeout", context.DeadlineExceeded, KindTimeout},
		{"plain error is internal", errors.New("boom"), KindInternal},
		{"invalid kind is internal", &Error{Kind: ErrorKind("weird"), Message: "x"}, KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestErrorMessage(t *testing.T) {
	plain := NewError(KindData, "document number is required")
	require.Equal(t, "render data error: document number is required", plain.Error())

	cause := errors.New("permission denied")
	wrapped := WrapError(KindIO, "write artifact", cause)
	require.Equal(t, "render io error: write artifact: permission denied", wrapped.Error())
	require.ErrorIs(t, wrapped, cause)
}
