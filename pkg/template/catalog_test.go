package template

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docugen/docugen/pkg/engine"
)

func TestNewCatalog_Builtins(t *testing.T) {
	catalog := NewCatalog()

	for _, id := range []string{"default", "invoice-a4", "quote-letter", "receipt-compact", "statement-a4"} {
		info, ok := catalog.Get(id)
		require.True(t, ok, id)
		require.True(t, info.BuiltIn)
		require.NotEmpty(t, info.Name)
	}
	require.Equal(t, 5, catalog.Count())
}

func TestCatalog_Register(t *testing.T) {
	catalog := NewCatalog()

	tests := []struct {
		name    string
		info    *Info
		wantErr string
	}{
		{
			name: "valid template",
			info: &Info{ID: "invoice-modern", Name: "Modern Invoice", DocumentTypes: []string{"invoice"}},
		},
		{
			name:    "missing ID",
			info:    &Info{Name: "No ID"},
			wantErr: "template ID cannot be empty",
		},
		{
			name:    "missing name",
			info:    &Info{ID: "nameless"},
			wantErr: "template name cannot be empty",
		},
		{
			name:    "unknown document type",
			info:    &Info{ID: "poster", Name: "Poster", DocumentTypes: []string{"poster"}},
			wantErr: "unknown document type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := catalog.Register(tt.info)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.True(t, catalog.Has(tt.info.ID))
		})
	}

	t.Run("nil info", func(t *testing.T) {
		require.Error(t, catalog.Register(nil))
	})
}

func TestInfo_Supports(t *testing.T) {
	catalog := NewCatalog()

	anyType, _ := catalog.Get("default")
	require.True(t, anyType.Supports(engine.DocInvoice))
	require.True(t, anyType.Supports(engine.DocStatement))

	invoiceOnly, _ := catalog.Get("invoice-a4")
	require.True(t, invoiceOnly.Supports(engine.DocInvoice))
	require.False(t, invoiceOnly.Supports(engine.DocQuote))
}

func TestCatalog_List_SortedByID(t *testing.T) {
	catalog := NewCatalog()
	require.NoError(t, catalog.Register(&Info{ID: "aaa-first", Name: "First"}))

	infos := catalog.List()
	require.Len(t, infos, 6)
	require.Equal(t, "aaa-first", infos[0].ID)
	for i := 1; i < len(infos); i++ {
		require.Less(t, infos[i-1].ID, infos[i].ID)
	}
}

func TestCatalog_LoadDir(t *testing.T) {
	writeManifest := func(t *testing.T, dir, name, content string) {
		t.Helper()
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	t.Run("merges manifests", func(t *testing.T) {
		dir := t.TempDir()
		writeManifest(t, dir, "invoice-modern.yaml", `
id: invoice-modern
name: Modern Invoice
version: "2.1"
document_types: [invoice]
`)
		writeManifest(t, dir, "catchall.yml", `
id: catchall
name: Catch All
`)
		writeManifest(t, dir, "notes.txt", "not a manifest")

		catalog := NewCatalog()
		require.NoError(t, catalog.LoadDir(dir))

		info, ok := catalog.Get("invoice-modern")
		require.True(t, ok)
		require.Equal(t, "2.1", info.Version)
		require.False(t, info.BuiltIn)
		require.True(t, catalog.Has("catchall"))
		require.Equal(t, 7, catalog.Count())
	})

	t.Run("overrides built-in with same ID", func(t *testing.T) {
		dir := t.TempDir()
		writeManifest(t, dir, "default.yaml", `
id: default
name: Custom Default
version: "3.0"
`)

		catalog := NewCatalog()
		require.NoError(t, catalog.LoadDir(dir))

		info, ok := catalog.Get("default")
		require.True(t, ok)
		require.Equal(t, "Custom Default", info.Name)
		require.False(t, info.BuiltIn)
	})

	t.Run("missing directory", func(t *testing.T) {
		catalog := NewCatalog()
		require.Error(t, catalog.LoadDir(filepath.Join(t.TempDir(), "nope")))
	})

	t.Run("malformed manifest", func(t *testing.T) {
		dir := t.TempDir()
		writeManifest(t, dir, "broken.yaml", "id: [")

		catalog := NewCatalog()
		require.ErrorContains(t, catalog.LoadDir(dir), "failed to parse manifest")
	})

	t.Run("invalid manifest fields", func(t *testing.T) {
		dir := t.TempDir()
		writeManifest(t, dir, "bad.yaml", "id: bad\n")

		catalog := NewCatalog()
		require.ErrorContains(t, catalog.LoadDir(dir), "template name cannot be empty")
	})
}
