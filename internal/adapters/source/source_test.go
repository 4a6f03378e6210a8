package source

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalogtree/internal/adapters/sqlite"
	"catalogtree/internal/config"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	catalogFile := filepath.Join(dir, "tree.yaml")
	require.NoError(t, os.WriteFile(catalogFile, []byte("name: t\nchildren:\n  - name: a\n"), 0644))

	tests := []struct {
		name    string
		cfg     config.Config
		wantFS  bool
		wantErr bool
	}{
		{name: "filesystem", cfg: config.Config{Source: "fs", Root: dir}, wantFS: true},
		{name: "sqlite", cfg: config.Config{Source: "sqlite", DB: filepath.Join(dir, "c.db")}},
		{name: "yaml", cfg: config.Config{Source: "yaml", Catalog: catalogFile}},
		{name: "http", cfg: config.Config{Source: "http", Remote: "http://127.0.0.1:1"}},
		{name: "missing root", cfg: config.Config{Source: "fs", Root: filepath.Join(dir, "nope")}, wantErr: true},
		{name: "bad remote", cfg: config.Config{Source: "http", Remote: "gopher://x"}, wantErr: true},
		{name: "unknown", cfg: config.Config{Source: "ftp"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opened, err := Open(context.Background(), &tt.cfg, quietLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer opened.Close()
			assert.NotNil(t, opened.Provider)
			assert.Equal(t, tt.wantFS, opened.Filesystem != nil)
		})
	}
}

func TestCatalogPath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	path, err := CatalogPath(&config.Config{DB: "/explicit.db"})
	require.NoError(t, err)
	assert.Equal(t, "/explicit.db", path)

	path, err = CatalogPath(&config.Config{Root: "/srv/data"})
	require.NoError(t, err)
	assert.Equal(t, sqlite.DatabasePath("/srv/data"), path)
}
