package emdata

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTarGz builds an in-memory .tar.gz holding the given name->contents map.
func buildTarGz(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, contents := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     0644,
			Size:     int64(len(contents)),
		}))
		_, err := tw.Write([]byte(contents))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func TestFetch(t *testing.T) {
	t.Run("downloads and extracts archive", func(t *testing.T) {
		archive := buildTarGz(t, map[string]string{
			"assets/em1dfm/em1dfm_data.txt": "FREQ RE IM\n382 100 -20\n",
		})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write(archive)
		}))
		defer srv.Close()

		dest := t.TempDir()
		require.NoError(t, Fetch(context.Background(), srv.URL, dest))

		data, err := os.ReadFile(filepath.Join(dest, "assets", "em1dfm", "em1dfm_data.txt"))
		require.NoError(t, err)
		assert.Contains(t, string(data), "382 100 -20")
	})

	t.Run("non-200 status fails", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer srv.Close()

		err := Fetch(context.Background(), srv.URL, t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected status")
	})

	t.Run("traversal entry is rejected", func(t *testing.T) {
		archive := buildTarGz(t, map[string]string{
			"../escape.txt": "nope",
		})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write(archive)
		}))
		defer srv.Close()

		err := Fetch(context.Background(), srv.URL, t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "escapes destination")
	})
}

func TestSafeJoin(t *testing.T) {
	dest := filepath.Join(string(os.PathSeparator), "tmp", "data")

	_, err := safeJoin(dest, filepath.Join("sub", "file.txt"))
	assert.NoError(t, err)

	_, err = safeJoin(dest, filepath.Join("..", "file.txt"))
	assert.Error(t, err)

	_, err = safeJoin(dest, filepath.Join(string(os.PathSeparator), "abs.txt"))
	assert.Error(t, err)
}
