package media

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalPutCopyDelete(t *testing.T) {
	root := t.TempDir()
	l, err := NewLocal(root, "/images/")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, l.Put(ctx, "1/gallery/a.jpg", []byte("a"), "image/jpeg"))
	require.NoError(t, l.Put(ctx, "1/gallery/b.jpg", []byte("b"), "image/jpeg"))
	require.NoError(t, l.Put(ctx, "1/inventory/1_1/c.jpg", []byte("c"), "image/jpeg"))

	assert.Equal(t, "/images/1/gallery/a.jpg", l.URL("1/gallery/a.jpg"))

	n, err := l.CopyPrefix(ctx, "1/gallery/", "2/gallery/")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	data, err := os.ReadFile(filepath.Join(root, "2", "gallery", "b.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "b", string(data))

	n, err = l.CopyPrefix(ctx, "9/gallery/", "2/gallery/")
	require.NoError(t, err, "copying a missing prefix is a no-op")
	assert.Zero(t, n)

	require.NoError(t, l.DeletePrefix(ctx, "1/"))
	_, err = os.Stat(filepath.Join(root, "1"))
	assert.True(t, os.IsNotExist(err))
	require.NoError(t, l.DeletePrefix(ctx, "1/"), "deleting a missing prefix is a no-op")

	_, err = os.Stat(filepath.Join(root, "2", "gallery", "a.jpg"))
	assert.NoError(t, err, "other prefixes are untouched")
}

func TestLocalRejectsEscapingKeys(t *testing.T) {
	l, err := NewLocal(t.TempDir(), "/images")
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{"", "/abs", "../x", "a/../../x", "a/./b"} {
		assert.Error(t, l.Put(ctx, key, []byte("x"), ""), "Put(%q)", key)
		assert.Error(t, l.DeletePrefix(ctx, key), "DeletePrefix(%q)", key)
	}
}

func TestLocalHandler(t *testing.T) {
	l, err := NewLocal(t.TempDir(), "/images")
	require.NoError(t, err)
	require.NoError(t, l.Put(context.Background(), "5/gallery/x.jpg", []byte("pixels"), "image/jpeg"))

	srv := httptest.NewServer(mountAt("/images/", l.Handler()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/images/5/gallery/x.jpg")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "pixels", string(body))
}

func mountAt(pattern string, h http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(pattern, h)
	return mux
}
