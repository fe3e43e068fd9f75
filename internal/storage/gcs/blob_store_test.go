package gcs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func newTestStore(t *testing.T, handler http.Handler, cfg Config) *BlobStore {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := storage.NewClient(context.Background(), option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store, err := New(client, cfg)
	require.NoError(t, err)
	return store
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "b"})
	assert.ErrorContains(t, err, "client")

	client, err := storage.NewClient(context.Background(), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	_, err = New(client, Config{Bucket: " "})
	assert.ErrorContains(t, err, "bucket")
}

func TestObjectName(t *testing.T) {
	t.Parallel()

	s := &BlobStore{cfg: Config{Bucket: "b", Prefix: "feeds/claude"}}
	assert.Equal(t, "feeds/claude/feed.xml", s.objectName("feed.xml"))
	assert.Equal(t, "feeds/claude/feed.xml", s.objectName("/feed.xml"))

	s = &BlobStore{cfg: Config{Bucket: "b"}}
	assert.Equal(t, "data.json", s.objectName("data.json"))
}

func TestPutObjectUploads(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/upload/storage/v1/b/feeds-bucket/o")
		assert.Equal(t, "public/feed.xml", r.URL.Query().Get("name"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Contains(t, string(body), "<rss/>")
		assert.Contains(t, string(body), "application/rss+xml")

		fmt.Fprintln(w, `{"name": "public/feed.xml", "bucket": "feeds-bucket"}`)
	})
	store := newTestStore(t, handler, Config{Bucket: "feeds-bucket", Prefix: "/public/"})

	uri, err := store.PutObject(context.Background(), "feed.xml", "application/rss+xml", strings.NewReader("<rss/>"))
	require.NoError(t, err)
	assert.Equal(t, "gs://feeds-bucket/public/feed.xml", uri)
}

func TestPutObjectServerError(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	store := newTestStore(t, handler, Config{Bucket: "feeds-bucket"})

	_, err := store.PutObject(context.Background(), "feed.xml", "application/rss+xml", strings.NewReader("<rss/>"))
	assert.Error(t, err)
}

func TestPutObjectRequiresPath(t *testing.T) {
	t.Parallel()

	store := &BlobStore{cfg: Config{Bucket: "b"}}
	_, err := store.PutObject(context.Background(), "", "text/plain", strings.NewReader("x"))
	assert.ErrorContains(t, err, "path")
}
