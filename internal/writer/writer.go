// Package writer persists the generated feed and snapshot to blob stores.
package writer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/passrate-feed/internal/tracker"
)

const (
	contentTypeRSS  = "application/rss+xml; charset=utf-8"
	contentTypeJSON = "application/json"
)

// Names are the artifact paths relative to each store.
type Names struct {
	Feed string
	Data string
}

// Artifact describes one written object.
type Artifact struct {
	Name   string
	URI    string
	Bytes  int
	SHA256 string
}

// Result lists every artifact written, in write order.
type Result struct {
	Artifacts []Artifact
}

// Writer stores artifacts in every configured store. The first store is the
// primary; later ones are mirrors.
type Writer struct {
	stores []tracker.BlobStore
	hasher tracker.Hasher
	names  Names
	logger *zap.Logger
}

// New builds a Writer. At least one store is required.
func New(names Names, hasher tracker.Hasher, logger *zap.Logger, stores ...tracker.BlobStore) (*Writer, error) {
	if len(stores) == 0 {
		return nil, errors.New("at least one blob store is required")
	}
	if names.Feed == "" || names.Data == "" {
		return nil, errors.New("feed and data names are required")
	}
	if hasher == nil {
		return nil, errors.New("hasher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{stores: stores, hasher: hasher, names: names, logger: logger}, nil
}

// Write stores the feed document, then the snapshot as indented JSON, in each
// store. Any failure aborts with a *tracker.IOError. Stores implementing
// tracker.BatchBlobStore receive both artifacts in one call.
func (w *Writer) Write(ctx context.Context, feed []byte, snap tracker.Snapshot) (Result, error) {
	data, err := MarshalSnapshot(snap)
	if err != nil {
		return Result{}, &tracker.IOError{Path: w.names.Data, Err: err}
	}

	var res Result
	for _, store := range w.stores {
		artifacts, err := w.writeTo(ctx, store, []tracker.Object{
			{Path: w.names.Feed, ContentType: contentTypeRSS, Data: feed},
			{Path: w.names.Data, ContentType: contentTypeJSON, Data: data},
		})
		if err != nil {
			return Result{}, err
		}
		res.Artifacts = append(res.Artifacts, artifacts...)
	}
	return res, nil
}

// writeTo publishes objects to one store, as a single batch when the store
// supports it so the feed and snapshot are replaced together.
func (w *Writer) writeTo(ctx context.Context, store tracker.BlobStore, objects []tracker.Object) ([]Artifact, error) {
	digests := make([]string, len(objects))
	for i, obj := range objects {
		digest, err := w.hasher.Hash(obj.Data)
		if err != nil {
			return nil, &tracker.IOError{Path: obj.Path, Err: fmt.Errorf("hash: %w", err)}
		}
		digests[i] = digest
	}

	batch, ok := store.(tracker.BatchBlobStore)
	if !ok {
		artifacts := make([]Artifact, 0, len(objects))
		for i, obj := range objects {
			artifact, err := w.put(ctx, store, obj, digests[i])
			if err != nil {
				return nil, err
			}
			artifacts = append(artifacts, artifact)
		}
		return artifacts, nil
	}

	uris, err := batch.PutObjects(ctx, objects)
	if err != nil {
		var ioErr *tracker.IOError
		if errors.As(err, &ioErr) {
			return nil, err
		}
		return nil, &tracker.IOError{Path: objects[0].Path, Err: err}
	}
	artifacts := make([]Artifact, 0, len(objects))
	for i, obj := range objects {
		artifacts = append(artifacts, w.record(obj, uris[i], digests[i]))
	}
	return artifacts, nil
}

func (w *Writer) put(ctx context.Context, store tracker.BlobStore, obj tracker.Object, digest string) (Artifact, error) {
	uri, err := store.PutObject(ctx, obj.Path, obj.ContentType, bytes.NewReader(obj.Data))
	if err != nil {
		return Artifact{}, &tracker.IOError{Path: obj.Path, Err: err}
	}
	return w.record(obj, uri, digest), nil
}

func (w *Writer) record(obj tracker.Object, uri, digest string) Artifact {
	w.logger.Info("artifact written",
		zap.String("uri", uri),
		zap.Int("bytes", len(obj.Data)),
		zap.String("sha256", digest),
	)
	return Artifact{Name: obj.Path, URI: uri, Bytes: len(obj.Data), SHA256: digest}
}

// MarshalSnapshot renders the snapshot with two-space indentation and a
// trailing newline.
func MarshalSnapshot(snap tracker.Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return append(data, '\n'), nil
}
