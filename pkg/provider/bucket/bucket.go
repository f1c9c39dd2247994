/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package bucket publishes previews as static sites in an object store,
// one key prefix per preview host.
package bucket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/chainguard-dev/clog"
	"gocloud.dev/blob"
	"golang.org/x/sync/errgroup"

	// Add gcsblob support that we need to support gs:// prefixes
	_ "gocloud.dev/blob/gcsblob"
	// file:// buckets serve local mirrors and tests.
	_ "gocloud.dev/blob/fileblob"

	"github.com/chainguard-dev/pr-preview/pkg/preview"
)

// concurrency bounds the object writes and deletes of one operation.
const concurrency = 8

// Provider writes previews into a bucket under "<preview host>/".
type Provider struct {
	bucket *blob.Bucket
}

// New opens the bucket at url, e.g. gs://previews or file:///srv/previews.
func New(ctx context.Context, url string) (*Provider, error) {
	b, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("opening bucket %s: %w", url, err)
	}
	return NewWithBucket(b), nil
}

// NewWithBucket returns a Provider over an open bucket.
func NewWithBucket(b *blob.Bucket) *Provider {
	return &Provider{bucket: b}
}

// Close releases the bucket.
func (p *Provider) Close() error {
	return p.bucket.Close()
}

func prefix(target preview.Target) string {
	return target.URL + "/"
}

// Publish uploads every regular file under dir and then removes objects a
// previous publish left behind that dir no longer has.
func (p *Provider) Publish(ctx context.Context, target preview.Target, dir string) error {
	log := clog.FromContext(ctx)
	// Uploads are not interrupted once started.
	ctx = context.WithoutCancel(ctx)

	var files []string
	if err := filepath.WalkDir(dir, func(file string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		// Skip non-regular files.
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, file)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	}); err != nil {
		return fmt.Errorf("walking %s: %w", dir, err)
	}
	if len(files) == 0 {
		return fmt.Errorf("nothing to publish in %s", dir)
	}
	log.Infof("Found %d files in %s to publish to %s", len(files), dir, target.URL)

	keep := make(map[string]struct{}, len(files))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(concurrency)
	for _, rel := range files {
		key := prefix(target) + rel
		keep[key] = struct{}{}
		eg.Go(func() error {
			return p.upload(egCtx, filepath.Join(dir, filepath.FromSlash(rel)), key)
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	stale, err := p.deleteUnder(ctx, target, func(key string) bool {
		_, ok := keep[key]
		return !ok
	})
	if err != nil {
		return err
	}
	log.Infof("Published %d files to %s, removed %d stale", len(files), target.URL, stale)
	return nil
}

// Teardown deletes every object under the preview's prefix.
func (p *Provider) Teardown(ctx context.Context, target preview.Target) error {
	n, err := p.deleteUnder(context.WithoutCancel(ctx), target, func(string) bool { return true })
	if err != nil {
		return err
	}
	clog.FromContext(ctx).Infof("Deleted %d objects under %s", n, prefix(target))
	return nil
}

func (p *Provider) upload(ctx context.Context, src, key string) (err error) {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := p.bucket.NewWriter(ctx, key, &blob.WriterOptions{
		ContentType: contentType(key),
	})
	if err != nil {
		return fmt.Errorf("opening %s: %w", key, err)
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close blob file %s: %w", key, cerr)
		}
	}()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to upload file to blobstore: %s, %w", key, err)
	}
	return nil
}

func contentType(key string) string {
	if t := mime.TypeByExtension(path.Ext(key)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// deleteUnder deletes the objects under the target prefix that match.
func (p *Provider) deleteUnder(ctx context.Context, target preview.Target, match func(key string) bool) (int, error) {
	var (
		mu      sync.Mutex
		deleted int
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(concurrency)

	iter := p.bucket.List(&blob.ListOptions{Prefix: prefix(target)})
	for {
		obj, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Let in-flight deletes finish before reporting.
			_ = eg.Wait()
			return deleted, fmt.Errorf("listing %s: %w", prefix(target), err)
		}
		if obj.IsDir || !match(obj.Key) {
			continue
		}
		eg.Go(func() error {
			if err := p.bucket.Delete(egCtx, obj.Key); err != nil {
				return fmt.Errorf("deleting %s: %w", obj.Key, err)
			}
			mu.Lock()
			deleted++
			mu.Unlock()
			return nil
		})
	}
	err := eg.Wait()
	return deleted, err
}
