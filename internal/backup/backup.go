// Package backup stores ledger bundles in object storage.
package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/budgetbook/budgetbook/internal/logger"
	"github.com/budgetbook/budgetbook/internal/store"
)

// Supported URL schemes.
const (
	SchemeS3  = "s3"
	SchemeGCS = "gs"
)

// Location is an object in a bucket, written as scheme://bucket/key.
type Location struct {
	Scheme string
	Bucket string
	Key    string
}

func (l Location) String() string {
	return l.Scheme + "://" + l.Bucket + "/" + l.Key
}

// IsRemote reports whether s names an object storage location rather than
// a local path.
func IsRemote(s string) bool {
	return strings.HasPrefix(s, SchemeS3+"://") || strings.HasPrefix(s, SchemeGCS+"://")
}

// ParseLocation parses an s3:// or gs:// URL. A key ending in "/" is a
// folder; defaultName is appended to it.
func ParseLocation(s, defaultName string) (Location, error) {
	u, err := url.Parse(s)
	if err != nil {
		return Location{}, fmt.Errorf("parsing backup location: %w", err)
	}
	if u.Scheme != SchemeS3 && u.Scheme != SchemeGCS {
		return Location{}, fmt.Errorf("unsupported backup location %q: want s3:// or gs://", s)
	}
	if u.Host == "" {
		return Location{}, fmt.Errorf("backup location %q has no bucket", s)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" || strings.HasSuffix(key, "/") {
		if defaultName == "" {
			return Location{}, fmt.Errorf("backup location %q has no object key", s)
		}
		key += defaultName
	}
	return Location{Scheme: u.Scheme, Bucket: u.Host, Key: key}, nil
}

// Bucket reads and writes objects of one bucket.
type Bucket interface {
	Put(ctx context.Context, key string, body io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Close() error
}

// Options configure the object storage clients.
type Options struct {
	S3Endpoint        string
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// Open connects to the bucket of loc.
func Open(ctx context.Context, loc Location, opts Options) (Bucket, error) {
	switch loc.Scheme {
	case SchemeS3:
		return OpenS3(ctx, loc.Bucket, opts)
	case SchemeGCS:
		return OpenGCS(ctx, loc.Bucket)
	}
	return nil, fmt.Errorf("unsupported scheme %q", loc.Scheme)
}

// Upload writes b to key.
func Upload(ctx context.Context, bkt Bucket, key string, b *store.Bundle) error {
	var buf bytes.Buffer
	if err := b.Write(&buf); err != nil {
		return err
	}
	size := buf.Len()
	if err := bkt.Put(ctx, key, &buf); err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	log := logger.FromContext(ctx)
	log.Info().
		Str("key", key).
		Int("bytes", size).
		Int("transactions", b.Summary.TotalTransactions).
		Msg("backup uploaded")
	return nil
}

// Download reads the bundle stored at key.
func Download(ctx context.Context, bkt Bucket, key string) (*store.Bundle, error) {
	r, err := bkt.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", key, err)
	}
	defer r.Close()
	return store.ReadBundle(r)
}
