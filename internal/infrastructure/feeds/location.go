package feeds

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ersonp/entity-catalog/internal/infrastructure/config"
)

const objectScheme = "s3://"

// Opener opens feed locations. A location is a local path or an
// s3://bucket/key URI; .gz and .zst locations are decompressed on the fly.
type Opener struct {
	storage config.StorageConfig

	once      sync.Once
	client    *minio.Client
	clientErr error
}

// NewOpener creates an Opener. The object store client is only created
// when an s3:// location is first opened.
func NewOpener(storage config.StorageConfig) *Opener {
	return &Opener{storage: storage}
}

// Open opens location for reading.
func (o *Opener) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	raw, err := o.openRaw(ctx, location)
	if err != nil {
		return nil, err
	}

	rc, err := decompress(location, raw)
	if err != nil {
		raw.Close()
		return nil, fmt.Errorf("decompressing %s: %w", location, err)
	}
	return rc, nil
}

func (o *Opener) openRaw(ctx context.Context, location string) (io.ReadCloser, error) {
	bucket, key, ok := parseObjectLocation(location)
	if !ok {
		f, err := os.Open(location)
		if err != nil {
			return nil, fmt.Errorf("opening feed: %w", err)
		}
		return f, nil
	}

	client, err := o.objectClient()
	if err != nil {
		return nil, err
	}

	obj, err := client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", bucket, key, err)
	}
	// GetObject is lazy; Stat surfaces a missing object before reading.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, fmt.Errorf("stat %s/%s: %w", bucket, key, err)
	}
	return obj, nil
}

func (o *Opener) objectClient() (*minio.Client, error) {
	o.once.Do(func() {
		if o.storage.Endpoint == "" {
			o.clientErr = errors.New("storage endpoint is required for s3:// feeds")
			return
		}
		o.client, o.clientErr = minio.New(o.storage.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(o.storage.AccessKey, o.storage.SecretKey, ""),
			Secure: o.storage.UseSSL,
		})
		if o.clientErr != nil {
			o.clientErr = fmt.Errorf("minio client: %w", o.clientErr)
		}
	})
	return o.client, o.clientErr
}

// parseObjectLocation splits s3://bucket/key.
func parseObjectLocation(location string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(location, objectScheme)
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

// compression returns the compression extension of location, if any.
func compression(location string) string {
	switch ext := strings.ToLower(path.Ext(location)); ext {
	case ".gz", ".zst":
		return ext
	default:
		return ""
	}
}

func decompress(location string, rc io.ReadCloser) (io.ReadCloser, error) {
	switch compression(location) {
	case ".gz":
		zr, err := gzip.NewReader(rc)
		if err != nil {
			return nil, err
		}
		return &stackedCloser{Reader: zr, closers: []func() error{zr.Close, rc.Close}}, nil
	case ".zst":
		dec, err := zstd.NewReader(rc)
		if err != nil {
			return nil, err
		}
		return &stackedCloser{Reader: dec, closers: []func() error{
			func() error { dec.Close(); return nil },
			rc.Close,
		}}, nil
	default:
		return rc, nil
	}
}

// stackedCloser closes a decompressor and the stream beneath it.
type stackedCloser struct {
	io.Reader
	closers []func() error
}

func (s *stackedCloser) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
