package offline

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// CachedResponse is a stored network response keyed by its request URL.
type CachedResponse struct {
	URL    string      `json:"url"`
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"-"`
}

// CacheStorage holds named buckets of cached responses. Writes are atomic per
// key: a concurrent Match sees either the old entry or the new one.
type CacheStorage interface {
	// Keys lists every bucket name.
	Keys(ctx context.Context) ([]string, error)
	// Delete removes a bucket and everything in it. Deleting a missing bucket
	// is not an error.
	Delete(ctx context.Context, bucket string) error
	// Match returns the entry stored for rawURL, or nil on a miss.
	Match(ctx context.Context, bucket, rawURL string) (*CachedResponse, error)
	// Put stores resp under resp.URL, creating the bucket if needed.
	Put(ctx context.Context, bucket string, resp *CachedResponse) error
}

const entryExt = ".entry"

// DiskStorage keeps one directory per bucket. Each entry is a single file
// holding a JSON metadata line followed by the raw body.
type DiskStorage struct {
	basePath string
}

func NewDiskStorage(basePath string) (*DiskStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &DiskStorage{basePath: basePath}, nil
}

func (s *DiskStorage) Keys(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name, err := url.PathUnescape(e.Name())
		if err != nil {
			slog.Warn("skipping unreadable bucket directory", "dir", e.Name())
			continue
		}
		keys = append(keys, name)
	}
	return keys, nil
}

func (s *DiskStorage) Delete(ctx context.Context, bucket string) error {
	dir, err := s.bucketDir(bucket)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to delete bucket %s: %w", bucket, err)
	}
	return nil
}

func (s *DiskStorage) Match(ctx context.Context, bucket, rawURL string) (*CachedResponse, error) {
	dir, err := s.bucketDir(bucket)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, entryName(rawURL)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	meta, body, ok := bytes.Cut(data, []byte("\n"))
	if !ok {
		return nil, fmt.Errorf("corrupt cache entry for %s", rawURL)
	}
	var resp CachedResponse
	if err := json.Unmarshal(meta, &resp); err != nil {
		return nil, fmt.Errorf("corrupt cache entry for %s: %w", rawURL, err)
	}
	resp.Body = body
	return &resp, nil
}

func (s *DiskStorage) Put(ctx context.Context, bucket string, resp *CachedResponse) error {
	dir, err := s.bucketDir(bucket)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}

	f, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := f.Name()

	if err := writeEntry(f, resp); err != nil {
		if cerr := f.Close(); cerr != nil {
			slog.Error("failed to close temp file after write error", "error", cerr)
		}
		if rerr := os.Remove(tmpPath); rerr != nil {
			slog.Error("failed to remove temp file after write error", "error", rerr)
		}
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := f.Close(); err != nil {
		if rerr := os.Remove(tmpPath); rerr != nil {
			slog.Error("failed to remove temp file after close error", "error", rerr)
		}
		return fmt.Errorf("failed to close cache entry: %w", err)
	}

	if err := os.Rename(tmpPath, filepath.Join(dir, entryName(resp.URL))); err != nil {
		if rerr := os.Remove(tmpPath); rerr != nil {
			slog.Error("failed to remove temp file after rename error", "error", rerr)
		}
		return fmt.Errorf("failed to commit cache entry: %w", err)
	}
	return nil
}

func writeEntry(w io.Writer, resp *CachedResponse) error {
	bw := bufio.NewWriter(w)
	meta, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	if _, err := bw.Write(meta); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if _, err := bw.Write(resp.Body); err != nil {
		return err
	}
	return bw.Flush()
}

func entryName(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:]) + entryExt
}

// bucketDir maps a bucket name to its directory and rejects directory
// traversal.
func (s *DiskStorage) bucketDir(bucket string) (string, error) {
	if bucket == "" {
		return "", fmt.Errorf("empty bucket name")
	}
	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	absPath, err := filepath.Abs(filepath.Join(s.basePath, url.PathEscape(bucket)))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal attempt")
	}
	return absPath, nil
}
