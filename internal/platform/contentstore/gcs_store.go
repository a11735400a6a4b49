package contentstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/yungbote/coursefront-backend/internal/platform/httpx"
	"github.com/yungbote/coursefront-backend/internal/platform/logger"
)

// GCSStore maps the contents model onto a bucket. Directories are object
// name prefixes, and an object's generation is its version token.
type GCSStore struct {
	log    *logger.Logger
	client *storage.Client
	bucket string
	prefix string
}

func NewGCSStore(ctx context.Context, cfg Config, log *logger.Logger) (*GCSStore, error) {
	client, err := newStorageClientForMode(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	s := NewGCSStoreWithClient(client, cfg.Bucket, cfg.Prefix, log)
	s.log.Info(
		"Content store initialized",
		"mode", cfg.Mode,
		"bucket", cfg.Bucket,
		"prefix", cfg.Prefix,
		"emulator_host", cfg.EmulatorHost,
	)
	return s, nil
}

func NewGCSStoreWithClient(client *storage.Client, bucket, prefix string, log *logger.Logger) *GCSStore {
	return &GCSStore{
		log:    log.With("service", "ContentStore", "backend", "gcs"),
		client: client,
		bucket: strings.TrimSpace(bucket),
		prefix: strings.Trim(strings.TrimSpace(prefix), "/"),
	}
}

func newStorageClientForMode(ctx context.Context, cfg Config) (*storage.Client, error) {
	switch cfg.Mode {
	case ModeGCS:
		opts := clientOptionsFromEnv()
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
		return storage.NewClient(ctx, opts...)
	case ModeGCSEmulator:
		endpoint := strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/")
		_ = os.Setenv("STORAGE_EMULATOR_HOST", endpoint)
		return storage.NewClient(ctx, option.WithoutAuthentication())
	default:
		return nil, &ConfigError{Code: ConfigErrorInvalidMode, Mode: string(cfg.Mode)}
	}
}

func clientOptionsFromEnv() []option.ClientOption {
	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}

func (s *GCSStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *GCSStore) key(p string) string {
	p = cleanPath(p)
	if s.prefix == "" {
		return p
	}
	if p == "" {
		return s.prefix
	}
	return s.prefix + "/" + p
}

func (s *GCSStore) relative(key string) string {
	if s.prefix == "" {
		return key
	}
	return strings.TrimPrefix(key, s.prefix+"/")
}

// ListDirectory returns ErrNotFound when nothing lives under dir. Buckets have
// no empty directories, so an existing dir always has at least one entry.
func (s *GCSStore) ListDirectory(ctx context.Context, dir string) ([]Entry, error) {
	dir = cleanPath(dir)
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	prefix := s.key(dir)
	if prefix != "" {
		prefix += "/"
	}
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: prefix, Delimiter: "/"})
	out := []Entry{}
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, gcsError(ctx, "list", dir, err)
		}
		if attrs.Prefix != "" {
			sub := strings.TrimSuffix(attrs.Prefix, "/")
			out = append(out, Entry{
				Name: path.Base(sub),
				Path: s.relative(sub),
				Type: EntryTypeDir,
			})
			continue
		}
		if attrs.Name == prefix {
			// directory placeholder object
			continue
		}
		out = append(out, Entry{
			Name:    path.Base(attrs.Name),
			Path:    s.relative(attrs.Name),
			Type:    EntryTypeFile,
			Version: generationToken(attrs.Generation),
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("list %q: %w", dir, ErrNotFound)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *GCSStore) ReadFile(ctx context.Context, filePath string) (*File, error) {
	filePath = cleanPath(filePath)
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	r, err := s.client.Bucket(s.bucket).Object(s.key(filePath)).NewReader(ctx)
	if err != nil {
		return nil, gcsError(ctx, "read", filePath, err)
	}
	defer r.Close()
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, gcsError(ctx, "read", filePath, err)
	}
	return &File{Path: filePath, Content: b, Version: generationToken(r.Attrs.Generation)}, nil
}

func (s *GCSStore) WriteFile(ctx context.Context, filePath string, content []byte, expectedVersion string) (string, error) {
	filePath = cleanPath(filePath)
	if filePath == "" {
		return "", errors.New("content store: empty path")
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	obj := s.client.Bucket(s.bucket).Object(s.key(filePath))
	if v := strings.TrimSpace(expectedVersion); v != "" {
		gen, err := strconv.ParseInt(v, 10, 64)
		if err != nil || gen <= 0 {
			return "", fmt.Errorf("write %q: malformed version %q: %w", filePath, v, ErrVersionConflict)
		}
		obj = obj.If(storage.Conditions{GenerationMatch: gen})
	}

	w := obj.NewWriter(ctx)
	w.ContentType = contentTypeForKey(filePath)
	if _, err := w.Write(content); err != nil {
		_ = w.Close()
		return "", gcsError(ctx, "write", filePath, err)
	}
	if err := w.Close(); err != nil {
		return "", gcsError(ctx, "write", filePath, err)
	}
	attrs := w.Attrs()
	if attrs == nil {
		return "", fmt.Errorf("write %q: missing object attrs after close", filePath)
	}
	return generationToken(attrs.Generation), nil
}

func generationToken(gen int64) string {
	if gen <= 0 {
		return ""
	}
	return strconv.FormatInt(gen, 10)
}

func contentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	switch {
	case strings.HasSuffix(s, ".mp3"):
		return "audio/mpeg"
	case strings.HasSuffix(s, ".wav"):
		return "audio/wav"
	case strings.HasSuffix(s, ".ogg"):
		return "audio/ogg"
	case strings.HasSuffix(s, ".m4a"):
		return "audio/mp4"
	case strings.HasSuffix(s, ".json"):
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// gcsError maps client errors onto the package's error model.
func gcsError(ctx context.Context, op, p string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return fmt.Errorf("%s %q: %w", op, p, ErrNotFound)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusNotFound:
			return fmt.Errorf("%s %q: %w", op, p, ErrNotFound)
		case gerr.Code == http.StatusPreconditionFailed, gerr.Code == http.StatusConflict:
			return fmt.Errorf("%s %q: %w", op, p, ErrVersionConflict)
		case httpx.IsRetryableHTTPStatus(gerr.Code):
			return &TransientError{Op: op, Path: p, StatusCode: gerr.Code, Err: err}
		default:
			return fmt.Errorf("content store: %s %q: %w", op, p, err)
		}
	}
	if ctx != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		if errors.Is(err, context.DeadlineExceeded) {
			return &TransientError{Op: op, Path: p, Err: err}
		}
		return err
	}
	if httpx.IsRetryableError(err) {
		return &TransientError{Op: op, Path: p, Err: err}
	}
	return fmt.Errorf("content store: %s %q: %w", op, p, err)
}
