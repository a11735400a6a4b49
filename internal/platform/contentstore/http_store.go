package contentstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yungbote/coursefront-backend/internal/platform/httpx"
	"github.com/yungbote/coursefront-backend/internal/platform/logger"
)

type HTTPConfig struct {
	// BaseURL is the repository root, e.g. https://api.github.com/repos/acme/course-audio.
	// Requests go to {BaseURL}/contents/{path}.
	BaseURL        string        `yaml:"base_url"`
	Token          string        `yaml:"token"`
	Branch         string        `yaml:"branch"`
	CommitMessage  string        `yaml:"commit_message"`
	CommitterName  string        `yaml:"committer_name"`
	CommitterEmail string        `yaml:"committer_email"`
	Timeout        time.Duration `yaml:"timeout"`
}

type HTTPStore struct {
	log        *logger.Logger
	baseURL    string
	token      string
	branch     string
	message    string
	committer  *contentsCommitter
	timeout    time.Duration
	httpClient *http.Client
}

type contentsCommitter struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type contentsItem struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Type        string `json:"type"`
	SHA         string `json:"sha"`
	Size        int64  `json:"size"`
	Encoding    string `json:"encoding,omitempty"`
	Content     string `json:"content,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
}

type contentsPutRequest struct {
	Message   string             `json:"message"`
	Content   string             `json:"content"`
	SHA       string             `json:"sha,omitempty"`
	Branch    string             `json:"branch,omitempty"`
	Committer *contentsCommitter `json:"committer,omitempty"`
}

type contentsPutResponse struct {
	Content contentsItem `json:"content"`
}

func NewHTTPStore(cfg HTTPConfig, log *logger.Logger) (*HTTPStore, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("content store: base url required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("content store: invalid base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	message := strings.TrimSpace(cfg.CommitMessage)
	if message == "" {
		message = "Sync lesson narration audio"
	}
	var committer *contentsCommitter
	if name, email := strings.TrimSpace(cfg.CommitterName), strings.TrimSpace(cfg.CommitterEmail); name != "" && email != "" {
		committer = &contentsCommitter{Name: name, Email: email}
	}

	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &HTTPStore{
		log:        log.With("service", "ContentStore", "backend", "http"),
		baseURL:    baseURL,
		token:      strings.TrimSpace(cfg.Token),
		branch:     strings.TrimSpace(cfg.Branch),
		message:    message,
		committer:  committer,
		timeout:    timeout,
		httpClient: &http.Client{Transport: tr},
	}, nil
}

// NewHTTPStoreWithClient is intended for tests.
func NewHTTPStoreWithClient(cfg HTTPConfig, log *logger.Logger, httpClient *http.Client) (*HTTPStore, error) {
	s, err := NewHTTPStore(cfg, log)
	if err != nil {
		return nil, err
	}
	if httpClient != nil {
		s.httpClient = httpClient
	}
	return s, nil
}

func (s *HTTPStore) ListDirectory(ctx context.Context, dir string) ([]Entry, error) {
	dir = cleanPath(dir)
	raw, _, err := s.get(ctx, "list", dir)
	if err != nil {
		return nil, err
	}
	if !isJSONArray(raw) {
		return nil, fmt.Errorf("%q is not a directory: %w", dir, ErrNotFound)
	}
	var items []contentsItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode directory %q: %w", dir, err)
	}
	out := make([]Entry, 0, len(items))
	for _, it := range items {
		t := EntryTypeFile
		if it.Type == "dir" {
			t = EntryTypeDir
		}
		out = append(out, Entry{Name: it.Name, Path: it.Path, Type: t, Version: it.SHA})
	}
	return out, nil
}

func (s *HTTPStore) ReadFile(ctx context.Context, filePath string) (*File, error) {
	filePath = cleanPath(filePath)
	raw, _, err := s.get(ctx, "read", filePath)
	if err != nil {
		return nil, err
	}
	if isJSONArray(raw) {
		return nil, fmt.Errorf("%q is a directory: %w", filePath, ErrNotFound)
	}
	var item contentsItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("decode file %q: %w", filePath, err)
	}
	if item.Type != "" && item.Type != "file" {
		return nil, fmt.Errorf("%q is a %s: %w", filePath, item.Type, ErrNotFound)
	}

	var content []byte
	switch {
	case item.Encoding == "base64" && (item.Content != "" || item.Size == 0):
		content, err = base64.StdEncoding.DecodeString(strings.ReplaceAll(item.Content, "\n", ""))
		if err != nil {
			return nil, fmt.Errorf("decode content of %q: %w", filePath, err)
		}
	case item.DownloadURL != "":
		// Large files are not inlined by the contents API.
		content, err = s.download(ctx, filePath, item.DownloadURL)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("content store: unsupported encoding %q for %q", item.Encoding, filePath)
	}
	return &File{Path: filePath, Content: content, Version: item.SHA}, nil
}

func (s *HTTPStore) WriteFile(ctx context.Context, filePath string, content []byte, expectedVersion string) (string, error) {
	filePath = cleanPath(filePath)
	expectedVersion = strings.TrimSpace(expectedVersion)

	sha, status, err := s.put(ctx, filePath, content, expectedVersion)
	if err == nil {
		return sha, nil
	}
	if expectedVersion != "" || status != http.StatusUnprocessableEntity {
		return "", err
	}

	// The API refuses to overwrite an existing file without its sha.
	// Last writer wins: look the sha up and put once more.
	current, rerr := s.ReadFile(ctx, filePath)
	if rerr != nil {
		if errors.Is(rerr, ErrNotFound) {
			return "", err
		}
		return "", rerr
	}
	if bytes.Equal(current.Content, content) {
		return current.Version, nil
	}
	sha, _, err = s.put(ctx, filePath, content, current.Version)
	return sha, err
}

func (s *HTTPStore) put(ctx context.Context, filePath string, content []byte, sha string) (string, int, error) {
	body := contentsPutRequest{
		Message:   s.message,
		Content:   base64.StdEncoding.EncodeToString(content),
		SHA:       sha,
		Branch:    s.branch,
		Committer: s.committer,
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return "", 0, err
	}

	ctx2, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx2, http.MethodPut, s.contentsURL(filePath, false), &buf)
	if err != nil {
		return "", 0, err
	}
	s.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", 0, s.transportError(ctx, "write", filePath, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		var out contentsPutResponse
		if err := json.Unmarshal(raw, &out); err != nil {
			return "", resp.StatusCode, fmt.Errorf("decode write response for %q: %w", filePath, err)
		}
		return out.Content.SHA, resp.StatusCode, nil
	case resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusPreconditionFailed:
		return "", resp.StatusCode, fmt.Errorf("write %q: %w", filePath, ErrVersionConflict)
	case resp.StatusCode == http.StatusUnprocessableEntity && sha != "":
		// A sha that names no blob of this path is stale by definition.
		return "", resp.StatusCode, fmt.Errorf("write %q: %w", filePath, ErrVersionConflict)
	default:
		return "", resp.StatusCode, s.statusError(resp, "write", filePath, raw)
	}
}

func (s *HTTPStore) get(ctx context.Context, op, p string) ([]byte, int, error) {
	ctx2, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx2, http.MethodGet, s.contentsURL(p, true), nil)
	if err != nil {
		return nil, 0, err
	}
	s.setHeaders(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, 0, s.transportError(ctx, op, p, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, s.transportError(ctx, op, p, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, s.statusError(resp, op, p, raw)
	}
	return raw, resp.StatusCode, nil
}

func (s *HTTPStore) download(ctx context.Context, filePath, downloadURL string) ([]byte, error) {
	ctx2, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx2, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, err
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, s.transportError(ctx, "read", filePath, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, s.transportError(ctx, "read", filePath, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, s.statusError(resp, "read", filePath, raw)
	}
	return raw, nil
}

func (s *HTTPStore) statusError(resp *http.Response, op, p string, raw []byte) error {
	body := strings.TrimSpace(string(raw))
	if len(body) > 512 {
		body = body[:512]
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %q: %w", op, p, ErrNotFound)
	case httpx.IsRetryableHTTPStatus(resp.StatusCode), httpx.IsRateLimited(resp):
		s.log.Debug("content store transient response", "op", op, "path", p, "status", resp.StatusCode)
		return &TransientError{
			Op:         op,
			Path:       p,
			StatusCode: resp.StatusCode,
			RetryAfter: httpx.RetryAfterDuration(resp, 0, 0),
			Err:        errors.New(body),
		}
	default:
		return fmt.Errorf("content store: %s %q: status=%d body=%s", op, p, resp.StatusCode, body)
	}
}

func (s *HTTPStore) transportError(ctx context.Context, op, p string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return &TransientError{Op: op, Path: p, Err: err}
}

func (s *HTTPStore) contentsURL(p string, withRef bool) string {
	segs := strings.Split(p, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	u := s.baseURL + "/contents/" + strings.Join(segs, "/")
	if withRef && s.branch != "" {
		u += "?ref=" + url.QueryEscape(s.branch)
	}
	return u
}

func (s *HTTPStore) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github+json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
}

func isJSONArray(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
