package hf

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/smartblood-kerala/smartblood-backend/internal/logger"
	"github.com/smartblood-kerala/smartblood-backend/internal/pkg/httpx"
)

// Client downloads model artifacts from the Hugging Face hub. Paths of the
// form hf://<repo>/<file> resolve to the hub's raw download endpoint.

type Client interface {
	Download(ctx context.Context, repoID, filename, destDir string) (string, error)
}

type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	MaxRetries int
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://huggingface.co"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &client{
		log:        log.With("client", "HuggingFaceClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// ParseURI splits hf://<repo-id>/<filename> into its parts. The repo id is
// the first two path segments (owner/name).
func ParseURI(uri string) (repoID, filename string, err error) {
	trimmed := strings.TrimPrefix(uri, "hf://")
	if trimmed == uri {
		return "", "", fmt.Errorf("not an hf:// uri: %s", uri)
	}
	parts := strings.SplitN(trimmed, "/", 3)
	if len(parts) < 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", fmt.Errorf("malformed hf:// uri: %s", uri)
	}
	return parts[0] + "/" + parts[1], parts[2], nil
}

type httpError struct {
	StatusCode int
	URL        string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("huggingface http %d: %s", e.StatusCode, e.URL)
}

func (e *httpError) HTTPStatusCode() int { return e.StatusCode }

func (c *client) Download(ctx context.Context, repoID, filename, destDir string) (string, error) {
	if strings.TrimSpace(repoID) == "" || strings.TrimSpace(filename) == "" {
		return "", fmt.Errorf("hf: repo id and filename required")
	}
	dest := filepath.Join(destDir, filepath.Base(filename))
	url := fmt.Sprintf("%s/%s/resolve/main/%s", c.cfg.BaseURL, repoID, filename)

	backoff := 1 * time.Second
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if err := c.downloadOnce(ctx, url, dest); err != nil {
			lastErr = err
			if !httpx.IsRetryableError(err) || attempt == c.cfg.MaxRetries {
				return "", err
			}
			sleepFor := httpx.JitterSleep(backoff)
			c.log.Warn("Artifact download retrying",
				"url", url,
				"attempt", attempt+1,
				"sleep", sleepFor.String(),
				"error", err.Error(),
			)
			time.Sleep(sleepFor)
			backoff *= 2
			continue
		}
		return dest, nil
	}
	return "", lastErr
}

func (c *client) downloadOnce(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &httpError{StatusCode: resp.StatusCode, URL: url}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	tmp := dest + ".download"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dest)
}
