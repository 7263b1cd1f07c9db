package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/top250-scraper/pkg/utils"
)

// maxBodyBytes caps how much of a list page is read into memory
const maxBodyBytes = 8 << 20

// PageFetcher is the contract the crawler depends on
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// Fetcher issues exactly one GET per page with a fixed browser User-Agent.
// There is no retry: any failure is returned to the caller, which skips the page.
type Fetcher struct {
	client    *http.Client
	userAgent string
	robots    *RobotsHandler // nil = robots.txt not consulted
	log       *logrus.Entry
}

// NewFetcher creates a new Fetcher instance
func NewFetcher(client *http.Client, userAgent string, log *logrus.Entry) *Fetcher {
	return &Fetcher{
		client:    client,
		userAgent: userAgent,
		log:       log,
	}
}

// WithRobots makes the fetcher check robots.txt before each page
func (f *Fetcher) WithRobots(rh *RobotsHandler) *Fetcher {
	f.robots = rh
	return f
}

// Fetch performs a single GET and returns the body as text.
// Non-2xx responses are mapped onto the HTTP sentinel errors; transport failures wrap ErrNetwork.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	reqLog := f.log.WithField("url", pageURL)

	if f.robots != nil {
		allowed, err := f.robots.Allowed(ctx, pageURL)
		if err != nil {
			reqLog.Warnf("robots.txt check failed, proceeding: %v", err)
		} else if !allowed {
			return "", fmt.Errorf("%w: %s", utils.ErrRobotsDisallowed, pageURL)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", utils.ErrRequestCreation, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", utils.ErrNetwork, err)
	}
	defer resp.Body.Close()

	statusCode := resp.StatusCode
	resLog := reqLog.WithFields(logrus.Fields{"status_code": statusCode, "status": resp.Status})

	switch {
	case statusCode >= 200 && statusCode < 300:
		// fall through to body read
	case statusCode >= 500:
		drain(resp.Body)
		return "", fmt.Errorf("%w: status %d %s", utils.ErrServerHTTPError, statusCode, resp.Status)
	case statusCode >= 400:
		drain(resp.Body)
		return "", fmt.Errorf("%w: status %d %s", utils.ErrClientHTTPError, statusCode, resp.Status)
	default:
		drain(resp.Body)
		return "", fmt.Errorf("%w: status %d %s", utils.ErrOtherHTTPError, statusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("%w: %w", utils.ErrResponseBodyRead, err)
	}
	resLog.WithField("bytes", len(body)).Debug("Successfully fetched")
	return string(body), nil
}

// drain discards the rest of a body so the connection can be reused
func drain(body io.Reader) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
}
