package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"

	"github.com/Sriram-PR/top250-scraper/pkg/utils"
)

// RobotsHandler fetches, parses and caches robots.txt per host.
// Not safe for concurrent use; the crawl is sequential.
type RobotsHandler struct {
	client      *http.Client
	userAgent   string
	robotsCache map[string]*robotstxt.RobotsData // hostname -> parsed data (nil = unavailable, allow all)
	log         *logrus.Entry
}

// NewRobotsHandler creates a RobotsHandler
func NewRobotsHandler(client *http.Client, userAgent string, log *logrus.Entry) *RobotsHandler {
	return &RobotsHandler{
		client:      client,
		userAgent:   userAgent,
		robotsCache: make(map[string]*robotstxt.RobotsData),
		log:         log,
	}
}

// Allowed reports whether the configured agent may fetch pageURL.
// Hosts whose robots.txt cannot be obtained are treated as allowing everything.
func (rh *RobotsHandler) Allowed(ctx context.Context, pageURL string) (bool, error) {
	target, err := url.Parse(pageURL)
	if err != nil {
		return false, fmt.Errorf("%w: URL '%s': %w", utils.ErrParsing, pageURL, err)
	}

	data := rh.robotsData(ctx, target)
	if data == nil {
		return true, nil
	}
	return data.TestAgent(target.RequestURI(), rh.userAgent), nil
}

// robotsData returns cached rules for the target's host, fetching them on first use
func (rh *RobotsHandler) robotsData(ctx context.Context, target *url.URL) *robotstxt.RobotsData {
	host := target.Host
	if data, found := rh.robotsCache[host]; found {
		return data
	}

	robotsURL := &url.URL{Scheme: target.Scheme, Host: host, Path: "/robots.txt"}
	robotsLog := rh.log.WithField("robots_url", robotsURL.String())
	robotsLog.Info("Fetching robots.txt...")

	data, err := rh.fetchRobots(ctx, robotsURL.String())
	if err != nil {
		robotsLog.Warnf("robots.txt unavailable, allowing all: %v", err)
		rh.robotsCache[host] = nil
		return nil
	}
	robotsLog.Info("Successfully fetched and parsed robots.txt")
	rh.robotsCache[host] = data
	return data
}

func (rh *RobotsHandler) fetchRobots(ctx context.Context, robotsURL string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrRequestCreation, err)
	}
	req.Header.Set("User-Agent", rh.userAgent)

	resp, err := rh.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: status %d %s", utils.ErrServerHTTPError, resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512<<10))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrResponseBodyRead, err)
	}

	// 4xx yields allow-all rules per robotstxt semantics
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("%w: robots.txt: %w", utils.ErrParsing, err)
	}
	return data, nil
}
