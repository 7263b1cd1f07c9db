package fetch

import (
	"fmt"
	"net"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/top250-scraper/pkg/config"
)

// maxRedirects bounds same-host redirect chains
const maxRedirects = 10

// NewClient builds the HTTP client shared by the page fetcher and the robots check.
//
// Redirects are followed only while they stay on the host of the original request.
// A redirect to another host (the list pages send blocked clients to a captcha
// domain) is not followed: the 3xx response itself is returned, and the fetcher
// reports it as a non-2xx status for that page.
func NewClient(cfg config.HTTPClientConfig, log *logrus.Entry) *http.Client {
	client := &http.Client{
		Timeout:       cfg.Timeout,
		Transport:     newTransport(cfg),
		CheckRedirect: sameHostRedirects(log),
	}
	log.WithField("timeout", cfg.Timeout).Debug("HTTP client initialized")
	return client
}

func newTransport(cfg config.HTTPClientConfig) *http.Transport {
	dialer := &net.Dialer{Timeout: cfg.DialerTimeout, KeepAlive: cfg.DialerKeepAlive}
	t := &http.Transport{
		Proxy:                  http.ProxyFromEnvironment,
		DialContext:            dialer.DialContext,
		ForceAttemptHTTP2:      true,
		MaxIdleConns:           cfg.MaxIdleConns,
		MaxIdleConnsPerHost:    cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:        cfg.IdleConnTimeout,
		TLSHandshakeTimeout:    cfg.TLSHandshakeTimeout,
		ExpectContinueTimeout:  cfg.ExpectContinueTimeout,
		MaxResponseHeaderBytes: 1 << 20,
	}
	if cfg.ForceAttemptHTTP2 != nil {
		t.ForceAttemptHTTP2 = *cfg.ForceAttemptHTTP2
	}
	return t
}

func sameHostRedirects(log *logrus.Entry) func(req *http.Request, via []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		origin := via[0].URL
		if req.URL.Host != origin.Host {
			log.WithFields(logrus.Fields{"from": origin.String(), "to": req.URL.String()}).
				Warn("Not following redirect to another host")
			return http.ErrUseLastResponse
		}
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		log.Debugf("Redirecting: %s -> %s (hop %d)", via[len(via)-1].URL, req.URL, len(via))
		return nil
	}
}
