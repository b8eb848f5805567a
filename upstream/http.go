package upstream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

var (
	upstreamRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "homefeed_upstream_retries_total",
		Help: "The total number of retried upstream transport failures",
	})

	upstreamRedirects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "homefeed_upstream_redirects_total",
		Help: "The total number of followed upstream redirects",
	})
)

// Feeds occasionally bounce through several hosts before settling, so allow
// a handful of hops before giving up.
const maxRedirects = 10

// NewClient returns an HTTP client that does not follow redirects on its
// own. Get handles them manually because Location headers in the wild may be
// scheme-relative or relative to the current URL.
func NewClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Get fetches rawURL and returns the response body. Redirects are followed
// up to maxRedirects hops; transient transport failures are retried with
// exponential backoff before being surfaced as a TransportError. Non-success
// terminal responses become a StatusError carrying status and body.
func Get(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	if client == nil {
		client = NewClient()
	}

	current := rawURL
	for redirects := 0; ; redirects++ {
		body, status, location, err := get(ctx, client, current)
		if err != nil {
			return nil, err
		}

		if status >= 300 && status < 400 && location != "" {
			if redirects >= maxRedirects {
				return nil, &TransportError{URL: rawURL, Err: errors.New("too many redirects")}
			}

			next, err := resolveLocation(current, location)
			if err != nil {
				return nil, &TransportError{URL: current, Err: err}
			}

			upstreamRedirects.Inc()
			log.WithFields(log.Fields{
				"from": current,
				"to":   next,
			}).Debug("Following redirect")

			current = next
			continue
		}

		if status < 200 || status >= 300 {
			return nil, &StatusError{Status: status, Body: string(body)}
		}

		return body, nil
	}
}

func get(ctx context.Context, client *http.Client, url string) (body []byte, status int, location string, err error) {
	// Retry transient transport failures, not HTTP-level errors
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.Multiplier = 1.5
	bo.MaxElapsedTime = 10 * time.Second

	var resp *http.Response
	err = backoff.Retry(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err = client.Do(req)
		if err != nil {
			upstreamRetries.Inc()
			log.WithFields(log.Fields{
				"url":   url,
				"error": err,
			}).Warn("Transport error, retrying")
			return err
		}
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return nil, 0, "", &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, "", &TransportError{URL: url, Err: err}
	}

	return body, resp.StatusCode, resp.Header.Get("Location"), nil
}

// resolveLocation turns a Location header value into an absolute URL. The
// value may be absolute, scheme-relative (//host/path) or relative to the
// URL that produced the redirect.
func resolveLocation(current, location string) (string, error) {
	if strings.HasPrefix(location, "//") {
		location = "https:" + location
	}

	ref, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}

	base, err := url.Parse(current)
	if err != nil {
		return "", err
	}

	return base.ResolveReference(ref).String(), nil
}
