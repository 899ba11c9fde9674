package ics

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/losredoe132/muellabfuhr-reminder/internal/log"
)

const (
	// MaxResponseSize caps the calendar body at the receive buffer of
	// the device profile this service is sized for. The municipal feed
	// for one household stays well under it.
	MaxResponseSize = 32000
	// sendBufferSize is the transport-level write buffer.
	sendBufferSize = 4096
)

var (
	// ErrFetch wraps transport-level failures of the calendar request.
	ErrFetch = errors.New("calendar fetch failed")
	// ErrBodyTooLarge reports a response body beyond MaxResponseSize.
	ErrBodyTooLarge = errors.New("calendar body exceeds receive buffer")
	// ErrBodyNotUTF8 reports a response body that is not valid UTF-8.
	ErrBodyNotUTF8 = errors.New("calendar body is not valid UTF-8")
)

// Fetcher performs the single calendar request of a refresh cycle.
// There is no retry and no cache; a failed cycle waits for the next.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher. insecure disables certificate
// verification, for devices without a CA store or endpoints with a
// broken chain.
func NewFetcher(insecure bool) *Fetcher {
	transport := &http.Transport{
		ReadBufferSize:  MaxResponseSize,
		WriteBufferSize: sendBufferSize,
	}
	if insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		log.Warn("certificate verification disabled for calendar endpoint")
	}
	return &Fetcher{
		client: &http.Client{
			Timeout:   15 * time.Second,
			Transport: transport,
		},
	}
}

// Fetch performs one GET against url and returns the calendar body as
// a string. The body must fit MaxResponseSize and be valid UTF-8.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if url == "" {
		return "", fmt.Errorf("%w: empty url", ErrFetch)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFetch, err)
	}

	log.Info("calendar fetch start", "url", redactURL(url))

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s", ErrFetch, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if len(body) > MaxResponseSize {
		return "", fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, MaxResponseSize)
	}
	if !utf8.Valid(body) {
		return "", ErrBodyNotUTF8
	}

	log.Info("calendar fetch done", "url", redactURL(url), "bytes", len(body))

	return string(body), nil
}

// redactURL trims an endpoint URL to its host for logging; the query
// string identifies a household.
func redactURL(u string) string {
	const redacted = "/...(redacted)"

	i := strings.Index(u, "://")
	if i == -1 {
		return "https://...(redacted)"
	}
	j := strings.IndexByte(u[i+3:], '/')
	if j == -1 {
		return u + redacted
	}
	return u[:i+3+j] + redacted
}
