package storage

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"syscall"
	"time"

	"go-image-denoise/pkg/validation"
)

const fetchAttempts = 3

// ErrBlockedAddress is returned when a URL resolves to a non-public address.
var ErrBlockedAddress = errors.New("address not allowed")

// HTTPImageFetcher downloads images over HTTP with bounded retries.
type HTTPImageFetcher struct {
	client       *http.Client
	maxBytes     int64
	allowPrivate bool
	// backoff is multiplied by the attempt number between retries.
	backoff time.Duration
}

// NewHTTPImageFetcher creates an HTTP image fetcher that rejects bodies larger
// than maxBytes.
func NewHTTPImageFetcher(timeout time.Duration, maxBytes int64) *HTTPImageFetcher {
	h := &HTTPImageFetcher{maxBytes: maxBytes, backoff: time.Second}

	dialer := &net.Dialer{
		Timeout: 10 * time.Second,
		Control: h.checkAddress,
	}
	transport := &http.Transport{
		DialContext:            dialer.DialContext,
		MaxIdleConns:           10,
		MaxIdleConnsPerHost:    2,
		IdleConnTimeout:        30 * time.Second,
		TLSHandshakeTimeout:    10 * time.Second,
		ResponseHeaderTimeout:  10 * time.Second,
		ExpectContinueTimeout:  1 * time.Second,
		MaxResponseHeaderBytes: 4096,
	}

	h.client = &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return fmt.Errorf("too many redirects (limit: 3)")
			}
			return nil
		},
	}
	return h
}

// WithPrivateHosts lets the fetcher connect to loopback and private networks.
func (h *HTTPImageFetcher) WithPrivateHosts() *HTTPImageFetcher {
	h.allowPrivate = true
	return h
}

// checkAddress runs after DNS resolution, so redirects and rebinding are
// checked against the address actually dialed.
func (h *HTTPImageFetcher) checkAddress(network, address string, _ syscall.RawConn) error {
	if h.allowPrivate {
		return nil
	}
	addrPort, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, address)
	}
	if !validation.IsPublicAddr(addrPort.Addr()) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, addrPort.Addr())
	}
	return nil
}

// WithBackoff overrides the base retry delay.
func (h *HTTPImageFetcher) WithBackoff(d time.Duration) *HTTPImageFetcher {
	h.backoff = d
	return h
}

// FetchImage retries network failures and 5xx responses; 4xx responses fail
// immediately.
func (h *HTTPImageFetcher) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		data, retryable, err := h.fetchOnce(ctx, imageURL)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !retryable || attempt == fetchAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * h.backoff):
		}
	}
	return nil, fmt.Errorf("failed to fetch image after %d attempts: %w", fetchAttempts, lastErr)
}

func (h *HTTPImageFetcher) fetchOnce(ctx context.Context, imageURL string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("Accept", "image/jpeg, image/png, image/webp, image/bmp, image/tiff, */*")
	req.Header.Set("User-Agent", "Go-Image-Denoise/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, !errors.Is(err, ErrBlockedAddress), err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("server error: status code %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, false, fmt.Errorf("client error: status code %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	data, err := readLimited(resp.Body, h.maxBytes)
	if err != nil {
		return nil, false, err
	}
	return data, false, nil
}
