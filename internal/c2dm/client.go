// Package c2dm sends wake messages through the Cloud-to-Device Messaging
// endpoint. The protocol is a form-encoded POST authenticated by a
// gateway-wide ClientLogin token; the service may rotate that token through
// the Update-Client-Auth response header.
package c2dm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DataDog/datadog-go/statsd"
)

const (
	DefaultEndpoint = "https://android.apis.google.com/c2dm/send"

	updateClientAuthHeader = "Update-Client-Auth"
)

type Response struct {
	MessageID string

	// Non-empty when the push service rotated our credential; callers must
	// persist it before the old token expires.
	UpdatedAuthToken string
}

type Client struct {
	endpoint string
	client   *http.Client
	statsd   statsd.ClientInterface
}

func NewClient(endpoint string, statsd statsd.ClientInterface, connLimit int) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = connLimit
	t.MaxConnsPerHost = connLimit
	t.MaxIdleConnsPerHost = connLimit
	t.IdleConnTimeout = 60 * time.Second
	t.ResponseHeaderTimeout = 5 * time.Second

	return &Client{
		endpoint,
		&http.Client{Transport: t},
		statsd,
	}
}

// Send pushes one message to the device registered as registrationID. Messages
// sharing a collapse key replace each other while the device is offline.
func (c *Client) Send(ctx context.Context, authToken, registrationID, collapseKey string, data map[string]string) (*Response, error) {
	form := url.Values{}
	form.Set("registration_id", registrationID)
	form.Set("collapse_key", collapseKey)
	form.Set("delay_while_idle", "0")
	for k, v := range data {
		form.Set(fmt.Sprintf("data.%s", k), v)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", fmt.Sprintf("GoogleLogin auth=%s", authToken))

	start := time.Now()
	resp, err := c.client.Do(req)
	_ = c.statsd.Histogram("hermod.push.latency", float64(time.Since(start).Milliseconds()), nil, 0.1)
	if err != nil {
		_ = c.statsd.Incr("hermod.push.errors", []string{"reason:transport"}, 1)
		return nil, err
	}
	defer resp.Body.Close()

	bb, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		// handled below
	case http.StatusUnauthorized:
		_ = c.statsd.Incr("hermod.push.errors", []string{"reason:auth"}, 1)
		return nil, ErrInvalidAuthToken
	case http.StatusServiceUnavailable:
		_ = c.statsd.Incr("hermod.push.errors", []string{"reason:unavailable"}, 1)
		return nil, ErrUnavailable
	default:
		return nil, ServerError{Body: string(bb), StatusCode: resp.StatusCode}
	}

	body := parseBody(string(bb))

	if code, ok := body["Error"]; ok {
		_ = c.statsd.Incr("hermod.push.errors", []string{fmt.Sprintf("reason:%s", code)}, 1)
		if err, ok := errorsByCode[code]; ok {
			return nil, err
		}
		return nil, ServerError{Body: string(bb), StatusCode: resp.StatusCode}
	}

	_ = c.statsd.Incr("hermod.push.sent", nil, 1)

	return &Response{
		MessageID:        body["id"],
		UpdatedAuthToken: resp.Header.Get(updateClientAuthHeader),
	}, nil
}

// parseBody splits the line-oriented key=value response format.
func parseBody(body string) map[string]string {
	kv := map[string]string{}
	for _, line := range strings.Split(body, "\n") {
		parts := strings.SplitN(strings.TrimSpace(line), "=", 2)
		if len(parts) != 2 {
			continue
		}
		kv[parts[0]] = parts[1]
	}
	return kv
}
