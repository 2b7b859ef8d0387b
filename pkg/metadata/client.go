// Package metadata queries the cloud metadata endpoint for instance
// identity data.
package metadata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/opslab/labseed/pkg/render"
)

// DefaultBaseURL is the well-known link-local metadata service.
const DefaultBaseURL = "http://169.254.169.254/latest"

// Client fetches plain-text values from the metadata endpoint. Early-boot
// metadata servers drop connections while they come up, so requests are
// retried with backoff.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
}

// NewClient creates a metadata client for the given base URL; an empty
// base URL selects the link-local default.
func NewClient(baseURL string, logger hclog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = 5 * time.Second
	if logger != nil {
		rc.Logger = logger.Named("metadata")
	} else {
		rc.Logger = nil
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    rc,
	}
}

// Hostname returns the instance's fully qualified hostname.
func (c *Client) Hostname(ctx context.Context) (string, error) {
	return c.get(ctx, "meta-data/hostname")
}

// LocalIPv4 returns the instance's local IPv4 address.
func (c *Client) LocalIPv4(ctx context.Context) (string, error) {
	return c.get(ctx, "meta-data/local-ipv4")
}

// Vars fetches the metadata-derived variable mapping: `{hostname}` (short
// name), `{fqdn}`, `{local_ipv4}`, and `{lab_domain}` when the reported
// hostname carries a domain.
func (c *Client) Vars(ctx context.Context) (render.Vars, error) {
	fqdn, err := c.Hostname(ctx)
	if err != nil {
		return nil, err
	}
	ip, err := c.LocalIPv4(ctx)
	if err != nil {
		return nil, err
	}

	vars := render.Vars{
		"hostname":   ShortHostname(fqdn),
		"fqdn":       fqdn,
		"local_ipv4": ip,
	}
	if domain := Domain(fqdn); domain != "" {
		vars["lab_domain"] = domain
	}
	return vars, nil
}

// get performs one plain-text metadata request.
func (c *Client) get(ctx context.Context, path string) (string, error) {
	url := c.baseURL + "/" + path
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build metadata request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("metadata request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("metadata request %s returned status %d", path, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", fmt.Errorf("failed to read metadata response: %w", err)
	}
	return strings.TrimSpace(string(body)), nil
}

// ShortHostname strips the domain from a fully qualified hostname.
func ShortHostname(fqdn string) string {
	if i := strings.IndexByte(fqdn, '.'); i > 0 {
		return fqdn[:i]
	}
	return fqdn
}

// Domain returns the domain part of a fully qualified hostname, or "".
func Domain(fqdn string) string {
	if i := strings.IndexByte(fqdn, '.'); i > 0 && i < len(fqdn)-1 {
		return fqdn[i+1:]
	}
	return ""
}
