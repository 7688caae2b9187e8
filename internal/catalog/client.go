// Package catalog reads listing, person and community snapshots from the
// marketplace services.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/imrishuroy/go-listing-checkout/internal/checkout"
)

// ErrCommunityNotFound is returned for unknown community ids.
var ErrCommunityNotFound = errors.New("community not found")

// errNotFound is the transport-level 404, mapped per resource.
var errNotFound = errors.New("not found")

// Client talks to the marketplace read API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a Client for baseURL. A nil httpClient gets a 5s timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Listing fetches a listing by id.
func (c *Client) Listing(ctx context.Context, id string) (*checkout.Listing, error) {
	var l checkout.Listing
	err := c.get(ctx, "/listings/"+url.PathEscape(id), &l)
	if errors.Is(err, errNotFound) {
		return nil, checkout.ErrListingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Person fetches a member of a community.
func (c *Client) Person(ctx context.Context, id, communityID string) (*checkout.Person, error) {
	var p checkout.Person
	err := c.get(ctx, "/communities/"+url.PathEscape(communityID)+"/people/"+url.PathEscape(id), &p)
	if errors.Is(err, errNotFound) {
		return nil, checkout.ErrPersonNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Community fetches a community by id.
func (c *Client) Community(ctx context.Context, id string) (*checkout.Community, error) {
	var cm checkout.Community
	err := c.get(ctx, "/communities/"+url.PathEscape(id), &cm)
	if errors.Is(err, errNotFound) {
		return nil, ErrCommunityNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cm, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
