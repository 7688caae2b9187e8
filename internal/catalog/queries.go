package catalog

import (
	"context"

	"github.com/imrishuroy/go-listing-checkout/internal/checkout"
)

// Listings implements checkout.ListingQuery.
type Listings struct {
	client *Client
	cache  *Cache
}

// NewListings returns a listing query. cache may be nil.
func NewListings(client *Client, cache *Cache) *Listings {
	return &Listings{client: client, cache: cache}
}

func (l *Listings) Get(ctx context.Context, id string) (*checkout.Listing, error) {
	return readThrough(ctx, l.cache, "listing:"+id, func(ctx context.Context) (*checkout.Listing, error) {
		return l.client.Listing(ctx, id)
	})
}

// People implements checkout.PersonQuery.
type People struct {
	client *Client
	cache  *Cache
}

// NewPeople returns a person query. cache may be nil.
func NewPeople(client *Client, cache *Cache) *People {
	return &People{client: client, cache: cache}
}

func (p *People) Get(ctx context.Context, id, communityID string) (*checkout.Person, error) {
	return readThrough(ctx, p.cache, "person:"+communityID+":"+id, func(ctx context.Context) (*checkout.Person, error) {
		return p.client.Person(ctx, id, communityID)
	})
}

// Communities resolves the community a request is made in.
type Communities struct {
	client *Client
	cache  *Cache
}

// NewCommunities returns a community query. cache may be nil.
func NewCommunities(client *Client, cache *Cache) *Communities {
	return &Communities{client: client, cache: cache}
}

func (c *Communities) Get(ctx context.Context, id string) (*checkout.Community, error) {
	return readThrough(ctx, c.cache, "community:"+id, func(ctx context.Context) (*checkout.Community, error) {
		return c.client.Community(ctx, id)
	})
}

var (
	_ checkout.ListingQuery = (*Listings)(nil)
	_ checkout.PersonQuery  = (*People)(nil)
)
