package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/imrishuroy/go-listing-checkout/internal/catalog"
	"github.com/imrishuroy/go-listing-checkout/internal/checkout"
)

const (
	headerUserID      = "X-User-Id"
	headerCommunityID = "X-Community-Id"
	headerRequestID   = "X-Request-Id"

	ctxActor     = "actor"
	ctxRequestID = "request_id"
)

// Actor is the authenticated user and the community the request is made in.
// Both come from headers set by the upstream auth layer.
type Actor struct {
	UserID    string
	Community checkout.Community
}

// CommunityQuery resolves the community of a request.
type CommunityQuery interface {
	Get(ctx context.Context, id string) (*checkout.Community, error)
}

// RequestID propagates X-Request-Id, generating one when absent.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// RequireActor loads the acting user and community or aborts.
func RequireActor(communities CommunityQuery, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(headerUserID)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		communityID := c.GetHeader(headerCommunityID)
		if communityID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing_community"})
			return
		}

		community, err := communities.Get(c.Request.Context(), communityID)
		if errors.Is(err, catalog.ErrCommunityNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "community_not_found"})
			return
		}
		if err != nil {
			logger.ErrorContext(c.Request.Context(), "load community",
				slog.String("community_id", communityID),
				slog.String("request_id", c.GetString(ctxRequestID)),
				slog.String("error", err.Error()),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "community_lookup_failed"})
			return
		}

		c.Set(ctxActor, Actor{UserID: userID, Community: *community})
		c.Next()
	}
}

func actorFrom(c *gin.Context) Actor {
	a, _ := c.MustGet(ctxActor).(Actor)
	return a
}
