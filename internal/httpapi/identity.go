package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"counsel-platform/internal/calls"
	"counsel-platform/internal/identity"

	"github.com/gin-gonic/gin"
)

func (h Handlers) GetUser(c *gin.Context)       { h.getProfile(c, calls.KindUser) }
func (h Handlers) GetCounsellor(c *gin.Context) { h.getProfile(c, calls.KindCounsellor) }

func (h Handlers) getProfile(c *gin.Context, kind calls.ParticipantKind) {
	if h.Directory == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "directory not configured"})
		return
	}
	p, err := h.Directory.Get(c.Request.Context(), kind, c.Param("id"))
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		h.log(c).Error("directory lookup failed", "kind", string(kind), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// DirectoryResolver resolves profiles straight from the database, for deployments
// where the API and the identity tables live together.
type DirectoryResolver struct {
	Dir interface {
		Lookup(ctx context.Context, id string) (identity.Profile, error)
	}
	Log *slog.Logger
}

func (r DirectoryResolver) Resolve(ctx context.Context, _ string, id string) identity.Profile {
	p, err := r.Dir.Lookup(ctx, id)
	if err != nil {
		if r.Log != nil {
			r.Log.Warn("identity lookup failed, using placeholder", "participant_id", id, "err", err)
		}
		return identity.Placeholder(id)
	}
	return p
}
