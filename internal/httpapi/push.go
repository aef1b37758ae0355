package httpapi

import (
	"errors"
	"net/http"

	"counsel-platform/internal/push"

	"github.com/gin-gonic/gin"
)

type pushSubscriptionRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// SubscribePush stores the browser's PushSubscription JSON for the current user.
func (h Handlers) SubscribePush(c *gin.Context) {
	if h.Subscriptions == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "push not configured"})
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req pushSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	sub := push.Subscription{Endpoint: req.Endpoint, P256dh: req.Keys.P256dh, Auth: req.Keys.Auth}
	if err := h.Subscriptions.Save(c.Request.Context(), userID, sub); err != nil {
		if errors.Is(err, push.ErrInvalidSubscription) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "endpoint and keys required"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "subscription save failed"})
		return
	}
	c.Status(http.StatusCreated)
}
