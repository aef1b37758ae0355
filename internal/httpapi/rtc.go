package httpapi

import (
	"net/http"
	"time"

	"counsel-platform/internal/rtc"

	"github.com/gin-gonic/gin"
)

// RTCToken mints a channel token for a participant of the call.
func (h Handlers) RTCToken(c *gin.Context) {
	if h.Auth == nil || h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "rtc tokens not configured"})
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	channelID := c.Query("channel_id")
	role := rtc.Role(c.DefaultQuery("role", string(rtc.RolePublisher)))
	if channelID == "" || !role.Valid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "channel_id and a valid role required"})
		return
	}
	if _, ok := h.loadParticipantRecord(c, userID, channelID); !ok {
		return
	}

	uid := MediaUID(userID)
	tok, err := h.Auth.IssueRTCToken(time.Now(), userID, channelID, string(role), uid)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tok, "uid": uid})
}
