package httpapi

import (
	"errors"
	"hash/fnv"
	"log/slog"
	"net/http"
	"time"

	"counsel-platform/internal/audit"
	"counsel-platform/internal/auth"
	"counsel-platform/internal/config"
	"counsel-platform/internal/rbac"
	"counsel-platform/internal/reporting"
	"counsel-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth          *auth.Manager
	Calls         CallStore
	History       History
	Directory     Directory
	Reports       *reporting.Service
	Subscriptions Subscriptions
	Locker        Locker
	Sessions      *SessionRunner
	Audit         *audit.Service

	Policy config.CallPolicy
}

// --- Auth ---

type loginRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, role required"})
		return
	}
	if !rbac.Valid(req.Role) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

func (h Handlers) Me(c *gin.Context) {
	uid, _ := auth.UserID(c.Request.Context())
	role, _ := auth.Role(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"user_id": uid, "role": role})
}

// --- helpers ---

func (h Handlers) log(c *gin.Context) *slog.Logger {
	return logger.FromGin(c)
}

func currentUser(c *gin.Context) (string, bool) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return "", false
	}
	return uid, true
}

func parseRange(c *gin.Context, def time.Duration) (time.Time, time.Time, error) {
	to := time.Now().UTC()
	from := to.Add(-def)
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("from must be RFC3339")
		}
		from = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("to must be RFC3339")
		}
		to = t
	}
	return from, to, nil
}

// MediaUID derives the stable numeric media uid of a participant. Zero is reserved by
// most RTC vendors for "assign one for me", so it is never returned.
func MediaUID(userID string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	if v := h.Sum32(); v != 0 {
		return v
	}
	return 1
}

func busyKey(receiverID string) string { return "call:busy:" + receiverID }
