package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"counsel-platform/internal/auth"
	"counsel-platform/internal/calls"
	"counsel-platform/internal/reporting"
	"counsel-platform/internal/signaling"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// busySlack keeps the receiver's busy lock a little past the ring timeout so a
// late answer does not race a new incoming call.
const busySlack = 30 * time.Second

type startCallRequest struct {
	ReceiverID string         `json:"receiver_id"`
	CallType   calls.CallType `json:"call_type"`
}

type startCallResponse struct {
	ChannelID string           `json:"channel_id"`
	Status    calls.CallStatus `json:"status"`
	CallType  calls.CallType   `json:"call_type"`
	UID       uint32           `json:"uid"`
}

// StartCall creates the remote call record, raises the receiver's ringing signal and
// opens the history row. The receiver may only have one ringing call.
func (h Handlers) StartCall(c *gin.Context) {
	if h.Calls == nil || h.Locker == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "calls not configured"})
		return
	}
	callerID, ok := currentUser(c)
	if !ok {
		return
	}
	var req startCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.CallType == "" {
		req.CallType = calls.CallTypeAudio
	}
	if req.ReceiverID == "" || !req.CallType.Valid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "receiver_id and a valid call_type required"})
		return
	}
	if req.ReceiverID == callerID {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "cannot call yourself"})
		return
	}

	ctx := c.Request.Context()
	log := h.log(c)
	channelID := uuid.NewString()

	acquired, err := h.Locker.Acquire(ctx, busyKey(req.ReceiverID), channelID, h.Policy.RingTimeout+busySlack)
	if err != nil {
		log.Error("busy lock failed", "receiver_id", req.ReceiverID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call start failed"})
		return
	}
	if !acquired {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "receiver is busy"})
		return
	}

	now := time.Now().UTC()
	rec := signaling.RemoteCallRecord{
		ChannelID:  channelID,
		CallerID:   callerID,
		ReceiverID: req.ReceiverID,
		CallType:   req.CallType,
		CreatedAt:  now,
	}
	if err := h.Calls.Create(ctx, rec); err != nil {
		log.Error("call record create failed", "channel_id", channelID, "err", err)
		_ = h.Locker.Release(ctx, busyKey(req.ReceiverID), channelID)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call start failed"})
		return
	}
	if err := h.Calls.SetPresence(ctx, channelID, req.ReceiverID, callerID, h.Policy.RingTimeout); err != nil {
		log.Warn("presence set failed", "channel_id", channelID, "err", err)
	}
	if h.History != nil {
		if _, err := h.History.Insert(ctx, calls.Call{
			ChannelID:  channelID,
			CallerID:   callerID,
			ReceiverID: req.ReceiverID,
			CallType:   req.CallType,
			StartedAt:  now,
		}); err != nil {
			log.Warn("call history insert failed", "channel_id", channelID, "err", err)
		}
	}

	if h.Audit != nil {
		role, _ := auth.Role(ctx)
		if err := h.Audit.LogCallStarted(ctx, channelID, callerID, role, c.ClientIP(), req.ReceiverID); err != nil {
			log.Warn("audit append failed", "channel_id", channelID, "err", err)
		}
	}

	log.Info("call started", "channel_id", channelID, "receiver_id", req.ReceiverID, "call_type", string(req.CallType))
	c.JSON(http.StatusCreated, startCallResponse{
		ChannelID: channelID,
		Status:    calls.CallStatusCalling,
		CallType:  req.CallType,
		UID:       MediaUID(callerID),
	})
}

// loadParticipantRecord fetches the record for channelID and checks the current user
// takes part in it.
func (h Handlers) loadParticipantRecord(c *gin.Context, userID, channelID string) (signaling.RemoteCallRecord, bool) {
	rec, err := h.Calls.Get(c.Request.Context(), channelID)
	if err != nil {
		if errors.Is(err, signaling.ErrRecordNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call not found"})
			return signaling.RemoteCallRecord{}, false
		}
		h.log(c).Error("call record read failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call lookup failed"})
		return signaling.RemoteCallRecord{}, false
	}
	if rec.CallerID != userID && rec.ReceiverID != userID {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return signaling.RemoteCallRecord{}, false
	}
	return rec, true
}

// DeclineCall is the receiver rejecting a ringing call. The caller's session sees the
// Declined status through its listener and tears down.
func (h Handlers) DeclineCall(c *gin.Context) {
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "calls not configured"})
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	rec, ok := h.loadParticipantRecord(c, userID, c.Param("channel_id"))
	if !ok {
		return
	}
	if rec.ReceiverID != userID {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "only the receiver can decline"})
		return
	}
	if rec.Terminal() {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "call already finished"})
		return
	}

	ctx := c.Request.Context()
	log := h.log(c)
	out, err := h.Calls.SetStatus(ctx, rec.ChannelID, calls.CallStatusDeclined)
	if err != nil {
		log.Error("call decline failed", "channel_id", rec.ChannelID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "decline failed"})
		return
	}
	if err := h.Calls.ClearPresence(ctx, rec.ChannelID, rec.ReceiverID); err != nil {
		log.Warn("presence clear failed", "channel_id", rec.ChannelID, "err", err)
	}
	if h.History != nil {
		if _, err := h.History.Finish(ctx, rec.ChannelID, calls.CallStatusDeclined, 0, time.Now().UTC()); err != nil && !errors.Is(err, calls.ErrNotFound) {
			log.Warn("call history finish failed", "channel_id", rec.ChannelID, "err", err)
		}
	}
	if h.Locker != nil {
		if err := h.Locker.Release(ctx, busyKey(rec.ReceiverID), rec.ChannelID); err != nil {
			log.Warn("busy lock release failed", "channel_id", rec.ChannelID, "err", err)
		}
	}
	if h.Audit != nil {
		role, _ := auth.Role(ctx)
		if err := h.Audit.LogCallDeclined(ctx, rec.ChannelID, userID, role, c.ClientIP()); err != nil {
			log.Warn("audit append failed", "channel_id", rec.ChannelID, "err", err)
		}
	}
	c.JSON(http.StatusOK, out)
}

// MarkMissedSeen lets the receiver acknowledge a missed call.
func (h Handlers) MarkMissedSeen(c *gin.Context) {
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "calls not configured"})
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	rec, ok := h.loadParticipantRecord(c, userID, c.Param("channel_id"))
	if !ok {
		return
	}
	if rec.ReceiverID != userID || rec.Status != calls.CallStatusMissed {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "not a missed call for this user"})
		return
	}
	if err := h.Calls.MarkMissedSeen(c.Request.Context(), rec.ChannelID); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h Handlers) CallHistory(c *gin.Context) {
	if h.History == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "history not configured"})
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	from, to, err := parseRange(c, 30*24*time.Hour)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	rows, err := h.History.ListForParticipant(c.Request.Context(), userID, from, to, limit)
	if err != nil {
		h.log(c).Error("call history read failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "history lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": rows})
}

func (h Handlers) CallsSummary(c *gin.Context) {
	if h.Reports == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	from, to, err := parseRange(c, 30*24*time.Hour)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out, err := h.Reports.CallsSummary(c.Request.Context(), reporting.CallsSummaryRequest{
		ParticipantID: userID,
		Range:         reporting.TimeRange{From: from, To: to},
	})
	if err != nil {
		if errors.Is(err, reporting.ErrInvalidRequest) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid range"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "summary failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}
