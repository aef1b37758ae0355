package main

import (
	"counsel-platform/internal/httpapi"
	"counsel-platform/internal/rbac"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.POST("/v1/auth/login", h.Login)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		v1.GET("/me", h.Me)
		v1.GET("/rtc/token", h.RTCToken)

		v1.GET("/users/:id", h.GetUser)
		v1.GET("/counsellors/:id", h.GetCounsellor)

		v1.POST("/push/subscriptions", h.SubscribePush)

		v1.GET("/calls/history", h.CallHistory)
		v1.GET("/calls/summary", h.CallsSummary)
		v1.GET("/calls/:channel_id/session", h.Session)

		participants := v1.Group("/calls")
		participants.Use(rbac.RequireAnyRole(rbac.RoleUser, rbac.RoleCounsellor))
		{
			participants.POST("", h.StartCall)
			participants.POST("/:channel_id/decline", h.DeclineCall)
			participants.POST("/:channel_id/seen", h.MarkMissedSeen)
		}
	}
}
