package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
	TokenTypeRTC     TokenType = "rtc"
)

// Claims are the only supported JWT claims shape for this service.
// Role is one of the rbac roles on access tokens and empty on refresh tokens.
// RTC tokens additionally carry the channel and the media role they were minted for.
type Claims struct {
	jwt.RegisteredClaims

	UserID    string    `json:"user_id"`
	Role      string    `json:"role,omitempty"`
	TokenType TokenType `json:"token_type"`

	ChannelID string `json:"channel_id,omitempty"`
	RTCRole   string `json:"rtc_role,omitempty"`
	UID       uint32 `json:"uid,omitempty"`
}
