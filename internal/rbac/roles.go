package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleUser       = "user"
	RoleCounsellor = "counsellor"
	RoleAdmin      = "admin"
)

func IsAdmin(role string) bool { return role == RoleAdmin }

// IsParticipant reports whether role can place or receive calls.
func IsParticipant(role string) bool { return role == RoleUser || role == RoleCounsellor }

func Valid(role string) bool { return IsParticipant(role) || IsAdmin(role) }
