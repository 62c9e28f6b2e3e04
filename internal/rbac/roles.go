package rbac

// Role names as issued by the identity provider. Keep these stable; they are part of
// auth/RBAC contracts.
const (
	RoleAuthenticated = "authenticated"
	RoleEditor        = "editor"
	RoleAdmin         = "admin"
)

func IsAdmin(role string) bool { return role == RoleAdmin }
