package auth

// Keys under which verified claims are stored in the gin context. They live
// here rather than in the middleware package so handlers and middleware share
// them without an import cycle.
const (
	// ContextUserID is the key for the authenticated user ID.
	ContextUserID = "user_id"
	// ContextUserRole is the key for the role claim.
	ContextUserRole = "user_role"
	// ContextUserEmail is the key for the email claim.
	ContextUserEmail = "user_email"
)
