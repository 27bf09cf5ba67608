package rbac

// Actor is the identity a request acts under.
type Actor struct {
	ID    int64
	Email string
	Roles []string
}
