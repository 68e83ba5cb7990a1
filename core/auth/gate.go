package auth

// Decision is the outcome of an access check.
type Decision int

const (
	Allow Decision = iota
	Forbidden
	Unauthenticated
)

// Authorize is the single role-based access decision every operation
// consumes. Pure: no implicit elevation, no role inference from other
// identity fields. An empty requiredRoles list means any authenticated
// identity is allowed.
func Authorize(ident Identity, requiredRoles ...string) Decision {
	if ident.IsZero() {
		return Unauthenticated
	}
	if len(requiredRoles) == 0 {
		return Allow
	}
	for _, role := range requiredRoles {
		if ident.Role == role {
			return Allow
		}
	}
	return Forbidden
}

// Err maps a non-Allow decision to the matching taxonomy error.
func (d Decision) Err() error {
	switch d {
	case Forbidden:
		return ErrForbidden
	case Unauthenticated:
		return ErrUnauthenticated
	}
	return nil
}
