package auth

import "github.com/google/uuid"

// CheckOwnership reports whether the principal owns the resource.
//
// Ownership is strict ID equality. Admin principals do not pass for
// other tenants' resources: admin status opens the management
// endpoints, not other applications' private objects. Callers must
// respond to a false result as "not found", never "forbidden", so the
// existence of foreign resources is not leaked.
func CheckOwnership(p *Principal, ownerID uuid.UUID) bool {
	if p == nil {
		return false
	}
	return p.ApplicationID == ownerID
}
