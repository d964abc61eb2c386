// Package quota implements upload admission control: the pure decision
// of whether one application may consume the bytes a candidate upload
// would take.
//
// The guard performs no I/O. The caller supplies the application's
// current aggregate usage fresh for every call; usage gates a
// security and cost boundary and must never come from a stale cache.
package quota

import "github.com/attache-dev/attache/pkg/auth"

// Reason explains a rejected admission.
type Reason string

const (
	// FileTooLarge means the candidate exceeds the per-file limit.
	FileTooLarge Reason = "file_too_large"

	// StorageLimitExceeded means the candidate would push aggregate
	// usage past the storage limit.
	StorageLimitExceeded Reason = "storage_limit_exceeded"
)

// Decision is the outcome of one admission check.
type Decision struct {
	Admitted bool
	Reason   Reason // set only when Admitted is false
}

// Admit decides whether the principal may upload candidateSize bytes
// given its current aggregate usage. The per-file limit is checked
// first; an oversized file is reported as FileTooLarge even when it
// would also blow the aggregate limit.
//
// Admit is monotonic in usage: growing currentUsage can only turn an
// admit into a reject, never the reverse.
func Admit(p *auth.Principal, candidateSize, currentUsage int64) Decision {
	if p.MaxFileSizeBytes != nil && candidateSize > *p.MaxFileSizeBytes {
		return Decision{Reason: FileTooLarge}
	}

	if p.MaxStorageBytes != nil && currentUsage+candidateSize > *p.MaxStorageBytes {
		return Decision{Reason: StorageLimitExceeded}
	}

	return Decision{Admitted: true}
}
