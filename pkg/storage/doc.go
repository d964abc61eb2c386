// Package storage defines the metadata persistence interfaces and the
// sentinel errors shared by their implementations.
//
// Two stores exist: ApplicationStore for tenant records and
// AttachmentStore for attachment metadata. Adapters (memory, postgres)
// implement both. Tenant scoping is explicit: callers pass the owning
// application ID as a parameter; nothing is smuggled through ambient
// request state.
package storage
