// Package api defines the wire types and error taxonomy for the Attaché
// file-attachment service.
//
// This package provides the data types exchanged with clients: attachment
// metadata, application (tenant) records and DTOs, signed-link responses,
// admin reporting types, and the structured APIError used for every
// non-2xx response body.
//
// The package has zero I/O and no dependency on the HTTP layer. Types that
// carry secrets (Application.APIKeyHash) are never serialized; the plaintext
// API key of a newly created application appears exactly once, in
// CreateApplicationResponse.
package api
