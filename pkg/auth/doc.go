// Package auth provides request authentication and resource-ownership
// authorization for the Attaché service.
//
// Authentication uses a chain-of-responsibility pattern with
// three-outcome voting: each authenticator returns Yes (principal
// established), No (credentials present but invalid), or Abstain
// (can't handle this credential type). A configurable default voter
// decides when all authenticators abstain.
//
// Auth is implemented as HTTP middleware, keeping it decoupled from
// handler logic. The middleware establishes the Principal exactly once
// per request and injects it into the request context; it is never
// re-derived from headers later. Anonymous endpoints (signed-link
// redemption, health, metrics) are bypassed by path.
//
// Missing and invalid credentials produce byte-identical rejections so
// callers cannot distinguish "no key sent" from "key unknown".
package auth
