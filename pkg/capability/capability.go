// Package capability implements the signed-link protocol: generation
// and verification of time-bounded, unforgeable download tokens.
//
// A capability is three query parameters and nothing else: id
// (attachment UUID), expires (Unix epoch seconds), and sig (URL-safe
// base64 of the raw HMAC-SHA256 digest over "id:expires"). Nothing is
// stored; a capability is a pure function of its fields and the signing
// key, so issuing one has no side effect and revocation is only by
// natural expiry.
//
// Verify never fails with an error for attacker-controlled input: every
// invalid input path converges to false.
package capability

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MinKeyBytes is the minimum signing key length. Construction fails
// below it; the service must refuse to start rather than sign with a
// weak key.
const MinKeyBytes = 32

// DefaultTTL bounds links issued without an explicit duration when no
// maximum is configured: long, but finite.
const DefaultTTL = 365 * 24 * time.Hour

// ErrInvalidTTL rejects explicit non-positive durations. An unspecified
// duration falls back to the default; an explicit zero or negative one
// is a caller bug and is never silently coerced.
var ErrInvalidTTL = errors.New("link duration must be positive")

// Clock supplies the current time. Injected for testability.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Codec generates and verifies signed download links. It is stateless
// and safe for concurrent use: the key is immutable after construction.
type Codec struct {
	key    []byte
	maxTTL time.Duration // 0 = no configured maximum
	clock  Clock
}

// New creates a Codec. The key must be at least MinKeyBytes long.
// maxTTL of zero means no maximum is enforced. A nil clock selects
// SystemClock.
func New(key []byte, maxTTL time.Duration, clock Clock) (*Codec, error) {
	if len(key) < MinKeyBytes {
		return nil, fmt.Errorf("signing key must be at least %d bytes, got %d", MinKeyBytes, len(key))
	}
	if clock == nil {
		clock = SystemClock{}
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Codec{key: k, maxTTL: maxTTL, clock: clock}, nil
}

// DefaultTTL returns the duration used when a caller does not request
// one: the configured maximum, or DefaultTTL when none is configured.
func (c *Codec) DefaultTTL() time.Duration {
	if c.maxTTL > 0 {
		return c.maxTTL
	}
	return DefaultTTL
}

// Link is one issued capability.
type Link struct {
	ResourceID uuid.UUID
	ExpiresAt  time.Time
	Signature  string
}

// Query returns the three wire parameters. The id is the canonical
// hyphenated lowercase UUID form; expires is decimal Unix seconds.
func (l Link) Query() url.Values {
	v := url.Values{}
	v.Set("id", l.ResourceID.String())
	v.Set("expires", strconv.FormatInt(l.ExpiresAt.Unix(), 10))
	v.Set("sig", l.Signature)
	return v
}

// Generate issues a capability for the resource, valid for ttl from
// now. The duration is clamped to the configured maximum; a
// non-positive duration is rejected with ErrInvalidTTL.
func (c *Codec) Generate(resourceID uuid.UUID, ttl time.Duration) (Link, error) {
	if ttl <= 0 {
		return Link{}, ErrInvalidTTL
	}

	if c.maxTTL > 0 && ttl > c.maxTTL {
		ttl = c.maxTTL
	}

	expiresAt := c.clock.Now().Add(ttl).Truncate(time.Second)
	sig := c.sign(resourceID, expiresAt.Unix())

	return Link{
		ResourceID: resourceID,
		ExpiresAt:  expiresAt,
		Signature:  base64.RawURLEncoding.EncodeToString(sig),
	}, nil
}

// Verify reports whether the presented capability is genuine and
// unexpired. Expiry is public information and is checked first, before
// any crypto work. Signature comparison is constant-time.
func (c *Codec) Verify(resourceID uuid.UUID, expiresUnix int64, signature string) bool {
	if c.clock.Now().Unix() > expiresUnix {
		return false
	}

	presented, err := decodeSignature(signature)
	if err != nil {
		return false
	}

	expected := c.sign(resourceID, expiresUnix)
	return hmac.Equal(presented, expected)
}

// sign computes the raw HMAC-SHA256 digest over "id:expires".
func (c *Codec) sign(resourceID uuid.UUID, expiresUnix int64) []byte {
	mac := hmac.New(sha256.New, c.key)
	mac.Write([]byte(resourceID.String()))
	mac.Write([]byte(":"))
	mac.Write([]byte(strconv.FormatInt(expiresUnix, 10)))
	return mac.Sum(nil)
}

// decodeSignature accepts both padded and unpadded URL-safe base64.
func decodeSignature(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}
