package api

// BytesPerMegabyte is the binary megabyte used for all configured size
// limits (1 MiB, not 10^6).
const BytesPerMegabyte = 1 << 20

// MegabytesToBytes converts a whole-megabyte limit to bytes. Limits are
// converted exactly once, when configuration or a limit update is
// accepted; everything downstream works in bytes.
func MegabytesToBytes(mb int64) int64 {
	return mb * BytesPerMegabyte
}

// LimitFromMegabytes converts an optional megabyte limit to an optional
// byte limit. nil stays nil (no limit); zero also means no limit.
func LimitFromMegabytes(mb *int64) *int64 {
	if mb == nil || *mb == 0 {
		return nil
	}
	b := MegabytesToBytes(*mb)
	return &b
}
