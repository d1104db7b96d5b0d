package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Compare orders two version texts. Both sides are first parsed as semantic
// versions (major.minor.patch plus optional pre-release/build metadata); when
// both parse the standard semver ordering applies. If either side fails to
// parse (version ranges like "[1.0.0, 2.0.0)" are the common case) the
// comparison falls back to a bytewise lexicographic comparison of the raw
// text. The fallback is a best-effort approximation and is NOT range-aware;
// callers comparing non-semver texts get a stable total order, nothing more.
// Returns -1, 0, or 1.
func Compare(a, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA == nil && errB == nil {
		return va.Compare(vb)
	}
	return strings.Compare(a, b)
}

// GreaterThan reports whether a orders strictly after b under Compare.
func GreaterThan(a, b string) bool {
	return Compare(a, b) > 0
}

// Max returns whichever of a and b orders later under Compare. When the two
// compare equal but differ textually (e.g. "1.0" vs "1.0.0"), the
// lexicographically larger raw text wins so the result never depends on
// argument order.
func Max(a, b string) string {
	switch Compare(a, b) {
	case 1:
		return a
	case -1:
		return b
	default:
		if strings.Compare(a, b) >= 0 {
			return a
		}
		return b
	}
}
