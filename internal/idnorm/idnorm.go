// Package idnorm provides task identifier normalization and shape checks.
//
// Historical task ids come in three shapes:
//   - a plain row UUID: "8f14e45f-ceea-4e07-8c2f-0c6fbdd9a001"
//   - a legacy compound id: the row UUID with an extra suffix appended,
//     e.g. "8f14e45f-ceea-4e07-8c2f-0c6fbdd9a001-extra"
//   - a canonical template id: "identification-1.1", "heuristic-review-gates"
//
// Normalize reduces a compound id back to its canonical UUID. It is a
// convenience for building request paths only; the server resolves identity
// independently and never trusts the normalized form.
package idnorm

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// uuidGroupLens are the hex-digit lengths of the five dash-delimited groups
// of a canonical UUID (8-4-4-4-12).
var uuidGroupLens = [5]int{8, 4, 4, 4, 12}

var (
	// factor template ids: a stage name joined with a compound code, e.g.
	// "identification-1.1", "delivery-2.3".
	factorTemplateIDPattern = regexp.MustCompile(`^(identification|definition|delivery|closure)-[0-9]+\.[0-9]+$`)

	// slug template ids for the remaining canonical categories, e.g.
	// "heuristic-review-gates", "policy-data-retention".
	slugTemplateIDPattern = regexp.MustCompile(`^(heuristic|policy|framework)-[a-z0-9][a-z0-9-]*$`)
)

// Normalize derives the canonical UUID from a possibly compound identifier.
// If raw has at least five dash-delimited segments, the first five are joined
// back together; anything shorter is returned unchanged, even when it is not
// UUID-shaped. Empty input yields empty output.
func Normalize(raw string) string {
	segments := strings.Split(raw, "-")
	if len(segments) < 5 {
		return raw
	}
	return strings.Join(segments[:5], "-")
}

// IsUUID returns true if s parses as a canonical UUID.
func IsUUID(s string) bool {
	if len(s) != 36 {
		// uuid.Parse accepts several alternate encodings (braced, URN,
		// 32-digit); only the canonical 8-4-4-4-12 form is a row id here.
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// IsPartialUUID reports whether s is a well-formed partial UUID: a prefix of
// the canonical 8-4-4-4-12 grouping containing at least the full first hex
// group. Short fragments like "8f" are rejected so that prefix resolution
// never matches on a single hex character.
func IsPartialUUID(s string) bool {
	groups := strings.Split(s, "-")
	if len(groups) == 0 || len(groups) > len(uuidGroupLens) {
		return false
	}
	for i, g := range groups {
		last := i == len(groups)-1
		switch {
		case !last && len(g) != uuidGroupLens[i]:
			return false
		case last && (len(g) == 0 || len(g) > uuidGroupLens[i]):
			return false
		case last && i == 0 && len(g) < uuidGroupLens[0]:
			// The first group must be complete before prefix matching
			// is allowed at all.
			return false
		}
		if !isHex(g) {
			return false
		}
	}
	return true
}

// LooksLikeTemplateID reports whether raw matches the canonical template id
// shape. Used by the resolver to distinguish "template known but never seeded"
// from a plain not-found.
func LooksLikeTemplateID(raw string) bool {
	return factorTemplateIDPattern.MatchString(raw) || slugTemplateIDPattern.MatchString(raw)
}

func isHex(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return len(s) > 0
}
