package insights

import (
	"fmt"
	"regexp"
	"strings"
)

// SafetyViolation is a query-gate rejection. It always names the specific
// check that failed; it is never downgraded to a generic error, because the
// rejected text is model output derived from untrusted user input.
type SafetyViolation struct {
	Reason string
}

func (v *SafetyViolation) Error() string {
	return "unsafe query rejected: " + v.Reason
}

// deniedKeywords are statement types a translated query must never contain:
// data and schema mutation, database attachment, pragma/configuration, and
// statement replacement. Matched as whole words, case-insensitive, so a
// keyword appearing inside an identifier (e.g. updated_at) does not trip.
var deniedKeywords = map[string]struct{}{
	"insert":   {},
	"update":   {},
	"delete":   {},
	"drop":     {},
	"alter":    {},
	"create":   {},
	"replace":  {},
	"truncate": {},
	"attach":   {},
	"detach":   {},
	"pragma":   {},
	"vacuum":   {},
	"reindex":  {},
	"grant":    {},
	"revoke":   {},
}

// allowedTables is the fixed set of tables a translated query may read.
var allowedTables = map[string]struct{}{
	"action_items":  {},
	"conversations": {},
}

var (
	wordTokenRe  = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
	tableRefRe   = regexp.MustCompile(`(?i)\b(?:from|join)\s+([A-Za-z_][A-Za-z0-9_]*)`)
	limitTokenRe = regexp.MustCompile(`(?i)\blimit\b`)
)

// ValidateQuery statically checks a model-produced query before it may touch
// the database. All checks are mandatory and run in order: non-empty, SELECT
// only, no denylisted keyword as a whole word, a LIMIT bound present, and
// every referenced table on the allow-list. Passing here is still only the
// first layer; execution happens on a read-only connection regardless.
func ValidateQuery(query string) error {
	q := strings.TrimSpace(query)
	if q == "" {
		return &SafetyViolation{Reason: "empty query"}
	}

	if !strings.HasPrefix(strings.ToUpper(q), "SELECT") {
		return &SafetyViolation{Reason: "non-select query"}
	}

	for _, tok := range wordTokenRe.FindAllString(q, -1) {
		if _, denied := deniedKeywords[strings.ToLower(tok)]; denied {
			return &SafetyViolation{Reason: fmt.Sprintf("forbidden keyword %q", strings.ToUpper(tok))}
		}
	}

	if !limitTokenRe.MatchString(q) {
		return &SafetyViolation{Reason: "missing LIMIT bound"}
	}

	var offending []string
	for _, m := range tableRefRe.FindAllStringSubmatch(q, -1) {
		table := strings.ToLower(m[1])
		if _, ok := allowedTables[table]; !ok {
			offending = append(offending, table)
		}
	}
	if len(offending) > 0 {
		return &SafetyViolation{Reason: fmt.Sprintf("table(s) not allowed: %s", strings.Join(offending, ", "))}
	}

	return nil
}

// AsReadOnlyViolation converts a write rejection raised by the read-only
// connection into a SafetyViolation, keeping the user-facing contract uniform
// when something slips past static validation. Returns nil for unrelated
// storage errors.
func AsReadOnlyViolation(err error) *SafetyViolation {
	if err == nil {
		return nil
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "readonly database") || strings.Contains(s, "read-only") {
		return &SafetyViolation{Reason: "write attempt blocked by read-only connection"}
	}
	return nil
}
