// translate/memo.go
package translate

import (
	"regexp"
	"strings"
)

// workOrderTokenRe matches candidate work-order tokens inside free text:
// an optional alphabetic prefix with a dash, then digits.
var workOrderTokenRe = regexp.MustCompile(`\b([A-Za-z]{1,8}-)?\d{1,10}\b`)

// LinkResult is the outcome of extracting work-order references from a
// memo: tokens that resolved to local records, and tokens that did not.
// Unmatched tokens are diagnostic only, never fatal.
type LinkResult struct {
	Matched   []string
	Unmatched []string
}

// NormalizeWorkOrderRef applies the optional auto-prefixing rule: a bare
// numeric token gains the configured prefix, an already-prefixed token is
// upper-cased to the canonical form.
func NormalizeWorkOrderRef(token, prefix string, autoPrefix bool) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return ""
	}
	if autoPrefix && prefix != "" && isNumeric(token) {
		return prefix + token
	}
	if prefix != "" && strings.HasPrefix(strings.ToUpper(token), strings.ToUpper(prefix)) {
		return strings.ToUpper(prefix) + token[len(prefix):]
	}
	return token
}

// ExtractWorkOrderRefs parses work-order tokens out of a combined memo
// field. exists reports whether a normalized token resolves to a local
// record; tokens that do not resolve are recorded and excluded from the
// link set.
func ExtractWorkOrderRefs(memo, prefix string, autoPrefix bool, exists func(ref string) bool) LinkResult {
	var result LinkResult
	seen := make(map[string]bool)

	for _, raw := range workOrderTokenRe.FindAllString(memo, -1) {
		ref := NormalizeWorkOrderRef(raw, prefix, autoPrefix)
		if ref == "" || seen[ref] {
			continue
		}
		seen[ref] = true

		if exists != nil && exists(ref) {
			result.Matched = append(result.Matched, ref)
		} else {
			result.Unmatched = append(result.Unmatched, ref)
		}
	}

	return result
}

// JoinWorkOrderRefs renders normalized work-order references for embedding
// in an outbound note field.
func JoinWorkOrderRefs(refs []string, prefix string, autoPrefix bool) string {
	var normalized []string
	seen := make(map[string]bool)
	for _, ref := range refs {
		n := NormalizeWorkOrderRef(ref, prefix, autoPrefix)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		normalized = append(normalized, n)
	}
	return strings.Join(normalized, " ")
}
