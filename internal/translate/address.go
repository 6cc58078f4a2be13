// translate/address.go
package translate

import (
	"regexp"
	"strings"

	"github.com/eGGnogSC/booksync/internal/record"
	"github.com/eGGnogSC/booksync/pkg/qbclient"
)

// addressTailRe recognizes a trailing "City, ST ZIP" segment: some text, a
// comma, a region code of 2+ letters, then a postal code of 3+
// alphanumerics. The comma after the region is optional so a formatted
// block parses back cleanly.
var addressTailRe = regexp.MustCompile(`^(.+?),\s*([A-Za-z]{2,}),?\s+([0-9A-Za-z][0-9A-Za-z-]{2,})$`)

// countryLineRe recognizes a bare country line: letters, spaces, and periods
// only, so street lines with numbers can never be mistaken for one.
var countryLineRe = regexp.MustCompile(`^[A-Za-z][A-Za-z. ]*$`)

// FormatAddressLines renders a structured address as a human-readable block
// of up to 5 non-empty lines: street lines, then "City, Region, Postal"
// comma-joined with empty sub-parts omitted, then country. Duplicate and
// empty lines are dropped.
func FormatAddressLines(a *record.Address) []string {
	if a == nil {
		return nil
	}

	var lines []string
	seen := make(map[string]bool)
	push := func(line string) {
		line = strings.TrimSpace(line)
		if line == "" || seen[line] || len(lines) >= 5 {
			return
		}
		seen[line] = true
		lines = append(lines, line)
	}

	for _, street := range a.Street {
		push(street)
	}

	var cityParts []string
	for _, part := range []string{a.City, a.Region, a.PostalCode} {
		if strings.TrimSpace(part) != "" {
			cityParts = append(cityParts, strings.TrimSpace(part))
		}
	}
	push(strings.Join(cityParts, ", "))
	push(a.Country)

	return lines
}

// FormatAddress maps a structured local address onto the remote wire shape,
// one formatted line per LineN slot.
func FormatAddress(a *record.Address) *qbclient.Address {
	lines := FormatAddressLines(a)
	if len(lines) == 0 {
		return nil
	}

	out := &qbclient.Address{}
	slots := []*string{&out.Line1, &out.Line2, &out.Line3, &out.Line4, &out.Line5}
	for i, line := range lines {
		if i >= len(slots) {
			break
		}
		*slots[i] = line
	}
	return out
}

// ParseAddress extracts structure from free-form address text, split on
// newlines or, failing that, commas. The trailing segment (or trailing
// segment pair) is tested for a "City, ST ZIP" shape; a bare country line
// after that shape is kept as Country. When nothing matches, everything is
// kept as street lines. Partial structure is valid, never an error.
func ParseAddress(text string) *record.Address {
	segments := splitAddress(text)
	if len(segments) == 0 {
		return nil
	}

	addr := &record.Address{}
	streets := segments
	n := len(segments)

	if m := addressTailRe.FindStringSubmatch(segments[n-1]); m != nil {
		addr.City, addr.Region, addr.PostalCode = m[1], m[2], m[3]
		streets = segments[:n-1]
	} else if n >= 2 {
		matched := false
		if countryLineRe.MatchString(segments[n-1]) {
			// A formatted block ends "City, Region, Postal" then country.
			if m := addressTailRe.FindStringSubmatch(segments[n-2]); m != nil {
				addr.City, addr.Region, addr.PostalCode = m[1], m[2], m[3]
				addr.Country = segments[n-1]
				streets = segments[:n-2]
				matched = true
			}
		}
		if !matched {
			// A comma split leaves "City" and "ST ZIP" in separate segments.
			tail := segments[n-2] + ", " + segments[n-1]
			if m := addressTailRe.FindStringSubmatch(tail); m != nil {
				addr.City, addr.Region, addr.PostalCode = m[1], m[2], m[3]
				streets = segments[:n-2]
			}
		}
	}

	if len(streets) > 3 {
		streets = streets[:3]
	}
	addr.Street = streets

	if len(addr.Street) == 0 && addr.City == "" {
		return nil
	}
	return addr
}

// ParseRemoteAddress converts the remote wire shape back to the local
// structured form, preferring the remote's own structured fields over
// re-parsing formatted lines.
func ParseRemoteAddress(a *qbclient.Address) *record.Address {
	if a == nil {
		return nil
	}

	lines := remoteLines(a)

	if a.City != "" || a.PostalCode != "" || a.CountrySubDivisionCode != "" {
		streets := lines
		if len(streets) > 3 {
			streets = streets[:3]
		}
		return &record.Address{
			Street:     streets,
			City:       a.City,
			Region:     a.CountrySubDivisionCode,
			PostalCode: a.PostalCode,
			Country:    a.Country,
		}
	}

	return ParseAddress(strings.Join(lines, "\n"))
}

func remoteLines(a *qbclient.Address) []string {
	var lines []string
	for _, line := range []string{a.Line1, a.Line2, a.Line3, a.Line4, a.Line5} {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, strings.TrimSpace(line))
		}
	}
	return lines
}

func splitAddress(text string) []string {
	var parts []string
	if strings.Contains(text, "\n") {
		parts = strings.Split(text, "\n")
	} else {
		parts = strings.Split(text, ",")
	}

	var segments []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}
