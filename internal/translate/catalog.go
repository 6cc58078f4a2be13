// translate/catalog.go
package translate

import (
	"strings"

	"github.com/eGGnogSC/booksync/pkg/qbclient"
)

// Catalog is an immutable snapshot of the remote item catalog, fetched once
// per translation batch so line resolution never issues per-line reads.
type Catalog struct {
	byName      map[string]qbclient.Ref
	defaultItem qbclient.Ref
}

// NewCatalog builds a catalog snapshot. defaultItem is used for any
// activity label with no exact name match.
func NewCatalog(items []qbclient.Item, defaultItem qbclient.Ref) *Catalog {
	byName := make(map[string]qbclient.Ref, len(items))
	for _, item := range items {
		byName[strings.ToLower(strings.TrimSpace(item.Name))] = qbclient.Ref{
			Value: item.ID,
			Name:  item.Name,
		}
	}
	return &Catalog{
		byName:      byName,
		defaultItem: defaultItem,
	}
}

// Resolve maps an activity label to a catalog item reference by exact name
// match, falling back to the default item.
func (c *Catalog) Resolve(activityLabel string) qbclient.Ref {
	if ref, ok := c.byName[strings.ToLower(strings.TrimSpace(activityLabel))]; ok {
		return ref
	}
	return c.defaultItem
}

// ResolveTerms maps a free-text terms label to a terms reference: a numeric
// label is treated as an id already, otherwise an exact name lookup is
// tried. Returns nil when the label resolves to nothing.
func ResolveTerms(label string, terms []qbclient.Term) *qbclient.Ref {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil
	}

	if isNumeric(label) {
		return &qbclient.Ref{Value: label}
	}

	for _, t := range terms {
		if strings.EqualFold(t.Name, label) {
			return &qbclient.Ref{Value: t.ID, Name: t.Name}
		}
	}
	return nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
