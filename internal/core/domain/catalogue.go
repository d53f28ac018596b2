package domain

import "errors"

// CatalogueKind names a resource family of the reference API.
type CatalogueKind string

const (
	KindSpells   CatalogueKind = "spells"
	KindMonsters CatalogueKind = "monsters"
)

var ErrUnknownCatalogue = errors.New("unknown catalogue")

// Valid reports whether k is one of the proxied resource families.
func (k CatalogueKind) Valid() bool {
	return k == KindSpells || k == KindMonsters
}

// CataloguePayload is the decoded upstream JSON, passed through untouched.
type CataloguePayload map[string]any
