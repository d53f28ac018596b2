package ports

import (
	"context"

	"github.com/dndboard/dndboard/internal/core/domain"
)

// Catalogue fetches reference data from the external API.
type Catalogue interface {
	List(ctx context.Context, kind domain.CatalogueKind) (domain.CataloguePayload, error)
	Get(ctx context.Context, kind domain.CatalogueKind, index string) (domain.CataloguePayload, error)
}
