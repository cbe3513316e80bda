package views

import (
	"context"

	"github.com/mmdatafocus/estate_console/models"
	"github.com/mmdatafocus/estate_console/models/reports"
)

// ReferenceLoader fetches one reference table.
type ReferenceLoader func(ctx context.Context, src reports.ReferenceSource) (*models.ReferenceTable, error)

type loaderKey struct{}

// WithReferenceLoader scopes a loader to one request so tables shared by the
// reports it opens are fetched once.
func WithReferenceLoader(ctx context.Context, loader ReferenceLoader) context.Context {
	return context.WithValue(ctx, loaderKey{}, loader)
}

func referenceLoaderFrom(ctx context.Context) (ReferenceLoader, bool) {
	loader, ok := ctx.Value(loaderKey{}).(ReferenceLoader)
	return loader, ok && loader != nil
}

// FetchReference reads a reference table straight from the backend.
func FetchReference(ctx context.Context, upstream Upstream, src reports.ReferenceSource) (*models.ReferenceTable, error) {
	rows, _, err := upstream.GetCollection(ctx, src.Endpoint, nil)
	if err != nil {
		return nil, err
	}
	return models.NewReferenceTable(src.Name, src.IDKey, src.LabelKey, rows), nil
}
