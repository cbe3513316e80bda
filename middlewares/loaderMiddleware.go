package middlewares

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/graph-gophers/dataloader/v7"
	"github.com/mmdatafocus/estate_console/models"
	"github.com/mmdatafocus/estate_console/models/reports"
	"github.com/mmdatafocus/estate_console/views"
)

// Loaders live for one request; nothing is cached across requests.
type Loaders struct {
	ReferenceLoader *dataloader.Loader[string, *models.ReferenceTable]

	upstream views.Upstream
}

type referenceReader struct {
	upstream views.Upstream
}

// getReferences is the batch function: each distinct table named in a batch is fetched once.
func (r *referenceReader) getReferences(ctx context.Context, names []string) []*dataloader.Result[*models.ReferenceTable] {
	results := make([]*dataloader.Result[*models.ReferenceTable], 0, len(names))
	for _, name := range names {
		src, ok := reports.LookupReference(name)
		if !ok {
			results = append(results, &dataloader.Result[*models.ReferenceTable]{Error: fmt.Errorf("unknown reference table %q", name)})
			continue
		}
		table, err := views.FetchReference(ctx, r.upstream, src)
		results = append(results, &dataloader.Result[*models.ReferenceTable]{Data: table, Error: err})
	}
	return results
}

// NewLoaders instantiates data loaders for the middleware
func NewLoaders(upstream views.Upstream) *Loaders {
	reader := &referenceReader{upstream: upstream}
	return &Loaders{
		ReferenceLoader: dataloader.NewBatchedLoader(reader.getReferences, dataloader.WithWait[string, *models.ReferenceTable](time.Millisecond)),
		upstream:        upstream,
	}
}

// LoaderMiddleware injects fresh loaders into every request and hands the
// reference loader to the views.
func LoaderMiddleware(upstream views.Upstream) gin.HandlerFunc {
	return func(c *gin.Context) {
		loaders := NewLoaders(upstream)
		c.Request = c.Request.WithContext(views.WithReferenceLoader(c.Request.Context(), loaders.LoadReference))
		c.Next()
	}
}

// LoadReference resolves src through the loader when src is a shared table and
// fetches it directly otherwise.
func (l *Loaders) LoadReference(ctx context.Context, src reports.ReferenceSource) (*models.ReferenceTable, error) {
	if _, shared := reports.LookupReference(src.Name); !shared {
		return views.FetchReference(ctx, l.upstream, src)
	}
	return l.ReferenceLoader.Load(ctx, src.Name)()
}
