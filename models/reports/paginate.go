package reports

import (
	"github.com/mmdatafocus/estate_console/config"
	"github.com/mmdatafocus/estate_console/models"
)

// Page is one slice of an ordered collection.
type Page struct {
	Items     []models.Record `json:"items"`
	PageCount int             `json:"pageCount"`
	Index     int             `json:"pageIndex"`
	Size      int             `json:"pageSize"`
	Total     int             `json:"total"`
}

// Paginate clamps index into [1, pageCount] and slices the matching page.
// pageCount is at least 1, so an empty collection has one empty page.
// A non-positive size falls back to config.DefaultPageSize.
func Paginate(records []models.Record, index, size int) Page {
	if size <= 0 {
		size = config.DefaultPageSize
	}
	total := len(records)
	pageCount := (total + size - 1) / size
	if pageCount < 1 {
		pageCount = 1
	}
	if index < 1 {
		index = 1
	}
	if index > pageCount {
		index = pageCount
	}

	start := (index - 1) * size
	end := start + size
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	items := make([]models.Record, end-start)
	copy(items, records[start:end])

	return Page{
		Items:     items,
		PageCount: pageCount,
		Index:     index,
		Size:      size,
		Total:     total,
	}
}
