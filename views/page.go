package views

import (
	"github.com/mmdatafocus/estate_console/models"
	"github.com/mmdatafocus/estate_console/models/reports"
)

type Column struct {
	Key        string           `json:"key"`
	Label      string           `json:"label"`
	Type       models.FieldType `json:"type"`
	Sortable   bool             `json:"sortable"`
	Searchable bool             `json:"searchable"`
}

// Page is what the browser renders for one view: the visible records, their
// display strings, and the state that produced them.
type Page struct {
	ViewID   string            `json:"viewId"`
	Report   string            `json:"report"`
	Title    string            `json:"title"`
	Params   map[string]string `json:"params"`
	State    models.ViewState  `json:"state"`
	Columns  []Column          `json:"columns"`
	Items    []models.Record   `json:"items"`
	Display  [][]string        `json:"display"`
	Page     int               `json:"page"`
	PageSize int               `json:"pageSize"`
	Pages    int               `json:"pageCount"`
	Matched  int               `json:"matched"`
	Fetched  int               `json:"fetched"`
	Total    int               `json:"total"`
	Editable []string          `json:"editable,omitempty"`
	Error    string            `json:"error,omitempty"`
}

func newPage(s *Session, params map[string]string, state models.ViewState, result reports.Result, total int, lastError string) Page {
	fields := s.Report.Fields
	columns := make([]Column, len(fields))
	for i, f := range fields {
		columns[i] = Column{Key: f.Key, Label: f.Label, Type: f.Type, Sortable: f.Sortable, Searchable: f.Searchable}
	}
	display := make([][]string, len(result.Items))
	for i, r := range result.Items {
		row := make([]string, len(fields))
		for j, f := range fields {
			row[j] = f.Display(r, s.Store)
		}
		display[i] = row
	}
	p := Page{
		ViewID:   s.ID,
		Report:   s.Report.Name,
		Title:    s.Report.Title,
		Params:   params,
		State:    state,
		Columns:  columns,
		Items:    result.Items,
		Display:  display,
		Page:     result.Index,
		PageSize: result.Size,
		Pages:    result.PageCount,
		Matched:  result.Matched,
		Fetched:  result.Fetched,
		Total:    total,
		Error:    lastError,
	}
	if s.Report.Mutation != nil {
		p.Editable = s.Report.Mutation.Fields
	}
	return p
}
