package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/estate_console/backend"
	"github.com/mmdatafocus/estate_console/config"
	"github.com/mmdatafocus/estate_console/decoder"
	"github.com/mmdatafocus/estate_console/forms"
	"github.com/mmdatafocus/estate_console/models"
	"github.com/mmdatafocus/estate_console/models/reports"
	"github.com/mmdatafocus/estate_console/utils"
	"github.com/mmdatafocus/estate_console/views"
)

type api struct {
	registry *views.Registry
	upstream views.Upstream

	// swapped in tests
	renderPDF func(ctx context.Context, t reports.Table) ([]byte, error)
	archive   func(ctx context.Context, objectName string, data []byte, contentType string) (string, error)
}

func newAPI(upstream views.Upstream, registry *views.Registry) *api {
	return &api{
		registry:  registry,
		upstream:  upstream,
		renderPDF: reports.ExportPDF,
		archive:   utils.UploadBytesToGCS,
	}
}

func (a *api) routes(r gin.IRouter) {
	r.GET("/reports", a.listReports)
	r.GET("/reports/:report/filters", a.listFilters)
	r.POST("/reports/:report/filters", a.saveFilter)
	r.DELETE("/reports/:report/filters/:fid", a.deleteFilter)

	r.POST("/views", a.openView)
	r.GET("/views/:id", a.queryView)
	r.POST("/views/:id/refresh", a.refreshView)
	r.POST("/views/:id/filters/:fid/apply", a.applyFilter)
	r.PATCH("/views/:id/records/:rid", a.mutateRecord)
	r.GET("/views/:id/export", a.exportView)
	r.DELETE("/views/:id", a.closeView)

	r.POST("/forms/:form", a.submitForm)
	r.GET("/cascades/:chain", a.cascadeOptions)
	r.POST("/cascades/:chain/select", a.cascadeSelect)
}

// statusOf maps the error taxonomy to an HTTP status. Upstream failures are
// 502 unless the backend refused the caller's credentials.
func statusOf(err error) int {
	var (
		verr *models.ValidationError
		rerr *models.RejectedError
		herr *backend.HTTPError
		nerr *models.NetworkError
		derr *decoder.DecodeError
	)
	switch {
	case errors.As(err, &verr), errors.As(err, &rerr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrViewNotFound),
		errors.Is(err, models.ErrUnknownReport),
		errors.Is(err, models.ErrRecordNotFound),
		errors.Is(err, utils.ErrorRecordNotFound),
		errors.Is(err, forms.ErrUnknownForm),
		errors.Is(err, forms.ErrUnknownChain),
		errors.Is(err, forms.ErrUnknownLevel):
		return http.StatusNotFound
	case errors.Is(err, views.ErrNotEditable):
		return http.StatusForbidden
	case errors.Is(err, models.ErrRecordBusy),
		errors.Is(err, views.ErrSuperseded),
		errors.Is(err, forms.ErrStaleSelection):
		return http.StatusConflict
	case errors.Is(err, utils.ErrorUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrDatabaseUnavailable),
		errors.Is(err, reports.ErrPDFDependencyMissing):
		return http.StatusServiceUnavailable
	case errors.As(err, &herr):
		if herr.StatusCode == http.StatusUnauthorized || herr.StatusCode == http.StatusForbidden {
			return herr.StatusCode
		}
		return http.StatusBadGateway
	case errors.As(err, &nerr), errors.As(err, &derr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func errorBody(err error) gin.H {
	body := gin.H{"error": views.UserMessage(err)}
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		body["fields"] = verr.Fields
	}
	return body
}

func respondError(c *gin.Context, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, errorBody(err))
}

type viewResponse struct {
	views.Page
	Fields map[string]string `json:"fields,omitempty"`
}

// respondPage always returns the page so the screen can render its empty
// state next to the error.
func respondPage(c *gin.Context, ok int, page views.Page, err error) {
	if err == nil {
		c.JSON(ok, viewResponse{Page: page})
		return
	}
	page.Error = views.UserMessage(err)
	resp := viewResponse{Page: page}
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, resp)
}

func (a *api) session(c *gin.Context) (*views.Session, bool) {
	s, err := a.registry.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return s, true
}

func (a *api) listReports(c *gin.Context) {
	type entry struct {
		Name     string   `json:"name"`
		Title    string   `json:"title"`
		Required []string `json:"required,omitempty"`
		Editable bool     `json:"editable"`
	}
	out := []entry{}
	for _, name := range reports.ReportNames() {
		r, _ := reports.LookupReport(name)
		out = append(out, entry{Name: r.Name, Title: r.Title, Required: r.Required, Editable: r.Mutation != nil})
	}
	c.JSON(http.StatusOK, out)
}

func (a *api) openView(c *gin.Context) {
	var req views.OpenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, &models.ValidationError{Fields: map[string]string{"report": "required"}})
		return
	}
	s, err := a.registry.Open(c.Request.Context(), req)
	if s == nil {
		respondError(c, err)
		return
	}
	respondPage(c, http.StatusCreated, a.registry.Page(s), err)
}

func (a *api) queryView(c *gin.Context) {
	s, ok := a.session(c)
	if !ok {
		return
	}
	q, err := parseQuery(c)
	if err != nil {
		respondPage(c, http.StatusOK, a.registry.Page(s), err)
		return
	}
	page, err := a.registry.Query(c.Request.Context(), s, q)
	respondPage(c, http.StatusOK, page, err)
}

// parseQuery reads search, filter[col], sort, dir, toggle, page and size.
// Absent search and sort leave the current values alone.
func parseQuery(c *gin.Context) (views.Query, error) {
	var q views.Query
	if v, ok := c.GetQuery("search"); ok {
		q.Search = &v
	}
	if cols := c.QueryMap("filter"); len(cols) > 0 {
		q.Columns = cols
	}
	if v, ok := c.GetQuery("sort"); ok {
		q.Sort = &v
	}
	q.Direction = c.Query("dir")
	q.Toggle, _ = strconv.ParseBool(c.Query("toggle"))

	invalid := map[string]string{}
	for name, dst := range map[string]*int{"page": &q.Page, "size": &q.Size} {
		raw := strings.TrimSpace(c.Query(name))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			invalid[name] = "numeric"
			continue
		}
		*dst = n
	}
	if len(invalid) > 0 {
		return views.Query{}, &models.ValidationError{Fields: invalid}
	}
	return q, nil
}

func (a *api) refreshView(c *gin.Context) {
	s, ok := a.session(c)
	if !ok {
		return
	}
	var body struct {
		Params map[string]string `json:"params"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
			respondError(c, &models.ValidationError{Fields: map[string]string{"_": "invalid json"}})
			return
		}
	}
	err := a.registry.Refresh(c.Request.Context(), s, body.Params)
	respondPage(c, http.StatusOK, a.registry.Page(s), err)
}

func (a *api) applyFilter(c *gin.Context) {
	s, ok := a.session(c)
	if !ok {
		return
	}
	id, err := strconv.Atoi(c.Param("fid"))
	if err != nil {
		respondError(c, utils.ErrorRecordNotFound)
		return
	}
	page, err := a.registry.ApplySavedFilter(c.Request.Context(), s, id)
	respondPage(c, http.StatusOK, page, err)
}

func (a *api) mutateRecord(c *gin.Context) {
	s, ok := a.session(c)
	if !ok {
		return
	}
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	var updates map[string]any
	if err := dec.Decode(&updates); err != nil {
		respondError(c, &models.ValidationError{Fields: map[string]string{"_": "invalid json"}})
		return
	}

	record, err := a.registry.Mutator().Apply(c.Request.Context(), s, c.Param("rid"), updates)
	if err != nil {
		body := errorBody(err)
		if record != nil {
			body["record"] = record
		}
		c.JSON(statusOf(err), body)
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": record})
}

var exportTypes = map[string]struct{ ext, contentType string }{
	"tsv":  {"tsv", "text/tab-separated-values; charset=utf-8"},
	"xlsx": {"xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
	"pdf":  {"pdf", "application/pdf"},
}

// exportView writes every record matching the view state, not only the
// visible page. An empty result is 204 and produces no file.
func (a *api) exportView(c *gin.Context) {
	s, ok := a.session(c)
	if !ok {
		return
	}
	format := strings.ToLower(c.DefaultQuery("format", "tsv"))
	kind, known := exportTypes[format]
	if !known {
		respondError(c, &models.ValidationError{Fields: map[string]string{"format": "oneof tsv xlsx pdf"}})
		return
	}

	table := a.registry.Export(s)
	var (
		data []byte
		err  error
	)
	switch format {
	case "tsv":
		var text string
		text, err = reports.ExportClipboard(table)
		data = []byte(text)
	case "xlsx":
		data, err = reports.ExportExcel(table)
	case "pdf":
		data, err = a.renderPDF(c.Request.Context(), table)
	}
	if errors.Is(err, reports.ErrNothingToExport) {
		c.Status(http.StatusNoContent)
		return
	}
	if err != nil {
		config.LogError(config.GetLogger(), "handlers.go", "exportView", format, s.Report.Name, err)
		respondError(c, err)
		return
	}

	filename := table.Filename(kind.ext)
	if archive, _ := strconv.ParseBool(c.Query("archive")); archive {
		if !utils.ArchiveConfigured() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "export archive is not configured"})
			return
		}
		username, _ := utils.GetUsernameFromContext(c.Request.Context())
		url, err := a.archive(c.Request.Context(), utils.ExportObjectKey(username, s.Report.Name, filename), data, kind.contentType)
		if err != nil {
			config.LogError(config.GetLogger(), "handlers.go", "exportView", "archive", filename, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "the export could not be archived"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"url": url, "filename": filename, "rows": len(table.Rows)})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, kind.contentType, data)
}

func (a *api) closeView(c *gin.Context) {
	if err := a.registry.Close(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *api) submitForm(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondError(c, &models.ValidationError{Fields: map[string]string{"_": "unreadable body"}})
		return
	}
	resp, err := forms.Submit(c.Request.Context(), a.upstream, c.Param("form"), body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (a *api) cascadeOptions(c *gin.Context) {
	chain, err := forms.LookupChain(c.Param("chain"))
	if err != nil {
		respondError(c, err)
		return
	}
	opts, err := forms.NewCascade(chain, a.upstream, nil).Options(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"level": chain.Levels[0].Key, "options": opts})
}

type cascadeRequest struct {
	Selection forms.Selection `json:"selection"`
	Level     string          `json:"level" binding:"required"`
	Value     string          `json:"value"`
}

func (a *api) cascadeSelect(c *gin.Context) {
	chain, err := forms.LookupChain(c.Param("chain"))
	if err != nil {
		respondError(c, err)
		return
	}
	var req cascadeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, &models.ValidationError{Fields: map[string]string{"level": "required"}})
		return
	}
	change, err := forms.NewCascade(chain, a.upstream, req.Selection).Select(c.Request.Context(), req.Level, req.Value)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, change)
}

func (a *api) listFilters(c *gin.Context) {
	report, err := reports.LookupReport(c.Param("report"))
	if err != nil {
		respondError(c, err)
		return
	}
	filters, err := models.ListSavedFilters(c.Request.Context(), report.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, filters)
}

// saveFilterRequest takes the state either inline or from an open view.
type saveFilterRequest struct {
	Name      string            `json:"name"`
	IsDefault bool              `json:"is_default"`
	State     *models.ViewState `json:"state"`
	ViewID    string            `json:"view_id"`
}

func (a *api) saveFilter(c *gin.Context) {
	report, err := reports.LookupReport(c.Param("report"))
	if err != nil {
		respondError(c, err)
		return
	}
	var req saveFilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, &models.ValidationError{Fields: map[string]string{"_": "invalid json"}})
		return
	}
	input := &models.NewSavedFilter{
		Name:      req.Name,
		IsDefault: req.IsDefault,
		State:     utils.DereferencePtr(req.State, models.DefaultViewState()),
	}
	if req.ViewID != "" {
		s, err := a.registry.Get(c.Request.Context(), req.ViewID)
		if err != nil {
			respondError(c, err)
			return
		}
		if s.Report.Name != report.Name {
			respondError(c, &models.ValidationError{Fields: map[string]string{"view_id": "belongs to another report"}})
			return
		}
		input.State = s.State()
	}
	saved, err := models.SaveFilter(c.Request.Context(), report.Name, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

func (a *api) deleteFilter(c *gin.Context) {
	report, err := reports.LookupReport(c.Param("report"))
	if err != nil {
		respondError(c, err)
		return
	}
	id, err := strconv.Atoi(c.Param("fid"))
	if err != nil {
		respondError(c, utils.ErrorRecordNotFound)
		return
	}
	if err := models.DeleteSavedFilter(c.Request.Context(), report.Name, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
