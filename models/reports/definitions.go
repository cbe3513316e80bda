package reports

import (
	"net/url"
	"sort"
	"strings"

	"github.com/mmdatafocus/estate_console/models"
	"github.com/mmdatafocus/estate_console/utils"
)

// ReferenceSource names a lookup table and the endpoint it is fetched from.
type ReferenceSource struct {
	Name     string
	Endpoint string
	IDKey    string
	LabelKey string
}

// MutationRoute is the upstream request used to change fields of one record.
// Path may contain {id}.
type MutationRoute struct {
	Method string
	Path   string
	Fields []string
}

func (m MutationRoute) Allows(field string) bool {
	for _, f := range m.Fields {
		if f == field {
			return true
		}
	}
	return false
}

func (m MutationRoute) PathFor(id string) string {
	return strings.ReplaceAll(m.Path, "{id}", url.PathEscape(id))
}

// Report describes one list or report screen of the console.
type Report struct {
	Name       string
	Title      string
	Endpoint   string
	Params     []string
	Required   []string
	Fields     []models.FieldDescriptor
	References []ReferenceSource
	Mutation   *MutationRoute
}

// EndpointFor fills {param} placeholders in the endpoint and returns the
// remaining allowed params as a query.
func (r Report) EndpointFor(params map[string]string) (string, url.Values) {
	path := r.Endpoint
	query := url.Values{}
	for _, p := range r.Params {
		v := strings.TrimSpace(params[p])
		placeholder := "{" + p + "}"
		if strings.Contains(path, placeholder) {
			path = strings.ReplaceAll(path, placeholder, url.PathEscape(v))
			continue
		}
		if v != "" {
			query.Set(p, v)
		}
	}
	return path, query
}

// AllowedParams is every param the report accepts, required ones included.
func (r Report) AllowedParams() []string {
	return utils.UniqueSlice(append(append([]string{}, r.Params...), r.Required...))
}

// MissingParams lists required params absent from params.
func (r Report) MissingParams(params map[string]string) []string {
	var missing []string
	for _, p := range r.Required {
		if strings.TrimSpace(params[p]) == "" {
			missing = append(missing, p)
		}
	}
	return missing
}

// ContextLine summarizes the query for export headers, e.g. "Venture: Green Meadows | From: 2024-04-01".
func (r Report) ContextLine(params map[string]string, refs models.RefResolver) string {
	var parts []string
	for _, p := range r.Params {
		v := strings.TrimSpace(params[p])
		if v == "" {
			continue
		}
		label := paramLabels[p]
		if label == "" {
			label = p
		}
		if table, ok := paramTables[p]; ok && refs != nil {
			v = refs.Label(table, v)
		}
		parts = append(parts, label+": "+v)
	}
	return strings.Join(parts, " | ")
}

func (r Report) Field(key string) (models.FieldDescriptor, bool) {
	return fieldByKey(r.Fields, key)
}

var paramLabels = map[string]string{
	"venture_id": "Venture",
	"branch_id":  "Branch",
	"from":       "From",
	"to":         "To",
	"status":     "Status",
	"tab":        "Tab",
}

var paramTables = map[string]string{
	"venture_id": "ventures",
	"branch_id":  "branches",
}

var (
	branches = ReferenceSource{Name: "branches", Endpoint: "/branches", IDKey: "id", LabelKey: "name"}
	ventures = ReferenceSource{Name: "ventures", Endpoint: "/ventures", IDKey: "id", LabelKey: "name"}
	statuses = ReferenceSource{Name: "lead-statuses", Endpoint: "/lead-statuses", IDKey: "id", LabelKey: "label"}
)

var personSubFields = []string{"name", "phone", "mobile"}

var registry = map[string]Report{
	"leads": {
		Name:     "leads",
		Title:    "Leads",
		Endpoint: "/leads",
		Params:   []string{"branch_id", "status", "from", "to"},
		Fields: []models.FieldDescriptor{
			{Key: "id", Label: "Lead #", Type: models.FieldTypeNumber, Sortable: true},
			{Key: "name", Label: "Name", Type: models.FieldTypeString, Searchable: true, Sortable: true},
			{Key: "mobile", Label: "Mobile", Type: models.FieldTypeString, Searchable: true},
			{Key: "email", Label: "Email", Type: models.FieldTypeString, Searchable: true},
			{Key: "source", Label: "Source", Type: models.FieldTypeString, Searchable: true, Sortable: true},
			{Key: "status_id", Label: "Status", Type: models.FieldTypeString, Searchable: true, Sortable: true, Ref: &models.RefJoin{Table: "lead-statuses"}},
			{Key: "branch_id", Label: "Branch", Type: models.FieldTypeString, Searchable: true, Sortable: true, Ref: &models.RefJoin{Table: "branches"}},
			{Key: "agent", Label: "Assigned To", Type: models.FieldTypeString, Searchable: true, Sortable: true, SubFields: personSubFields},
			{Key: "created_at", Label: "Created", Type: models.FieldTypeDate, Sortable: true},
		},
		References: []ReferenceSource{statuses, branches},
		Mutation:   &MutationRoute{Method: "PATCH", Path: "/leads/{id}", Fields: []string{"status_id", "agent_id"}},
	},
	"site-visits": {
		Name:     "site-visits",
		Title:    "Site Visits",
		Endpoint: "/site-visits",
		Params:   []string{"venture_id", "from", "to"},
		Fields: []models.FieldDescriptor{
			{Key: "id", Label: "Visit #", Type: models.FieldTypeNumber, Sortable: true},
			{Key: "customer", Label: "Customer", Type: models.FieldTypeString, Searchable: true, Sortable: true, SubFields: personSubFields},
			{Key: "venture_id", Label: "Venture", Type: models.FieldTypeString, Searchable: true, Sortable: true, Ref: &models.RefJoin{Table: "ventures"}},
			{Key: "visit_date", Label: "Visit Date", Type: models.FieldTypeDate, Sortable: true},
			{Key: "agent", Label: "Agent", Type: models.FieldTypeString, Searchable: true, Sortable: true, SubFields: personSubFields},
			{Key: "pickup_point", Label: "Pickup", Type: models.FieldTypeString, Searchable: true},
			{Key: "status", Label: "Status", Type: models.FieldTypeString, Searchable: true, Sortable: true, Fallback: "Scheduled"},
		},
		References: []ReferenceSource{ventures},
		Mutation:   &MutationRoute{Method: "PATCH", Path: "/site-visits/{id}", Fields: []string{"status", "visit_date"}},
	},
	"customers": {
		Name:     "customers",
		Title:    "Customers",
		Endpoint: "/customers",
		Params:   []string{"branch_id"},
		Fields: []models.FieldDescriptor{
			{Key: "customer_code", Label: "Code", Type: models.FieldTypeString, Searchable: true, Sortable: true},
			{Key: "name", Label: "Name", Type: models.FieldTypeString, Searchable: true, Sortable: true},
			{Key: "mobile", Label: "Mobile", Type: models.FieldTypeString, Searchable: true},
			{Key: "email", Label: "Email", Type: models.FieldTypeString, Searchable: true},
			{Key: "district", Label: "District", Type: models.FieldTypeString, Searchable: true, Sortable: true},
			{Key: "state", Label: "State", Type: models.FieldTypeString, Searchable: true, Sortable: true},
			{Key: "branch_id", Label: "Branch", Type: models.FieldTypeString, Searchable: true, Sortable: true, Ref: &models.RefJoin{Table: "branches"}},
			{Key: "created_at", Label: "Onboarded", Type: models.FieldTypeDate, Sortable: true},
		},
		References: []ReferenceSource{branches},
	},
	"members": {
		Name:     "members",
		Title:    "Members",
		Endpoint: "/members",
		Params:   []string{"branch_id"},
		Fields: []models.FieldDescriptor{
			{Key: "member_code", Label: "Member Code", Type: models.FieldTypeString, Searchable: true, Sortable: true},
			{Key: "name", Label: "Name", Type: models.FieldTypeString, Searchable: true, Sortable: true},
			{Key: "mobile", Label: "Mobile", Type: models.FieldTypeString, Searchable: true},
			{Key: "sponsor", Label: "Sponsor", Type: models.FieldTypeString, Searchable: true, Sortable: true, SubFields: []string{"name", "member_code"}},
			{Key: "branch_id", Label: "Branch", Type: models.FieldTypeString, Searchable: true, Sortable: true, Ref: &models.RefJoin{Table: "branches"}},
			{Key: "joined_at", Label: "Joined", Type: models.FieldTypeDate, Sortable: true},
			{Key: "blocked", Label: "Blocked", Type: models.FieldTypeString, Sortable: true, Fallback: false},
		},
		References: []ReferenceSource{branches},
		Mutation:   &MutationRoute{Method: "PATCH", Path: "/members/{id}", Fields: []string{"blocked"}},
	},
	"sales": {
		Name:     "sales",
		Title:    "Sales Report",
		Endpoint: "/reports/sales",
		Params:   []string{"venture_id", "from", "to"},
		Required: []string{"from", "to"},
		Fields: []models.FieldDescriptor{
			{Key: "booking_no", Label: "Booking #", Type: models.FieldTypeString, Searchable: true, Sortable: true},
			{Key: "customer", Label: "Customer", Type: models.FieldTypeString, Searchable: true, Sortable: true, SubFields: personSubFields},
			{Key: "venture_id", Label: "Venture", Type: models.FieldTypeString, Searchable: true, Sortable: true, Ref: &models.RefJoin{Table: "ventures"}},
			{Key: "plot_no", Label: "Plot", Type: models.FieldTypeString, Searchable: true, Sortable: true},
			{Key: "agent", Label: "Agent", Type: models.FieldTypeString, Searchable: true, Sortable: true, SubFields: personSubFields},
			{Key: "sale_amount", Label: "Sale Amount", Type: models.FieldTypeCurrency, Sortable: true},
			{Key: "paid_amount", Label: "Received", Type: models.FieldTypeCurrency, Sortable: true},
			{Key: "booking_date", Label: "Booked On", Type: models.FieldTypeDate, Sortable: true},
		},
		References: []ReferenceSource{ventures},
	},
	"outstanding-dues": {
		Name:     "outstanding-dues",
		Title:    "Outstanding Dues",
		Endpoint: "/reports/outstanding",
		Params:   []string{"venture_id"},
		Fields: []models.FieldDescriptor{
			{Key: "booking_no", Label: "Booking #", Type: models.FieldTypeString, Searchable: true, Sortable: true},
			{Key: "customer", Label: "Customer", Type: models.FieldTypeString, Searchable: true, Sortable: true, SubFields: personSubFields},
			{Key: "plot_no", Label: "Plot", Type: models.FieldTypeString, Searchable: true, Sortable: true},
			{Key: "total_amount", Label: "Total", Type: models.FieldTypeCurrency, Sortable: true},
			{Key: "paid_amount", Label: "Paid", Type: models.FieldTypeCurrency, Sortable: true},
			{Key: "due_amount", Label: "Due", Type: models.FieldTypeCurrency, Sortable: true, Accessor: dueAmount},
			{Key: "due_date", Label: "Due Date", Type: models.FieldTypeDate, Sortable: true},
			{Key: "overdue_days", Label: "Overdue (days)", Type: models.FieldTypeNumber, Sortable: true, Fallback: 0},
		},
		References: []ReferenceSource{ventures},
	},
	"agents": {
		Name:     "agents",
		Title:    "Agent Roster",
		Endpoint: "/agents",
		Params:   []string{"branch_id"},
		Fields: []models.FieldDescriptor{
			{Key: "agent_code", Label: "Agent Code", Type: models.FieldTypeString, Searchable: true, Sortable: true},
			{Key: "name", Label: "Name", Type: models.FieldTypeString, Searchable: true, Sortable: true},
			{Key: "phone", Label: "Phone", Type: models.FieldTypeString, Searchable: true},
			{Key: "designation", Label: "Designation", Type: models.FieldTypeString, Searchable: true, Sortable: true},
			{Key: "branch_id", Label: "Branch", Type: models.FieldTypeString, Searchable: true, Sortable: true, Ref: &models.RefJoin{Table: "branches"}},
			{Key: "team_size", Label: "Team", Type: models.FieldTypeNumber, Sortable: true, Fallback: 0},
			{Key: "blocked", Label: "Blocked", Type: models.FieldTypeString, Sortable: true, Fallback: false},
		},
		References: []ReferenceSource{branches},
		Mutation:   &MutationRoute{Method: "PATCH", Path: "/agents/{id}", Fields: []string{"blocked"}},
	},
	"inventory": {
		Name:     "inventory",
		Title:    "Available Inventory",
		Endpoint: "/ventures/{venture_id}/properties",
		Params:   []string{"venture_id", "status"},
		Required: []string{"venture_id"},
		Fields: []models.FieldDescriptor{
			{Key: "plot_no", Label: "Plot", Type: models.FieldTypeString, Searchable: true, Sortable: true},
			{Key: "venture_id", Label: "Venture", Type: models.FieldTypeString, Searchable: true, Ref: &models.RefJoin{Table: "ventures"}},
			{Key: "facing", Label: "Facing", Type: models.FieldTypeString, Searchable: true, Sortable: true},
			{Key: "area", Label: "Area (sq. yd)", Type: models.FieldTypeNumber, Sortable: true},
			{Key: "rate", Label: "Rate / sq. yd", Type: models.FieldTypeCurrency, Sortable: true},
			{Key: "total_price", Label: "Price", Type: models.FieldTypeCurrency, Sortable: true},
			{Key: "status", Label: "Status", Type: models.FieldTypeString, Searchable: true, Sortable: true, Fallback: "Available"},
		},
		References: []ReferenceSource{ventures},
	},
}

// dueAmount prefers the backend's figure and derives it from total minus paid otherwise.
func dueAmount(r models.Record) any {
	if v, ok := r["due_amount"]; ok && v != nil {
		return v
	}
	total, okTotal := utils.ParseAmount(r["total_amount"])
	paid, okPaid := utils.ParseAmount(r["paid_amount"])
	if !okTotal {
		return nil
	}
	if !okPaid {
		return total
	}
	return total.Sub(paid)
}

// LookupReport returns the definition registered under name.
func LookupReport(name string) (Report, error) {
	r, ok := registry[name]
	if !ok {
		return Report{}, models.ErrUnknownReport
	}
	return r, nil
}

// ReportNames lists the registered reports in name order.
func ReportNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var referenceSources = map[string]ReferenceSource{
	branches.Name: branches,
	ventures.Name: ventures,
	statuses.Name: statuses,
}

// LookupReference returns the shared reference table registered under name.
func LookupReference(name string) (ReferenceSource, bool) {
	src, ok := referenceSources[name]
	return src, ok
}
