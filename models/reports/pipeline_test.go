package reports

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/mmdatafocus/estate_console/models"
)

var scenarioFields = []models.FieldDescriptor{
	{Key: "id", Label: "#", Type: models.FieldTypeNumber, Sortable: true},
	{Key: "name", Label: "Name", Type: models.FieldTypeString, Searchable: true, Sortable: true},
	{Key: "amount", Label: "Amount", Type: models.FieldTypeCurrency, Sortable: true},
}

func scenarioRecords() []models.Record {
	return []models.Record{
		{"id": json.Number("1"), "name": "Alice", "amount": "100"},
		{"id": json.Number("2"), "name": "bob", "amount": "50"},
	}
}

func ids(records []models.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID()
	}
	return out
}

func assertIDs(t *testing.T, records []models.Record, expected ...string) {
	t.Helper()
	got := ids(records)
	if fmt.Sprint(got) != fmt.Sprint(expected) {
		t.Fatalf("expected ids %v, got %v", expected, got)
	}
}

func TestScenario_SortFilterPaginate(t *testing.T) {
	records := scenarioRecords()

	sorted := Sort(records, models.SortState{Key: "amount", Direction: models.SortDescending}, scenarioFields, nil)
	assertIDs(t, sorted, "1", "2")

	assertIDs(t, Filter(records, "bo", nil, scenarioFields, nil), "2")

	page := Paginate(sorted, 2, 1)
	if page.PageCount != 2 || page.Index != 2 {
		t.Fatalf("expected page 2 of 2, got %d of %d", page.Index, page.PageCount)
	}
	assertIDs(t, page.Items, "2")
}

func TestFilter_EmptyFiltersAreIdentity(t *testing.T) {
	records := scenarioRecords()
	got := Filter(records, "", map[string]string{"name": "  "}, scenarioFields, nil)
	assertIDs(t, got, "1", "2")
	got[0] = nil
	if records[0] == nil {
		t.Fatalf("Filter must return a new slice")
	}
}

func TestFilter_SubstringIsCaseInsensitive(t *testing.T) {
	got := Filter(scenarioRecords(), "ALI", nil, scenarioFields, nil)
	assertIDs(t, got, "1")
}

func TestFilter_ColumnPredicates(t *testing.T) {
	records := []models.Record{
		{"id": 1, "name": "Alice", "city": "Hyderabad"},
		{"id": 2, "name": "Alina", "city": "Vizag"},
		{"id": 3, "name": "Bob"},
	}
	got := Filter(records, "", map[string]string{"name": "ali", "city": "hyd"}, scenarioFields, nil)
	assertIDs(t, got, "1")

	// absent values never match a non-empty predicate
	got = Filter(records, "", map[string]string{"city": "a"}, scenarioFields, nil)
	assertIDs(t, got, "1", "2")
}

func TestFilter_NestedSubFields(t *testing.T) {
	fields := []models.FieldDescriptor{
		{Key: "agent", Label: "Agent", Searchable: true, SubFields: []string{"name", "phone"}},
	}
	records := []models.Record{
		{"id": 1, "agent": map[string]any{"name": "Ravi", "phone": "9848012345", "internal_code": "zz"}},
		{"id": 2, "agent": map[string]any{"name": "Sita", "phone": "9000000000"}},
		{"id": 3, "agent": nil},
	}
	assertIDs(t, Filter(records, "98480", nil, fields, nil), "1")
	assertIDs(t, Filter(records, "sita", nil, fields, nil), "2")
	if got := Filter(records, "zz", nil, fields, nil); len(got) != 0 {
		t.Fatalf("keys outside the sub-fields must not be searched, got %v", ids(got))
	}
}

func TestFilter_ReferenceLabels(t *testing.T) {
	store := models.NewRecordStore()
	store.SetReference(models.NewReferenceTable("branches", "id", "name", []models.Record{
		{"id": json.Number("7"), "name": "Kukatpally"},
	}))
	fields := []models.FieldDescriptor{
		{Key: "branch_id", Label: "Branch", Searchable: true, Ref: &models.RefJoin{Table: "branches"}},
	}
	records := []models.Record{
		{"id": 1, "branch_id": 7},
		{"id": 2, "branch_id": 8},
	}
	assertIDs(t, Filter(records, "kukat", nil, fields, store), "1")
	assertIDs(t, Filter(records, models.UnknownLabel, nil, fields, store), "2")
}

func TestSort_NoActiveKeyKeepsOrder(t *testing.T) {
	records := []models.Record{{"id": 3}, {"id": 1}, {"id": 2}}
	assertIDs(t, Sort(records, models.SortState{}, scenarioFields, nil), "3", "1", "2")
}

func TestSort_NullsLastInBothDirections(t *testing.T) {
	records := []models.Record{
		{"id": 1, "amount": nil},
		{"id": 2, "amount": "₹ 1,000"},
		{"id": 3},
		{"id": 4, "amount": "₹ 200"},
	}
	asc := Sort(records, models.SortState{Key: "amount", Direction: models.SortAscending}, scenarioFields, nil)
	assertIDs(t, asc, "4", "2", "1", "3")
	desc := Sort(records, models.SortState{Key: "amount", Direction: models.SortDescending}, scenarioFields, nil)
	assertIDs(t, desc, "2", "4", "1", "3")
}

func TestSort_StableAndIdempotent(t *testing.T) {
	records := []models.Record{
		{"id": 1, "name": "b"},
		{"id": 2, "name": "A"},
		{"id": 3, "name": "B"},
		{"id": 4, "name": "a"},
	}
	state := models.SortState{Key: "name", Direction: models.SortAscending}
	once := Sort(records, state, scenarioFields, nil)
	assertIDs(t, once, "2", "4", "1", "3")
	assertIDs(t, Sort(once, state, scenarioFields, nil), ids(once)...)
}

func TestSort_DatesAndNumbers(t *testing.T) {
	fields := []models.FieldDescriptor{
		{Key: "visit_date", Type: models.FieldTypeDate, Sortable: true},
		{Key: "team_size", Type: models.FieldTypeNumber, Sortable: true},
	}
	records := []models.Record{
		{"id": 1, "visit_date": "2024-03-01", "team_size": json.Number("10")},
		{"id": 2, "visit_date": "2023-12-31", "team_size": json.Number("9")},
		{"id": 3, "visit_date": "2024-01-15T10:00:00Z", "team_size": json.Number("100")},
	}
	assertIDs(t, Sort(records, models.SortState{Key: "visit_date", Direction: models.SortAscending}, fields, nil), "2", "3", "1")
	assertIDs(t, Sort(records, models.SortState{Key: "team_size", Direction: models.SortAscending}, fields, nil), "2", "1", "3")
}

func TestPaginate_SumOfPagesIsTotal(t *testing.T) {
	for n := 0; n <= 23; n++ {
		records := make([]models.Record, n)
		for i := range records {
			records[i] = models.Record{"id": i}
		}
		for size := 1; size <= 7; size++ {
			first := Paginate(records, 1, size)
			sum := 0
			for i := 1; i <= first.PageCount; i++ {
				p := Paginate(records, i, size)
				if len(p.Items) > size {
					t.Fatalf("n=%d size=%d page %d has %d items", n, size, i, len(p.Items))
				}
				sum += len(p.Items)
			}
			if sum != n {
				t.Fatalf("n=%d size=%d pages hold %d records", n, size, sum)
			}
		}
	}
}

func TestPaginate_ClampsIndex(t *testing.T) {
	records := make([]models.Record, 12)
	for i := range records {
		records[i] = models.Record{"id": i}
	}
	cases := []struct {
		index, size   int
		expectedIndex int
		expectedCount int
		expectedItems int
	}{
		{0, 5, 1, 3, 5},
		{-4, 5, 1, 3, 5},
		{3, 5, 3, 3, 2},
		{9, 5, 3, 3, 2},
		{2, 0, 2, 2, 2},
	}
	for _, tc := range cases {
		p := Paginate(records, tc.index, tc.size)
		if p.Index != tc.expectedIndex || p.PageCount != tc.expectedCount || len(p.Items) != tc.expectedItems {
			t.Fatalf("Paginate(%d,%d) = index %d count %d items %d", tc.index, tc.size, p.Index, p.PageCount, len(p.Items))
		}
	}

	empty := Paginate(nil, 4, 10)
	if empty.PageCount != 1 || empty.Index != 1 || len(empty.Items) != 0 {
		t.Fatalf("empty collection expected one empty page, got %+v", empty)
	}
}

func TestCompute_WritesClampedIndexBack(t *testing.T) {
	store := models.NewRecordStore()
	store.Replace(scenarioRecords())
	state := models.DefaultViewState()
	state.SetPage(4)
	state.SetSort("amount", models.SortDescending)
	state.SetPage(4)

	res := Compute(store, scenarioFields, &state)
	if res.Index != 1 || state.Page.Index != 1 {
		t.Fatalf("expected clamped page 1, got result %d state %d", res.Index, state.Page.Index)
	}
	if res.Matched != 2 || res.Fetched != 2 {
		t.Fatalf("unexpected counts %+v", res)
	}
	assertIDs(t, res.Items, "1", "2")

	state.SetSearch("bo")
	res = Compute(store, scenarioFields, &state)
	assertIDs(t, res.Items, "2")
	if res.Matched != 1 || res.Fetched != 2 {
		t.Fatalf("unexpected counts after search %+v", res)
	}
}

func TestOrdered_IsNotPaginated(t *testing.T) {
	store := models.NewRecordStore()
	records := make([]models.Record, 30)
	for i := range records {
		records[i] = models.Record{"id": i, "name": fmt.Sprintf("lead %02d", i)}
	}
	store.Replace(records)
	state := models.DefaultViewState()
	state.SetSort("name", models.SortDescending)
	got := Ordered(store, scenarioFields, state)
	if len(got) != 30 || got[0].ID() != "29" {
		t.Fatalf("expected all 30 records newest first, got %d starting at %s", len(got), got[0].ID())
	}
}
