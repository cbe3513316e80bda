package forms

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/mmdatafocus/estate_console/models"
)

func locationUpstream() *fakeUpstream {
	return &fakeUpstream{collections: map[string][]models.Record{
		"/countries": {{"id": json.Number("1"), "name": "India"}},
		"/countries/1/states": {
			{"id": json.Number("36"), "name": "Telangana"},
			{"id": json.Number("28"), "name": "Andhra Pradesh"},
		},
		"/states/36/districts": {{"id": json.Number("501"), "name": "Hyderabad"}},
		"/states/28/districts": {{"id": json.Number("402"), "name": "Guntur"}},
		"/ventures/5/properties": {
			{"id": json.Number("90"), "plot_no": "B-12"},
			{"id": json.Number("91"), "plot_no": "A-03"},
		},
	}}
}

func TestCascadeSelectClearsDescendants(t *testing.T) {
	chain, err := LookupChain("location")
	if err != nil {
		t.Fatal(err)
	}
	up := locationUpstream()
	c := NewCascade(chain, up, Selection{"country_id": "1", "state_id": "36", "district_id": "501", "other": "x"})

	change, err := c.Select(context.Background(), "state_id", "28")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if !reflect.DeepEqual(change.Cleared, []string{"district_id"}) {
		t.Errorf("cleared = %v", change.Cleared)
	}
	want := Selection{"country_id": "1", "state_id": "28"}
	if !reflect.DeepEqual(change.Selection, want) {
		t.Errorf("selection = %v, want %v", change.Selection, want)
	}
	if change.Child != "district_id" || len(change.Options) != 1 || change.Options[0].Label != "Guntur" {
		t.Errorf("child options = %s %v", change.Child, change.Options)
	}

	change, err = c.Select(context.Background(), "country_id", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(change.Selection) != 0 || !reflect.DeepEqual(change.Cleared, []string{"state_id"}) {
		t.Errorf("after clearing country: %+v", change)
	}
	if len(change.Options) != 0 {
		t.Errorf("no parent value should load no options, got %v", change.Options)
	}
}

func TestCascadeChildQueryAndLabels(t *testing.T) {
	chain, _ := LookupChain("property")
	up := locationUpstream()
	c := NewCascade(chain, up, nil)

	change, err := c.Select(context.Background(), "venture_id", "5")
	if err != nil {
		t.Fatal(err)
	}
	want := []models.Option{{ID: "91", Label: "A-03"}, {ID: "90", Label: "B-12"}}
	if !reflect.DeepEqual(change.Options, want) {
		t.Errorf("options = %v", change.Options)
	}
	if up.gets[0] != "/ventures/5/properties?status=available" {
		t.Errorf("get = %q", up.gets[0])
	}

	if _, err := c.Select(context.Background(), "plot", "1"); !errors.Is(err, ErrUnknownLevel) {
		t.Errorf("unknown level err = %v", err)
	}
	if _, err := LookupChain("nope"); !errors.Is(err, ErrUnknownChain) {
		t.Errorf("unknown chain err = %v", err)
	}
}

func TestCascadeStaleSelectionDropped(t *testing.T) {
	chain, _ := LookupChain("location")
	up := locationUpstream()
	release := make(chan struct{})
	started := make(chan struct{})
	up.onGet = func(path string) {
		if path == "/states/36/districts" {
			close(started)
			<-release
		}
	}
	c := NewCascade(chain, up, Selection{"country_id": "1"})

	errc := make(chan error, 1)
	go func() {
		_, err := c.Select(context.Background(), "state_id", "36")
		errc <- err
	}()
	<-started

	change, err := c.Select(context.Background(), "state_id", "28")
	if err != nil {
		t.Fatalf("newer Select: %v", err)
	}
	close(release)

	if err := <-errc; !errors.Is(err, ErrStaleSelection) {
		t.Errorf("older Select err = %v, want ErrStaleSelection", err)
	}
	if got := c.Selection()["state_id"]; got != "28" {
		t.Errorf("state_id = %q", got)
	}
	if change.Options[0].Label != "Guntur" {
		t.Errorf("options = %v", change.Options)
	}
}

func TestCascadeTopOptions(t *testing.T) {
	chain, _ := LookupChain("location")
	opts, err := NewCascade(chain, locationUpstream(), nil).Options(context.Background())
	if err != nil || len(opts) != 1 || opts[0].Label != "India" {
		t.Errorf("options = %v, %v", opts, err)
	}
}
