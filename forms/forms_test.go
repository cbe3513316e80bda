package forms

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/mmdatafocus/estate_console/models"
)

type fakeUpstream struct {
	mu          sync.Mutex
	collections map[string][]models.Record
	gets        []string
	sends       []string
	payloads    []any
	reply       any
	sendErr     error
	onGet       func(path string)
}

func (f *fakeUpstream) GetCollection(ctx context.Context, path string, query url.Values) ([]models.Record, int, error) {
	f.mu.Lock()
	f.gets = append(f.gets, path+"?"+query.Encode())
	hook := f.onGet
	f.mu.Unlock()
	if hook != nil {
		hook(path)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := f.collections[path]
	return rows, len(rows), nil
}

func (f *fakeUpstream) Send(ctx context.Context, method, path string, payload any) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, method+" "+path)
	f.payloads = append(f.payloads, payload)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	if f.reply != nil {
		return f.reply, nil
	}
	return map[string]any{"status": true, "data": map[string]any{"id": json.Number("7")}}, nil
}

func TestSubmitLeadNormalizesPhone(t *testing.T) {
	up := &fakeUpstream{}
	body := []byte(`{"name":" Ravi Kumar ","mobile":"98765 43210","email":"Ravi@Example.com","source":"walk-in","branch_id":2}`)

	if _, err := Submit(context.Background(), up, "lead", body); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(up.sends) != 1 || up.sends[0] != "POST /leads" {
		t.Fatalf("sends = %v", up.sends)
	}
	lead := up.payloads[0].(*LeadForm)
	if lead.Mobile != "+919876543210" {
		t.Errorf("mobile = %q", lead.Mobile)
	}
	if lead.Name != "Ravi Kumar" || lead.Email != "ravi@example.com" {
		t.Errorf("lead = %+v", lead)
	}
}

func TestSubmitInvalidFormIsNotSent(t *testing.T) {
	tests := []struct {
		name  string
		form  string
		body  string
		field string
		rule  string
	}{
		{"missing name", "lead", `{"mobile":"9876543210","source":"walk-in","branch_id":1}`, "name", "required"},
		{"bad phone", "lead", `{"name":"A","mobile":"12345","source":"walk-in","branch_id":1}`, "mobile", "phone"},
		{"bad source", "lead", `{"name":"A","mobile":"9876543210","source":"radio","branch_id":1}`, "source", "oneof"},
		{"bad email", "customer", `{"name":"A","mobile":"9876543210","email":"nope","address":"x","country_id":1,"state_id":2,"district_id":3,"pincode":"500038"}`, "email", "email"},
		{"bad pincode", "customer", `{"name":"A","mobile":"9876543210","address":"x","country_id":1,"state_id":2,"district_id":3,"pincode":"050038"}`, "pincode", "pincode"},
		{"bad join date", "member", `{"name":"A","mobile":"9876543210","sponsor_code":"SP1","branch_id":1,"joined_on":"01-04-2024"}`, "joined_on", "datetime"},
		{"future join", "member", `{"name":"A","mobile":"9876543210","sponsor_code":"SP1","branch_id":1,"joined_on":"2999-01-01"}`, "joined_on", "not in the future"},
		{"past visit", "site-visit", `{"customer_id":1,"venture_id":2,"agent_id":3,"visit_date":"2001-05-01","persons":2}`, "visit_date", "not in the past"},
		{"too many persons", "site-visit", `{"customer_id":1,"venture_id":2,"agent_id":3,"visit_date":"2999-05-01","persons":40}`, "persons", "max"},
		{"broken json", "lead", `{"name":`, "_", "invalid json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := &fakeUpstream{}
			_, err := Submit(context.Background(), up, tt.form, []byte(tt.body))
			var verr *models.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if got := verr.Fields[tt.field]; got != tt.rule {
				t.Errorf("Fields[%q] = %q, want %q (all: %v)", tt.field, got, tt.rule, verr.Fields)
			}
			if len(up.sends) != 0 {
				t.Errorf("invalid form was sent: %v", up.sends)
			}
		})
	}
}

func TestSubmitRejectedAndUnknown(t *testing.T) {
	up := &fakeUpstream{reply: map[string]any{"status": false, "message": "Mobile already registered"}}
	body := []byte(`{"customer_id":1,"venture_id":2,"agent_id":3,"visit_date":"2999-05-01","persons":2}`)
	_, err := Submit(context.Background(), up, "site-visit", body)
	var rerr *models.RejectedError
	if !errors.As(err, &rerr) || rerr.Message != "Mobile already registered" {
		t.Fatalf("err = %v", err)
	}

	if _, err := Submit(context.Background(), up, "invoice", body); !errors.Is(err, ErrUnknownForm) {
		t.Errorf("unknown form err = %v", err)
	}
}

func TestSubmitTransportError(t *testing.T) {
	netErr := &models.NetworkError{Op: "POST /members", Err: errors.New("connection refused")}
	up := &fakeUpstream{sendErr: netErr}
	body := []byte(`{"name":"A","mobile":"9876543210","sponsor_code":"sp1","branch_id":1,"joined_on":"2024-04-01"}`)
	_, err := Submit(context.Background(), up, "member", body)
	var nerr *models.NetworkError
	if !errors.As(err, &nerr) {
		t.Fatalf("err = %v", err)
	}
	if got := up.payloads[0].(*MemberForm).SponsorCode; got != "SP1" {
		t.Errorf("sponsor code = %q", got)
	}
}

func TestValidateUsesClock(t *testing.T) {
	now := time.Date(2024, 4, 10, 15, 0, 0, 0, time.UTC)
	body := []byte(`{"customer_id":1,"venture_id":2,"agent_id":3,"visit_date":"2024-04-10","persons":2}`)
	if _, err := Validate("site-visit", body, now); err != nil {
		t.Errorf("same-day visit rejected: %v", err)
	}
}
