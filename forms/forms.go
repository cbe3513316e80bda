// Package forms validates and submits the create forms of the console and
// resolves its dependent dropdowns.
package forms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mmdatafocus/estate_console/config"
	"github.com/mmdatafocus/estate_console/decoder"
	"github.com/mmdatafocus/estate_console/models"
	"github.com/mmdatafocus/estate_console/utils"
)

var ErrUnknownForm = errors.New("unknown form")

// Upstream is the part of the backend client forms need.
type Upstream interface {
	GetCollection(ctx context.Context, path string, query url.Values) ([]models.Record, int, error)
	Send(ctx context.Context, method, path string, payload any) (any, error)
}

// submission is a form body after decoding. normalize runs after tag
// validation and returns field errors keyed like the json names.
type submission interface {
	normalize(now time.Time) map[string]string
}

type definition struct {
	path string
	new  func() submission
}

var definitions = map[string]definition{
	"lead":       {path: "/leads", new: func() submission { return &LeadForm{} }},
	"customer":   {path: "/customers", new: func() submission { return &CustomerForm{} }},
	"member":     {path: "/members", new: func() submission { return &MemberForm{} }},
	"site-visit": {path: "/site-visits", new: func() submission { return &SiteVisitForm{} }},
}

// Names lists the form names accepted by Submit.
func Names() []string {
	out := make([]string, 0, len(definitions))
	for name := range definitions {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

type LeadForm struct {
	Name      string `json:"name" validate:"required,max=100"`
	Mobile    string `json:"mobile" validate:"required,phone"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
	Source    string `json:"source" validate:"required,oneof=walk-in referral website campaign"`
	BranchID  int    `json:"branch_id" validate:"required,gt=0"`
	VentureID int    `json:"venture_id,omitempty" validate:"omitempty,gt=0"`
	Notes     string `json:"notes,omitempty" validate:"max=500"`
}

func (f *LeadForm) normalize(time.Time) map[string]string {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	return normalizePhone(&f.Mobile, "mobile", nil)
}

type CustomerForm struct {
	Name       string `json:"name" validate:"required,max=100"`
	Mobile     string `json:"mobile" validate:"required,phone"`
	AltMobile  string `json:"alt_mobile,omitempty" validate:"omitempty,phone"`
	Email      string `json:"email,omitempty" validate:"omitempty,email"`
	Address    string `json:"address" validate:"required,max=300"`
	CountryID  int    `json:"country_id" validate:"required,gt=0"`
	StateID    int    `json:"state_id" validate:"required,gt=0"`
	DistrictID int    `json:"district_id" validate:"required,gt=0"`
	Pincode    string `json:"pincode" validate:"required,pincode"`
	PAN        string `json:"pan,omitempty" validate:"omitempty,len=10,alphanum"`
}

func (f *CustomerForm) normalize(time.Time) map[string]string {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	f.PAN = strings.ToUpper(f.PAN)
	errs := normalizePhone(&f.Mobile, "mobile", nil)
	if f.AltMobile != "" {
		errs = normalizePhone(&f.AltMobile, "alt_mobile", errs)
	}
	return errs
}

type MemberForm struct {
	Name        string `json:"name" validate:"required,max=100"`
	Mobile      string `json:"mobile" validate:"required,phone"`
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
	SponsorCode string `json:"sponsor_code" validate:"required,alphanum,max=20"`
	BranchID    int    `json:"branch_id" validate:"required,gt=0"`
	JoinedOn    string `json:"joined_on" validate:"required,datetime=2006-01-02"`
}

func (f *MemberForm) normalize(now time.Time) map[string]string {
	f.Name = strings.TrimSpace(f.Name)
	f.SponsorCode = strings.ToUpper(f.SponsorCode)
	errs := normalizePhone(&f.Mobile, "mobile", nil)
	if joined, err := time.Parse(time.DateOnly, f.JoinedOn); err == nil && joined.After(now) {
		errs = addError(errs, "joined_on", "not in the future")
	}
	return errs
}

type SiteVisitForm struct {
	CustomerID  int    `json:"customer_id" validate:"required,gt=0"`
	VentureID   int    `json:"venture_id" validate:"required,gt=0"`
	AgentID     int    `json:"agent_id" validate:"required,gt=0"`
	VisitDate   string `json:"visit_date" validate:"required,datetime=2006-01-02"`
	Persons     int    `json:"persons" validate:"required,min=1,max=20"`
	PickupPoint string `json:"pickup_point,omitempty" validate:"max=200"`
}

func (f *SiteVisitForm) normalize(now time.Time) map[string]string {
	visit, err := time.Parse(time.DateOnly, f.VisitDate)
	if err == nil && visit.Before(truncateDay(now)) {
		return map[string]string{"visit_date": "not in the past"}
	}
	return nil
}

// Validate decodes body into the named form and checks it. A nil error means
// the returned value is ready to send.
func Validate(name string, body []byte, now time.Time) (any, error) {
	def, ok := definitions[name]
	if !ok {
		return nil, ErrUnknownForm
	}
	form := def.new()
	if err := json.Unmarshal(body, form); err != nil {
		return nil, &models.ValidationError{Fields: map[string]string{"_": "invalid json"}}
	}
	if err := utils.Validator().Struct(form); err != nil {
		return nil, &models.ValidationError{Fields: utils.ProcessValidationErrors(err)}
	}
	if errs := form.normalize(now); len(errs) > 0 {
		return nil, &models.ValidationError{Fields: errs}
	}
	return form, nil
}

// Submit validates the named form and posts it. A form that fails validation
// is never sent. An envelope with status:false comes back as *models.RejectedError.
func Submit(ctx context.Context, upstream Upstream, name string, body []byte) (any, error) {
	form, err := Validate(name, body, time.Now())
	if err != nil {
		return nil, err
	}
	resp, err := upstream.Send(ctx, http.MethodPost, definitions[name].path, form)
	if err != nil {
		config.LogError(config.GetLogger(), "forms", "Submit", name, nil, err)
		return nil, err
	}
	if msg, failed := decoder.Failed(resp); failed {
		return nil, &models.RejectedError{Message: msg}
	}
	return resp, nil
}

func normalizePhone(phone *string, field string, errs map[string]string) map[string]string {
	e164, err := utils.NormalizePhoneNumber(*phone, config.PhoneRegion())
	if err != nil {
		return addError(errs, field, "phone")
	}
	*phone = e164
	return errs
}

func addError(errs map[string]string, field, rule string) map[string]string {
	if errs == nil {
		errs = map[string]string{}
	}
	errs[field] = rule
	return errs
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
