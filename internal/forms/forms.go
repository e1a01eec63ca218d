// Package forms validates user input before it reaches the mutation
// coordinator or the auth provider. A form that fails here never causes a
// network call.
package forms

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/lalith-99/echocrm/internal/apperr"
	"github.com/lalith-99/echocrm/internal/models"
)

// EmailPattern is something@something.tld. "foo@bar" fails it.
var EmailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether s, trimmed, matches EmailPattern.
func ValidEmail(s string) bool {
	return EmailPattern.MatchString(strings.TrimSpace(s))
}

// LongEnough reports whether password has at least minLen characters,
// counted in runes rather than bytes.
func LongEnough(password string, minLen int) bool {
	return utf8.RuneCountInString(password) >= minLen
}

// DefaultMinPassword is the minimum password length when none is configured.
const DefaultMinPassword = 6

// Validator wraps go-playground/validator with the CRM's rules and messages.
type Validator struct {
	v           *validator.Validate
	minPassword int
}

// New builds a validator. minPassword below 1 falls back to
// DefaultMinPassword.
func New(minPassword int) *Validator {
	if minPassword < 1 {
		minPassword = DefaultMinPassword
	}
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	fv := &Validator{v: v, minPassword: minPassword}

	mustRegister(v, "notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	mustRegister(v, "crmemail", func(fl validator.FieldLevel) bool {
		return ValidEmail(fl.Field().String())
	})
	mustRegister(v, "password", func(fl validator.FieldLevel) bool {
		return LongEnough(fl.Field().String(), fv.minPassword)
	})
	return fv
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// MinPassword is the configured minimum password length.
func (v *Validator) MinPassword() int { return v.minPassword }

// Validate checks s and returns an apperr validation error whose Message is
// the first failing field's message and whose Fields hold every failure.
func (v *Validator) Validate(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(map[string]string, len(verrs))
	first := ""
	for _, e := range verrs {
		msg := v.message(e)
		if _, seen := fields[e.Field()]; !seen {
			fields[e.Field()] = msg
		}
		if first == "" {
			first = msg
		}
	}
	return apperr.Validation(first, fields)
}

func (v *Validator) message(e validator.FieldError) string {
	switch e.Tag() {
	case "notblank", "required":
		return label(e.Field()) + " is required"
	case "crmemail":
		return "Please enter a valid email address"
	case "password":
		return fmt.Sprintf("Password must be at least %d characters", v.minPassword)
	case "eqfield":
		return "Passwords do not match"
	case "oneof":
		return label(e.Field()) + " must be one of: " + strings.ReplaceAll(e.Param(), " ", ", ")
	case "datetime":
		if e.Param() == timeLayout {
			return label(e.Field()) + " must be a time like 09:30"
		}
		return label(e.Field()) + " must be a date like 2006-01-02"
	default:
		return label(e.Field()) + " is invalid"
	}
}

// label turns a JSON field name into words: "reminder_date" → "Reminder date".
func label(field string) string {
	s := strings.ReplaceAll(field, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// LeadForm is the add/edit lead form. Tags arrive comma-separated.
type LeadForm struct {
	Name    string `json:"name" form:"name" validate:"notblank"`
	Email   string `json:"email" form:"email" validate:"notblank,crmemail"`
	Phone   string `json:"phone" form:"phone"`
	Company string `json:"company" form:"company"`
	Status  string `json:"status" form:"status" validate:"omitempty,oneof=New Contacted Qualified Proposal Closed"`
	Source  string `json:"source" form:"source"`
	Notes   string `json:"notes" form:"notes"`
	Tags    string `json:"tags" form:"tags"`
}

// Fields converts a validated form. Defaults are applied later by
// models.LeadFields.Normalize.
func (f LeadForm) Fields() models.LeadFields {
	return models.LeadFields{
		Name:    f.Name,
		Email:   f.Email,
		Phone:   f.Phone,
		Company: f.Company,
		Status:  models.LeadStatus(strings.TrimSpace(f.Status)),
		Source:  f.Source,
		Notes:   f.Notes,
		Tags:    models.CleanTags(strings.Split(f.Tags, ",")),
	}
}

// ReminderForm is the add/edit reminder form. Date and time are wall-clock
// values in the viewer's location.
type ReminderForm struct {
	Title          string `json:"title" form:"title" validate:"notblank"`
	Description    string `json:"description" form:"description"`
	Date           string `json:"reminder_date" form:"reminder_date" validate:"notblank,datetime=2006-01-02"`
	Time           string `json:"reminder_time" form:"reminder_time" validate:"omitempty,datetime=15:04"`
	Priority       string `json:"priority" form:"priority" validate:"omitempty,oneof=low medium high"`
	LeadID         string `json:"lead_id" form:"lead_id"`
	RepeatInterval string `json:"repeat_interval" form:"repeat_interval" validate:"omitempty,oneof=daily weekly monthly"`
}

// Fields converts a validated form, combining date and time in loc. With
// no time the reminder falls at midnight.
func (f ReminderForm) Fields(loc *time.Location) (models.ReminderFields, error) {
	layout, value := dateLayout, strings.TrimSpace(f.Date)
	if t := strings.TrimSpace(f.Time); t != "" {
		layout, value = dateLayout+" "+timeLayout, value+" "+t
	}
	at, err := time.ParseInLocation(layout, value, loc)
	if err != nil {
		return models.ReminderFields{}, apperr.Validation("Reminder date is invalid",
			map[string]string{"reminder_date": "Reminder date is invalid"})
	}

	out := models.ReminderFields{
		Title:          f.Title,
		Description:    f.Description,
		ReminderDate:   at,
		ReminderTime:   strings.TrimSpace(f.Time),
		Priority:       models.Priority(f.Priority),
		RepeatInterval: models.RepeatInterval(f.RepeatInterval),
	}
	if id := strings.TrimSpace(f.LeadID); id != "" {
		out.LeadID = &id
	}
	return out, nil
}

type SignInForm struct {
	Email    string `json:"email" form:"email" validate:"crmemail"`
	Password string `json:"password" form:"password" validate:"password"`
}

type SignUpForm struct {
	Email           string `json:"email" form:"email" validate:"crmemail"`
	Password        string `json:"password" form:"password" validate:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password" validate:"eqfield=Password"`
}
