// Package leads runs the three step lead capture wizard and delivers the
// resulting lead to the configured sinks.
package leads

import (
	"fmt"
	"strings"
	"time"

	apperrors "menu-scorecard/internal/common/errors"
	"menu-scorecard/internal/common/validation"
)

type Step int

const (
	StepCategory Step = 1
	StepRevenue  Step = 2
	StepContact  Step = 3
)

// Categories are the business types offered on the first step.
var Categories = []string{
	"Restaurant",
	"Hotel & Accommodation",
	"Bar / Pub",
	"Fast Casual",
	"Cafe",
	"Food Truck",
	"Grocery",
	"Bakery",
	"Event / Pop-up",
	"Other",
}

// RevenueBands are the annual revenue ranges offered on the second step.
var RevenueBands = []string{
	"Unknown / No revenue",
	"1-500K",
	"501k-800k",
	"801k-1.5M",
	"1.5M-3M",
	"3M-8M",
	"8M+",
}

type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

var Countries = []Country{
	{Code: "+61", Name: "Australia"},
	{Code: "+64", Name: "New Zealand"},
}

const DefaultCountryCode = "+61"

type DeliveryStatus string

const (
	DeliveryNone      DeliveryStatus = ""
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
)

// Contact is the form filled in on the last step. Phone excludes the country code.
type Contact struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Company  string `json:"company"`
}

// Wizard is the lead capture state for one scorecard. Going back never clears
// a value; once submitted the wizard is terminal.
type Wizard struct {
	Step         Step           `json:"step"`
	Category     string         `json:"category"`
	Revenue      string         `json:"revenue"`
	CountryCode  string         `json:"countryCode"`
	Contact      Contact        `json:"contact"`
	Submitted    bool           `json:"submitted"`
	SubmissionID string         `json:"submissionId,omitempty"`
	Delivery     DeliveryStatus `json:"deliveryStatus,omitempty"`
}

func NewWizard() Wizard {
	return Wizard{Step: StepCategory, CountryCode: DefaultCountryCode}
}

func (w *Wizard) Next() error {
	if err := w.editable("next"); err != nil {
		return err
	}
	if w.Step < StepContact {
		w.Step++
	}
	return nil
}

func (w *Wizard) Back() error {
	if err := w.editable("back"); err != nil {
		return err
	}
	if w.Step > StepCategory {
		w.Step--
	}
	return nil
}

// ChooseCategory commits the business type and advances to the revenue step.
func (w *Wizard) ChooseCategory(category string) error {
	if err := w.at(StepCategory, "category"); err != nil {
		return err
	}
	if !oneOf(Categories, category) {
		return apperrors.NewInvalidInputError(fmt.Sprintf("unknown business type %q", category))
	}
	w.Category = category
	w.Step = StepRevenue
	return nil
}

// ChooseRevenue commits the revenue band and advances to the contact step.
func (w *Wizard) ChooseRevenue(band string) error {
	if err := w.at(StepRevenue, "revenue"); err != nil {
		return err
	}
	if !oneOf(RevenueBands, band) {
		return apperrors.NewInvalidInputError(fmt.Sprintf("unknown revenue band %q", band))
	}
	w.Revenue = band
	w.Step = StepContact
	return nil
}

// Skip leaves the revenue band as is and moves to the contact step.
func (w *Wizard) Skip() error {
	if err := w.at(StepRevenue, "skip"); err != nil {
		return err
	}
	w.Step = StepContact
	return nil
}

func (w *Wizard) SetCountry(code string) error {
	if err := w.editable("country"); err != nil {
		return err
	}
	for _, c := range Countries {
		if c.Code == code {
			w.CountryCode = code
			return nil
		}
	}
	return apperrors.NewInvalidInputError(fmt.Sprintf("unsupported country code %q", code))
}

// Summary is the part of the scorecard that travels with a lead.
type Summary struct {
	OverallScore int
	Text         string
}

// Submit checks the contact form, builds the lead payload and marks the
// wizard submitted with delivery pending. It may succeed only once.
func (w *Wizard) Submit(contact Contact, summary Summary, id string, now time.Time) (Payload, error) {
	if err := w.at(StepContact, "submit"); err != nil {
		return Payload{}, err
	}

	contact = Contact{
		FullName: strings.TrimSpace(contact.FullName),
		Email:    strings.TrimSpace(contact.Email),
		Phone:    strings.TrimSpace(contact.Phone),
		Company:  strings.TrimSpace(contact.Company),
	}
	w.Contact = contact

	result := validation.ValidateInput(map[string]interface{}{
		"fullName": contact.FullName,
		"email":    contact.Email,
		"phone":    contact.Phone,
		"company":  contact.Company,
	}, contactSchema)
	if !result.Valid {
		return Payload{}, apperrors.NewLeadValidationFailedError(strings.Join(result.GetErrorMessages(), "; ")).
			WithMetadata("fields", result.FieldNames())
	}

	w.Submitted = true
	w.SubmissionID = id
	w.Delivery = DeliveryPending

	return Payload{
		FullName:       contact.FullName,
		Email:          contact.Email,
		Phone:          w.CountryCode + " " + contact.Phone,
		Company:        contact.Company,
		BusinessType:   w.Category,
		Revenue:        w.Revenue,
		OverallScore:   summary.OverallScore,
		ResultsSummary: summary.Text,
		Timestamp:      now.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}, nil
}

var contactSchema = validation.JSONSchema{
	Type: "object",
	Properties: map[string]validation.Property{
		"fullName": {Type: "string", NotBlank: true},
		"email":    {Type: "string", NotBlank: true, Format: "email"},
		"phone":    {Type: "string", NotBlank: true},
		"company":  {Type: "string", NotBlank: true},
	},
	Required: []string{"fullName", "email", "phone", "company"},
}

func (w *Wizard) editable(action string) error {
	if w.Submitted {
		return apperrors.NewInvalidTransitionError(action, "submitted")
	}
	return nil
}

func (w *Wizard) at(step Step, action string) error {
	if err := w.editable(action); err != nil {
		return err
	}
	if w.Step != step {
		return apperrors.NewInvalidTransitionError(action, fmt.Sprintf("step %d", w.Step))
	}
	return nil
}

func oneOf(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}
