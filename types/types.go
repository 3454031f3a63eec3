package types

import (
	"strings"
	"time"
)

type Phase string

const (
	PhaseCollecting  Phase = "collecting"
	PhaseReadyToSave Phase = "ready_to_save"
	PhaseSaved       Phase = "saved"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of the conversation.
type Turn struct {
	Role Role      `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

type Field string

const (
	FieldPropertyType Field = "property_type"
	FieldBudget       Field = "budget"
	FieldLocation     Field = "location"
	FieldName         Field = "name"
	FieldEmail        Field = "email"
	FieldPhone        Field = "phone"
)

// AllFields lists the lead fields in the order they are asked for.
var AllFields = []Field{
	FieldPropertyType,
	FieldBudget,
	FieldLocation,
	FieldName,
	FieldEmail,
	FieldPhone,
}

type FieldInfo struct {
	Name        Field  `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
}

var fieldInfos = map[Field]FieldInfo{
	FieldPropertyType: {Name: FieldPropertyType, DisplayName: "Property type", Description: "apartment, house, villa, plot, ..."},
	FieldBudget:       {Name: FieldBudget, DisplayName: "Budget", Description: "amount or range, as the client said it"},
	FieldLocation:     {Name: FieldLocation, DisplayName: "Location", Description: "city or area of interest"},
	FieldName:         {Name: FieldName, DisplayName: "Name", Description: "how to address the client"},
	FieldEmail:        {Name: FieldEmail, DisplayName: "Email", Description: "where to send listings"},
	FieldPhone:        {Name: FieldPhone, DisplayName: "Phone", Description: "best number to reach the client"},
}

// Info returns the display metadata of a field.
func Info(name Field) FieldInfo {
	if info, ok := fieldInfos[name]; ok {
		return info
	}
	return FieldInfo{Name: name, DisplayName: string(name)}
}

// Fields holds the collected lead values. A nil pointer means unset.
type Fields struct {
	PropertyType *string `json:"property_type,omitempty"`
	Budget       *string `json:"budget,omitempty"`
	Location     *string `json:"location,omitempty"`
	Name         *string `json:"name,omitempty"`
	Email        *string `json:"email,omitempty"`
	Phone        *string `json:"phone,omitempty"`
}

func (f *Fields) ref(name Field) **string {
	switch name {
	case FieldPropertyType:
		return &f.PropertyType
	case FieldBudget:
		return &f.Budget
	case FieldLocation:
		return &f.Location
	case FieldName:
		return &f.Name
	case FieldEmail:
		return &f.Email
	case FieldPhone:
		return &f.Phone
	default:
		return nil
	}
}

// Get returns the value of a field and whether it is set.
func (f Fields) Get(name Field) (string, bool) {
	p := f.ref(name)
	if p == nil || *p == nil {
		return "", false
	}
	return **p, true
}

// Set stores a value for a field. Unknown names are ignored.
func (f *Fields) Set(name Field, value string) {
	p := f.ref(name)
	if p == nil {
		return
	}
	v := value
	*p = &v
}

func (f Fields) Missing() []Field {
	var missing []Field
	for _, name := range AllFields {
		if _, ok := f.Get(name); !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

func (f Fields) Complete() bool {
	return len(f.Missing()) == 0
}

// Snapshot returns every field keyed by name, unset fields as nil.
func (f Fields) Snapshot() map[string]*string {
	out := make(map[string]*string, len(AllFields))
	for _, name := range AllFields {
		if v, ok := f.Get(name); ok {
			val := v
			out[string(name)] = &val
		} else {
			out[string(name)] = nil
		}
	}
	return out
}

// Extraction is the per-turn result of the field extractor.
type Extraction struct {
	PropertyType *string `json:"property_type" jsonschema:"description=Kind of property such as apartment or house or villa or plot; null if not stated"`
	Budget       *string `json:"budget" jsonschema:"description=Budget amount or range or null"`
	Location     *string `json:"location" jsonschema:"description=City or area or null"`
	Name         *string `json:"name" jsonschema:"description=Client name or null"`
	Email        *string `json:"email" jsonschema:"description=Email address or null"`
	Phone        *string `json:"phone" jsonschema:"description=Phone number or null"`
}

// Values returns the non-null extracted values keyed by field.
// Blank values and the literal text "null" are treated as null.
func (e Extraction) Values() map[Field]string {
	raw := map[Field]*string{
		FieldPropertyType: e.PropertyType,
		FieldBudget:       e.Budget,
		FieldLocation:     e.Location,
		FieldName:         e.Name,
		FieldEmail:        e.Email,
		FieldPhone:        e.Phone,
	}
	out := make(map[Field]string, len(raw))
	for name, v := range raw {
		if v == nil {
			continue
		}
		s := strings.TrimSpace(*v)
		if s == "" || strings.EqualFold(s, "null") {
			continue
		}
		out[name] = s
	}
	return out
}

func (e Extraction) Empty() bool {
	return len(e.Values()) == 0
}

// LeadRecord is the immutable snapshot handed to the lead sink.
type LeadRecord struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	PropertyType string    `json:"property_type"`
	Budget       string    `json:"budget"`
	Location     string    `json:"location"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	CapturedAt   time.Time `json:"captured_at"`
}
