package models

import "fmt"

// OfficeLink is the hyperlink column that places a staff member in an ADRA office.
type OfficeLink struct {
	Description string `json:"Description"`
	Url         string `json:"Url"`
}

// RemoteRow is one item of the staff list as the hosted list service returns it.
// Office is nil when the item has no office set.
type RemoteRow struct {
	ID        int         `json:"Id"`
	Office    *OfficeLink `json:"ADRA_x0020_Office"`
	FirstName string      `json:"FirstName"`
	Title     string      `json:"Title"`
	JobTitle  string      `json:"JobTitle"`
	WorkPhone string      `json:"WorkPhone"`
	Email     string      `json:"Email"`
	SkypeID   string      `json:"SkypeID"`
	SortID    float64     `json:"SortID"`
}

// RemotePatch is a partial RemoteRow. Nil fields are left untouched by the store.
type RemotePatch struct {
	Office    *OfficeLink `json:"ADRA_x0020_Office,omitempty"`
	FirstName *string     `json:"FirstName,omitempty"`
	Title     *string     `json:"Title,omitempty"`
	JobTitle  *string     `json:"JobTitle,omitempty"`
	WorkPhone *string     `json:"WorkPhone,omitempty"`
	Email     *string     `json:"Email,omitempty"`
	SkypeID   *string     `json:"SkypeID,omitempty"`
}

// IsEmpty reports whether the patch would change nothing.
func (p RemotePatch) IsEmpty() bool {
	return p.Office == nil && p.FirstName == nil && p.Title == nil && p.JobTitle == nil &&
		p.WorkPhone == nil && p.Email == nil && p.SkypeID == nil
}

// DisplayRecord is the flattened form of a RemoteRow shown in the staff table.
type DisplayRecord struct {
	ID             int    `json:"id"`
	PartitionLabel string `json:"partitionLabel"`
	PartitionKey   string `json:"partitionKey"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	JobTitle       string `json:"jobTitle"`
	WorkPhone      string `json:"workPhone"`
	Email          string `json:"email"`
	MessagingID    string `json:"messagingId"`
}

// Field names a mutable string field of a DisplayRecord.
type Field string

const (
	FieldPartitionLabel Field = "partitionLabel"
	FieldPartitionKey   Field = "partitionKey"
	FieldFirstName      Field = "firstName"
	FieldLastName       Field = "lastName"
	FieldJobTitle       Field = "jobTitle"
	FieldWorkPhone      Field = "workPhone"
	FieldEmail          Field = "email"
	FieldMessagingID    Field = "messagingId"
)

// EditableFields lists the fields offered by the edit form, in form order.
var EditableFields = []Field{
	FieldPartitionLabel,
	FieldPartitionKey,
	FieldFirstName,
	FieldLastName,
	FieldJobTitle,
	FieldWorkPhone,
	FieldEmail,
	FieldMessagingID,
}

var fieldLabels = map[Field]string{
	FieldPartitionLabel: "ADRA Office",
	FieldPartitionKey:   "ADRA Office URL",
	FieldFirstName:      "First Name",
	FieldLastName:       "Last Name",
	FieldJobTitle:       "Job Title",
	FieldWorkPhone:      "Work Phone",
	FieldEmail:          "Email",
	FieldMessagingID:    "Skype ID",
}

// Label returns the human readable form label of the field.
func (f Field) Label() string {
	if label, ok := fieldLabels[f]; ok {
		return label
	}
	return string(f)
}

// UnknownFieldError is returned when a field name does not match any editable field.
type UnknownFieldError struct {
	Field Field
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q", string(e.Field))
}

// Get returns the value of one field.
func (r DisplayRecord) Get(field Field) (string, error) {
	switch field {
	case FieldPartitionLabel:
		return r.PartitionLabel, nil
	case FieldPartitionKey:
		return r.PartitionKey, nil
	case FieldFirstName:
		return r.FirstName, nil
	case FieldLastName:
		return r.LastName, nil
	case FieldJobTitle:
		return r.JobTitle, nil
	case FieldWorkPhone:
		return r.WorkPhone, nil
	case FieldEmail:
		return r.Email, nil
	case FieldMessagingID:
		return r.MessagingID, nil
	}
	return "", &UnknownFieldError{Field: field}
}

// With returns a copy of the record with exactly one field replaced.
func (r DisplayRecord) With(field Field, value string) (DisplayRecord, error) {
	switch field {
	case FieldPartitionLabel:
		r.PartitionLabel = value
	case FieldPartitionKey:
		r.PartitionKey = value
	case FieldFirstName:
		r.FirstName = value
	case FieldLastName:
		r.LastName = value
	case FieldJobTitle:
		r.JobTitle = value
	case FieldWorkPhone:
		r.WorkPhone = value
	case FieldEmail:
		r.Email = value
	case FieldMessagingID:
		r.MessagingID = value
	default:
		return r, &UnknownFieldError{Field: field}
	}
	return r, nil
}
