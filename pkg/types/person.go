package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// PersonID is an opaque identifier. The upstream may send it as a JSON string
// or a JSON number; both decode to the same token and it is never interpreted
// as a sequence.
type PersonID string

// UnmarshalJSON accepts a JSON string or number.
func (id *PersonID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = PersonID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("person id must be a string or number: %w", err)
	}
	*id = PersonID(n.String())
	return nil
}

// String returns the token as text.
func (id PersonID) String() string { return string(id) }

// Person is a record owned by the upstream service.
type Person struct {
	ID        PersonID `json:"id"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Age       *int     `json:"age,omitempty"`
	CreatedAt string   `json:"createdAT,omitempty"`
}

// Initial returns the upper-cased first letter of the name, or "?" for an
// empty name.
func (p Person) Initial() string {
	for _, r := range p.Name {
		return strings.ToUpper(string(r))
	}
	return "?"
}

// PersonInput is the outgoing body for create and the updatable fields for
// update. Age is omitted when absent.
type PersonInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Age   *int   `json:"age,omitempty"`
}

// UpdateRequest is the body the client sends to the proxy update route.
type UpdateRequest struct {
	ID    PersonID `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Age   *int     `json:"age,omitempty"`
}

// DeleteRequest is the body the client sends to the proxy delete route.
type DeleteRequest struct {
	ID PersonID `json:"id"`
}

// emailPattern is the basic local@domain.tld check.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether email satisfies the local@domain.tld pattern.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// Validate checks name and email presence, the email pattern, and a
// non-negative age. It returns a *ValidationError.
func (in PersonInput) Validate() error {
	if in.Name == "" || in.Email == "" {
		return &ValidationError{Field: "name", Message: MsgNameEmailRequired}
	}
	if !ValidEmail(in.Email) {
		return &ValidationError{Field: "email", Message: MsgInvalidEmail}
	}
	if in.Age != nil && *in.Age < 0 {
		return &ValidationError{Field: "age", Message: MsgInvalidAge}
	}
	return nil
}

// Draft is in-progress form state. Age is kept as typed text.
type Draft struct {
	Name  string
	Email string
	Age   string
}

// DraftFrom snapshots p into a new Draft.
func DraftFrom(p Person) Draft {
	d := Draft{Name: p.Name, Email: p.Email}
	if p.Age != nil {
		d.Age = strconv.Itoa(*p.Age)
	}
	return d
}

// Validate runs the client-side checks that gate submission.
func (d Draft) Validate() error {
	if d.Name == "" || d.Email == "" {
		field := "name"
		if d.Name != "" {
			field = "email"
		}
		return &ValidationError{Field: field, Message: MsgNameEmailRequired}
	}
	if !ValidEmail(d.Email) {
		return &ValidationError{Field: "email", Message: MsgInvalidEmail}
	}
	return nil
}

// Input builds the outgoing payload. Age is parsed from its text; empty,
// unparseable, or negative text omits it.
func (d Draft) Input() PersonInput {
	in := PersonInput{Name: d.Name, Email: d.Email}
	if age, ok := ParseAge(d.Age); ok {
		in.Age = &age
	}
	return in
}

// ParseAge parses typed age text into a non-negative integer.
func ParseAge(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
