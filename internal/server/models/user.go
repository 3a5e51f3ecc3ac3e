// Package models defines the server-side records of the user directory.
package models

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/userdir/internal/common"
	"github.com/dmitrijs2005/userdir/internal/server/password"
	"github.com/dmitrijs2005/userdir/internal/xmlx"
)

// Record is implemented by entities that must pass validation before the
// service layer persists them.
type Record interface {
	Validate() error
}

// ValidationError reports a single field rule violation. It matches
// common.ErrorValidation under errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return common.ErrorValidation }

// User is a directory entry. Password only ever holds a digest.
type User struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Password  string    `json:"-" db:"password"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

var _ Record = (*User)(nil)

// Validate requires a non-empty name.
func (u *User) Validate() error {
	if u.Name == "" {
		return &ValidationError{Field: "name", Message: "can't be blank"}
	}
	return nil
}

// SetPassword stores the legacy MD5 hex digest of plaintext.
// Unsalted MD5 is weak; see package password.
func (u *User) SetPassword(plaintext string) {
	u.Password = password.MD5Digester{}.Sum(plaintext)
}

// AssignPassword stores d's digest of plaintext. On error Password is left
// untouched.
func (u *User) AssignPassword(d password.Digester, plaintext string) error {
	digest, err := d.Digest(plaintext)
	if err != nil {
		return err
	}
	u.Password = digest
	return nil
}

// XMLOptions controls ToXML. A nil Builder selects the string form.
type XMLOptions struct {
	Builder xmlx.Builder
}

// ToXML projects the user as a single name element.
//
// With a Builder the element is handed to it and the returned string is
// empty. Without one the result is "<name>NAME</name>" built by plain
// concatenation: the name is NOT escaped, so markup characters in a name
// end up in the output verbatim. Use a Builder for well-formed output.
func (u *User) ToXML(opts XMLOptions) (string, error) {
	if opts.Builder != nil {
		return "", opts.Builder.Element("name", u.Name)
	}
	return "<name>" + u.Name + "</name>", nil
}
