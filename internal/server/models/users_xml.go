package models

import (
	"encoding/xml"
	"strconv"

	"github.com/dmitrijs2005/userdir/internal/xmlx"
)

// UsersXML renders a collection as
//
//	<users count="N"><user id="..."><name>...</name></user>...</users>
//
// Each user emits its own fields through ToXML with the document as the
// builder, so names are escaped here.
func UsersXML(users []*User) ([]byte, error) {
	doc := xmlx.NewDocument()
	count := xml.Attr{Name: xml.Name{Local: "count"}, Value: strconv.Itoa(len(users))}
	if err := doc.Start("users", count); err != nil {
		return nil, err
	}
	for _, u := range users {
		if err := UserXML(doc, u); err != nil {
			return nil, err
		}
	}
	return doc.Bytes()
}

// UserXML writes one <user> element into doc.
func UserXML(doc *xmlx.Document, u *User) error {
	if err := doc.Start("user", xml.Attr{Name: xml.Name{Local: "id"}, Value: u.ID}); err != nil {
		return err
	}
	if _, err := u.ToXML(XMLOptions{Builder: doc}); err != nil {
		return err
	}
	return doc.End()
}
