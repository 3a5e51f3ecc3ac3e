package web

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/userdir/internal/common"
	"github.com/dmitrijs2005/userdir/internal/server/models"
	"github.com/dmitrijs2005/userdir/internal/xmlx"
)

type format int

const (
	formatHTML format = iota
	formatJSON
	formatXML
)

// negotiate picks the response format: an explicit ?format= wins, then
// the Accept header, then HTML.
func negotiate(r *http.Request) format {
	switch strings.ToLower(r.URL.Query().Get("format")) {
	case "json":
		return formatJSON
	case "xml":
		return formatXML
	case "html":
		return formatHTML
	}

	accept := r.Header.Get("Accept")
	switch {
	case strings.Contains(accept, "application/json"):
		return formatJSON
	case strings.Contains(accept, "application/xml"), strings.Contains(accept, "text/xml"):
		return formatXML
	}
	return formatHTML
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeXML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func userXML(u *models.User) ([]byte, error) {
	doc := xmlx.NewDocument()
	if err := models.UserXML(doc, u); err != nil {
		return nil, err
	}
	return doc.Bytes()
}

func errorsXML(messages []string) ([]byte, error) {
	doc := xmlx.NewDocument()
	if err := doc.Start("errors"); err != nil {
		return nil, err
	}
	for _, m := range messages {
		if err := doc.Element("error", m); err != nil {
			return nil, err
		}
	}
	return doc.Bytes()
}

// validationMessages flattens err into user-facing messages.
func validationMessages(err error) []string {
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		return []string{ve.Error()}
	}
	return []string{err.Error()}
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrorStorageNotConfigured):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

type errorBody struct {
	XMLName xml.Name `json:"-" xml:"error"`
	Error   string   `json:"error" xml:",chardata"`
}

func writeError(w http.ResponseWriter, f format, status int) {
	msg := strings.ToLower(http.StatusText(status))
	switch f {
	case formatJSON:
		writeJSON(w, status, errorBody{Error: msg})
	case formatXML:
		body, err := xml.Marshal(errorBody{Error: msg})
		if err != nil {
			http.Error(w, msg, status)
			return
		}
		writeXML(w, status, append([]byte(xml.Header), body...))
	default:
		http.Error(w, msg, status)
	}
}
