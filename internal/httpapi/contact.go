package httpapi

import (
	"encoding/json"
	"mime"
	"net/http"

	"github.com/gordonpn/portfolio-api/internal/contact"
)

const (
	maxBodyBytes      = 64 << 10
	maxMultipartBytes = 32 << 10
)

type contactResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func (handlers *Handlers) contact(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		methodNotAllowed(writer, http.MethodPost, contactResponse{Error: contact.ErrMethodNotAllowed.Reason})
		return
	}

	request.Body = http.MaxBytesReader(writer, request.Body, maxBodyBytes)
	submission := decodeSubmission(request)
	clientID := contact.ClientID(request)

	if err := handlers.guard.Handle(request.Context(), submission, clientID); err != nil {
		rejection := contact.AsError(err)
		writeJSON(writer, rejection.Status, contactResponse{Error: rejection.Reason})
		return
	}

	writeJSON(writer, http.StatusOK, contactResponse{OK: true})
}

// decodeSubmission accepts JSON or form bodies. Anything unreadable yields
// an empty submission, which the guard rejects as missing fields.
func decodeSubmission(request *http.Request) contact.Submission {
	mediaType, _, _ := mime.ParseMediaType(request.Header.Get("Content-Type"))

	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		var err error
		if mediaType == "multipart/form-data" {
			err = request.ParseMultipartForm(maxMultipartBytes)
		} else {
			err = request.ParseForm()
		}
		if err != nil {
			return contact.Submission{}
		}
		return contact.Submission{
			Name:    request.PostFormValue("name"),
			Email:   request.PostFormValue("email"),
			Message: request.PostFormValue("message"),
			Website: request.PostFormValue("website"),
		}
	default:
		var submission contact.Submission
		if err := json.NewDecoder(request.Body).Decode(&submission); err != nil {
			return contact.Submission{}
		}
		return submission
	}
}
