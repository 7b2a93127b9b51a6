package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/desertthunder/folio/internal/models"
)

// envelopeStatus is embedded by every envelope that can carry a status code in its body.
//
// The backend is inconsistent about the key: most handlers use status_code, signup uses statusCode.
type envelopeStatus struct {
	StatusCode      int    `json:"status_code"`
	StatusCodeCamel int    `json:"statusCode"`
	Message         string `json:"message"`
}

func (s envelopeStatus) code() int {
	if s.StatusCode != 0 {
		return s.StatusCode
	}
	return s.StatusCodeCamel
}

func (s envelopeStatus) failure(op string) error {
	code := s.code()
	if code == 0 || (code >= 200 && code < 300) {
		return nil
	}
	msg := s.Message
	if msg == "" {
		msg = fmt.Sprintf("%s failed (status %d)", op, code)
	}
	return &APIError{Kind: KindStatus, Op: op, Status: code, Message: msg}
}

func missingDetail(op string) error {
	return malformedError(op, fmt.Errorf("response has no detail"))
}

func hasValue(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

type listEnvelope struct {
	envelopeStatus
	Detail *struct {
		Data       []models.BookSummary `json:"data"`
		Pagination models.Pagination    `json:"pagination"`
	} `json:"detail"`
}

type bookEnvelope struct {
	envelopeStatus
	Detail *models.BookDetail `json:"detail"`
}

type bookIDEnvelope struct {
	envelopeStatus
	Detail *struct {
		BookID models.ID `json:"bookId"`
	} `json:"detail"`
}

type statusEnvelope struct {
	envelopeStatus
}

// episodeEnvelope tolerates the detail being either an episode object or a one-element array.
type episodeEnvelope struct {
	envelopeStatus
	Detail json.RawMessage `json:"detail"`
}

func (e episodeEnvelope) episode(op string) (*models.Episode, error) {
	if !hasValue(e.Detail) {
		return nil, missingDetail(op)
	}

	raw := bytes.TrimSpace(e.Detail)
	if raw[0] == '[' {
		var list []models.Episode
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, malformedError(op, err)
		}
		if len(list) == 0 {
			return nil, &APIError{Kind: KindStatus, Op: op, Status: http.StatusNotFound, Message: fmt.Sprintf("%s: episode not found", op)}
		}
		return &list[0], nil
	}

	var ep models.Episode
	if err := json.Unmarshal(raw, &ep); err != nil {
		return nil, malformedError(op, err)
	}
	return &ep, nil
}

type ledgerEnvelope struct {
	envelopeStatus
	Detail *models.CoinLedger `json:"detail"`
}

type historyEnvelope struct {
	envelopeStatus
	Detail []models.HistoryEntry `json:"detail"`
}

type notificationsEnvelope struct {
	envelopeStatus
	Detail []models.Notification `json:"detail"`
}

// loginEnvelope accepts the payload under detail and, for the /api/auth/login variant, under data.
type loginEnvelope struct {
	envelopeStatus
	Detail *loginDetail `json:"detail"`
	Data   *loginDetail `json:"data"`
}

type loginDetail struct {
	Payload *models.User `json:"payload"`
	Token   string       `json:"token"`
}

func (e loginEnvelope) detail() *loginDetail {
	if e.Detail != nil {
		return e.Detail
	}
	return e.Data
}

type profileEnvelope struct {
	envelopeStatus
	Detail json.RawMessage `json:"detail"`
}
