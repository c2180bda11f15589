package twilio

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MessageSend is one outbound message. Either From or MessagingServiceSID must
// resolve, the latter possibly from the ConfigSource.
type MessageSend struct {
	Body                string
	To                  string
	From                string
	MessagingServiceSID string
}

type SubresourceURIs struct {
	Media string `json:"media"`
}

// Message is Twilio's representation of a created or historical message.
type Message struct {
	SID                 string
	AccountSID          string
	MessagingServiceSID *string
	APIVersion          string
	URI                 string
	SubresourceURIs     SubresourceURIs

	Body        string
	NumSegments int
	NumMedia    int
	Direction   string
	From        *string
	To          string
	Status      string

	DateCreated time.Time
	DateUpdated time.Time
	DateSent    *time.Time

	Price        *float64
	PriceUnit    *string
	ErrorCode    *int
	ErrorMessage *string
}

// messageWire is the serialized shape. Its json tags are the mapping between
// provider keys and Message fields; "from" lands in Message.From.
type messageWire struct {
	Body                *string           `json:"body"`
	NumSegments         json.RawMessage   `json:"num_segments"`
	Direction           *string           `json:"direction"`
	From                *string           `json:"from"`
	To                  *string           `json:"to"`
	DateUpdated         *string           `json:"date_updated"`
	Price               json.RawMessage   `json:"price"`
	ErrorMessage        *string           `json:"error_message"`
	URI                 *string           `json:"uri"`
	AccountSID          *string           `json:"account_sid"`
	NumMedia            json.RawMessage   `json:"num_media"`
	DateCreated         *string           `json:"date_created"`
	Status              *string           `json:"status"`
	SID                 *string           `json:"sid"`
	DateSent            *string           `json:"date_sent"`
	ErrorCode           json.RawMessage   `json:"error_code"`
	PriceUnit           *string           `json:"price_unit"`
	APIVersion          *string           `json:"api_version"`
	SubresourceURIs     *subresourcesWire `json:"subresource_uris"`
	MessagingServiceSID *string           `json:"messaging_service_sid"`
}

type subresourcesWire struct {
	Media *string `json:"media"`
}

// NewMessage builds a Message from decoded JSON, applying the same checks as
// json.Unmarshal.
func NewMessage(fields map[string]any) (Message, error) {
	var m Message
	if err := fromMap(fields, &m); err != nil {
		return Message{}, err
	}
	return m, nil
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var w messageWire
	if err := json.Unmarshal(data, &w); err != nil {
		return wireError(err)
	}
	out, err := w.message()
	if err != nil {
		return err
	}
	*m = out
	return nil
}

func (w *messageWire) message() (Message, error) {
	var (
		m   Message
		err error
	)

	strs := []struct {
		name string
		src  *string
		dst  *string
	}{
		{"body", w.Body, &m.Body},
		{"direction", w.Direction, &m.Direction},
		{"to", w.To, &m.To},
		{"uri", w.URI, &m.URI},
		{"account_sid", w.AccountSID, &m.AccountSID},
		{"status", w.Status, &m.Status},
		{"sid", w.SID, &m.SID},
		{"api_version", w.APIVersion, &m.APIVersion},
	}
	for _, s := range strs {
		if s.src == nil {
			return Message{}, missingField(s.name)
		}
		*s.dst = *s.src
	}

	if m.NumSegments, err = requiredInt("num_segments", w.NumSegments); err != nil {
		return Message{}, err
	}
	if m.NumMedia, err = requiredInt("num_media", w.NumMedia); err != nil {
		return Message{}, err
	}
	if m.ErrorCode, err = optionalInt("error_code", w.ErrorCode); err != nil {
		return Message{}, err
	}
	if m.Price, err = optionalFloat("price", w.Price); err != nil {
		return Message{}, err
	}

	if m.DateCreated, err = requiredDate("date_created", w.DateCreated); err != nil {
		return Message{}, err
	}
	if m.DateUpdated, err = requiredDate("date_updated", w.DateUpdated); err != nil {
		return Message{}, err
	}
	// date_sent stays nil until the provider hands the message off.
	if w.DateSent != nil && *w.DateSent != "" {
		t, err := ParseDateTime(*w.DateSent)
		if err != nil {
			return Message{}, &ValidationError{Field: "date_sent", Err: err}
		}
		m.DateSent = &t
	}

	if w.SubresourceURIs == nil {
		return Message{}, missingField("subresource_uris")
	}
	if w.SubresourceURIs.Media == nil || *w.SubresourceURIs.Media == "" {
		return Message{}, missingField("subresource_uris.media")
	}
	m.SubresourceURIs.Media = *w.SubresourceURIs.Media

	m.From = w.From
	m.PriceUnit = w.PriceUnit
	m.ErrorMessage = w.ErrorMessage
	m.MessagingServiceSID = w.MessagingServiceSID
	return m, nil
}

type messageJSON struct {
	Body                string          `json:"body"`
	NumSegments         int             `json:"num_segments"`
	Direction           string          `json:"direction"`
	From                *string         `json:"from"`
	To                  string          `json:"to"`
	DateUpdated         string          `json:"date_updated"`
	Price               *float64        `json:"price"`
	ErrorMessage        *string         `json:"error_message"`
	URI                 string          `json:"uri"`
	AccountSID          string          `json:"account_sid"`
	NumMedia            int             `json:"num_media"`
	DateCreated         string          `json:"date_created"`
	Status              string          `json:"status"`
	SID                 string          `json:"sid"`
	DateSent            *string         `json:"date_sent"`
	ErrorCode           *int            `json:"error_code"`
	PriceUnit           *string         `json:"price_unit"`
	APIVersion          string          `json:"api_version"`
	SubresourceURIs     SubresourceURIs `json:"subresource_uris"`
	MessagingServiceSID *string         `json:"messaging_service_sid"`
}

// MarshalJSON writes the provider shape, dates included, so the output decodes
// back into an equal Message.
func (m Message) MarshalJSON() ([]byte, error) {
	out := messageJSON{
		Body:                m.Body,
		NumSegments:         m.NumSegments,
		Direction:           m.Direction,
		From:                m.From,
		To:                  m.To,
		DateUpdated:         formatDateTime(m.DateUpdated),
		Price:               m.Price,
		ErrorMessage:        m.ErrorMessage,
		URI:                 m.URI,
		AccountSID:          m.AccountSID,
		NumMedia:            m.NumMedia,
		DateCreated:         formatDateTime(m.DateCreated),
		Status:              m.Status,
		SID:                 m.SID,
		ErrorCode:           m.ErrorCode,
		PriceUnit:           m.PriceUnit,
		APIVersion:          m.APIVersion,
		SubresourceURIs:     m.SubresourceURIs,
		MessagingServiceSID: m.MessagingServiceSID,
	}
	if m.DateSent != nil {
		s := formatDateTime(*m.DateSent)
		out.DateSent = &s
	}
	return json.Marshal(out)
}

// MessageLogs is one page of the message log listing.
type MessageLogs struct {
	Messages []Message

	Page     int
	PageSize int
	Start    int
	End      int

	URI             string
	FirstPageURI    string
	NextPageURI     *string
	PreviousPageURI *string
}

type messageLogsWire struct {
	FirstPageURI    *string         `json:"first_page_uri"`
	End             json.RawMessage `json:"end"`
	PreviousPageURI *string         `json:"previous_page_uri"`
	Messages        json.RawMessage `json:"messages"`
	URI             *string         `json:"uri"`
	PageSize        json.RawMessage `json:"page_size"`
	Start           json.RawMessage `json:"start"`
	NextPageURI     *string         `json:"next_page_uri"`
	Page            json.RawMessage `json:"page"`
}

// NewMessageLogs builds a MessageLogs page from decoded JSON.
func NewMessageLogs(fields map[string]any) (MessageLogs, error) {
	var l MessageLogs
	if err := fromMap(fields, &l); err != nil {
		return MessageLogs{}, err
	}
	return l, nil
}

func (l *MessageLogs) UnmarshalJSON(data []byte) error {
	var w messageLogsWire
	if err := json.Unmarshal(data, &w); err != nil {
		return wireError(err)
	}

	var out MessageLogs
	if w.FirstPageURI == nil {
		return missingField("first_page_uri")
	}
	if w.URI == nil {
		return missingField("uri")
	}
	out.FirstPageURI = *w.FirstPageURI
	out.URI = *w.URI
	out.NextPageURI = w.NextPageURI
	out.PreviousPageURI = w.PreviousPageURI

	ints := []struct {
		name string
		raw  json.RawMessage
		dst  *int
	}{
		{"page", w.Page, &out.Page},
		{"page_size", w.PageSize, &out.PageSize},
		{"start", w.Start, &out.Start},
		{"end", w.End, &out.End},
	}
	for _, f := range ints {
		v, err := requiredInt(f.name, f.raw)
		if err != nil {
			return err
		}
		*f.dst = v
	}

	if isNull(w.Messages) {
		return missingField("messages")
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(w.Messages, &raws); err != nil {
		return &ValidationError{Field: "messages", Err: err}
	}
	out.Messages = make([]Message, len(raws))
	for i, raw := range raws {
		if err := out.Messages[i].UnmarshalJSON(raw); err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				return &ValidationError{Field: fmt.Sprintf("messages[%d].%s", i, ve.Field), Err: ve.Err}
			}
			return err
		}
	}

	*l = out
	return nil
}

func fromMap(fields map[string]any, v json.Unmarshaler) error {
	if fields == nil {
		return &ValidationError{Err: errors.New("nil record")}
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return &ValidationError{Err: err}
	}
	return v.UnmarshalJSON(b)
}

func wireError(err error) error {
	var ute *json.UnmarshalTypeError
	if errors.As(err, &ute) {
		return &ValidationError{Field: ute.Field, Err: err}
	}
	return &ValidationError{Err: err}
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func requiredDate(name string, s *string) (time.Time, error) {
	if s == nil {
		return time.Time{}, missingField(name)
	}
	t, err := ParseDateTime(*s)
	if err != nil {
		return time.Time{}, &ValidationError{Field: name, Err: err}
	}
	return t, nil
}

func requiredInt(name string, raw json.RawMessage) (int, error) {
	v, err := optionalInt(name, raw)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, missingField(name)
	}
	return *v, nil
}

// optionalInt accepts a JSON number or a numeric string.
func optionalInt(name string, raw json.RawMessage) (*int, error) {
	s, err := numberText(raw)
	if err != nil {
		return nil, &ValidationError{Field: name, Err: err}
	}
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, &ValidationError{Field: name, Err: err}
	}
	return &n, nil
}

func optionalFloat(name string, raw json.RawMessage) (*float64, error) {
	s, err := numberText(raw)
	if err != nil {
		return nil, &ValidationError{Field: name, Err: err}
	}
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, &ValidationError{Field: name, Err: err}
	}
	return &f, nil
}

// numberText returns the textual form of a JSON number or string, or "" for
// null and absent values.
func numberText(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return "", nil
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}
