// Package mockprovider is an in-memory stand-in for Twilio's Messages API.
// It accepts the same form posts and serves the same JSON shapes, which is
// enough to drive pkg/twilio end to end without network access.
package mockprovider

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"twilioasync/internal/observability"
	"twilioasync/internal/util"
)

const dateLayout = time.RFC1123Z

type Config struct {
	AccountSID string
	AuthToken  string

	// Outcomes are consumed round robin, one per send. Each entry is a kind
	// optionally followed by ":code", e.g. "server_error:20500". Empty means
	// every send succeeds.
	Outcomes []string

	// Delay, when set, holds each send response for the returned duration.
	Delay func(form url.Values) time.Duration

	Now func() time.Time
}

// Message is the wire shape the mock stores and serves. Counts are strings,
// like the real API.
type Message struct {
	SID                 string            `json:"sid"`
	AccountSID          string            `json:"account_sid"`
	MessagingServiceSID *string           `json:"messaging_service_sid"`
	APIVersion          string            `json:"api_version"`
	URI                 string            `json:"uri"`
	SubresourceURIs     map[string]string `json:"subresource_uris"`
	Body                string            `json:"body"`
	NumSegments         string            `json:"num_segments"`
	NumMedia            string            `json:"num_media"`
	Direction           string            `json:"direction"`
	From                *string           `json:"from"`
	To                  string            `json:"to"`
	Status              string            `json:"status"`
	DateCreated         string            `json:"date_created"`
	DateUpdated         string            `json:"date_updated"`
	DateSent            *string           `json:"date_sent"`
	Price               *string           `json:"price"`
	PriceUnit           string            `json:"price_unit"`
	ErrorCode           *int              `json:"error_code"`
	ErrorMessage        *string           `json:"error_message"`
}

type Server struct {
	cfg Config

	idx      atomic.Uint64
	requests atomic.Int64

	mu       sync.Mutex
	messages []Message
}

func New(cfg Config) *Server {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Server{cfg: cfg}
}

// Handler routes the Messages endpoints under /2010-04-01/Accounts/{AccountSid}.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	acct := router.PathPrefix("/2010-04-01/Accounts/{AccountSid}").Subrouter()
	acct.HandleFunc("/Messages.json", s.handleSend).Methods(http.MethodPost)
	acct.HandleFunc("/Messages.json", s.handleList).Methods(http.MethodGet)
	return router
}

// Requests counts every request that reached a Messages handler.
func (s *Server) Requests() int { return int(s.requests.Load()) }

// Messages returns a copy of every stored message, oldest first.
func (s *Server) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)
	w.Header().Set("Twilio-Request-Id", util.NewRequestID())

	accountSID := mux.Vars(r)["AccountSid"]
	if !s.authorized(r, accountSID) {
		s.writeError(w, "send", http.StatusUnauthorized, 20003, "Authentication Error - invalid username")
		return
	}
	if err := r.ParseForm(); err != nil {
		s.writeError(w, "send", http.StatusBadRequest, 21620, "Invalid form data")
		return
	}
	form := r.PostForm

	if form.Get("To") == "" {
		s.writeError(w, "send", http.StatusBadRequest, 21604, "A 'To' phone number is required.")
		return
	}
	if form.Get("Body") == "" {
		s.writeError(w, "send", http.StatusBadRequest, 21602, "Message body is required.")
		return
	}
	if form.Get("MessagingServiceSid") == "" && form.Get("From") == "" {
		s.writeError(w, "send", http.StatusBadRequest, 21603, "A 'From' phone number is required.")
		return
	}

	if s.cfg.Delay != nil {
		if d := s.cfg.Delay(form); d > 0 {
			t := time.NewTimer(d)
			select {
			case <-r.Context().Done():
				t.Stop()
				return
			case <-t.C:
			}
		}
	}

	out := classifyOutcome(s.nextOutcome())
	if out.httpStatus >= 300 {
		s.writeError(w, "send", out.httpStatus, out.errorCode, out.message)
		return
	}

	msg := s.newMessage(accountSID, form, out)
	if out.malformed {
		// drop a required field so clients see a contract violation
		s.writeJSON(w, "send", http.StatusCreated, map[string]any{"sid": msg.SID, "body": msg.Body})
		return
	}

	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	s.writeJSON(w, "send", http.StatusCreated, msg)
}

func (s *Server) newMessage(accountSID string, form url.Values, out outcome) Message {
	now := s.cfg.Now().UTC().Format(dateLayout)
	sid := util.NewMessageSID()
	uri := fmt.Sprintf("/2010-04-01/Accounts/%s/Messages/%s.json", accountSID, sid)

	msg := Message{
		SID:             sid,
		AccountSID:      accountSID,
		APIVersion:      "2010-04-01",
		URI:             uri,
		SubresourceURIs: map[string]string{"media": strings.TrimSuffix(uri, ".json") + "/Media.json"},
		Body:            form.Get("Body"),
		NumSegments:     strconv.Itoa(segments(form.Get("Body"))),
		NumMedia:        "0",
		Direction:       "outbound-api",
		To:              form.Get("To"),
		Status:          out.status,
		DateCreated:     now,
		DateUpdated:     now,
		PriceUnit:       "USD",
	}
	if v := form.Get("From"); v != "" {
		msg.From = &v
	}
	if v := form.Get("MessagingServiceSid"); v != "" {
		msg.MessagingServiceSID = &v
	}
	if out.status == "delivered" {
		price := "-0.00790"
		msg.DateSent = &now
		msg.Price = &price
	}
	if out.errorCode != 0 {
		code := out.errorCode
		msg.ErrorCode = &code
		msg.ErrorMessage = &out.message
	}
	return msg
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)
	w.Header().Set("Twilio-Request-Id", util.NewRequestID())

	accountSID := mux.Vars(r)["AccountSid"]
	if !s.authorized(r, accountSID) {
		s.writeError(w, "list", http.StatusUnauthorized, 20003, "Authentication Error - invalid username")
		return
	}

	q := r.URL.Query()
	pageSize := queryInt(q, "PageSize", 50)
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 1000 {
		pageSize = 1000
	}
	page := queryInt(q, "Page", 0)
	if page < 0 {
		page = 0
	}

	all := s.Messages()
	start := page * pageSize
	if start > len(all) {
		start = len(all)
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	items := append([]Message{}, all[start:end]...)

	pageURI := func(p int) string {
		return fmt.Sprintf("/2010-04-01/Accounts/%s/Messages.json?PageSize=%d&Page=%d", accountSID, pageSize, p)
	}
	var next, prev *string
	if end < len(all) {
		v := pageURI(page + 1)
		next = &v
	}
	if page > 0 {
		v := pageURI(page - 1)
		prev = &v
	}

	lastIndex := start + len(items) - 1
	if len(items) == 0 {
		lastIndex = start
	}
	s.writeJSON(w, "list", http.StatusOK, map[string]any{
		"messages":          items,
		"page":              page,
		"page_size":         pageSize,
		"start":             start,
		"end":               lastIndex,
		"uri":               pageURI(page),
		"first_page_uri":    pageURI(0),
		"next_page_uri":     next,
		"previous_page_uri": prev,
	})
}

func (s *Server) authorized(r *http.Request, accountSID string) bool {
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	return user == s.cfg.AccountSID && pass == s.cfg.AuthToken && accountSID == s.cfg.AccountSID
}

func (s *Server) nextOutcome() string {
	if len(s.cfg.Outcomes) == 0 {
		return "ok"
	}
	i := s.idx.Add(1) - 1
	return s.cfg.Outcomes[int(i%uint64(len(s.cfg.Outcomes)))]
}

type outcome struct {
	status     string
	httpStatus int
	errorCode  int
	message    string
	malformed  bool
}

func classifyOutcome(raw string) outcome {
	token := strings.TrimSpace(raw)
	if token == "" {
		token = "ok"
	}
	kind, codeText, _ := strings.Cut(token, ":")
	code, _ := strconv.Atoi(codeText)
	withDefault := func(def int) int {
		if code != 0 {
			return code
		}
		return def
	}

	switch kind {
	case "ok", "success":
		return outcome{status: "delivered", httpStatus: http.StatusCreated}
	case "queued":
		return outcome{status: "queued", httpStatus: http.StatusCreated}
	case "undelivered":
		return outcome{status: "undelivered", httpStatus: http.StatusCreated, errorCode: withDefault(30003), message: "Unreachable destination handset"}
	case "failed":
		return outcome{status: "failed", httpStatus: http.StatusCreated, errorCode: withDefault(30008), message: "Unknown error"}
	case "malformed":
		return outcome{status: "queued", httpStatus: http.StatusCreated, malformed: true}
	case "rate_limit", "429":
		return outcome{httpStatus: http.StatusTooManyRequests, errorCode: withDefault(20429), message: "Too Many Requests"}
	case "bad_request", "400":
		return outcome{httpStatus: http.StatusBadRequest, errorCode: withDefault(21211), message: "Invalid 'To' Phone Number"}
	case "server_error", "500":
		return outcome{httpStatus: http.StatusInternalServerError, errorCode: withDefault(20500), message: "Internal Server Error"}
	default:
		return outcome{httpStatus: http.StatusInternalServerError, errorCode: withDefault(30008), message: "mock error: " + kind}
	}
}

// segments approximates GSM-7 segmenting: 160 chars fit in one, longer
// bodies split into 153-char parts.
func segments(body string) int {
	n := len([]rune(body))
	if n <= 160 {
		return 1
	}
	return (n + 152) / 153
}

func queryInt(q url.Values, key string, def int) int {
	v := q.Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func (s *Server) writeError(w http.ResponseWriter, route string, status, code int, msg string) {
	s.writeJSON(w, route, status, map[string]any{
		"code":      code,
		"message":   msg,
		"more_info": fmt.Sprintf("https://www.twilio.com/docs/errors/%d", code),
		"status":    status,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, route string, status int, v any) {
	observability.MockRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
