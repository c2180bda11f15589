package util

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewMessageSID returns a Twilio-looking message SID.
func NewMessageSID() string {
	// ULID is sortable, so listing by SID is listing by creation time
	t := time.Now().UTC()
	return "SM" + ulid.MustNew(ulid.Timestamp(t), rand.Reader).String()
}

// NewRequestID returns a value for the Twilio-Request-Id header.
func NewRequestID() string {
	return "RQ" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
