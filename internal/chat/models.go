package chat

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// Domain errors.
var (
	ErrMessageNotFound = errors.New("message not found")
	ErrInvalidThread   = errors.New("invalid thread id")
)

// threadSeparator joins the two boat IDs of a thread.
const threadSeparator = "_"

// Message limits.
const (
	MaxBodyLength       = 1000
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

// Kind classifies a message.
type Kind string

const (
	KindText     Kind = "text"
	KindSOS      Kind = "sos"
	KindLocation Kind = "location"
	KindWeather  Kind = "weather"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindSOS, KindLocation, KindWeather:
		return true
	}
	return false
}

// TransportStatus is the outcome of the radio transmission of a message.
type TransportStatus string

const (
	TransportPending     TransportStatus = "pending"
	TransportTransmitted TransportStatus = "transmitted"
	TransportFailed      TransportStatus = "failed"
)

// Message is one chat message between two boats.
// It is only mutated to set the delivered and read flags.
type Message struct {
	ID              string
	ThreadID        string
	FromBoat        string
	ToBoat          string
	Body            string
	Kind            Kind
	SentAt          time.Time
	Delivered       bool
	DeliveredAt     *time.Time
	Read            bool
	ReadAt          *time.Time
	TransportStatus TransportStatus
}

// BackupEntry is a copy of a message held in the recipient's offline queue.
type BackupEntry struct {
	Message
	BackedUpAt time.Time
}

// ThreadSummary describes one thread from the point of view of a boat.
type ThreadSummary struct {
	ThreadID    string
	OtherBoat   string
	LastMessage *Message
	UnreadCount int
}

// Stats summarises a boat's chat activity.
type Stats struct {
	TotalMessages  int
	UnreadMessages int
	ActiveThreads  int
	TotalThreads   int
}

// ThreadID returns the identity of the thread between a and b.
// The pair is sorted so either participant resolves to the same thread.
func ThreadID(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair[0] + threadSeparator + pair[1]
}

// ParseThreadID splits a thread ID into its two boat IDs.
func ParseThreadID(id string) (string, string, error) {
	a, b, ok := strings.Cut(id, threadSeparator)
	if !ok || a == "" || b == "" || strings.Contains(b, threadSeparator) {
		return "", "", ErrInvalidThread
	}
	return a, b, nil
}

// Participant reports whether boat is one of the two parties of thread id.
func Participant(id, boat string) bool {
	a, b, err := ParseThreadID(id)
	if err != nil {
		return false
	}
	return boat == a || boat == b
}

func copyMessage(m *Message) *Message {
	cp := *m
	if m.DeliveredAt != nil {
		t := *m.DeliveredAt
		cp.DeliveredAt = &t
	}
	if m.ReadAt != nil {
		t := *m.ReadAt
		cp.ReadAt = &t
	}
	return &cp
}

func copyBackup(e *BackupEntry) *BackupEntry {
	return &BackupEntry{Message: *copyMessage(&e.Message), BackedUpAt: e.BackedUpAt}
}
