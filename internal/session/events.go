package session

import "essayreview/internal/ingest"

// EventKind classifies controller events.
type EventKind int

const (
	// EventStateChanged fires after any state mutation.
	EventStateChanged EventKind = iota
	// EventContentChanged fires after the session text was replaced, so
	// dependent views (tool panel visibility) re-evaluate.
	EventContentChanged
	// EventProgress fires before each PDF page is extracted.
	EventProgress
	// EventNotice carries a user-visible message.
	EventNotice
)

func (k EventKind) String() string {
	switch k {
	case EventStateChanged:
		return "state"
	case EventContentChanged:
		return "content"
	case EventProgress:
		return "progress"
	case EventNotice:
		return "notice"
	default:
		return "unknown"
	}
}

// NoticeLevel is the severity of a Notice.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeWarning
	NoticeError
)

// Notice is a message for the user, produced at an operation boundary.
type Notice struct {
	Level   NoticeLevel
	Message string
	Err     error
}

// Event is delivered to subscribers synchronously, outside the controller lock.
type Event struct {
	Kind     EventKind
	Notice   *Notice
	Progress *ingest.Progress
}

// Listener receives controller events. It must not block.
type Listener func(Event)
