package ports

import (
	"context"
	"time"
)

// SessionReader parses an annotation session database.
type SessionReader interface {
	ReadSession(ctx context.Context, path string) (*SessionData, error)
}

// SessionData is the parsed content of one session database.
type SessionData struct {
	Groups []SessionGroup
}

// SessionGroup is one annotated group record with its children.
type SessionGroup struct {
	ID        int64 // row id
	UID       int64
	Start     time.Time
	End       time.Time
	TrackType string
	Comment   string
	Mammal    int
	Fish      int
	Bird      int
	Interact  bool
	Children  []SessionChild
}

// SessionChild is one tracked object referenced by a group.
type SessionChild struct {
	UID        int64
	Start      time.Time
	BinaryFile string
}
