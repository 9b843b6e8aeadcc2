package domain

import (
	"errors"
	"time"
)

type (
	RoomName string
	RoomID   string
)

const MaxRoomNameLen = 64

var ErrBadVisibility = errors.New("unknown visibility")

// Visibility controls who may join a room.
type Visibility string

const (
	// VisibilityPublic rooms are listed and joinable by anyone.
	VisibilityPublic Visibility = "public"
	// VisibilityApproval rooms are listed but require host approval to join.
	VisibilityApproval Visibility = "approval"
	// VisibilityPrivate rooms are unlisted.
	VisibilityPrivate Visibility = "private"
)

func ParseVisibility(s string) (Visibility, error) {
	switch Visibility(s) {
	case VisibilityPublic, VisibilityApproval, VisibilityPrivate:
		return Visibility(s), nil
	case "":
		return VisibilityPublic, nil
	default:
		return "", ErrBadVisibility
	}
}

// Room is call meta-data. Membership, offers and pending requests live in the
// room registry, not here.
type Room struct {
	ID         RoomID
	Name       RoomName
	Visibility Visibility
	CreatedAt  time.Time
	Host       UserID
	Flags      map[string]bool
	Recording  bool
	RecordedBy UserID
}

func NewRoom(id RoomID, name RoomName, vis Visibility, host UserID) *Room {
	if len(name) == 0 {
		name = RoomName(id)
	}
	if len(name) > MaxRoomNameLen {
		name = name[:MaxRoomNameLen]
	}
	return &Room{
		ID:         id,
		Name:       name,
		Visibility: vis,
		CreatedAt:  time.Now(),
		Host:       host,
		Flags:      make(map[string]bool),
	}
}

// CloneFlags returns a copy safe to hand across goroutines.
func (r *Room) CloneFlags() map[string]bool {
	out := make(map[string]bool, len(r.Flags))
	for k, v := range r.Flags {
		out[k] = v
	}
	return out
}
