package app

import "github.com/dkeye/tempvoice/internal/domain"

type Action int

const (
	ActRename Action = iota
	ActLock
	ActUnlock
	ActHide
	ActUnhide
	ActTransfer
	ActAddCoOwner
	ActInfo
	ActClose
	ActReject
)

var actionNames = map[Action]string{
	ActRename:     "rename",
	ActLock:       "lock",
	ActUnlock:     "unlock",
	ActHide:       "hide",
	ActUnhide:     "unhide",
	ActTransfer:   "transfer",
	ActAddCoOwner: "addco",
	ActInfo:       "info",
	ActClose:      "close",
	ActReject:     "reject",
}

func (a Action) String() string { return actionNames[a] }

type Role int

const (
	RoleNone Role = iota
	RoleCoOwner
	RoleOwner
)

func RoleOf(room domain.Room, uid domain.UserID) Role {
	switch {
	case room.IsOwner(uid):
		return RoleOwner
	case room.IsCoOwner(uid):
		return RoleCoOwner
	default:
		return RoleNone
	}
}

type Policy interface {
	Allow(action Action, role Role) bool
}

// SimplePolicy gives co-owners reject and nothing else.
type SimplePolicy struct{}

func (SimplePolicy) Allow(action Action, role Role) bool {
	if action == ActReject {
		return role >= RoleCoOwner
	}
	return role == RoleOwner
}
