// Package access decides what a user may do with a file. Pure functions,
// no store access: callers resolve the share-grant predicate themselves so
// the same rules serve both mutation gating and display filtering.
package access

import "websync/sync-api/model"

type Action int

const (
	ActionRead Action = iota
	ActionDelete
	ActionShare
)

// Can evaluates, in order of precedence: admin, owner, then public flag or
// an explicit share grant (read only). shared reports whether a grant
// exists for (file, user). Unknown roles deny everything.
func Can(user *model.User, file *model.File, action Action, shared bool) bool {
	switch user.Role {
	case model.RoleAdmin:
		return true
	case model.RoleManager, model.RoleUser:
		// fall through to ownership checks
	default:
		return false
	}

	if file.OwnerID == user.ID {
		return true
	}

	if action == ActionRead {
		return file.Public || shared
	}

	return false
}
