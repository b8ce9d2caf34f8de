package bot

import (
	"log/slog"
	"sort"
)

// Access decides who may use the bot. Config lists are fixed; runtime users
// come from the store and can be changed by admins.
type Access struct {
	allowed map[int64]bool
	admins  map[int64]bool
	store   UserStore
}

// UserStore holds users granted access at runtime.
type UserStore interface {
	IsUser(userID int64) (bool, error)
}

func NewAccess(allowedIDs, adminIDs []int64, store UserStore) *Access {
	allowed := make(map[int64]bool, len(allowedIDs))
	for _, id := range allowedIDs {
		allowed[id] = true
	}
	admins := make(map[int64]bool, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = true
	}
	return &Access{
		allowed: allowed,
		admins:  admins,
		store:   store,
	}
}

func (a *Access) IsAdmin(userID int64) bool {
	return a.admins[userID]
}

// IsConfigured reports whether userID is allowed by the config file.
func (a *Access) IsConfigured(userID int64) bool {
	return a.allowed[userID] || a.admins[userID]
}

func (a *Access) IsAllowed(userID int64) bool {
	if a.IsConfigured(userID) {
		return true
	}
	if a.store == nil {
		return false
	}
	ok, err := a.store.IsUser(userID)
	if err != nil {
		slog.Error("Failed to check runtime user", "user_id", userID, "error", err)
		return false
	}
	return ok
}

func (a *Access) ConfiguredIDs() []int64 {
	return sortedKeys(a.allowed)
}

func (a *Access) AdminIDs() []int64 {
	return sortedKeys(a.admins)
}

func sortedKeys(m map[int64]bool) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
