package bot

import (
	"context"
	"log/slog"

	"github.com/rg/danmakubot/internal/messaging"
	"github.com/rg/danmakubot/internal/storage"
)

// request carries one command through its handler and into the audit log.
type request struct {
	ctx     context.Context
	id      string
	chatID  int64
	user    messaging.User
	command string
	args    []string
	status  string
	chunks  int
}

type commandFunc func(req *request) error

// requireAllowed rejects users that are neither configured nor added at runtime.
func (h *Handler) requireAllowed(next commandFunc) commandFunc {
	return func(req *request) error {
		if !h.access.IsAllowed(req.user.ID) {
			slog.Warn("Permission denied",
				"request_id", req.id,
				"chat_id", req.chatID,
				"user_id", req.user.ID,
				"command", req.command)
			req.status = storage.StatusDenied
			return h.sendText(req, "🚫 您没有权限使用此机器人")
		}
		return next(req)
	}
}

// requireAdmin rejects everyone outside admin_user_ids.
func (h *Handler) requireAdmin(next commandFunc) commandFunc {
	return func(req *request) error {
		if !h.access.IsAdmin(req.user.ID) {
			slog.Warn("Admin command denied",
				"request_id", req.id,
				"user_id", req.user.ID,
				"command", req.command)
			req.status = storage.StatusDenied
			return h.sendText(req, "🚫 此命令仅限管理员使用")
		}
		return next(req)
	}
}
