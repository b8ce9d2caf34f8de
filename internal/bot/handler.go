package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/rg/danmakubot/internal/chunk"
	"github.com/rg/danmakubot/internal/danmaku"
	"github.com/rg/danmakubot/internal/messaging"
	"github.com/rg/danmakubot/internal/security"
	"github.com/rg/danmakubot/internal/storage"
	"github.com/rg/danmakubot/internal/tasks"
)

const defaultRequestTimeout = 90 * time.Second

// TaskSource lists import tasks, optionally bypassing any cache.
type TaskSource interface {
	ListTasks(ctx context.Context, status string) ([]danmaku.Task, error)
	Refresh(ctx context.Context, status string) ([]danmaku.Task, error)
}

// Store persists runtime users and the command audit log.
type Store interface {
	UserStore
	AddUser(userID, addedBy int64) (bool, error)
	RemoveUser(userID int64) error
	ListUsers() ([]*storage.User, error)
	LogCommand(rec *storage.CommandRecord) error
}

type Options struct {
	ChunkLimit     int
	RequestTimeout time.Duration
	AllowedUserIDs []int64
	AdminUserIDs   []int64
}

type Handler struct {
	platform       messaging.Platform
	tasks          TaskSource
	store          Store
	sanitizer      *security.Sanitizer
	access         *Access
	chunkLimit     int
	requestTimeout time.Duration
	commands       map[string]commandFunc
}

func NewHandler(
	platform messaging.Platform,
	source TaskSource,
	store Store,
	sanitizer *security.Sanitizer,
	opts Options,
) *Handler {
	if opts.ChunkLimit == 0 {
		opts.ChunkLimit = chunk.DefaultLimit
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}

	h := &Handler{
		platform:       platform,
		tasks:          source,
		store:          store,
		sanitizer:      sanitizer,
		access:         NewAccess(opts.AllowedUserIDs, opts.AdminUserIDs, store),
		chunkLimit:     opts.ChunkLimit,
		requestTimeout: opts.RequestTimeout,
	}

	h.commands = map[string]commandFunc{
		"/start":      h.requireAllowed(h.handleStartCommand),
		"/help":       h.requireAllowed(h.handleHelpCommand),
		"/tasks":      h.requireAllowed(h.handleTasksCommand),
		"/adduser":    h.requireAdmin(h.handleAddUserCommand),
		"/removeuser": h.requireAdmin(h.handleRemoveUserCommand),
		"/users":      h.requireAdmin(h.handleUsersCommand),
	}
	return h
}

// Handlers returns the entry points to register with a Platform.
func (h *Handler) Handlers() messaging.Handlers {
	return messaging.Handlers{
		OnMessage:  h.HandleMessage,
		OnCallback: h.HandleCallback,
	}
}

func (h *Handler) HandleMessage(msg *messaging.IncomingMessage) error {
	cmd := msg.Command()
	if cmd == "" {
		return nil
	}

	slog.Info("Received command",
		"chat_id", msg.ChatID,
		"user_id", msg.From.ID,
		"user", msg.From.DisplayName(),
		"text", truncateText(msg.Text, 100))

	handle, ok := h.commands[cmd]
	if !ok {
		if !h.access.IsAllowed(msg.From.ID) {
			return nil
		}
		return h.platform.SendMessage(&messaging.OutgoingMessage{
			ChatID: msg.ChatID,
			Text:   fmt.Sprintf("❓ 未知命令: %s\n\n%s", cmd, getHelpText()),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.requestTimeout)
	defer cancel()

	req := &request{
		ctx:     ctx,
		id:      storage.NewRequestID(),
		chatID:  msg.ChatID,
		user:    msg.From,
		command: cmd,
		args:    msg.Args(),
		status:  storage.StatusOK,
	}
	err := handle(req)
	if err != nil {
		req.status = storage.StatusFailed
	}
	h.audit(req)
	return err
}

func (h *Handler) HandleCallback(cb *messaging.CallbackQuery) error {
	status, ok := tasks.ParseRefreshCallback(cb.Data)
	if !ok {
		slog.Warn("Unknown callback data", "chat_id", cb.ChatID, "data", cb.Data)
		return h.platform.AnswerCallback(cb.ID, "")
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.requestTimeout)
	defer cancel()

	req := &request{
		ctx:     ctx,
		id:      storage.NewRequestID(),
		chatID:  cb.ChatID,
		user:    cb.From,
		command: "callback:tasks_refresh",
		args:    []string{status},
		status:  storage.StatusOK,
	}

	if !h.access.IsAllowed(cb.From.ID) {
		req.status = storage.StatusDenied
		h.audit(req)
		return h.platform.AnswerCallback(cb.ID, "🚫 您没有权限使用此机器人")
	}

	if err := h.platform.AnswerCallback(cb.ID, "🔄 正在刷新..."); err != nil {
		slog.Warn("Failed to answer callback", "request_id", req.id, "error", err)
	}

	list, err := h.tasks.Refresh(ctx, status)
	err = h.replyTasks(req, status, list, err)
	if err != nil {
		req.status = storage.StatusFailed
	}
	h.audit(req)
	return err
}

func (h *Handler) audit(req *request) {
	if h.store == nil {
		return
	}
	rec := &storage.CommandRecord{
		RequestID: req.id,
		ChatID:    req.chatID,
		UserID:    req.user.ID,
		Command:   req.command,
		Args:      req.args,
		Status:    req.status,
		Chunks:    req.chunks,
	}
	if err := h.store.LogCommand(rec); err != nil {
		slog.Error("Failed to write audit record", "request_id", req.id, "error", err)
	}
}

func (h *Handler) handleStartCommand(req *request) error {
	slog.Info("Processing /start command", "request_id", req.id, "chat_id", req.chatID)
	text := fmt.Sprintf("👋 你好，%s！\n\n%s", req.user.DisplayName(), getHelpText())
	return h.sendText(req, text)
}

func (h *Handler) handleHelpCommand(req *request) error {
	slog.Info("Processing /help command", "request_id", req.id, "chat_id", req.chatID)
	return h.sendText(req, getHelpText())
}

func (h *Handler) handleTasksCommand(req *request) error {
	status := tasks.ParseStatus(req.args)
	slog.Info("Processing /tasks command", "request_id", req.id, "chat_id", req.chatID, "status", status)

	list, err := h.tasks.ListTasks(req.ctx, status)
	return h.replyTasks(req, status, list, err)
}

// replyTasks renders a task list, or the fetch error, back to the requester.
func (h *Handler) replyTasks(req *request, status string, list []danmaku.Task, fetchErr error) error {
	if fetchErr != nil {
		slog.Error("Failed to list tasks", "request_id", req.id, "status", status, "error", fetchErr)
		req.status = storage.StatusFailed
		return h.sendError(req, "获取任务列表失败："+h.sanitizer.Sanitize(apiErrorText(fetchErr)))
	}

	if len(list) == 0 {
		return h.sendText(req, tasks.EmptyMessage(status))
	}

	text := tasks.FormatList(status, list)
	if err := h.sendChunked(req, text, messaging.ParseModeMarkdownV2, tasks.RefreshKeyboard(status)); err != nil {
		slog.Error("Failed to deliver task list", "request_id", req.id, "error", err)
		if sendErr := h.sendError(req, "处理任务列表请求时出现错误，请稍后重试"); sendErr != nil {
			slog.Warn("Failed to send error message", "request_id", req.id, "error", sendErr)
		}
		return err
	}
	return nil
}

// apiErrorText strips the sentinel prefix so users see only the upstream reason.
func apiErrorText(err error) string {
	msg := err.Error()
	if errors.Is(err, danmaku.ErrAPI) {
		if i := strings.Index(msg, danmaku.ErrAPI.Error()+": "); i != -1 {
			return msg[i+len(danmaku.ErrAPI.Error())+2:]
		}
	}
	return msg
}

func (h *Handler) handleAddUserCommand(req *request) error {
	userID, err := parseUserID(req.args)
	if err != nil {
		return h.sendText(req, "用法: /adduser <user_id>")
	}
	slog.Info("Processing /adduser command", "request_id", req.id, "admin_id", req.user.ID, "target_id", userID)

	if h.access.IsConfigured(userID) {
		return h.sendText(req, fmt.Sprintf("ℹ️ 用户 %d 已在配置文件的允许列表中", userID))
	}

	added, err := h.store.AddUser(userID, req.user.ID)
	if err != nil {
		slog.Error("Failed to add user", "request_id", req.id, "target_id", userID, "error", err)
		req.status = storage.StatusFailed
		return h.sendError(req, "添加用户失败，请稍后重试")
	}
	if !added {
		return h.sendText(req, fmt.Sprintf("ℹ️ 用户 %d 已在允许列表中", userID))
	}
	return h.sendText(req, fmt.Sprintf("✅ 已添加用户 %d", userID))
}

func (h *Handler) handleRemoveUserCommand(req *request) error {
	userID, err := parseUserID(req.args)
	if err != nil {
		return h.sendText(req, "用法: /removeuser <user_id>")
	}
	slog.Info("Processing /removeuser command", "request_id", req.id, "admin_id", req.user.ID, "target_id", userID)

	if h.access.IsConfigured(userID) {
		return h.sendText(req, fmt.Sprintf("⚠️ 用户 %d 在配置文件中，无法通过命令移除", userID))
	}

	err = h.store.RemoveUser(userID)
	if errors.Is(err, storage.ErrNotFound) {
		return h.sendText(req, fmt.Sprintf("ℹ️ 用户 %d 不在允许列表中", userID))
	}
	if err != nil {
		slog.Error("Failed to remove user", "request_id", req.id, "target_id", userID, "error", err)
		req.status = storage.StatusFailed
		return h.sendError(req, "移除用户失败，请稍后重试")
	}
	return h.sendText(req, fmt.Sprintf("✅ 已移除用户 %d", userID))
}

func (h *Handler) handleUsersCommand(req *request) error {
	slog.Info("Processing /users command", "request_id", req.id, "chat_id", req.chatID)

	users, err := h.store.ListUsers()
	if err != nil {
		slog.Error("Failed to list users", "request_id", req.id, "error", err)
		req.status = storage.StatusFailed
		return h.sendError(req, "获取用户列表失败")
	}

	return h.sendChunked(req, formatUsers(h.access, users), messaging.ParseModePlain, nil)
}

func formatUsers(access *Access, users []*storage.User) string {
	var b strings.Builder

	b.WriteString("👥 允许的用户\n\n")
	b.WriteString("配置文件:\n")
	for _, id := range access.ConfiguredIDs() {
		b.WriteString(fmt.Sprintf("  • %d\n", id))
	}

	b.WriteString("\n管理员:\n")
	for _, id := range access.AdminIDs() {
		b.WriteString(fmt.Sprintf("  • %d\n", id))
	}

	b.WriteString("\n运行时添加:\n")
	if len(users) == 0 {
		b.WriteString("  (无)\n")
	}
	for _, u := range users {
		b.WriteString(fmt.Sprintf("  • %d (由 %d 添加于 %s)\n", u.UserID, u.AddedBy, u.CreatedAt.Format("2006-01-02 15:04")))
	}

	return b.String()
}

func parseUserID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected exactly one argument, got %d", len(args))
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user id %q: %w", args[0], err)
	}
	return id, nil
}

// sendChunked splits text into Telegram-sized pieces and sends them in
// order. The keyboard, if any, goes on the last piece actually sent.
func (h *Handler) sendChunked(req *request, text string, mode messaging.ParseMode, kb *messaging.Keyboard) error {
	chunks := chunk.Split(text, h.chunkLimit)

	last := len(chunks) - 1
	for last >= 0 && strings.TrimSpace(chunks[last]) == "" {
		last--
	}

	for i := 0; i <= last; i++ {
		// Telegram rejects blank messages
		if strings.TrimSpace(chunks[i]) == "" {
			continue
		}

		out := &messaging.OutgoingMessage{
			ChatID:    req.chatID,
			Text:      chunks[i],
			ParseMode: mode,
		}
		if i == last {
			out.Keyboard = kb
		}
		if err := h.platform.SendMessage(out); err != nil {
			return fmt.Errorf("failed to send chunk %d/%d: %w", i+1, len(chunks), err)
		}
		req.chunks++
	}

	if len(chunks) > 1 {
		slog.Debug("Sent chunked message", "request_id", req.id, "chunks", req.chunks, "limit", h.chunkLimit)
	}
	return nil
}

func (h *Handler) sendText(req *request, text string) error {
	return h.sendChunked(req, text, messaging.ParseModePlain, nil)
}

func (h *Handler) sendError(req *request, errorMsg string) error {
	return h.sendText(req, fmt.Sprintf("❌ %s", errorMsg))
}

func getHelpText() string {
	return `📖 可用命令

/tasks - 查看进行中的导入任务
/tasks status=completed - 按状态查看任务
/help - 显示帮助信息

管理员命令:
/adduser <user_id> - 允许用户使用机器人
/removeuser <user_id> - 移除运行时添加的用户
/users - 列出允许的用户`
}

func truncateText(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}
