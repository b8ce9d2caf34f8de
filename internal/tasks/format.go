// Package tasks renders danmaku task lists as Telegram MarkdownV2 text.
package tasks

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rg/danmakubot/internal/danmaku"
	"github.com/rg/danmakubot/internal/messaging"
	"github.com/rg/danmakubot/internal/messaging/telegram"
)

const (
	DefaultStatus = "in_progress"

	refreshPrefix     = "tasks_refresh_"
	maxCallbackData   = 64
	descriptionRunes  = 50
	createdAtLayout   = "2006-01-02 15:04"
	unknownValue      = "未知"
	unknownTaskTitle  = "未知任务"
	statusArgumentKey = "status="
)

var statusNames = map[string]string{
	"in_progress": "进行中",
	"completed":   "已完成",
}

// StatusDisplay returns the human name of a task status.
func StatusDisplay(status string) string {
	if name, ok := statusNames[status]; ok {
		return name
	}
	return status
}

// ParseStatus returns the value of the first status=<v> argument, or DefaultStatus.
func ParseStatus(args []string) string {
	for _, arg := range args {
		if strings.HasPrefix(arg, statusArgumentKey) {
			if v := strings.TrimPrefix(arg, statusArgumentKey); v != "" {
				return v
			}
			break
		}
	}
	return DefaultStatus
}

// EmptyMessage is the plain-text reply for a status with no tasks.
func EmptyMessage(status string) string {
	return fmt.Sprintf("📋 暂无 %s 状态的任务", StatusDisplay(status))
}

// FormatList renders the task list for status. The result is MarkdownV2.
func FormatList(status string, list []danmaku.Task) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📋 *任务列表* \\(状态: %s\\)\n\n", telegram.EscapeMarkdownV2(StatusDisplay(status))))

	for i, task := range list {
		b.WriteString(formatTask(i+1, status, task))
		b.WriteString("\n")
	}

	return b.String()
}

func formatTask(n int, filter string, task danmaku.Task) string {
	var b strings.Builder

	title := orDefault(task.Title, unknownTaskTitle)
	b.WriteString(fmt.Sprintf("*%d\\. %s*\n", n, telegram.EscapeMarkdownV2(title)))
	b.WriteString(fmt.Sprintf("    🆔 ID: `%s`\n", telegram.EscapeCode(orDefault(task.TaskID, unknownValue))))
	b.WriteString(fmt.Sprintf("    📊 进度: %s%%\n", telegram.EscapeMarkdownV2(formatProgress(task.Progress))))

	taskStatus := orDefault(task.Status, unknownValue)
	if taskStatus != filter {
		b.WriteString(fmt.Sprintf("    🏷️ 状态: %s\n", telegram.EscapeMarkdownV2(StatusDisplay(taskStatus))))
	}

	if task.Description != "" {
		b.WriteString(fmt.Sprintf("    📝 描述: %s\n", telegram.EscapeMarkdownV2(previewDescription(task.Description))))
	}

	if created := formatCreatedAt(task.CreatedAt); created != "" {
		b.WriteString(fmt.Sprintf("    🕐 创建时间: %s\n", telegram.EscapeMarkdownV2(created)))
	}

	return b.String()
}

func formatProgress(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

func previewDescription(desc string) string {
	runes := []rune(desc)
	if len(runes) <= descriptionRunes {
		return desc
	}
	return string(runes[:descriptionRunes]) + "..."
}

var createdAtInputs = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// formatCreatedAt keeps the timestamp's own zone. Unparseable input is returned as is.
func formatCreatedAt(raw string) string {
	if raw == "" {
		return ""
	}
	for _, layout := range createdAtInputs {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(createdAtLayout)
		}
	}
	return raw
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// RefreshCallback is the callback data of the refresh button for status.
func RefreshCallback(status string) string {
	return refreshPrefix + status
}

// ParseRefreshCallback extracts the status from refresh callback data.
func ParseRefreshCallback(data string) (string, bool) {
	if !strings.HasPrefix(data, refreshPrefix) {
		return "", false
	}
	status := strings.TrimPrefix(data, refreshPrefix)
	if status == "" {
		return "", false
	}
	return status, true
}

// RefreshKeyboard returns the refresh button for status, or nil when the
// callback data would not fit Telegram's 64 byte limit.
func RefreshKeyboard(status string) *messaging.Keyboard {
	data := RefreshCallback(status)
	if len(data) > maxCallbackData {
		return nil
	}
	return messaging.NewKeyboard([]messaging.Button{{Text: "🔄 刷新", Data: data}})
}
