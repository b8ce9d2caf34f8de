package telegram

import "strings"

var markdownV2Replacer = strings.NewReplacer(
	"\\", "\\\\",
	"_", "\\_",
	"*", "\\*",
	"[", "\\[",
	"]", "\\]",
	"(", "\\(",
	")", "\\)",
	"~", "\\~",
	"`", "\\`",
	">", "\\>",
	"#", "\\#",
	"+", "\\+",
	"-", "\\-",
	"=", "\\=",
	"|", "\\|",
	"{", "\\{",
	"}", "\\}",
	".", "\\.",
	"!", "\\!",
)

// EscapeMarkdownV2 escapes every character Telegram treats as MarkdownV2 markup.
func EscapeMarkdownV2(text string) string {
	return markdownV2Replacer.Replace(text)
}

// EscapeCode escapes text for use inside an inline `code` span.
func EscapeCode(text string) string {
	return strings.NewReplacer("\\", "\\\\", "`", "\\`").Replace(text)
}

// PlainFromMarkdownV2 strips MarkdownV2 markup so the text reads naturally
// without a parse mode: escapes are resolved and bare style markers dropped.
func PlainFromMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	escaped := false
	for _, r := range text {
		switch {
		case escaped:
			b.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case strings.ContainsRune("*_~`|", r):
		default:
			b.WriteRune(r)
		}
	}
	if escaped {
		b.WriteByte('\\')
	}
	return b.String()
}
