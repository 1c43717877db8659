package markdown

import "strings"

// specialChars are the characters Telegram MarkdownV2 treats as markup.
// Outside of entities every one of them must be preceded by a backslash.
const specialChars = "_*[]()~`>#+-=|{}.!\\"

// EscapeMarkdownV2 escapes text so Telegram renders it literally
func EscapeMarkdownV2(text string) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text) + len(text)/8)
	for _, r := range text {
		if strings.ContainsRune(specialChars, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Bold renders text as a bold entity
func Bold(text string) string {
	return "*" + EscapeMarkdownV2(text) + "*"
}

// Quote renders one line as a block quote line
func Quote(line string) string {
	return ">" + EscapeMarkdownV2(line)
}
