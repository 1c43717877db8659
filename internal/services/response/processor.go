package response

import (
	"regexp"
	"strings"

	"github.com/ai-relay-tgbot-go/pkg/markdown"
)

var (
	thinkBlock = regexp.MustCompile(`(?is)<think>(.*?)</think>`)
	// Tag-shaped tokens only, so "a < b > c" survives.
	htmlTag = regexp.MustCompile(`</?[a-zA-Z][a-zA-Z0-9-]*(?:\s[^<>]*)?/?>`)
)

const thinkEndTag = "</think>"

// Labels are the localized headings of a formatted reply.
type Labels struct {
	Header    string
	Reasoning string
	Answer    string
}

// Message is a processed model reply.
type Message struct {
	Thoughts []string // reasoning lines, unescaped
	Answer   string   // normalized answer body, unescaped
	Text     string   // MarkdownV2 rendering

	lines []line
}

// Empty reports whether the reply carried neither reasoning nor an answer.
func (m *Message) Empty() bool {
	return len(m.Thoughts) == 0 && m.Answer == ""
}

// Processor separates reasoning from the answer and renders replies
type Processor struct {
	pattern *regexp.Regexp
}

// NewProcessor compiles a catalogue into a line matcher
func NewProcessor(catalogue []ThoughtPattern) *Processor {
	phrases := make([]string, 0, len(catalogue))
	for _, p := range catalogue {
		if phrase := strings.TrimSpace(p.Phrase); phrase != "" {
			phrases = append(phrases, regexp.QuoteMeta(phrase))
		}
	}

	p := &Processor{}
	if len(phrases) > 0 {
		p.pattern = regexp.MustCompile(`(?i)^\s*(?:` + strings.Join(phrases, "|") + `)`)
	}
	return p
}

// Process turns raw model output into a formatted reply
func (p *Processor) Process(raw string, labels Labels) *Message {
	thoughts, rest := extractThinkTags(raw)
	rest = htmlTag.ReplaceAllString(rest, "")

	var body []string
	for _, line := range strings.Split(rest, "\n") {
		if p.isThought(line) {
			thoughts = append(thoughts, strings.TrimSpace(line))
			continue
		}
		body = append(body, line)
	}

	msg := &Message{
		Thoughts: thoughts,
		Answer:   normalize(body),
	}
	msg.lines = render(msg, labels)
	msg.Text = joinLines(msg.lines)
	return msg
}

func (p *Processor) isThought(line string) bool {
	return p.pattern != nil && p.pattern.MatchString(line)
}

// extractThinkTags moves <think> blocks into the reasoning lines. A dangling
// </think> with no opening tag closes a block that started at the beginning.
func extractThinkTags(raw string) ([]string, string) {
	var thoughts []string

	for _, m := range thinkBlock.FindAllStringSubmatch(raw, -1) {
		thoughts = append(thoughts, nonBlankLines(m[1])...)
	}
	rest := thinkBlock.ReplaceAllString(raw, "")

	if idx := strings.Index(rest, thinkEndTag); idx != -1 {
		thoughts = append(thoughts, nonBlankLines(rest[:idx])...)
		rest = rest[idx+len(thinkEndTag):]
	}

	return thoughts, rest
}

// normalize trims every line and drops blank ones.
func normalize(lines []string) string {
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func nonBlankLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// line is one rendered line of a reply. Text is already escaped; prefix and
// suffix carry the entity markers that every piece of a split line repeats.
type line struct {
	prefix string
	text   string
	suffix string
}

func (l line) String() string {
	return l.prefix + l.text + l.suffix
}

func boldLine(text string) line {
	return line{prefix: "*", text: markdown.EscapeMarkdownV2(text), suffix: "*"}
}

func render(msg *Message, labels Labels) []line {
	lines := []line{boldLine(labels.Header), {}}

	if len(msg.Thoughts) > 0 {
		lines = append(lines, boldLine(labels.Reasoning))
		for _, t := range msg.Thoughts {
			if strings.TrimSpace(t) == "" {
				continue
			}
			lines = append(lines, line{prefix: ">", text: markdown.EscapeMarkdownV2(t)})
		}
		lines = append(lines, line{})
	}

	lines = append(lines, boldLine(labels.Answer))
	for _, body := range strings.Split(msg.Answer, "\n") {
		lines = append(lines, line{text: markdown.EscapeMarkdownV2(body)})
	}

	return lines
}

func joinLines(lines []line) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = l.String()
	}
	return strings.Join(parts, "\n")
}
