package response

import (
	"strings"
	"unicode"

	"github.com/ai-relay-tgbot-go/pkg/markdown"
)

// Chunks splits the rendered reply into messages of at most limit UTF-16 units.
// Lines are packed greedily. A line that does not fit may fill the rest of the
// current chunk only when it breaks there at whitespace; otherwise it starts a
// new one. A split line keeps its entity markers on every piece, so bold headers
// stay closed and a reasoning line continued in the next message is still quoted.
func (m *Message) Chunks(limit int) []string {
	if limit < 1 {
		limit = 1
	}
	c := &chunker{limit: limit}
	for _, l := range m.lines {
		c.add(l)
	}
	c.flush()

	if len(c.chunks) == 0 {
		return []string{m.Text}
	}
	return c.chunks
}

type chunker struct {
	limit  int
	chunks []string
	cur    []string
	size   int
}

// room is what the next line may use, counting its separating newline.
func (c *chunker) room() int {
	if len(c.cur) == 0 {
		return c.limit
	}
	return c.limit - c.size - 1
}

func (c *chunker) push(s string) {
	if len(c.cur) > 0 {
		c.size++
	}
	c.cur = append(c.cur, s)
	c.size += markdown.Length(s)
}

func (c *chunker) flush() {
	// blank lines at a chunk edge carry nothing
	for len(c.cur) > 0 && c.cur[len(c.cur)-1] == "" {
		c.cur = c.cur[:len(c.cur)-1]
	}
	if len(c.cur) > 0 {
		c.chunks = append(c.chunks, strings.Join(c.cur, "\n"))
	}
	c.cur = nil
	c.size = 0
}

func (c *chunker) add(l line) {
	rendered := l.String()
	if rendered == "" {
		if len(c.cur) > 0 && c.room() >= 0 {
			c.push("")
		}
		return
	}
	if markdown.Length(rendered) <= c.room() {
		c.push(rendered)
		return
	}

	deco := markdown.Length(l.prefix + l.suffix)
	if c.limit-deco < 1 {
		// the limit cannot even hold the markers; fall back to plain pieces
		l.prefix, l.suffix, deco = "", "", 0
	}

	text := l.text
	for text != "" {
		avail := c.room() - deco
		if avail < 1 {
			c.flush()
			continue
		}
		if markdown.Length(text) <= avail {
			c.push(l.prefix + text + l.suffix)
			return
		}

		if len(c.cur) > 0 && l.suffix != "" {
			// bold lines are never split just to fill a chunk
			c.flush()
			continue
		}

		piece := markdown.Split(text, avail)[0]
		rest := text[len(piece):]
		if len(c.cur) > 0 && (markdown.Length(piece) > avail || !startsWithSpace(rest)) {
			c.flush()
			continue
		}
		c.push(l.prefix + piece + l.suffix)
		c.flush()
		text = strings.TrimLeftFunc(rest, unicode.IsSpace)
	}
}

func startsWithSpace(s string) bool {
	for _, r := range s {
		return unicode.IsSpace(r)
	}
	return false
}
