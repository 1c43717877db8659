package response

import (
	"strings"
	"testing"

	"github.com/ai-relay-tgbot-go/pkg/markdown"
)

// entityState walks MarkdownV2 text and reports the number of unescaped
// asterisks and whether the text ends inside an escape.
func entityState(s string) (stars int, danglingEscape bool) {
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '*':
			stars++
		}
	}
	return stars, escaped
}

func checkChunks(t *testing.T, chunks []string, limit int) {
	t.Helper()
	if len(chunks) == 0 {
		t.Fatalf("limit=%d: no chunks", limit)
	}
	for i, c := range chunks {
		if n := markdown.Length(c); n > limit {
			t.Fatalf("limit=%d: chunk %d is %d units", limit, i, n)
		}
		if strings.TrimSpace(c) == "" {
			t.Fatalf("limit=%d: chunk %d is blank", limit, i)
		}
		stars, dangling := entityState(c)
		if stars%2 != 0 {
			t.Fatalf("limit=%d: chunk %d has %d unescaped '*': %q", limit, i, stars, c)
		}
		if dangling {
			t.Fatalf("limit=%d: chunk %d ends inside an escape: %q", limit, i, c)
		}
	}
}

func TestChunks_FitsInOne(t *testing.T) {
	t.Parallel()
	p := NewProcessor(DefaultCatalogue())

	msg := p.Process("I think this is easy.\nThe answer is 4.", testLabels)
	chunks := msg.Chunks(4096)
	if len(chunks) != 1 || chunks[0] != msg.Text {
		t.Fatalf("chunks = %q, want [%q]", chunks, msg.Text)
	}
}

func TestChunks_LongBodyWithoutSpaces(t *testing.T) {
	t.Parallel()
	p := NewProcessor(DefaultCatalogue())

	body := strings.Repeat("这是一个很长的回答", 600)
	msg := p.Process(body, testLabels)
	chunks := msg.Chunks(4096)

	checkChunks(t, chunks, 4096)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	if !strings.HasPrefix(chunks[0], "*Reply from Model*") {
		t.Fatalf("header cut: %q", chunks[0][:40])
	}
	if got := strings.Count(strings.Join(chunks, ""), "这"); got != 600 {
		t.Fatalf("body characters lost: %d of 600", got)
	}
}

func TestChunks_AstralRunes(t *testing.T) {
	t.Parallel()
	p := NewProcessor(DefaultCatalogue())

	msg := p.Process(strings.Repeat("😀", 5000), testLabels)
	chunks := msg.Chunks(4096)

	checkChunks(t, chunks, 4096)
	if got := strings.Count(strings.Join(chunks, ""), "😀"); got != 5000 {
		t.Fatalf("emoji lost: %d of 5000", got)
	}
}

func TestChunks_QuoteContinues(t *testing.T) {
	t.Parallel()
	p := NewProcessor(DefaultCatalogue())

	thought := "I think " + strings.TrimSpace(strings.Repeat("word ", 40))
	msg := p.Process(thought+"\nDone.", testLabels)
	chunks := msg.Chunks(60)

	checkChunks(t, chunks, 60)
	words := 0
	for _, c := range chunks {
		for _, l := range strings.Split(c, "\n") {
			if !strings.Contains(l, "word") {
				continue
			}
			if !strings.HasPrefix(l, ">") {
				t.Fatalf("reasoning continuation lost its quote: %q", l)
			}
			words += strings.Count(l, "word")
		}
	}
	if words != 40 {
		t.Fatalf("reasoning words = %d, want 40", words)
	}
	if last := chunks[len(chunks)-1]; !strings.HasSuffix(last, "Done\\.") {
		t.Fatalf("answer missing from last chunk: %q", last)
	}
}

func TestChunks_BoldNeverSplitToFill(t *testing.T) {
	t.Parallel()
	p := NewProcessor(nil)

	msg := p.Process("ok", testLabels)
	// header (18) + blank line leaves no room for "*Answer*"
	chunks := msg.Chunks(22)

	want := []string{"*Reply from Model*", "*Answer*\nok"}
	if len(chunks) != len(want) || chunks[0] != want[0] || chunks[1] != want[1] {
		t.Fatalf("chunks = %q, want %q", chunks, want)
	}
}

func TestChunks_TinyLimits(t *testing.T) {
	t.Parallel()
	p := NewProcessor(DefaultCatalogue())

	msg := p.Process("I think this is easy.\nThe answer is 4, and (x_y) *is* fine!", testLabels)
	for _, limit := range []int{8, 13, 20, 40, 4096} {
		checkChunks(t, msg.Chunks(limit), limit)
	}
}

func TestChunks_OnlyReasoning(t *testing.T) {
	t.Parallel()
	p := NewProcessor(DefaultCatalogue())

	msg := p.Process("Hmm.", testLabels)
	chunks := msg.Chunks(4096)
	if len(chunks) != 1 || !strings.HasSuffix(chunks[0], "*Answer*") {
		t.Fatalf("chunks = %q", chunks)
	}
}
