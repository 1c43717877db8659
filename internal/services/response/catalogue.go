package response

// ThoughtPattern is a lead-in phrase that marks a line as model reasoning.
type ThoughtPattern struct {
	Phrase string
	Lang   string
}

// defaultCatalogue is matched case-insensitively at the start of each line.
// Detection is a heuristic: an answer line that opens with one of these phrases
// is treated as reasoning, and reasoning phrased differently stays in the answer.
var defaultCatalogue = []ThoughtPattern{
	{Phrase: "let me think", Lang: "en"},
	{Phrase: "let's think", Lang: "en"},
	{Phrase: "let me", Lang: "en"},
	{Phrase: "i think", Lang: "en"},
	{Phrase: "first,", Lang: "en"},
	{Phrase: "firstly", Lang: "en"},
	{Phrase: "okay, so", Lang: "en"},
	{Phrase: "ok, so", Lang: "en"},
	{Phrase: "alright,", Lang: "en"},
	{Phrase: "hmm", Lang: "en"},
	{Phrase: "wait,", Lang: "en"},
	{Phrase: "the user is asking", Lang: "en"},
	{Phrase: "the user wants", Lang: "en"},
	{Phrase: "so the user", Lang: "en"},
	{Phrase: "i need to", Lang: "en"},
	{Phrase: "i should", Lang: "en"},

	{Phrase: "думаю", Lang: "ru"},
	{Phrase: "я думаю", Lang: "ru"},
	{Phrase: "давайте", Lang: "ru"},
	{Phrase: "итак", Lang: "ru"},
	{Phrase: "сначала", Lang: "ru"},
	{Phrase: "во-первых", Lang: "ru"},
	{Phrase: "хм", Lang: "ru"},
	{Phrase: "подумаем", Lang: "ru"},
	{Phrase: "рассмотрим", Lang: "ru"},
	{Phrase: "мне нужно", Lang: "ru"},
	{Phrase: "пользователь спрашивает", Lang: "ru"},
	{Phrase: "пользователь хочет", Lang: "ru"},
}

// DefaultCatalogue returns a copy of the built-in phrase catalogue.
func DefaultCatalogue() []ThoughtPattern {
	out := make([]ThoughtPattern, len(defaultCatalogue))
	copy(out, defaultCatalogue)
	return out
}
