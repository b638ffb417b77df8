package prompts

import "strings"

// Prompt is one round's question together with the set of accepted answers.
// Answers are stored trimmed and lower-cased; matching is exact.
type Prompt struct {
	Text    string   `json:"text"`
	Answers []string `json:"answers"`
}

// Accepts reports whether the submitted text matches one of the accepted
// answers after trimming and lower-casing.
func (p Prompt) Accepts(answer string) bool {
	normalized := strings.ToLower(strings.TrimSpace(answer))
	for _, a := range p.Answers {
		if normalized == a {
			return true
		}
	}
	return false
}

// fallbackPool is the built-in prompt set used whenever the upstream
// generator fails or returns fewer usable prompts than requested.
var fallbackPool = []Prompt{
	{Text: "Name a color in the rainbow", Answers: []string{"red", "orange", "yellow", "green", "blue", "indigo", "violet"}},
	{Text: "What is the largest gland in the human body?", Answers: []string{"liver"}},
	{Text: "Name a fruit", Answers: []string{"apple", "banana", "orange", "grape", "mango"}},
	{Text: "Name any planet in our solar system", Answers: []string{"mercury", "venus", "earth", "mars", "jupiter", "saturn", "uranus", "neptune"}},
	{Text: "Name an animal that can fly", Answers: []string{"eagle", "sparrow", "bat", "butterfly"}},
}

// Normalize cleans raw upstream prompts and pads the result from the
// fallback pool until exactly count well-formed prompts remain. Every
// returned prompt has non-empty text and at least one lower-cased answer;
// entries that lose all answers during cleaning fall back to "other".
// Padding skips prompts whose text is already present.
func Normalize(raw []Prompt, count int) []Prompt {
	if count < 1 {
		count = 1
	}

	cleaned := make([]Prompt, 0, count)
	seen := make(map[string]bool, count)
	for _, p := range raw {
		text := strings.TrimSpace(p.Text)
		if text == "" || seen[strings.ToLower(text)] {
			continue
		}
		answers := make([]string, 0, len(p.Answers))
		for _, a := range p.Answers {
			a = strings.ToLower(strings.TrimSpace(a))
			if a != "" {
				answers = append(answers, a)
			}
		}
		if len(answers) == 0 {
			answers = []string{"other"}
		}
		cleaned = append(cleaned, Prompt{Text: text, Answers: answers})
		seen[strings.ToLower(text)] = true
		if len(cleaned) == count {
			return cleaned
		}
	}

	for i := 0; len(cleaned) < count; i++ {
		candidate := fallbackPool[i%len(fallbackPool)]
		if seen[strings.ToLower(candidate.Text)] {
			// The pool is smaller than the remaining gap; once every pool
			// entry is used, repeats are unavoidable.
			if i >= len(fallbackPool) {
				cleaned = append(cleaned, candidate)
			}
			continue
		}
		cleaned = append(cleaned, candidate)
		seen[strings.ToLower(candidate.Text)] = true
	}
	return cleaned
}
