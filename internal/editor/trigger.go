package editor

import "unicode"

// TriggerKind identifies which autocomplete a trigger opens.
type TriggerKind int

const (
	TriggerNone TriggerKind = iota
	TriggerMention
	TriggerEmoji
)

func (k TriggerKind) String() string {
	switch k {
	case TriggerMention:
		return "mention"
	case TriggerEmoji:
		return "emoji"
	default:
		return "none"
	}
}

// Trigger is the result of DetectTrigger. Index is the rune offset of the trigger character.
type Trigger struct {
	Active bool
	Index  int
	Kind   TriggerKind
	Query  string
}

var triggerChars = map[rune]TriggerKind{
	'@': TriggerMention,
	':': TriggerEmoji,
}

// DetectTrigger looks at the word ending at caret (a rune offset into text). When that word starts
// with '@' or ':' a trigger is active and Query is the rest of the word, possibly empty. The rest of
// the word is taken as is, so a finished ":smile:" still reports the query "smile:".
func DetectTrigger(text string, caret int) Trigger {
	runes := []rune(text)
	if caret < 0 {
		caret = 0
	}
	if caret > len(runes) {
		caret = len(runes)
	}

	start := caret
	for start > 0 && !unicode.IsSpace(runes[start-1]) {
		start--
	}
	if start == caret {
		return Trigger{Index: -1}
	}

	kind, ok := triggerChars[runes[start]]
	if !ok {
		return Trigger{Index: -1}
	}
	return Trigger{Active: true, Index: start, Kind: kind, Query: string(runes[start+1 : caret])}
}

// CaretOffset converts a line/column position into a rune offset into text.
func CaretOffset(text string, pos Position) int {
	line, offset := 0, 0
	runes := []rune(text)
	for i, r := range runes {
		if line == pos.Line {
			col := 0
			for j := i; j < len(runes) && runes[j] != '\n' && col < pos.Ch; j++ {
				col++
			}
			return i + col
		}
		if r == '\n' {
			line++
		}
		offset = i + 1
	}
	return offset
}

// DetectAtCaret runs DetectTrigger at the surface's current caret.
func DetectAtCaret(s Surface) Trigger {
	text := s.Value()
	return DetectTrigger(text, CaretOffset(text, s.Caret()))
}
