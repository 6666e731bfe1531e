package editor

import (
	"sort"
	"strings"
	"sync"

	"github.com/kyokomi/emoji/v2"
)

// EmojiSuggestion is one autocomplete entry for an emoji trigger.
type EmojiSuggestion struct {
	Shortcode string `json:"shortcode"`
	Emoji     string `json:"emoji"`
}

var (
	emojiOnce    sync.Once
	emojiCatalog []EmojiSuggestion
)

func catalog() []EmojiSuggestion {
	emojiOnce.Do(func() {
		codes := emoji.CodeMap()
		emojiCatalog = make([]EmojiSuggestion, 0, len(codes))
		for code, glyph := range codes {
			emojiCatalog = append(emojiCatalog, EmojiSuggestion{Shortcode: code, Emoji: strings.TrimSpace(glyph)})
		}
		sort.Slice(emojiCatalog, func(i, j int) bool {
			return emojiCatalog[i].Shortcode < emojiCatalog[j].Shortcode
		})
	})
	return emojiCatalog
}

// SuggestEmoji returns up to limit shortcodes containing query. Prefix matches come first.
func SuggestEmoji(query string, limit int) []EmojiSuggestion {
	if limit <= 0 {
		return nil
	}
	q := strings.ToLower(strings.Trim(query, ": "))

	var prefix, contains []EmojiSuggestion
	for _, e := range catalog() {
		name := strings.Trim(e.Shortcode, ":")
		switch {
		case strings.HasPrefix(name, q):
			prefix = append(prefix, e)
		case strings.Contains(name, q):
			contains = append(contains, e)
		}
		if len(prefix) >= limit {
			break
		}
	}

	out := append(prefix, contains...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
