package editor

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testTimeout = 2 * time.Second
	testTick    = 5 * time.Millisecond
)

func TestSuggestEmoji(t *testing.T) {
	t.Parallel()

	got := SuggestEmoji("smil", 5)
	require.NotEmpty(t, got)
	assert.LessOrEqual(t, len(got), 5)
	assert.True(t, strings.HasPrefix(got[0].Shortcode, ":smil"), got[0].Shortcode)
	for _, s := range got {
		assert.Contains(t, s.Shortcode, "smil")
		assert.NotEmpty(t, s.Emoji)
	}
}

func TestSuggestEmojiPrefixBeforeContains(t *testing.T) {
	t.Parallel()

	got := SuggestEmoji("cat", 50)
	require.NotEmpty(t, got)
	seenContains := false
	for _, s := range got {
		isPrefix := strings.HasPrefix(s.Shortcode, ":cat")
		if !isPrefix {
			seenContains = true
		}
		if seenContains {
			assert.False(t, isPrefix, "prefix match %s listed after a substring match", s.Shortcode)
		}
	}
}

func TestSuggestEmojiLimits(t *testing.T) {
	t.Parallel()

	assert.Nil(t, SuggestEmoji("smile", 0))
	assert.Len(t, SuggestEmoji("", 3), 3)
	assert.Empty(t, SuggestEmoji("zzzz-not-an-emoji-zzzz", 10))
	assert.Equal(t, SuggestEmoji("heart", 5), SuggestEmoji(":heart", 5))
}
