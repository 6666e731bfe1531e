package validation

import (
	"strings"
	"testing"

	"beam/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTitle(t *testing.T) {
	assert.NoError(t, ValidateTitle("Hello"))
	assert.Equal(t, models.CodeValidation, models.ErrorCode(ValidateTitle("")))
	assert.Error(t, ValidateTitle("   "))
	assert.NoError(t, ValidateTitle(strings.Repeat("é", MaxTitleLength)), "limit counts characters, not bytes")
	assert.Error(t, ValidateTitle(strings.Repeat("a", MaxTitleLength+1)))
}

func TestValidateContent(t *testing.T) {
	assert.NoError(t, ValidateContent("# heading"))
	assert.EqualError(t, ValidateContent("\n\t"), "Content is required")
	assert.Error(t, ValidateContent(strings.Repeat("a", MaxContentLength+1)))
}

func TestValidateComment(t *testing.T) {
	assert.NoError(t, ValidateComment("nice"))
	assert.Error(t, ValidateComment(" "))
	assert.Error(t, ValidateComment(strings.Repeat("a", MaxCommentLength+1)))
}

func TestValidateSearchQuery(t *testing.T) {
	assert.NoError(t, ValidateSearchQuery("g"))
	assert.Error(t, ValidateSearchQuery(""))
	assert.Error(t, ValidateSearchQuery(strings.Repeat("q", MaxQueryLength+1)))
}

func TestValidatePage(t *testing.T) {
	tests := []struct {
		name     string
		take     int
		skip     int
		want     int
		wantFail bool
	}{
		{"default", 0, 0, DefaultTake, false},
		{"explicit", 10, 20, 10, false},
		{"max", MaxTake, 0, MaxTake, false},
		{"too many", MaxTake + 1, 0, 0, true},
		{"negative take", -1, 0, 0, true},
		{"negative skip", 10, -1, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidatePage(tt.take, tt.skip)
			if tt.wantFail {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
