// Package validation holds the input shape rules shared by services and handlers.
// Failures are VALIDATION_ERROR AppErrors carrying a user-facing message.
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"beam/internal/models"
)

// Limits on user input.
const (
	MaxTitleLength   = 300
	MaxContentLength = 50000
	MaxCommentLength = 10000
	MaxQueryLength   = 200

	DefaultTake = 50
	MaxTake     = 50
)

// ValidateTitle requires a non-blank title of at most MaxTitleLength characters.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return models.NewValidationError("Title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return models.NewValidationError(fmt.Sprintf("Title too long (max %d characters)", MaxTitleLength))
	}
	return nil
}

// ValidateContent requires a non-blank markdown body of at most MaxContentLength characters.
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return models.NewValidationError("Content is required")
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return models.NewValidationError(fmt.Sprintf("Content too long (max %d characters)", MaxContentLength))
	}
	return nil
}

// ValidateComment applies the comment body rules.
func ValidateComment(content string) error {
	if strings.TrimSpace(content) == "" {
		return models.NewValidationError("Comment content is required")
	}
	if utf8.RuneCountInString(content) > MaxCommentLength {
		return models.NewValidationError(fmt.Sprintf("Comment too long (max %d characters)", MaxCommentLength))
	}
	return nil
}

// ValidateSearchQuery requires at least one non-space character.
func ValidateSearchQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return models.NewValidationError("Search query is required")
	}
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return models.NewValidationError(fmt.Sprintf("Search query too long (max %d characters)", MaxQueryLength))
	}
	return nil
}

// ValidatePage checks a take/skip pair. A take of 0 means DefaultTake.
func ValidatePage(take, skip int) (int, error) {
	if take == 0 {
		take = DefaultTake
	}
	if take < 1 || take > MaxTake {
		return 0, models.NewValidationError(fmt.Sprintf("take must be between 1 and %d", MaxTake))
	}
	if skip < 0 {
		return 0, models.NewValidationError("skip must not be negative")
	}
	return take, nil
}
