package chat

import (
	"fmt"
	"regexp"
)

const (
	maxTitleRunes  = 50
	titleEllipsis  = "..."
	autoTitleRegex = `^Chat \d+$`
)

var autoTitle = regexp.MustCompile(autoTitleRegex)

// AutoTitle is the placeholder title of the n-th session.
func AutoTitle(n int64) string {
	return fmt.Sprintf("Chat %d", n)
}

// IsAutoTitle reports whether title is still a generated placeholder.
func IsAutoTitle(title string) bool {
	return autoTitle.MatchString(title)
}

// DecideTitle returns the title s should carry after its first prompt.
// changed is false when the current title stays: the session already has
// messages or was named by the user.
func DecideTitle(s Session, prompt string) (title string, changed bool) {
	if s.MessageCount != 0 || !IsAutoTitle(s.Title) {
		return s.Title, false
	}
	return TitleFromPrompt(prompt), true
}

// TitleFromPrompt keeps the first 50 characters of prompt and marks the cut.
func TitleFromPrompt(prompt string) string {
	r := []rune(prompt)
	if len(r) <= maxTitleRunes {
		return prompt
	}
	return string(r[:maxTitleRunes]) + titleEllipsis
}
