package ocr

import (
	"regexp"
	"strings"
)

var (
	uiActionRe   = regexp.MustCompile(`(?i)^(Reply|Repost|Like|Share|Bookmark|Views?)$`)
	engagementRe = regexp.MustCompile(`(?i)^\d+(\.\d+)?[KMB]?$`)
	bylineRe     = regexp.MustCompile(`(?i)^@\w+\s*·\s*\d+[hmd]$`)
)

// Clean removes social media interface noise (action buttons, engagement
// counters, "@user · 3h" bylines and blank lines) from recognized text.
func Clean(text string) string {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if isNoise(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func isNoise(line string) bool {
	return line == "" ||
		uiActionRe.MatchString(line) ||
		engagementRe.MatchString(line) ||
		bylineRe.MatchString(line)
}
