package utils

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

var ugcPolicy = bluemonday.UGCPolicy()

// maxSanitizePasses bounds the strip and unescape loop in SanitizeText.
const maxSanitizePasses = 4

// SanitizeText removes markup the UGC policy rejects while keeping plain text
// as typed, so "Q&A" and "x < y" are stored unchanged. Services call it after
// validating the raw input.
//
// Stripping and unescaping repeat until the text stops changing; the result
// never contains an element the policy would remove, including ones that were
// smuggled in as entities. If no fixed point is reached the escaped policy
// output is returned.
func SanitizeText(input string) string {
	text := input
	for i := 0; i < maxSanitizePasses; i++ {
		next := html.UnescapeString(ugcPolicy.Sanitize(text))
		if next == text {
			return text
		}
		text = next
	}
	return ugcPolicy.Sanitize(text)
}
