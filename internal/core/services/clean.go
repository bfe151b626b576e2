package services

import (
	"regexp"
	"strings"
)

const fence = "```"

var fenceTagPattern = regexp.MustCompile(`^[A-Za-z0-9_+.#-]*$`)

// CleanCode strips a single fenced code block from raw, returning its interior.
// Text before the opening fence and after the closing fence is dropped, as are
// blank lines around the interior. Indentation inside the block is preserved.
// Input without a fence is returned unchanged.
func CleanCode(raw string) string {
	open := strings.Index(raw, fence)
	if open < 0 {
		return raw
	}

	body := raw[open+len(fence):]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		tag := strings.TrimSpace(body[:nl])
		if fenceTagPattern.MatchString(tag) && !strings.Contains(body[:nl], fence) {
			body = body[nl+1:]
		}
	}

	if end := strings.Index(body, fence); end >= 0 {
		body = body[:end]
	}

	body = strings.TrimLeft(body, "\r\n")
	return strings.TrimRight(body, " \t\r\n")
}
