package rwsclient

import "strings"

// # Description
//
// Extract the text located between the first occurrence of the start marker and the next
// occurrence of the end marker found after it.
//
// # Returns
//
// The text between both markers, markers excluded. An empty string is returned if the start
// marker is missing or if no end marker follows it.
func FindSubstringContent(whole string, start string, end string) string {
	_, after, found := strings.Cut(whole, start)
	if !found {
		return ""
	}
	content, _, found := strings.Cut(after, end)
	if !found {
		return ""
	}
	return content
}
