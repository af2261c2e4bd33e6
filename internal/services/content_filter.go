package services

import (
	"regexp"
)

var bannedAdWords = []string{
	"fuck", "shit", "bitch", "bastard", "cunt",
	"porn", "porno", "nude", "nudes",
	"scam", "phishing", "malware",
}

// ContentFilter screens user supplied ad text before credits are spent on it.
type ContentFilter struct {
	banned   []*regexp.Regexp
	repeated *regexp.Regexp
}

func NewContentFilter() *ContentFilter {
	f := &ContentFilter{
		banned:   make([]*regexp.Regexp, 0, len(bannedAdWords)),
		repeated: regexp.MustCompile(`(!{4,}|\?{4,}|\.{4,})`),
	}
	for _, word := range bannedAdWords {
		f.banned = append(f.banned, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(word)+`\b`))
	}
	return f
}

// Check returns "" for acceptable text, otherwise a short reason code.
func (f *ContentFilter) Check(text string) string {
	for _, re := range f.banned {
		if re.MatchString(text) {
			return "inappropriate_language"
		}
	}
	if f.repeated.MatchString(text) || hasLetterRun(text, 5) {
		return "spam_detected"
	}
	return ""
}

func hasLetterRun(text string, n int) bool {
	run := 0
	var prev rune
	for _, r := range text {
		if r == prev && r != ' ' && !('0' <= r && r <= '9') {
			run++
		} else {
			run = 1
		}
		if run >= n {
			return true
		}
		prev = r
	}
	return false
}
