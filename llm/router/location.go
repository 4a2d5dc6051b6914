package router

import (
	"regexp"
	"strings"
	"unicode"
)

// "in <words>" up to the first character that is not a letter or whitespace
var inPlace = regexp.MustCompile(`(?i)\bin\s+([a-zA-Z\s]+)`)

// ExtractLocation guesses the place a weather question is about.
// It takes the words after "in", else the last token of the question, and
// title-cases the result. The fallback is only a guess and may return a
// word that is not a place; a bare weather keyword yields "".
func ExtractLocation(question string) string {
	if m := inPlace.FindStringSubmatch(question); m != nil {
		// stop at end of line
		loc := m[1]
		if i := strings.IndexAny(loc, "\r\n"); i >= 0 {
			loc = loc[:i]
		}
		if loc = strings.TrimSpace(loc); loc != "" {
			return titleCase(loc)
		}
	}

	fields := strings.Fields(question)
	if len(fields) == 0 {
		return ""
	}
	last := strings.TrimFunc(fields[len(fields)-1], func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	// the routing keyword itself is never a place
	if isWeatherKeyword(last) {
		return ""
	}
	return titleCase(last)
}

func isWeatherKeyword(word string) bool {
	word = strings.ToLower(word)
	for _, kw := range WeatherKeywords {
		if word == kw {
			return true
		}
	}
	return false
}

// titleCase upper-cases the first letter of each word and lower-cases the rest
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
