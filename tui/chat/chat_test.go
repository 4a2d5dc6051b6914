package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDocCommand(t *testing.T) {
	cases := []struct {
		in   string
		path string
		ok   bool
	}{
		{"/doc report.pdf", "report.pdf", true},
		{"  /doc   My Files/report.pdf ", "My Files/report.pdf", true},
		{"/doc", "", true},
		{"/document x", "", false},
		{"what is in the doc", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		path, ok := parseDocCommand(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.path, path, tc.in)
	}
}
