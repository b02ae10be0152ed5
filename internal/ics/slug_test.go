package ics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Sprints", "sprints"},
		{"  Python Conferences ", "python-conferences"},
		{"Café & Crème", "cafe-creme"},
		{"PyCon--2025!!", "pycon-2025"},
		{"user_groups", "user_groups"},
		{"日本 語", "日本-語"},
		{"!!!", "category"},
		{"Don't Panic", "dont-panic"},
		{"_private_", "private"},
		{"a - b", "a-b"},
		{"__", "category"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestSlugifyTruncates(t *testing.T) {
	slug := Slugify(strings.Repeat("é", 300))
	assert.LessOrEqual(t, len(slug), maxSlugLen)
	assert.Equal(t, strings.Repeat("e", maxSlugLen), slug)
}
