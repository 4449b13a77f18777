package api

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestContentPreview(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"short passes through", "quick phone screen", "quick phone screen"},
		{"exact limit untouched", strings.Repeat("x", 200), strings.Repeat("x", 200)},
		{"long gets ellipsis", strings.Repeat("x", 201), strings.Repeat("x", 200) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := contentPreview(tt.content, 200); got != tt.want {
				t.Errorf("Expected %d chars, got %d", len([]rune(tt.want)), len([]rune(got)))
			}
		})
	}
}

func TestContentPreviewMultibyte(t *testing.T) {
	content := strings.Repeat("面", 250)
	got := contentPreview(content, 200)
	if len([]rune(got)) != 203 {
		t.Errorf("Expected 203 runes, got %d", len([]rune(got)))
	}
	if !strings.HasPrefix(got, "面") || !strings.HasSuffix(got, "...") {
		t.Errorf("Expected clean rune boundary with ellipsis, got %q", got[:12])
	}
}

func TestQualityScore(t *testing.T) {
	tests := []struct {
		sample int
		want   float64
	}{
		{0, 30.0},
		{4, 30.0},
		{5, 60.0},
		{9, 60.0},
		{10, 85.0},
		{40, 85.0},
	}
	for _, tt := range tests {
		if got := qualityScore(tt.sample); got != tt.want {
			t.Errorf("Expected score %.1f for sample %d, got %.1f", tt.want, tt.sample, got)
		}
	}
}

func TestQueryInt(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"present", "/x?limit=25", 25},
		{"absent falls back", "/x", 50},
		{"malformed falls back", "/x?limit=abc", 50},
		{"negative allowed", "/x?limit=-1", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.target, nil)
			if got := queryInt(r, "limit", 50); got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}
