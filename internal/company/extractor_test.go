package company

import (
	"slices"
	"testing"
)

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	e, err := NewExtractor()
	if err != nil {
		t.Fatalf("NewExtractor failed: %v", err)
	}
	return e
}

func TestExtractPriorityOrder(t *testing.T) {
	e := newTestExtractor(t)

	// PhonePe must win even though the content also names its former
	// parent Flipkart.
	got := e.Extract(
		"PhonePe Interview Experience",
		"Walmart owns a stake, Flipkart spun it off, PhonePe SDE round was hard.",
		"",
	)
	if got != "PhonePe" {
		t.Errorf("Expected PhonePe, got %s", got)
	}

	got = e.Extract("Myntra SDE-2 Interview", "Rounds at Myntra, a Flipkart company.", "")
	if got != "Myntra" {
		t.Errorf("Expected Myntra, got %s", got)
	}
}

func TestExtractWordBoundaries(t *testing.T) {
	e := newTestExtractor(t)

	tests := []struct {
		name     string
		title    string
		content  string
		expected string
	}{
		{"substring does not match", "My amazonian adventure", "nothing else here", Unknown},
		{"exact word matches", "Interviewed at Amazon", "SDE role", "Amazon"},
		{"alias matches", "AWS team interview", "cloud infra questions", "Amazon"},
		{"domain matches", "Experience", "posted on zomato.com careers", "Zomato"},
		{"nothing matches", "Interview notes", "a small startup nobody knows", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.Extract(tt.title, tt.content, ""); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestExtractTargetFirst(t *testing.T) {
	e := newTestExtractor(t)

	// Target wins when its patterns match, even if an earlier table
	// entry also matches.
	got := e.Extract("Google onsite then Amazon offer", "accepted the Amazon offer", "Amazon")
	if got != "Amazon" {
		t.Errorf("Expected target Amazon to win, got %s", got)
	}

	// Target that does not appear falls through to the priority scan.
	got = e.Extract("Google phone screen", "recruiter call with Google", "Amazon")
	if got != "Google" {
		t.Errorf("Expected Google fallthrough, got %s", got)
	}

	// A target outside the table still matches on its own name.
	got = e.Extract("Stripe interview loop", "four rounds at stripe", "Stripe")
	if got != "Stripe" {
		t.Errorf("Expected Stripe, got %s", got)
	}
}

func TestAddPatterns(t *testing.T) {
	e := newTestExtractor(t)

	if got := e.Extract("Figma design round", "portfolio review", ""); got != Unknown {
		t.Fatalf("Expected Unknown before registration, got %s", got)
	}

	if err := e.AddPatterns("Figma", []string{"figma"}); err != nil {
		t.Fatalf("AddPatterns failed: %v", err)
	}
	if got := e.Extract("Figma design round", "portfolio review", ""); got != "Figma" {
		t.Errorf("Expected Figma after registration, got %s", got)
	}
	if e.PatternsFor("Figma") != 1 {
		t.Errorf("Expected 1 pattern, got %d", e.PatternsFor("Figma"))
	}
}

func TestCompaniesOrder(t *testing.T) {
	e := newTestExtractor(t)
	names := e.Companies()

	if len(names) < 30 {
		t.Fatalf("Expected at least 30 companies, got %d", len(names))
	}
	if names[0] != "PhonePe" {
		t.Errorf("Expected PhonePe first, got %s", names[0])
	}

	phonepe := slices.Index(names, "PhonePe")
	flipkart := slices.Index(names, "Flipkart")
	if phonepe == -1 || flipkart == -1 || phonepe > flipkart {
		t.Errorf("Expected PhonePe before Flipkart, got indexes %d and %d", phonepe, flipkart)
	}
}

func TestCanonical(t *testing.T) {
	e := newTestExtractor(t)

	tests := []struct {
		in   string
		want string
	}{
		{"  amazon ", "Amazon"},
		{"PHONEPE", "PhonePe"},
		{"urbancompany", "UrbanCompany"},
		{"paytm", "PayTM"},
		{"acme corp", "Acme corp"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := e.Canonical(tt.in); got != tt.want {
			t.Errorf("Canonical(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestCanonicalNilExtractor(t *testing.T) {
	var e *Extractor
	if got := e.Canonical("zeta"); got != "Zeta" {
		t.Errorf("Expected capitalization fallback on nil extractor, got %q", got)
	}
}
