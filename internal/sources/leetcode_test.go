package sources

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"
)

const leetcodeSearchJSON = `{"data":{"categoryTopicList":{"edges":[
	{"node":{"id":12345,"title":"Google Onsite Interview Experience","content":"Full loop with coding and system design."}},
	{"node":{"id":777,"title":"Campus food reviews","content":"the cafeteria menu changed"}}
]}}}`

const leetcodePostPage = `<html><body>
<h1>Google Phone Screen Experience</h1>
<div class="discuss-markdown-container">
Phone screen with a Google engineer. We worked through two sum and then a sliding window problem on strings. The problems were medium difficulty and the interviewer was friendly. I passed and moved to the onsite round 1 the following week.
</div>
</body></html>`

func TestLeetCodeSearchDiscoveryJSON(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/discuss/interview-question", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query") != "" {
			_, _ = w.Write([]byte(leetcodeSearchJSON))
			return
		}
		_, _ = w.Write([]byte("<html><body><p>category index</p></body></html>"))
	})
	srv, _ := recordingServer(t, mux)

	extractor, calc := testDeps(t)
	l := NewLeetCode(newAdapterEngine(t, "leetcode"), extractor, calc, srv.URL)

	urls := l.DiscoverURLs(context.Background(), "Google", 1)
	if len(urls) != 1 {
		t.Fatalf("Expected 1 deduplicated URL, got %d: %v", len(urls), urls)
	}
	if want := srv.URL + "/discuss/interview-question/12345"; urls[0] != want {
		t.Errorf("Expected %q, got %q", want, urls[0])
	}
}

func TestLeetCodeSearchDiscoveryHTMLFallback(t *testing.T) {
	listing := `<html><body>
<a href="/discuss/interview-question/9001">Google phone screen experience</a>
<a href="/discuss/interview-question/9002">Meta onsite report</a>
<a href="/discuss/general-discussion/1">Google salary thread</a>
</body></html>`

	mux := http.NewServeMux()
	mux.HandleFunc("/discuss/interview-question", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query") != "" {
			_, _ = w.Write([]byte(listing))
			return
		}
		_, _ = w.Write([]byte("<html><body></body></html>"))
	})
	srv, _ := recordingServer(t, mux)

	extractor, calc := testDeps(t)
	l := NewLeetCode(newAdapterEngine(t, "leetcode"), extractor, calc, srv.URL)

	urls := l.DiscoverURLs(context.Background(), "Google", 1)
	if len(urls) != 1 {
		t.Fatalf("Expected 1 URL from the HTML listing, got %d: %v", len(urls), urls)
	}
	if want := srv.URL + "/discuss/interview-question/9001"; urls[0] != want {
		t.Errorf("Expected %q, got %q", want, urls[0])
	}
}

func TestLeetCodeSearchResultGates(t *testing.T) {
	extractor, calc := testDeps(t)
	l := NewLeetCode(newAdapterEngine(t, "leetcode"), extractor, calc, "https://unit.test")

	payload := []byte(`{"data":{"categoryTopicList":{"edges":[
		{"node":{"id":1,"title":"Google interview experience","content":"onsite rounds"}},
		{"node":{"id":2,"title":"Microsoft interview experience","content":"different company"}},
		{"node":{"id":3,"title":"Google campus tour","content":"nothing about the process"}},
		{"node":{"id":0,"title":"Google interview with a missing id","content":"interview"}}
	]}}}`)

	urls, err := l.parseSearchResults(payload, "Google")
	if err != nil {
		t.Fatalf("parseSearchResults failed: %v", err)
	}
	if len(urls) != 1 || urls[0] != "https://unit.test/discuss/interview-question/1" {
		t.Errorf("Expected only the matching node, got %v", urls)
	}
}

func TestLeetCodeExtract(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/discuss/interview-question/12345", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(leetcodePostPage))
	})
	srv, _ := recordingServer(t, mux)

	extractor, calc := testDeps(t)
	l := NewLeetCode(newAdapterEngine(t, "leetcode"), extractor, calc, srv.URL)

	rec, err := l.Extract(context.Background(), srv.URL+"/discuss/interview-question/12345", "Google")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if rec.Title != "Google Phone Screen Experience" {
		t.Errorf("Unexpected title %q", rec.Title)
	}
	if rec.Company != "Google" {
		t.Errorf("Expected company Google, got %q", rec.Company)
	}
	if rec.SourcePlatform != "leetcode" {
		t.Errorf("Unexpected platform %q", rec.SourcePlatform)
	}
	if rec.InterviewType != "phone_screen" {
		t.Errorf("Expected phone_screen, got %q", rec.InterviewType)
	}
	if got := strings.Join(rec.CodingQuestions, ","); got != "two sum,sliding window" {
		t.Errorf("Unexpected coding questions %q", got)
	}
	if rec.Outcome != "offer" {
		t.Errorf("Expected offer outcome, got %q", rec.Outcome)
	}
	if rec.RoundsCount != 1 {
		t.Errorf("Expected 1 round, got %d", rec.RoundsCount)
	}
	if got := strings.Join(rec.DifficultyIndicators, ","); got != "medium,hard" {
		t.Errorf("Unexpected difficulty indicators %q", got)
	}
	if rec.Role != "Software Engineer" {
		t.Errorf("Expected default role, got %q", rec.Role)
	}

	// No date on the page: the fallback lands a fortnight back.
	now := time.Now().UTC()
	if rec.ExperienceDate.After(now.AddDate(0, 0, -14)) || rec.ExperienceDate.Before(now.AddDate(0, 0, -16)) {
		t.Errorf("Expected date about 15 days old, got %v", rec.ExperienceDate)
	}
	if rec.TimeWeight <= 0.9 || rec.TimeWeight > 1.0 {
		t.Errorf("Expected near-full time weight, got %v", rec.TimeWeight)
	}
}
