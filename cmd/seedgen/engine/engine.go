package engine

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"interview-intel/internal/decay"
	"interview-intel/internal/store"
)

type GeneratorConfig struct {
	Scenario string // "sparse", "rich" or "trending"
	Company  string
	Count    int
	Seed     int64
	Now      time.Time
}

// Manifest describes one generated fixture set.
type Manifest struct {
	Company     string    `json:"company"`
	Scenario    string    `json:"scenario"`
	Count       int       `json:"count"`
	Seed        int64     `json:"seed"`
	GeneratedAt time.Time `json:"generated_at"`
	OldestDate  time.Time `json:"oldest_date"`
	NewestDate  time.Time `json:"newest_date"`
	Platforms   []string  `json:"platforms"`
}

var platforms = []string{"geeksforgeeks", "leetcode", "reddit", "glassdoor"}

var roles = []string{
	"Software Engineer",
	"SDE",
	"SDE-2",
	"Senior Software Engineer",
	"Backend Engineer",
}

// Sentence pools use the taxonomy's own vocabulary so an analysis run over
// the fixtures finds the same topic families a real corpus would surface.
var codingSentences = []string{
	"First round was a coding test with an array rotation problem and a string parsing question.",
	"They asked a binary tree traversal followed by reversing a linked list in place.",
	"One question needed a hashmap for frequency counting and another used a stack of intervals.",
	"The online round had two questions, one on merge sort and one on binary search over a rotated array.",
	"A graph question on bfs came up with a follow-up on dfs plus memoization.",
	"I got a classic dynamic programming question and had to explain the optimal substructure.",
	"The interviewer pushed on time complexity and space complexity for every solution.",
	"There was a sliding window problem and a question about when a priority queue beats sorting.",
	"A backtracking question on subsets led into a discussion of recursion depth.",
}

var designSentences = []string{
	"The system design round covered horizontal scaling and load balancing with nginx.",
	"We discussed caching with redis and when a cdn actually helps.",
	"I had to design a rest api split into microservices with kafka as the message queue.",
	"They probed cap theorem tradeoffs and where eventual consistency is acceptable.",
	"Schema questions compared sql against nosql and we sketched it on mongodb.",
	"We walked through rate limiting, sharding the database and cache invalidation.",
}

var conceptSentences = []string{
	"An oop discussion on inheritance and polymorphism opened the technical round.",
	"They asked about threading, mutex usage and other concurrency basics.",
	"Design patterns came up, mostly singleton and factory with a small observer example.",
	"Language questions covered java collections and a bit of python internals.",
	"Deployment questions touched docker, kubernetes and a little aws.",
}

var difficultyCues = []string{"easy", "medium", "hard", "straightforward", "challenging", "tough"}

var roundKinds = []string{
	"Telephonic screen with basic coding questions",
	"Onsite coding round on data structures and algorithms",
	"System design discussion on a large scale service",
	"Technical discussion about past projects",
	"Hiring manager and hr round on team fit",
}

// Generate builds a synthetic experience corpus. The same config always
// yields the same corpus: all randomness flows from the seeded source.
func Generate(cfg GeneratorConfig) ([]store.Experience, Manifest) {
	if cfg.Now.IsZero() {
		cfg.Now = time.Now().UTC()
	}
	if cfg.Count < 1 {
		cfg.Count = 1
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	calc := decay.NewCalculator(decay.DefaultLambda)

	// 1. Per-scenario corpus shape.
	spacingDays, sentencesPer, newestAgeDays := 4, 4, 0
	offerP, rejectP := 0.45, 0.35
	switch cfg.Scenario {
	case "sparse":
		spacingDays, sentencesPer, newestAgeDays = 30, 1, 90
		offerP, rejectP = 0.2, 0.2
	case "trending":
		spacingDays = 12
	}

	first := cfg.Now.AddDate(0, 0, -newestAgeDays-(cfg.Count-1)*spacingDays)
	slug := companySlug(cfg.Company)

	exps := make([]store.Experience, 0, cfg.Count)
	for i := 0; i < cfg.Count; i++ {
		date := first.AddDate(0, 0, i*spacingDays)
		role := roles[rng.Intn(len(roles))]
		platform := platforms[i%len(platforms)]
		cue := difficultyCues[rng.Intn(len(difficultyCues))]

		// 2. Content. Trending shifts emphasis from coding staples toward
		// system design as the corpus gets newer, so a later analysis sees
		// rising and declining topics across the temporal split.
		var sb strings.Builder
		fmt.Fprintf(&sb, "I interviewed with %s for the %s role and overall it felt %s. ", cfg.Company, role, cue)
		for s := 0; s < sentencesPer; s++ {
			pool := poolFor(cfg.Scenario, float64(i)/float64(cfg.Count), s, rng)
			sb.WriteString(pool[rng.Intn(len(pool))])
			sb.WriteString(" ")
		}

		// 3. Rounds and outcome.
		roundsCount := 2 + rng.Intn(3)
		if cfg.Scenario == "sparse" {
			roundsCount = 0
		}
		rounds := make(store.RoundList, 0, roundsCount)
		for r := 0; r < roundsCount; r++ {
			kind := roundKinds[r%len(roundKinds)]
			rounds = append(rounds, store.RoundDetail{RoundNumber: r + 1, Description: kind})
			fmt.Fprintf(&sb, "Round %d: %s. ", r+1, strings.ToLower(kind[:1])+kind[1:])
		}

		outcome := "unknown"
		switch r := rng.Float64(); {
		case r < offerP:
			outcome = "offer"
			sb.WriteString("I got the offer a week later.")
		case r < offerP+rejectP:
			outcome = "rejected"
			sb.WriteString("Unfortunately I was rejected after the final round.")
		}

		exps = append(exps, store.Experience{
			Company:              cfg.Company,
			Title:                fmt.Sprintf("%s Interview Experience for %s | Set %d", cfg.Company, role, i+1),
			Content:              strings.TrimSpace(sb.String()),
			SourceURL:            fmt.Sprintf("https://seed.invalid/%s/%s/%d", platform, slug, i+1),
			SourcePlatform:       platform,
			Role:                 role,
			ExperienceDate:       date,
			ScrapedAt:            cfg.Now,
			TimeWeight:           calc.WeightAt(date, cfg.Now),
			RoundsCount:          roundsCount,
			RoundsDetails:        rounds,
			DifficultyIndicators: store.StringList{cue},
			Outcome:              outcome,
			Success:              outcome == "offer",
		})
	}

	manifest := Manifest{
		Company:     cfg.Company,
		Scenario:    cfg.Scenario,
		Count:       cfg.Count,
		Seed:        cfg.Seed,
		GeneratedAt: cfg.Now,
		OldestDate:  exps[0].ExperienceDate,
		NewestDate:  exps[len(exps)-1].ExperienceDate,
		Platforms:   platforms,
	}
	return exps, manifest
}

// poolFor picks the sentence pool for one content sentence. Trending uses
// the corpus position: early items draw coding staples, late items lean
// into system design.
func poolFor(scenario string, ratio float64, sentence int, rng *rand.Rand) []string {
	if scenario == "trending" {
		if rng.Float64() < ratio {
			return designSentences
		}
		return codingSentences
	}
	switch sentence % 3 {
	case 0:
		return codingSentences
	case 1:
		return designSentences
	default:
		return conceptSentences
	}
}

func companySlug(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}

// Save writes the corpus as one JSONL file plus an indented manifest,
// both named after the company slug.
func Save(outDir string, exps []store.Experience, manifest Manifest) error {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}

	slug := companySlug(manifest.Company)
	jsonlPath := filepath.Join(outDir, fmt.Sprintf("%s.jsonl", slug))
	manifestPath := filepath.Join(outDir, fmt.Sprintf("%s_manifest.json", slug))

	f, err := os.Create(jsonlPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, e := range exps {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fm, err := os.Create(manifestPath)
	if err != nil {
		return err
	}
	defer fm.Close()

	encM := json.NewEncoder(fm)
	encM.SetIndent("", "  ")
	return encM.Encode(manifest)
}
