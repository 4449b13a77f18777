package topics

import (
	"cmp"
	_ "embed"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"interview-intel/internal/decay"
)

//go:embed taxonomy.yaml
var taxonomyYAML []byte

// categoryMultipliers weight topic importance by how much interview
// outcomes hinge on the category.
var categoryMultipliers = map[string]float64{
	"algorithms":           1.6,
	"data_structures":      1.5,
	"system_design":        1.8,
	"programming_concepts": 1.3,
	"technologies":         1.1,
}

type taxonomyTopic struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

type taxonomyCategory struct {
	Name   string          `yaml:"name"`
	Topics []taxonomyTopic `yaml:"topics"`
}

type taxonomyFile struct {
	Categories []taxonomyCategory `yaml:"categories"`
}

type keywordInfo struct {
	keyword string
	topic   string // category.topic key
	re      *regexp.Regexp
}

// Extractor turns raw experience text into scored topics plus round,
// difficulty, and advice analysis. All patterns are compiled once at
// construction; the extractor is read-only afterwards and safe for
// concurrent use.
type Extractor struct {
	calc     *decay.Calculator
	keywords []keywordInfo

	contextPatterns    []*regexp.Regexp
	advancedPatterns   map[string][]*regexp.Regexp
	difficultyPatterns map[string][]*regexp.Regexp
	indicatorPatterns  []*regexp.Regexp
	roundPatterns      map[string][]*regexp.Regexp
	insightPatterns    []*regexp.Regexp

	stripRe    *regexp.Regexp
	collapseRe *regexp.Regexp
}

// NewExtractor parses the embedded taxonomy and compiles every pattern.
func NewExtractor(calc *decay.Calculator) (*Extractor, error) {
	var file taxonomyFile
	if err := yaml.Unmarshal(taxonomyYAML, &file); err != nil {
		return nil, fmt.Errorf("parsing taxonomy: %w", err)
	}

	e := &Extractor{
		calc:       calc,
		stripRe:    regexp.MustCompile(`[^\w\s.]`),
		collapseRe: regexp.MustCompile(`\s+`),
	}

	// Flatten the taxonomy into keyword lookups. A keyword listed under
	// two topics belongs to the later one.
	owner := make(map[string]int)
	for _, category := range file.Categories {
		for _, topic := range category.Topics {
			key := category.Name + "." + topic.Name
			for _, keyword := range topic.Keywords {
				kw := strings.ToLower(keyword)
				re, err := regexp.Compile(`\b` + regexp.QuoteMeta(kw) + `\b`)
				if err != nil {
					return nil, fmt.Errorf("keyword %q: %w", keyword, err)
				}
				info := keywordInfo{keyword: kw, topic: key, re: re}
				if i, seen := owner[kw]; seen {
					e.keywords[i] = info
				} else {
					owner[kw] = len(e.keywords)
					e.keywords = append(e.keywords, info)
				}
			}
		}
	}

	e.contextPatterns = compileAll(
		// Algorithm discussion.
		`implement(?:ed|ing)?\s+(\w+(?:\s+\w+){0,2})`,
		`(?:write|code|solve)\s+(?:a|an)?\s*(\w+(?:\s+\w+){0,2})\s+(?:algorithm|solution)`,
		`(?:asked|given)\s+(?:a|an)?\s*(\w+(?:\s+\w+){0,2})\s+(?:problem|question)`,
		// Data structure usage.
		`us(?:e|ed|ing)\s+(?:a|an)?\s*(\w+(?:\s+\w+){0,2})`,
		`(?:maintain|store|keep)\s+(?:data|elements|items)\s+in\s+(?:a|an)?\s*(\w+(?:\s+\w+){0,2})`,
		// System design discussion.
		`design(?:ed|ing)?\s+(?:a|an)?\s*(\w+(?:\s+\w+){0,2})\s+(?:system|service|application)`,
		`(?:scale|scaling)\s+(?:the\s+)?(\w+(?:\s+\w+){0,2})`,
		`(?:handle|managing)\s+(\w+(?:\s+\w+){0,2})\s+(?:load|traffic|requests)`,
	)

	e.advancedPatterns = map[string][]*regexp.Regexp{
		"algorithms.dynamic_programming": compileAll(
			`dp\s*\[`,
			`memoization|tabulation`,
			`optimal substructure`,
			`overlapping subproblems`,
			`knapsack|lis|lcs|edit.distance`,
		),
		"algorithms.two_pointers": compileAll(
			`two.pointer`,
			`left.*right.*pointer`,
			`sliding.window`,
			`fast.*slow.*pointer`,
		),
		"system_design.scalability": compileAll(
			`horizontal.*scaling`,
			`vertical.*scaling`,
			`scale.*million.*users`,
			`handle.*concurrent.*requests`,
			`load.*balancing`,
		),
		"data_structures.tree": compileAll(
			`binary.*search.*tree`,
			`left.*child.*right.*child`,
			`root.*node.*leaf`,
			`inorder.*preorder.*postorder`,
			`tree.*traversal`,
		),
	}

	e.difficultyPatterns = map[string][]*regexp.Regexp{
		"easy": compileAll(
			`simple|easy|basic|straightforward|trivial`,
			`beginner|junior|entry.level`,
			`(?:took|solved|finished)\s+(?:quickly|fast|easily)`,
		),
		"medium": compileAll(
			`medium|moderate|intermediate|standard`,
			`(?:took|required)\s+(?:some|considerable)\s+(?:time|thought|effort)`,
			`(?:tricky|challenging)\s+(?:but|however)\s+(?:manageable|doable)`,
		),
		"hard": compileAll(
			`hard|difficult|challenging|tough|complex|advanced`,
			`struggled|difficulty|trouble|hard time`,
			`(?:senior|experienced|expert).level`,
			`(?:took|required)\s+(?:long|much|lot of)\s+(?:time|effort|thinking)`,
		),
	}

	e.indicatorPatterns = compileAll(
		`(?:took|spent|required)\s+(\d+)\s*(?:hours?|minutes?|days?)`,
		`quick|fast|quickly|immediately`,
		`long|lengthy|extended|struggled|difficult`,
	)

	e.roundPatterns = map[string][]*regexp.Regexp{
		"coding":               compileKeywords("coding", "algorithm", "data structure", "leetcode", "hackerrank"),
		"system_design":        compileKeywords("system design", "architecture", "scalability", "design"),
		"behavioral":           compileKeywords("behavioral", "culture fit", "leadership", "teamwork", "conflict"),
		"technical_discussion": compileKeywords("technical discussion", "past projects", "experience", "deep dive"),
	}

	e.insightPatterns = compileAll(
		`(?:tip|advice|suggestion|recommendation|key|important)[:.]?\s*(.{20,100})`,
		`(?:focus on|prepare|study|practice)\s+(.{20,100})`,
		`(?:learnt|learned|realized|understood)\s+(.{20,100})`,
	)

	return e, nil
}

func compileAll(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(p)
	}
	return compiled
}

func compileKeywords(keywords ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(keywords))
	for i, kw := range keywords {
		compiled[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
	}
	return compiled
}

// Extract runs the full pipeline over one experience.
func (e *Extractor) Extract(in Input) Result {
	if in.Content == "" {
		return Result{Rounds: map[string]RoundClassification{}}
	}

	text := e.preprocess(in.Title + " " + in.Content)

	// 1. Three extraction passes merged into raw counts per topic.
	counts := e.extractByKeywords(text)
	mergeCounts(counts, e.extractByContext(text))
	mergeCounts(counts, e.extractByPatterns(text))

	// 2. Score and sort.
	scored := e.score(counts, text, in.ExperienceDate)

	// 3. Ancillary analysis over the same preprocessed text.
	result := Result{
		Topics:      scored,
		Difficulty:  e.assessDifficulty(text),
		Rounds:      e.classifyRounds(text),
		KeyInsights: e.extractInsights(text),
		Metadata: Metadata{
			TotalTopicsFound: len(scored),
			TextLength:       len(text),
			ProcessedAt:      time.Now().UTC(),
			ConfidenceScore:  overallConfidence(scored),
		},
	}
	return result
}

// preprocess lowercases, strips punctuation except word characters,
// whitespace and periods, and collapses runs of whitespace.
func (e *Extractor) preprocess(text string) string {
	text = strings.ToLower(text)
	text = e.stripRe.ReplaceAllString(text, " ")
	text = e.collapseRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func (e *Extractor) extractByKeywords(text string) map[string]int {
	counts := make(map[string]int)
	for _, kw := range e.keywords {
		if n := len(kw.re.FindAllString(text, -1)); n > 0 {
			counts[kw.topic] += n
		}
	}
	return counts
}

// extractByContext captures phrases around verbs like "implement" and
// "design" and credits every keyword the phrase overlaps.
func (e *Extractor) extractByContext(text string) map[string]int {
	counts := make(map[string]int)
	for _, re := range e.contextPatterns {
		for _, match := range re.FindAllStringSubmatch(text, -1) {
			if len(match) < 2 {
				continue
			}
			term := strings.TrimSpace(match[1])
			if term == "" {
				continue
			}
			for _, kw := range e.keywords {
				if strings.Contains(term, kw.keyword) || strings.Contains(kw.keyword, term) {
					counts[kw.topic]++
				}
			}
		}
	}
	return counts
}

func (e *Extractor) extractByPatterns(text string) map[string]int {
	counts := make(map[string]int)
	for topic, patterns := range e.advancedPatterns {
		for _, re := range patterns {
			if n := len(re.FindAllString(text, -1)); n > 0 {
				counts[topic] += n
			}
		}
	}
	return counts
}

func mergeCounts(dst, src map[string]int) {
	for topic, count := range src {
		dst[topic] += count
	}
}

func (e *Extractor) score(counts map[string]int, text string, experienceDate time.Time) []TopicScore {
	words := len(strings.Fields(text))
	timeFactor := e.calc.Weight(experienceDate)

	scored := make([]TopicScore, 0, len(counts))
	for topic, rawCount := range counts {
		var frequency float64
		if words > 0 {
			frequency = float64(rawCount) / float64(words) * 100
		}

		category, topicName, _ := strings.Cut(topic, ".")
		multiplier, ok := categoryMultipliers[category]
		if !ok {
			multiplier = 1.0
		}

		importance := frequency * multiplier * math.Log(float64(rawCount)+1)
		weighted := importance * timeFactor

		scored = append(scored, TopicScore{
			Topic:              topic,
			Category:           category,
			TopicName:          topicName,
			RawCount:           rawCount,
			FrequencyPercent:   round2(frequency),
			ImportanceScore:    round2(importance),
			WeightedImportance: round2(weighted),
			TimeFactor:         round3(timeFactor),
			Confidence:         topicConfidence(rawCount, frequency),
		})
	}

	slices.SortFunc(scored, func(a, b TopicScore) int {
		if c := cmp.Compare(b.WeightedImportance, a.WeightedImportance); c != 0 {
			return c
		}
		return cmp.Compare(a.Topic, b.Topic)
	})
	return scored
}

// topicConfidence blends mention count (cap 5) and text frequency
// (cap 2%) into one score.
func topicConfidence(rawCount int, frequency float64) float64 {
	countFactor := math.Min(float64(rawCount)/5.0, 1.0)
	frequencyFactor := math.Min(frequency/2.0, 1.0)
	return round2((countFactor + frequencyFactor) / 2)
}

func overallConfidence(scored []TopicScore) float64 {
	if len(scored) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scored {
		sum += s.Confidence
	}
	return round2(sum / float64(len(scored)))
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }
func round3(x float64) float64 { return math.Round(x*1000) / 1000 }
