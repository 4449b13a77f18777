package insights

import (
	"cmp"
	"slices"
	"time"
)

// CompanySnapshot is one company's stored per-topic insight rows, ordered by
// weighted frequency. Err carries the load failure instead of topic data.
type CompanySnapshot struct {
	Company    string
	SampleSize int
	Topics     []TopicSummary
	Err        string
}

// TopicSummary is the stored view of one topic insight row.
type TopicSummary struct {
	Topic     string  `json:"-"`
	TopicName string  `json:"topic_name"`
	Category  string  `json:"category"`
	Frequency float64 `json:"frequency"`
	Priority  string  `json:"priority"`
}

// CompanyComparison is one company's slice of the comparison response.
type CompanyComparison struct {
	Error      string                  `json:"error,omitempty"`
	Insights   map[string]TopicSummary `json:"insights,omitempty"`
	Top5Topics []string                `json:"top_5_topics,omitempty"`
	SampleSize int                     `json:"sample_size,omitempty"`
}

// CompanyTopicRef ties a shared topic back to one company's numbers.
type CompanyTopicRef struct {
	Company   string  `json:"company"`
	Frequency float64 `json:"frequency"`
	Priority  string  `json:"priority"`
}

// CommonTopic is a topic asked about by at least two of the compared companies.
type CommonTopic struct {
	Topic            string            `json:"topic"`
	Companies        []CompanyTopicRef `json:"companies"`
	AverageFrequency float64           `json:"average_frequency"`
}

// Comparison is the cross-company response bundle.
type Comparison struct {
	Companies      []string                      `json:"companies"`
	ComparisonData map[string]*CompanyComparison `json:"comparison_data"`
	CommonTopics   []CommonTopic                 `json:"common_topics"`
	GeneratedAt    time.Time                     `json:"generated_at"`
}

// Compare lines up stored insight snapshots side by side and surfaces the
// topics shared by two or more companies, sorted by average frequency.
func Compare(snapshots []CompanySnapshot) *Comparison {
	comp := &Comparison{
		Companies:      make([]string, 0, len(snapshots)),
		ComparisonData: make(map[string]*CompanyComparison, len(snapshots)),
		CommonTopics:   []CommonTopic{},
		GeneratedAt:    time.Now().UTC(),
	}

	shared := map[string][]CompanyTopicRef{}

	for _, snap := range snapshots {
		comp.Companies = append(comp.Companies, snap.Company)
		if snap.Err != "" {
			comp.ComparisonData[snap.Company] = &CompanyComparison{Error: snap.Err}
			continue
		}

		entry := &CompanyComparison{
			Insights:   make(map[string]TopicSummary, len(snap.Topics)),
			SampleSize: snap.SampleSize,
		}
		for i, ts := range snap.Topics {
			entry.Insights[ts.Topic] = ts
			if i < 5 {
				entry.Top5Topics = append(entry.Top5Topics, ts.Topic)
			}
			shared[ts.Topic] = append(shared[ts.Topic], CompanyTopicRef{
				Company:   snap.Company,
				Frequency: ts.Frequency,
				Priority:  ts.Priority,
			})
		}
		comp.ComparisonData[snap.Company] = entry
	}

	for topic, refs := range shared {
		if len(refs) < 2 {
			continue
		}
		var total float64
		for _, ref := range refs {
			total += ref.Frequency
		}
		comp.CommonTopics = append(comp.CommonTopics, CommonTopic{
			Topic:            topic,
			Companies:        refs,
			AverageFrequency: total / float64(len(refs)),
		})
	}
	slices.SortFunc(comp.CommonTopics, func(a, b CommonTopic) int {
		if a.AverageFrequency != b.AverageFrequency {
			return cmp.Compare(b.AverageFrequency, a.AverageFrequency)
		}
		return cmp.Compare(a.Topic, b.Topic)
	})

	return comp
}
