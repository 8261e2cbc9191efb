package retriever

import "encoding/json"

const (
	// maxSampleLogs bounds the raw matched texts included in a summary.
	maxSampleLogs = 10
	// maxColumnValues bounds distinct observed values per metadata key.
	maxColumnValues = 5
)

// SearchSummary is the digest of a semantic search handed back to the
// reasoning agent: a few raw samples, the distinct values observed per
// metadata key and the total match count.
type SearchSummary struct {
	SampleLogs  []string            `json:"sample_logs"`
	ColumnsInfo map[string][]string `json:"columns_info"`
	TotalFound  int                 `json:"total_found"`
}

// Summarize condenses matches into a summary. Value order within a key
// follows first observation across the ranked matches.
func Summarize(matches []Match) SearchSummary {
	summary := SearchSummary{
		SampleLogs:  make([]string, 0, maxSampleLogs),
		ColumnsInfo: make(map[string][]string),
		TotalFound:  len(matches),
	}

	seen := make(map[string]map[string]bool)
	for _, m := range matches {
		if len(summary.SampleLogs) < maxSampleLogs {
			summary.SampleLogs = append(summary.SampleLogs, m.Text)
		}
		for key, value := range m.Metadata {
			if value == "" {
				continue
			}
			if seen[key] == nil {
				seen[key] = make(map[string]bool)
			}
			if seen[key][value] || len(summary.ColumnsInfo[key]) >= maxColumnValues {
				continue
			}
			seen[key][value] = true
			summary.ColumnsInfo[key] = append(summary.ColumnsInfo[key], value)
		}
	}
	return summary
}

// JSON renders the summary for tool-call responses.
func (s SearchSummary) JSON() string {
	data, err := json.Marshal(s)
	if err != nil {
		return `{"total_found":0,"sample_logs":[],"columns_info":{}}`
	}
	return string(data)
}
