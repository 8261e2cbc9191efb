// Package queryplan defines the declarative query plan produced by the
// natural-language translator and executes it deterministically against a log
// store. Execution is a pure function of the plan and the store snapshot.
package queryplan

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TimeRangeKey is the filter key selecting an inclusive range over the full
// timestamp column.
const TimeRangeKey = "timestamp_full_range"

// ExactSuffix marks exact-match filter keys of the form "<column>_exact".
const ExactSuffix = "_exact"

// Plan is a request-scoped query description. The zero value is the empty
// plan: no filters, no aggregation, meaning "return everything".
type Plan struct {
	Filters     Filters      `json:"filters,omitempty"`
	Aggregation *Aggregation `json:"aggregation,omitempty"`
}

// TimeRange bounds the full timestamp column. A nil or empty bound is
// open-ended on that side. Both bounds are inclusive.
type TimeRange struct {
	Start *string `json:"start"`
	End   *string `json:"end"`
}

// Aggregation describes a grouping request over the filtered rows.
type Aggregation struct {
	GroupBy    string `json:"group_by"`
	Count      bool   `json:"count"`
	TimeBucket string `json:"time_bucket,omitempty"`
}

// Filters holds the decoded filter set: at most one time range plus any number
// of exact-match filters keyed by column name.
type Filters struct {
	TimeRange *TimeRange
	Exact     map[string]string
}

// Empty reports whether no filters are set.
func (f Filters) Empty() bool {
	return f.TimeRange == nil && len(f.Exact) == 0
}

// UnmarshalJSON decodes the translator's filter object. Recognized keys are
// the time-range key and "<column>_exact" entries; anything else is ignored.
func (f *Filters) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	for key, val := range raw {
		switch {
		case key == TimeRangeKey:
			var tr TimeRange
			if err := json.Unmarshal(val, &tr); err != nil {
				continue
			}
			if emptyBound(tr.Start) {
				tr.Start = nil
			}
			if emptyBound(tr.End) {
				tr.End = nil
			}
			if tr.Start != nil || tr.End != nil {
				f.TimeRange = &tr
			}
		case strings.HasSuffix(key, ExactSuffix):
			column := strings.TrimSuffix(key, ExactSuffix)
			if column == "" {
				continue
			}
			var v any
			if err := json.Unmarshal(val, &v); err != nil || v == nil {
				continue
			}
			if f.Exact == nil {
				f.Exact = make(map[string]string)
			}
			f.Exact[column] = strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return nil
}

// MarshalJSON renders the filters back into the wire shape.
func (f Filters) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(f.Exact)+1)
	if f.TimeRange != nil {
		out[TimeRangeKey] = f.TimeRange
	}
	for col, v := range f.Exact {
		out[col+ExactSuffix] = v
	}
	return json.Marshal(out)
}

func emptyBound(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == "" || strings.EqualFold(strings.TrimSpace(*s), "null")
}

// Decode parses translator output into a plan. The input may be wrapped in
// markdown code fences. Any decode failure degrades to the empty plan rather
// than returning an error; the executor treats the empty plan as a full scan.
func Decode(data []byte) Plan {
	text := StripFences(string(data))
	if text == "" {
		return Plan{}
	}

	var plan Plan
	if err := json.Unmarshal([]byte(text), &plan); err != nil {
		return Plan{}
	}
	return plan
}

// StripFences removes a leading ```json (or bare ```) fence and a trailing
// ``` fence, the way completion models like to frame JSON output.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimSpace(strings.TrimPrefix(text, "```json"))
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimSpace(strings.TrimPrefix(text, "```"))
	}
	if strings.HasSuffix(text, "```") {
		text = strings.TrimSpace(strings.TrimSuffix(text, "```"))
	}
	return text
}
