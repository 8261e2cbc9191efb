package queryplan

import "encoding/json"

// ResultType discriminates the three result variants plus the error variant.
type ResultType string

const (
	// ResultFilteredLogs carries a total count and a capped raw-row sample.
	ResultFilteredLogs ResultType = "filtered_logs"
	// ResultAggregation carries per-group counts only.
	ResultAggregation ResultType = "aggregation"
	// ResultGroupedLogs carries per-group counts plus small samples.
	ResultGroupedLogs ResultType = "grouped_logs"
	// ResultError carries a human-readable validation failure.
	ResultError ResultType = "error"
)

// Result is the outcome of one plan execution. Exactly one variant is
// populated per execution. Group and sample ordering is not contractual.
type Result struct {
	Type    ResultType          `json:"type"`
	Count   int                 `json:"count"`
	Logs    []map[string]string `json:"logs,omitempty"`
	GroupBy string              `json:"group_by,omitempty"`
	Groups  []GroupRow          `json:"groups,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// GroupRow is one distinct group value with its cardinality and, for
// grouped_logs results, up to GroupSampleCap member rows in store order.
type GroupRow struct {
	Value  string              `json:"value"`
	Count  int                 `json:"count"`
	Sample []map[string]string `json:"sample,omitempty"`
}

// IsError reports whether the result is the error variant.
func (r Result) IsError() bool {
	return r.Type == ResultError
}

// JSON renders the result for tool-call responses.
func (r Result) JSON() string {
	data, err := json.Marshal(r)
	if err != nil {
		return `{"type":"error","error":"unencodable result"}`
	}
	return string(data)
}

func errorResult(msg string) Result {
	return Result{Type: ResultError, Error: msg}
}
