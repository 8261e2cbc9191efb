package queryplan

import (
	"log"
	"time"

	"github.com/logscout-dev/logscout/pkg/logstore"
)

const (
	// FilteredSampleCap bounds the raw rows returned without aggregation.
	FilteredSampleCap = 100
	// GroupSampleCap bounds the representative rows per group.
	GroupSampleCap = 3
	// DefaultBucket is used when an unrecognized time bucket is requested.
	DefaultBucket = time.Hour
)

// bucketWidths maps the enumerated bucket names to their durations.
var bucketWidths = map[string]time.Duration{
	"1m":  time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"2h":  2 * time.Hour,
	"6h":  6 * time.Hour,
	"12h": 12 * time.Hour,
	"1d":  24 * time.Hour,
}

// BucketWidth resolves a bucket name, falling back to the 1-hour default for
// anything unrecognized. The fallback is documented permissive behavior, not
// an error.
func BucketWidth(name string) time.Duration {
	if d, ok := bucketWidths[name]; ok {
		return d
	}
	return DefaultBucket
}

// Execute runs a plan against the store: filters first, then either
// aggregation over the filtered subset or a capped raw sample. Execute never
// fails; invalid aggregation requests come back as an error-typed result.
func Execute(store *logstore.Store, plan Plan) Result {
	filtered := applyFilters(store, plan.Filters)

	if plan.Aggregation != nil {
		return aggregate(store, filtered, *plan.Aggregation)
	}

	sample := filtered
	if len(sample) > FilteredSampleCap {
		sample = sample[:FilteredSampleCap]
	}
	return Result{
		Type:  ResultFilteredLogs,
		Count: len(filtered),
		Logs:  recordMaps(sample),
	}
}

func applyFilters(store *logstore.Store, filters Filters) []logstore.Record {
	records := store.Records()
	if filters.Empty() {
		return records
	}

	var start, end time.Time
	var hasStart, hasEnd bool
	if tr := filters.TimeRange; tr != nil {
		if tr.Start != nil {
			if t, err := logstore.ParseTimestamp(*tr.Start); err == nil {
				start, hasStart = t, true
			} else {
				log.Printf("queryplan: ignoring unparseable range start %q", *tr.Start)
			}
		}
		if tr.End != nil {
			if t, err := logstore.ParseTimestamp(*tr.End); err == nil {
				end, hasEnd = t, true
			} else {
				log.Printf("queryplan: ignoring unparseable range end %q", *tr.End)
			}
		}
	}

	// Exact-match filters on columns missing from the schema are dropped.
	// This masks caller typos; the diagnostic keeps them findable.
	exact := make(map[string]string, len(filters.Exact))
	for col, want := range filters.Exact {
		if !store.HasColumn(col) {
			log.Printf("queryplan: ignoring filter on unknown column %q", col)
			continue
		}
		exact[col] = want
	}

	var out []logstore.Record
	for _, rec := range records {
		if hasStart || hasEnd {
			ts, err := rec.Timestamp()
			if err != nil {
				continue
			}
			if hasStart && ts.Before(start) {
				continue
			}
			if hasEnd && ts.After(end) {
				continue
			}
		}
		match := true
		for col, want := range exact {
			got, _ := rec.Value(col)
			if got != want {
				match = false
				break
			}
		}
		if match {
			out = append(out, rec)
		}
	}
	return out
}

func aggregate(store *logstore.Store, filtered []logstore.Record, agg Aggregation) Result {
	if agg.GroupBy == "" {
		return errorResult("group_by is required")
	}
	if !store.HasColumn(agg.GroupBy) {
		return errorResult("column not found: " + agg.GroupBy)
	}

	bucketed := agg.TimeBucket != "" && agg.GroupBy == logstore.ColumnTimestamp
	width := BucketWidth(agg.TimeBucket)

	counts := make(map[string]int)
	samples := make(map[string][]logstore.Record)
	var order []string

	for _, rec := range filtered {
		key, _ := rec.Value(agg.GroupBy)
		if bucketed {
			ts, err := rec.Timestamp()
			if err != nil {
				continue
			}
			key = ts.Truncate(width).Format("2006-01-02 15:04:05")
		}
		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		counts[key]++
		if !agg.Count && len(samples[key]) < GroupSampleCap {
			samples[key] = append(samples[key], rec)
		}
	}

	groups := make([]GroupRow, 0, len(order))
	for _, key := range order {
		row := GroupRow{Value: key, Count: counts[key]}
		if !agg.Count {
			row.Sample = recordMaps(samples[key])
		}
		groups = append(groups, row)
	}

	typ := ResultAggregation
	if !agg.Count {
		typ = ResultGroupedLogs
	}
	return Result{
		Type:    typ,
		Count:   len(filtered),
		GroupBy: agg.GroupBy,
		Groups:  groups,
	}
}

func recordMaps(records []logstore.Record) []map[string]string {
	out := make([]map[string]string, len(records))
	for i, rec := range records {
		out[i] = rec.Map()
	}
	return out
}
