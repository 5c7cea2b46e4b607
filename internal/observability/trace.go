package observability

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/thomasrohde/bindeval/pkg/evaluator"
)

// TraceWriter writes trace events as NDJSON. The first write error is kept
// and later events are dropped.
type TraceWriter struct {
	enc *json.Encoder
	err error
}

func NewTraceWriter(w io.Writer) *TraceWriter {
	return &TraceWriter{enc: json.NewEncoder(w)}
}

// Write is an evaluator trace callback.
func (t *TraceWriter) Write(event evaluator.TraceEvent) {
	if t.err != nil {
		return
	}
	t.err = t.enc.Encode(event)
}

func (t *TraceWriter) Err() error {
	return t.err
}

type TraceSummary struct {
	RunID        string         `json:"runId"`
	TotalEvents  int            `json:"totalEvents"`
	InvalidLines int            `json:"invalidLines,omitempty"`
	Runs         int            `json:"runs"`
	Declarations int            `json:"declarations"`
	Assignments  int            `json:"assignments"`
	Conversions  int            `json:"conversions"`
	Accesses     int            `json:"accesses"`
	Errors       int            `json:"errors"`
	ErrorsByCode map[string]int `json:"errorsByCode"`
	MaxDepth     int            `json:"maxDepth"`
	StartTime    string         `json:"startTime,omitempty"`
	EndTime      string         `json:"endTime,omitempty"`
	DurationMs   float64        `json:"durationMs"`
}

type traceEvent struct {
	Event string         `json:"event"`
	RunID string         `json:"runId"`
	TS    string         `json:"ts"`
	Data  map[string]any `json:"data,omitempty"`
}

// Summarize reads an NDJSON trace and counts its events. Lines that are not
// trace events are counted as invalid and skipped.
func Summarize(r io.Reader) (*TraceSummary, error) {
	summary := &TraceSummary{
		ErrorsByCode: make(map[string]int),
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var event traceEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil || event.Event == "" {
			summary.InvalidLines++
			continue
		}

		summary.TotalEvents++
		if summary.RunID == "" {
			summary.RunID = event.RunID
		}

		switch evaluator.TraceEventType(event.Event) {
		case evaluator.TraceRunStart:
			summary.Runs++
			if summary.StartTime == "" {
				summary.StartTime = event.TS
			}
		case evaluator.TraceRunEnd:
			summary.EndTime = event.TS
		case evaluator.TraceDeclare:
			summary.Declarations++
		case evaluator.TraceAssign:
			summary.Assignments++
		case evaluator.TraceConvert:
			summary.Conversions++
		case evaluator.TraceAccess:
			summary.Accesses++
		case evaluator.TraceScopePush:
			if d, ok := event.Data["depth"].(float64); ok && int(d) > summary.MaxDepth {
				summary.MaxDepth = int(d)
			}
		case evaluator.TraceError:
			summary.Errors++
			if code, ok := event.Data["code"].(string); ok {
				summary.ErrorsByCode[code]++
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}

	if summary.StartTime != "" && summary.EndTime != "" {
		start, err1 := time.Parse(time.RFC3339Nano, summary.StartTime)
		end, err2 := time.Parse(time.RFC3339Nano, summary.EndTime)
		if err1 == nil && err2 == nil {
			summary.DurationMs = float64(end.Sub(start).Microseconds()) / 1000
		}
	}
	return summary, nil
}

// WriteText prints the summary for people.
func (s *TraceSummary) WriteText(w io.Writer) {
	fmt.Fprintf(w, "Run: %s\n", s.RunID)
	fmt.Fprintf(w, "Events: %d (%d runs)\n", s.TotalEvents, s.Runs)
	fmt.Fprintf(w, "Declarations: %d, assignments: %d\n", s.Declarations, s.Assignments)
	fmt.Fprintf(w, "Conversions: %d, accesses: %d\n", s.Conversions, s.Accesses)
	fmt.Fprintf(w, "Max depth: %d\n", s.MaxDepth)
	fmt.Fprintf(w, "Errors: %d\n", s.Errors)
	codes := make([]string, 0, len(s.ErrorsByCode))
	for code := range s.ErrorsByCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %s: %d\n", code, s.ErrorsByCode[code])
	}
	if s.InvalidLines > 0 {
		fmt.Fprintf(w, "Skipped: %d invalid lines\n", s.InvalidLines)
	}
	if s.DurationMs > 0 {
		fmt.Fprintf(w, "Duration: %.3fms\n", s.DurationMs)
	}
}
