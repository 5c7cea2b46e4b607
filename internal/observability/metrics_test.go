package observability

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/thomasrohde/bindeval/pkg/evaluator"
)

var _ evaluator.Metrics = (*Metrics)(nil)

func TestRecordersAreIsolated(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.RecordAssign("ok")
	a.RecordAssign("ok")
	a.RecordAssign("immutable")

	if got := testutil.ToFloat64(a.assignments.WithLabelValues("ok")); got != 2 {
		t.Errorf("a ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(a.assignments.WithLabelValues("immutable")); got != 1 {
		t.Errorf("a immutable = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(b.assignments); got != 0 {
		t.Errorf("b has %d assignment series, want 0", got)
	}
}

func TestDeclareLabels(t *testing.T) {
	m := NewMetrics()
	m.RecordDeclare("i32")
	m.RecordDeclare("[i32; 5]")
	m.RecordDeclare("[char; 2]")
	m.RecordDeclare("")

	for label, want := range map[string]float64{"i32": 1, "seq": 2, "untyped": 1} {
		if got := testutil.ToFloat64(m.declarations.WithLabelValues(label)); got != want {
			t.Errorf("declarations{type=%q} = %v, want %v", label, got, want)
		}
	}
}

func TestScopeDepthAndConversions(t *testing.T) {
	m := NewMetrics()
	m.SetScopeDepth(3)
	m.SetScopeDepth(1)
	m.RecordConversion("u8", "overflow")
	m.RecordAccess("index")

	if got := testutil.ToFloat64(m.scopeDepth); got != 1 {
		t.Errorf("scope_depth = %v, want 1", got)
	}
	expected := `
# HELP bnd_convert_conversions_total Text conversions, by target type and result.
# TYPE bnd_convert_conversions_total counter
bnd_convert_conversions_total{result="overflow",target="u8"} 1
`
	if err := testutil.CollectAndCompare(m.conversions, strings.NewReader(expected)); err != nil {
		t.Error(err)
	}
}

func TestWriteToTextfile(t *testing.T) {
	m := NewMetrics()
	m.RecordAccess("ok")
	path := filepath.Join(t.TempDir(), "bnd.prom")
	if err := m.WriteToTextfile(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `bnd_sequence_accesses_total{result="ok"} 1`) {
		t.Errorf("textfile:\n%s", data)
	}
}
