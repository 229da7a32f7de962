package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCountsOutcomes(t *testing.T) {
	r := New()
	r.Mutation("create", "ok")
	r.Mutation("create", "ok")
	r.Mutation("edit", "denied")
	r.Annotations(2)

	if count := testutil.CollectAndCount(r.mutations); count != 2 {
		t.Errorf("Expected 2 label combinations, got %d", count)
	}
	expected := `
		# HELP annotator_mutations_total Annotation mutations by operation and outcome
		# TYPE annotator_mutations_total counter
		annotator_mutations_total{op="create",outcome="ok"} 2
		annotator_mutations_total{op="edit",outcome="denied"} 1
	`
	if err := testutil.CollectAndCompare(r.mutations, strings.NewReader(expected)); err != nil {
		t.Errorf("Unexpected metric value: %v", err)
	}
	if got := testutil.ToFloat64(r.count); got != 2 {
		t.Errorf("annotations gauge = %v", got)
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.Mutation("delete", "ok")
	r.Annotations(3)
}

func TestHandlerExposesRegistry(t *testing.T) {
	r := New()
	r.Mutation("delete", "unknown_id")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `annotator_mutations_total{op="delete",outcome="unknown_id"} 1`) {
		t.Fatalf("metrics body missing counter:\n%s", body)
	}
	if !strings.Contains(string(body), "annotator_annotations 0") {
		t.Fatalf("metrics body missing gauge:\n%s", body)
	}
}
