package observability

import (
	"net/http/httptest"
	"strings"
	"testing"

	"agrivote/contexts/farmer-advisory/question-lifecycle/domain/entities"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestLifecycleMetricsCounters(t *testing.T) {
	metrics := NewLifecycleMetrics()

	metrics.QuestionTransitioned(entities.QuestionStatusInReview, entities.QuestionStatusReadyForModerator)
	metrics.QuestionTransitioned(entities.QuestionStatusInReview, entities.QuestionStatusReadyForModerator)
	metrics.AllocationCompleted(entities.DomainPest, 3)
	metrics.AllocationCompleted(entities.DomainPest, 0)
	metrics.CommandFailed("submit_answer", "invariant")

	transitions := testutil.ToFloat64(metrics.transitions.WithLabelValues("in_review", "ready_for_moderator"))
	if transitions != 2 {
		t.Fatalf("expected 2 transitions, got %v", transitions)
	}
	if got := testutil.ToFloat64(metrics.allocations.WithLabelValues("pest", "empty")); got != 1 {
		t.Fatalf("expected 1 empty allocation, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.allocations.WithLabelValues("pest", "staffed")); got != 1 {
		t.Fatalf("expected 1 staffed allocation, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.failures.WithLabelValues("submit_answer", "invariant")); got != 1 {
		t.Fatalf("expected 1 failure, got %v", got)
	}
}

func TestLifecycleMetricsHandlerExposesRegistry(t *testing.T) {
	metrics := NewLifecycleMetrics()
	metrics.AnswerScored(entities.DomainSoil, 75)

	if count := testutil.CollectAndCount(metrics.answerQuality); count != 1 {
		t.Fatalf("expected one quality series, got %d", count)
	}

	recorder := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(recorder, httptest.NewRequest("GET", "/metrics", nil))
	if recorder.Code != 200 {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), "agrivote_answer_quality_score_count") {
		t.Fatalf("expected quality histogram in exposition")
	}
}
