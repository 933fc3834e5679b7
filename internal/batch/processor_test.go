package batch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/fleveque/trademark-service/internal/model"
)

var errModel = errors.New("model unavailable")

// fakeAssessor answers every pair, failing the ones whose applicant term is in fail.
type fakeAssessor struct {
	fail map[string]bool

	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (f *fakeAssessor) BuildGoodServiceLikelihoodAssessment(
	_ context.Context,
	applicant, opponent model.GoodService,
	_ *model.MarkSimilarityAssessment,
) (*model.GoodServiceLikelihoodAssessment, error) {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	if f.fail[applicant.Term+"/"+opponent.Term] {
		return nil, errModel
	}
	return &model.GoodServiceLikelihoodAssessment{ApplicantGood: applicant, OpponentGood: opponent}, nil
}

func goods(terms ...string) []model.GoodService {
	out := make([]model.GoodService, len(terms))
	for i, t := range terms {
		out[i] = model.GoodService{Term: t, NiceClass: 9}
	}
	return out
}

type waitRecorder struct {
	mu        sync.Mutex
	durations []time.Duration
	callsSeen []int32
	assessor  *fakeAssessor
}

func (w *waitRecorder) wait(_ context.Context, d time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.durations = append(w.durations, d)
	w.callsSeen = append(w.callsSeen, w.assessor.calls.Load())
	return nil
}

func newTestProcessor(a *fakeAssessor, policy model.FailurePolicy) (*Processor, *waitRecorder) {
	p := NewProcessor(a, policy, 3, time.Second, nil, zap.NewNop())
	w := &waitRecorder{assessor: a}
	p.wait = w.wait
	return p, w
}

func TestProcess_GroupsAndDelay(t *testing.T) {
	a := &fakeAssessor{}
	p, w := newTestProcessor(a, model.Lenient)

	res, err := p.Process(context.Background(), goods("a1", "a2"), goods("o1", "o2", "o3"), &model.MarkSimilarityAssessment{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Total != 6 || len(res.Outcomes) != 6 {
		t.Errorf("Total = %d, outcomes = %d, want 6", res.Total, len(res.Outcomes))
	}
	if res.Groups != 2 {
		t.Errorf("Groups = %d, want 2", res.Groups)
	}
	if a.calls.Load() != 6 {
		t.Errorf("assessor called %d times, want 6", a.calls.Load())
	}
	if a.maxSeen.Load() > 3 {
		t.Errorf("max concurrency = %d, want <= 3", a.maxSeen.Load())
	}

	if len(w.durations) != 1 {
		t.Fatalf("expected exactly one delay between groups, got %d", len(w.durations))
	}
	if w.durations[0] != time.Second {
		t.Errorf("delay = %v, want 1s", w.durations[0])
	}
	if w.callsSeen[0] != 3 {
		t.Errorf("delay happened after %d calls, want 3 (group 1 fully done)", w.callsSeen[0])
	}
}

func TestProcess_PreservesInputOrder(t *testing.T) {
	a := &fakeAssessor{}
	p, _ := newTestProcessor(a, model.Strict)

	res, err := p.Process(context.Background(), goods("a1", "a2"), goods("o1", "o2", "o3"), &model.MarkSimilarityAssessment{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := Combinations(goods("a1", "a2"), goods("o1", "o2", "o3"))
	for i, got := range res.Assessments() {
		if got.ApplicantGood != want[i].Applicant || got.OpponentGood != want[i].Opponent {
			t.Errorf("assessment %d = %s/%s, want %s/%s", i,
				got.ApplicantGood.Term, got.OpponentGood.Term, want[i].Applicant.Term, want[i].Opponent.Term)
		}
	}
}

func TestProcess_StrictFailsBatch(t *testing.T) {
	a := &fakeAssessor{fail: map[string]bool{"a1/o2": true}}
	p, _ := newTestProcessor(a, model.Strict)

	res, err := p.Process(context.Background(), goods("a1", "a2"), goods("o1", "o2", "o3"), &model.MarkSimilarityAssessment{})
	if err == nil {
		t.Fatal("expected strict batch to fail")
	}
	if !errors.Is(err, errModel) {
		t.Errorf("expected the pair error to propagate, got %v", err)
	}
	if res != nil {
		t.Error("expected no result on failure")
	}
	if a.calls.Load() > 3 {
		t.Errorf("expected the second group to never start, got %d calls", a.calls.Load())
	}
}

func TestProcess_LenientDropsAndCounts(t *testing.T) {
	a := &fakeAssessor{fail: map[string]bool{"a1/o2": true}}
	p, _ := newTestProcessor(a, model.Lenient)

	res, err := p.Process(context.Background(), goods("a1", "a2"), goods("o1", "o2", "o3"), &model.MarkSimilarityAssessment{})
	if err != nil {
		t.Fatalf("lenient batch should not fail, got %v", err)
	}
	if res.Succeeded != 5 || res.Failed != 1 {
		t.Errorf("Succeeded/Failed = %d/%d, want 5/1", res.Succeeded, res.Failed)
	}

	assessments := res.Assessments()
	if len(assessments) != 5 {
		t.Fatalf("expected 5 assessments, got %d", len(assessments))
	}
	for _, got := range assessments {
		if got.ApplicantGood.Term == "a1" && got.OpponentGood.Term == "o2" {
			t.Error("failed pair should be absent from assessments")
		}
	}

	failures := res.Failures()
	if len(failures) != 1 || failures[0].Pair.Opponent.Term != "o2" || !errors.Is(failures[0].Err, errModel) {
		t.Errorf("unexpected failures: %+v", failures)
	}
}

func TestProcess_Empty(t *testing.T) {
	a := &fakeAssessor{}
	p, w := newTestProcessor(a, model.Strict)

	res, err := p.Process(context.Background(), nil, goods("o1"), &model.MarkSimilarityAssessment{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 0 || res.Groups != 0 || len(res.Assessments()) != 0 {
		t.Errorf("unexpected result for empty input: %+v", res)
	}
	if a.calls.Load() != 0 || len(w.durations) != 0 {
		t.Error("expected no calls and no delay")
	}
}

func TestProcess_SingleGroupNoDelay(t *testing.T) {
	a := &fakeAssessor{}
	p, w := newTestProcessor(a, model.Lenient)

	if _, err := p.Process(context.Background(), goods("a1"), goods("o1", "o2", "o3"), &model.MarkSimilarityAssessment{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.durations) != 0 {
		t.Errorf("expected no delay after the last group, got %d", len(w.durations))
	}
}

func TestProcess_CancelledContextStopsLenientBatch(t *testing.T) {
	a := &fakeAssessor{}
	p := NewProcessor(a, model.Lenient, 3, time.Hour, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	p.wait = func(ctx context.Context, d time.Duration) error {
		cancel()
		return sleep(ctx, d)
	}

	_, err := p.Process(ctx, goods("a1", "a2"), goods("o1", "o2", "o3"), &model.MarkSimilarityAssessment{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if a.calls.Load() != 3 {
		t.Errorf("expected only the first group to run, got %d calls", a.calls.Load())
	}
}

func TestNewProcessorDefaults(t *testing.T) {
	p := NewProcessor(&fakeAssessor{}, model.Lenient, 0, -time.Second, nil, zap.NewNop())
	if p.concurrency != DefaultConcurrency {
		t.Errorf("concurrency = %d, want %d", p.concurrency, DefaultConcurrency)
	}
	if p.delay != 0 {
		t.Errorf("delay = %v, want 0", p.delay)
	}
}
