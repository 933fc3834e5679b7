// Package batch fans goods/services comparisons out to the model in small
// concurrent groups, with a pause between groups.
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fleveque/trademark-service/internal/metrics"
	"github.com/fleveque/trademark-service/internal/model"
)

// Defaults for the group size and the pause between groups.
const (
	DefaultConcurrency = 3
	DefaultDelay       = time.Second
)

// Assessor produces the verdict for one goods/services pair.
// *assessment.Assessor satisfies it.
type Assessor interface {
	BuildGoodServiceLikelihoodAssessment(
		ctx context.Context,
		applicantGood, opponentGood model.GoodService,
		marks *model.MarkSimilarityAssessment,
	) (*model.GoodServiceLikelihoodAssessment, error)
}

// Pair is one applicant/opponent combination.
type Pair struct {
	Applicant model.GoodService `json:"applicant"`
	Opponent  model.GoodService `json:"opponent"`
}

// Outcome is the result of one pair: an assessment or an error, never both.
type Outcome struct {
	Pair       Pair                                   `json:"pair"`
	Assessment *model.GoodServiceLikelihoodAssessment `json:"assessment,omitempty"`
	Err        error                                  `json:"-"`
}

// Result holds one outcome per input pair, in input order, plus counters.
type Result struct {
	BatchID   string
	Outcomes  []Outcome
	Total     int
	Succeeded int
	Failed    int
	Groups    int
}

// Assessments returns the successful assessments in input order. Failed
// pairs are absent here and counted in Failed.
func (r *Result) Assessments() []*model.GoodServiceLikelihoodAssessment {
	out := make([]*model.GoodServiceLikelihoodAssessment, 0, r.Succeeded)
	for _, o := range r.Outcomes {
		if o.Err == nil && o.Assessment != nil {
			out = append(out, o.Assessment)
		}
	}
	return out
}

// Failures returns the failed outcomes in input order.
func (r *Result) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

// Combinations builds the applicant x opponent work list, applicant-major.
func Combinations(applicantGoods, opponentGoods []model.GoodService) []Pair {
	pairs := make([]Pair, 0, len(applicantGoods)*len(opponentGoods))
	for _, a := range applicantGoods {
		for _, o := range opponentGoods {
			pairs = append(pairs, Pair{Applicant: a, Opponent: o})
		}
	}
	return pairs
}

// Processor runs pairs in sequential groups of concurrency pairs each.
// Under Strict the first failure cancels the group and fails the batch;
// under Lenient failures are recorded and processing continues.
type Processor struct {
	assessor    Assessor
	policy      model.FailurePolicy
	concurrency int
	delay       time.Duration
	metrics     *metrics.Metrics
	logger      *zap.Logger

	// wait pauses between groups; replaced in tests.
	wait func(ctx context.Context, d time.Duration) error
}

// NewProcessor creates a Processor. Non-positive concurrency means
// DefaultConcurrency; a negative delay means none. m may be nil.
func NewProcessor(
	assessor Assessor,
	policy model.FailurePolicy,
	concurrency int,
	delay time.Duration,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Processor {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if delay < 0 {
		delay = 0
	}
	return &Processor{
		assessor:    assessor,
		policy:      policy,
		concurrency: concurrency,
		delay:       delay,
		metrics:     m,
		logger:      logger,
		wait:        sleep,
	}
}

// Process assesses every applicant x opponent pair against marks.
func (p *Processor) Process(
	ctx context.Context,
	applicantGoods, opponentGoods []model.GoodService,
	marks *model.MarkSimilarityAssessment,
) (*Result, error) {
	pairs := Combinations(applicantGoods, opponentGoods)
	n := len(pairs)

	res := &Result{
		BatchID:  uuid.NewString()[:8],
		Outcomes: make([]Outcome, n),
		Total:    n,
		Groups:   (n + p.concurrency - 1) / p.concurrency,
	}
	log := p.logger.With(zap.String("batch_id", res.BatchID))
	log.Info("starting batch processing",
		zap.Int("applicant_goods", len(applicantGoods)),
		zap.Int("opponent_goods", len(opponentGoods)),
		zap.Int("combinations", n),
		zap.Int("groups", res.Groups),
		zap.String("policy", p.policy.String()),
	)

	for start := 0; start < n; start += p.concurrency {
		end := min(start+p.concurrency, n)
		group := start/p.concurrency + 1
		glog := log.With(zap.Int("group", group), zap.Int("groups", res.Groups))

		began := time.Now()
		if err := p.runGroup(ctx, pairs, start, end, marks, res.Outcomes, glog); err != nil {
			glog.Error("batch aborted", zap.Error(err))
			return nil, err
		}

		succeeded, failed := countOutcomes(res.Outcomes[start:end])
		glog.Info("group complete",
			zap.Duration("duration", time.Since(began)),
			zap.Int("succeeded", succeeded),
			zap.Int("failed", failed),
		)

		if end < n {
			glog.Info("waiting before next group", zap.Duration("delay", p.delay))
			if err := p.wait(ctx, p.delay); err != nil {
				return nil, err
			}
		}
	}

	res.Succeeded, res.Failed = countOutcomes(res.Outcomes)
	p.metrics.ObserveBatch(res.Succeeded, res.Failed)

	rate := 0.0
	if n > 0 {
		rate = float64(res.Succeeded) / float64(n) * 100
	}
	log.Info("batch processing complete",
		zap.Int("succeeded", res.Succeeded),
		zap.Int("total", n),
		zap.Float64("success_rate_pct", rate),
	)
	return res, nil
}

// runGroup assesses pairs[start:end] concurrently and writes each outcome at
// its input index, so no two goroutines share a slot.
func (p *Processor) runGroup(
	ctx context.Context,
	pairs []Pair,
	start, end int,
	marks *model.MarkSimilarityAssessment,
	outcomes []Outcome,
	log *zap.Logger,
) error {
	for i := start; i < end; i++ {
		log.Info("item",
			zap.Int("item", i-start+1),
			zap.String("applicant_term", pairs[i].Applicant.Term),
			zap.String("opponent_term", pairs[i].Opponent.Term),
		)
	}

	if p.policy == model.Strict {
		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				a, err := p.assessor.BuildGoodServiceLikelihoodAssessment(gctx, pairs[i].Applicant, pairs[i].Opponent, marks)
				outcomes[i] = Outcome{Pair: pairs[i], Assessment: a, Err: err}
				if err != nil {
					return fmt.Errorf("pair %d (%q vs %q): %w", i+1, pairs[i].Applicant.Term, pairs[i].Opponent.Term, err)
				}
				return nil
			})
		}
		return g.Wait()
	}

	var g errgroup.Group
	for i := start; i < end; i++ {
		g.Go(func() error {
			a, err := p.assessor.BuildGoodServiceLikelihoodAssessment(ctx, pairs[i].Applicant, pairs[i].Opponent, marks)
			outcomes[i] = Outcome{Pair: pairs[i], Assessment: a, Err: err}
			if err != nil {
				log.Error("item failed", zap.Int("item", i-start+1), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	// Lenient keeps going past pair failures, not past a cancelled request.
	return ctx.Err()
}

func countOutcomes(outcomes []Outcome) (succeeded, failed int) {
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		} else {
			succeeded++
		}
	}
	return succeeded, failed
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
