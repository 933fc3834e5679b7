package server

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/fleveque/trademark-service/internal/assessment"
	"github.com/fleveque/trademark-service/internal/batch"
	"github.com/fleveque/trademark-service/internal/config"
	"github.com/fleveque/trademark-service/internal/lexicon"
	"github.com/fleveque/trademark-service/internal/llm"
	"github.com/fleveque/trademark-service/internal/metrics"
	"github.com/fleveque/trademark-service/internal/service"
	"github.com/fleveque/trademark-service/internal/storage"
)

// Components is everything a request path needs, wired once at startup.
// The CLI builds the same graph for its online commands.
type Components struct {
	DB          *sqlx.DB
	LLMCallRepo storage.LLMCallRepository
	Metrics     *metrics.Metrics
	Lexicon     *lexicon.Lexicon
	Generator   *llm.Chain
	Service     *service.TrademarkService
}

// NewComponents opens the ledger database and builds the LLM chain, the
// assessor and the batch processor from cfg. The failure policy is read here
// and nowhere else.
func NewComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	policy, err := cfg.Assessment.Policy()
	if err != nil {
		return nil, fmt.Errorf("failure policy: %w", err)
	}

	lex, err := lexicon.LoadOrDefault(cfg.Assessment.LexiconPath)
	if err != nil {
		return nil, fmt.Errorf("loading lexicon: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DatabasePath), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	db, err := storage.NewDatabase(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	repo := storage.NewLLMCallRepository(db)

	m := metrics.New()
	chain := NewGeneratorChain(cfg.LLM, logger)

	client := llm.NewStructuredClient(chain, cfg.LLM.RatePerMinute, repo, logger,
		llm.WithObserver(m),
		llm.WithTimeout(cfg.LLM.Timeout),
	)
	assessor := assessment.NewAssessor(client, lex, policy, m, logger)
	processor := batch.NewProcessor(assessor, policy,
		cfg.Assessment.BatchConcurrency, cfg.Assessment.BatchDelay, m, logger)

	logger.Info("trademark engine ready",
		zap.String("failure_policy", policy.String()),
		zap.String("providers", chain.ProviderName()),
		zap.String("lexicon_version", lex.Version()),
		zap.Int("lexicon_size", lex.Size()),
		zap.Int("batch_concurrency", cfg.Assessment.BatchConcurrency),
		zap.Duration("batch_delay", cfg.Assessment.BatchDelay),
	)

	return &Components{
		DB:          db,
		LLMCallRepo: repo,
		Metrics:     m,
		Lexicon:     lex,
		Generator:   chain,
		Service:     service.NewTrademarkService(assessor, processor, logger),
	}, nil
}

// Close releases the database handle.
func (c *Components) Close() error {
	return c.DB.Close()
}

// NewGeneratorChain builds one pooled SDK client per provider in
// cfg.ProviderOrder. Providers without an API key are skipped; an empty chain
// answers every call with llm.ErrNoProvider.
func NewGeneratorChain(cfg config.LLMConfig, logger *zap.Logger) *llm.Chain {
	var gens []llm.Generator
	for _, name := range cfg.ProviderOrder {
		switch name {
		case "anthropic":
			if cfg.Anthropic.APIKey == "" {
				logger.Warn("skipping provider without API key", zap.String("provider", name))
				continue
			}
			gens = append(gens, llm.NewAnthropicGenerator(cfg.Anthropic.APIKey, cfg.Anthropic.Model))
		case "openai":
			if cfg.OpenAI.APIKey == "" {
				logger.Warn("skipping provider without API key", zap.String("provider", name))
				continue
			}
			gens = append(gens, llm.NewOpenAIGenerator(cfg.OpenAI.APIKey, cfg.OpenAI.Model))
		default:
			logger.Warn("unknown provider in provider_order", zap.String("provider", name))
		}
	}
	if len(gens) == 0 {
		logger.Warn("no LLM provider configured; conceptual scores fall back per failure policy")
	}
	return llm.NewChain(logger, gens...)
}
