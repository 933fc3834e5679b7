package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/fleveque/trademark-service/internal/model"
)

// ErrNotFound is returned when a ledger row doesn't exist.
// Callers check with errors.Is(err, ErrNotFound).
var ErrNotFound = errors.New("llm call not found")

// LLMCallRepository handles persistence of the per-attempt LLM call ledger.
// It satisfies llm.CallRecorder.
type LLMCallRepository interface {
	Create(ctx context.Context, call *model.LLMCall) error
	GetByID(ctx context.Context, id int64) (*model.LLMCall, error)
	ListByRequestContext(ctx context.Context, requestContext string) ([]model.LLMCall, error)
	ListRecent(ctx context.Context, limit int) ([]model.LLMCall, error)
	Stats(ctx context.Context) (*model.LLMCallStats, error)
}

// sqliteLLMCallRepository is unexported; only the interface is public.
type sqliteLLMCallRepository struct {
	db *sqlx.DB
}

// NewLLMCallRepository creates a new SQLite-backed LLMCallRepository.
func NewLLMCallRepository(db *sqlx.DB) LLMCallRepository {
	return &sqliteLLMCallRepository{db: db}
}

func (r *sqliteLLMCallRepository) Create(ctx context.Context, call *model.LLMCall) error {
	result, err := r.db.NamedExecContext(ctx, `
		INSERT INTO llm_calls (request_context, provider, model, schema_name, attempt, temperature, success, error_message, duration_ms)
		VALUES (:request_context, :provider, :model, :schema_name, :attempt, :temperature, :success, :error_message, :duration_ms)
	`, call)
	if err != nil {
		return fmt.Errorf("recording LLM call: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting last insert id: %w", err)
	}
	call.ID = id
	return nil
}

func (r *sqliteLLMCallRepository) GetByID(ctx context.Context, id int64) (*model.LLMCall, error) {
	var call model.LLMCall
	err := r.db.GetContext(ctx, &call, "SELECT * FROM llm_calls WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting LLM call %d: %w", id, err)
	}
	return &call, nil
}

func (r *sqliteLLMCallRepository) ListByRequestContext(ctx context.Context, requestContext string) ([]model.LLMCall, error) {
	var calls []model.LLMCall
	err := r.db.SelectContext(ctx, &calls,
		"SELECT * FROM llm_calls WHERE request_context = ? ORDER BY attempt ASC, id ASC", requestContext)
	if err != nil {
		return nil, fmt.Errorf("listing LLM calls for %s: %w", requestContext, err)
	}
	return calls, nil
}

func (r *sqliteLLMCallRepository) ListRecent(ctx context.Context, limit int) ([]model.LLMCall, error) {
	var calls []model.LLMCall
	err := r.db.SelectContext(ctx, &calls,
		"SELECT * FROM llm_calls ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent LLM calls: %w", err)
	}
	return calls, nil
}

func (r *sqliteLLMCallRepository) Stats(ctx context.Context) (*model.LLMCallStats, error) {
	var byProvider []model.ProviderCallCount
	err := r.db.SelectContext(ctx, &byProvider, `
		SELECT provider,
		       COUNT(*) AS total,
		       COALESCE(SUM(CASE WHEN success THEN 0 ELSE 1 END), 0) AS failed
		FROM llm_calls
		GROUP BY provider
		ORDER BY provider
	`)
	if err != nil {
		return nil, fmt.Errorf("computing LLM call stats: %w", err)
	}

	stats := &model.LLMCallStats{ByProvider: byProvider}
	if stats.ByProvider == nil {
		stats.ByProvider = []model.ProviderCallCount{}
	}
	for _, p := range byProvider {
		stats.Total += p.Total
		stats.Failed += p.Failed
	}
	stats.Succeeded = stats.Total - stats.Failed
	return stats, nil
}
