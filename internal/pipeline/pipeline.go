package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/clientscore/internal/features"
	"github.com/ppiankov/clientscore/internal/gateway"
	"github.com/ppiankov/clientscore/internal/model"
	"github.com/ppiankov/clientscore/internal/store"
)

// DefaultMaxPageSize caps listing pages when no limit is configured
const DefaultMaxPageSize = 200

// Pipeline orchestrates reads and predictions: store -> features -> gateway
type Pipeline struct {
	store       store.Store
	assembler   *features.Assembler
	scorer      gateway.Scorer
	logger      *zap.Logger
	maxPageSize int
}

// NewPipeline wires a pipeline. A nil logger discards logs and a non-positive
// maxPageSize falls back to DefaultMaxPageSize.
func NewPipeline(s store.Store, scorer gateway.Scorer, logger *zap.Logger, maxPageSize int) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxPageSize <= 0 {
		maxPageSize = DefaultMaxPageSize
	}
	return &Pipeline{
		store:       s,
		assembler:   features.NewAssembler(logger),
		scorer:      scorer,
		logger:      logger,
		maxPageSize: maxPageSize,
	}
}

// Client returns the full view of one client
func (p *Pipeline) Client(ctx context.Context, id int64) (*model.ClientView, error) {
	record, err := p.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view := record.View(p.assembler.Attributes(record))
	return &view, nil
}

// List returns one page of client summaries. Page sizes above the configured
// maximum are capped.
func (p *Pipeline) List(ctx context.Context, page, size int) ([]model.ClientSummary, error) {
	if size > p.maxPageSize {
		size = p.maxPageSize
	}

	records, err := p.store.FindAll(ctx, page, size)
	if err != nil {
		return nil, err
	}

	summaries := make([]model.ClientSummary, 0, len(records))
	for i := range records {
		summaries = append(summaries, records[i].Summary())
	}
	return summaries, nil
}

// Features assembles the feature set sent to the scoring service for id
func (p *Pipeline) Features(ctx context.Context, id int64) (*model.FeatureSet, error) {
	record, err := p.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.assembler.Assemble(record), nil
}

// Predict scores one client. Gateway failures are returned as is; no default
// score is ever substituted.
func (p *Pipeline) Predict(ctx context.Context, id int64) (*model.ClientWithScore, error) {
	record, err := p.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fs := p.assembler.Assemble(record)

	start := time.Now()
	result, err := p.scorer.Predict(ctx, fs)
	if err != nil {
		p.logger.Warn("Prediction failed", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	p.logger.Debug("Prediction complete",
		zap.Int64("id", id),
		zap.Int("features", fs.Len()),
		zap.Duration("elapsed", time.Since(start)))

	return &model.ClientWithScore{
		Client:              record.View(p.assembler.Attributes(record)),
		ApprovalProbability: result.Probability,
		Decision:            result.Decision,
	}, nil
}

// Explain returns the scoring service's explanation for one client
func (p *Pipeline) Explain(ctx context.Context, id int64) (model.Explanation, error) {
	record, err := p.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	explanation, err := p.scorer.Explain(ctx, p.assembler.Assemble(record))
	if err != nil {
		p.logger.Warn("Explanation failed", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return explanation, nil
}
