package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ppiankov/clientscore/internal/model"
)

// Predictor scores one stored client
type Predictor interface {
	Predict(ctx context.Context, id int64) (*model.ClientWithScore, error)
}

// ScoreJob predicts a single client
type ScoreJob struct {
	ID        int64
	Predictor Predictor
	Limiter   *Limiter
	Endpoint  string
}

// Execute waits for the limiter, then predicts
func (j *ScoreJob) Execute(ctx context.Context) Result {
	if j.Limiter != nil {
		if err := j.Limiter.Wait(ctx, j.Endpoint); err != nil {
			return &ScoreResult{ID: j.ID, Error: fmt.Errorf("rate limit: %w", err)}
		}
	}

	scored, err := j.Predictor.Predict(ctx, j.ID)
	if err != nil {
		return &ScoreResult{ID: j.ID, Error: err}
	}
	return &ScoreResult{ID: j.ID, Result: scored}
}

// ScoreResult is the outcome for one client id
type ScoreResult struct {
	ID     int64                  `json:"id"`
	Result *model.ClientWithScore `json:"result,omitempty"`
	Error  error                  `json:"-"`
}

// GetError returns the prediction error, if any
func (r *ScoreResult) GetError() error {
	return r.Error
}

// BatchScorer predicts many clients concurrently
type BatchScorer struct {
	predictor   Predictor
	concurrency int
	limiter     *Limiter
	endpoint    string
}

// NewBatchScorer creates a batch scorer. Calls to endpoint are throttled when
// requestsPerSecond is positive.
func NewBatchScorer(predictor Predictor, concurrency int, requestsPerSecond float64, burst int, endpoint string) *BatchScorer {
	var limiter *Limiter
	if requestsPerSecond > 0 && endpoint != "" {
		limiter = NewLimiter(requestsPerSecond, burst)
	}
	return &BatchScorer{
		predictor:   predictor,
		concurrency: concurrency,
		limiter:     limiter,
		endpoint:    endpoint,
	}
}

// ScoreIDs predicts every id and returns one result per id in input order.
// Failures stay attached to their id.
func (b *BatchScorer) ScoreIDs(ctx context.Context, ids []int64) []*ScoreResult {
	if len(ids) == 0 {
		return []*ScoreResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, id := range ids {
		pool.Submit(&ScoreJob{
			ID:        id,
			Predictor: b.predictor,
			Limiter:   b.limiter,
			Endpoint:  b.endpoint,
		})
	}

	results := pool.Wait()

	scored := make([]*ScoreResult, len(ids))
	for i, id := range ids {
		if i < len(results) && results[i] != nil {
			scored[i] = results[i].(*ScoreResult)
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = fmt.Errorf("client %d was not scored", id)
		}
		scored[i] = &ScoreResult{ID: id, Error: err}
	}
	return scored
}

// ScoreFile reads ids from a file and scores them
func (b *BatchScorer) ScoreFile(ctx context.Context, filePath string) ([]*ScoreResult, error) {
	ids, err := ReadIDsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read ids: %w", err)
	}
	return b.ScoreIDs(ctx, ids), nil
}

// ReadIDsFromFile reads client ids, one per line. Blank lines and # comments
// are skipped and repeated ids are kept once.
func ReadIDsFromFile(filePath string) ([]int64, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var ids []int64
	seen := make(map[int64]bool)

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		id, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid client id %q", lineNo, line)
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return ids, nil
}
