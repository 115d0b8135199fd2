package report

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/greyfield/swaprouter/internal/telemetry"
)

const (
	outcomesKey      = "swaprouter:outcomes"
	outcomesRetained = 1000
)

// RedisSink pushes outcomes onto a capped Redis list so history survives
// process restarts and can be read by external tooling.
type RedisSink struct {
	client *redis.Client
}

func NewRedisSink(addr, password string) *RedisSink {
	return &RedisSink{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
	}
}

// Ping verifies connectivity at startup.
func (r *RedisSink) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisSink) Record(ctx context.Context, o SwapOutcome) error {
	payload, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, outcomesKey, payload)
	pipe.LTrim(ctx, outcomesKey, 0, outcomesRetained-1)
	if _, err := pipe.Exec(ctx); err != nil {
		telemetry.Warnf("[report] redis record failed: %v", err)
		return fmt.Errorf("push outcome: %w", err)
	}
	return nil
}

func (r *RedisSink) Recent(ctx context.Context, n int) ([]SwapOutcome, error) {
	if n <= 0 {
		n = outcomesRetained
	}
	raw, err := r.client.LRange(ctx, outcomesKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read outcomes: %w", err)
	}

	out := make([]SwapOutcome, 0, len(raw))
	for _, item := range raw {
		var o SwapOutcome
		if err := json.Unmarshal([]byte(item), &o); err != nil {
			telemetry.Warnf("[report] skipping malformed outcome record: %v", err)
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (r *RedisSink) Close() error { return r.client.Close() }
