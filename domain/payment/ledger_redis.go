package payment

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"payment-router/infrastructure/service"
)

var processors = []string{
	string(service.ProcessorTypeDefault),
	string(service.ProcessorTypeFallback),
}

const idsKey = "summary:ids"

var (
	defaultDataKey     = fmt.Sprintf("summary:%s:data", string(service.ProcessorTypeDefault))
	defaultHistoryKey  = fmt.Sprintf("summary:%s:history", string(service.ProcessorTypeDefault))
	fallbackDataKey    = fmt.Sprintf("summary:%s:data", string(service.ProcessorTypeFallback))
	fallbackHistoryKey = fmt.Sprintf("summary:%s:history", string(service.ProcessorTypeFallback))
)

// redisLedger shares one ledger between instances. The record script makes
// the id-set insert and the amount/history writes a single atomic step, so a
// failure can never leave a member of the id set without its amount; amounts
// live in a per-processor hash keyed by correlation id with a sorted-set
// index over the processed-at millis.
type redisLedger struct {
	client *redis.Client
}

var recordScript = redis.NewScript(`
if redis.call("SADD", KEYS[1], ARGV[1]) == 0 then
	return 0
end
redis.call("HSET", KEYS[2], ARGV[1], ARGV[2])
redis.call("ZADD", KEYS[3], ARGV[3], ARGV[1])
return 1
`)

func NewRedisLedger(client *redis.Client) ILedger {
	return &redisLedger{client}
}

func getDataKey(processor string) string {
	if processor == string(service.ProcessorTypeDefault) {
		return defaultDataKey
	}
	return fallbackDataKey
}

func getHistoryKey(processor string) string {
	if processor == string(service.ProcessorTypeDefault) {
		return defaultHistoryKey
	}
	return fallbackHistoryKey
}

func (r *redisLedger) Record(ctx context.Context, entry Entity) (bool, error) {
	keys := []string{
		idsKey,
		getDataKey(string(entry.ProcessedBy)),
		getHistoryKey(string(entry.ProcessedBy)),
	}

	inserted, err := recordScript.Run(
		ctx, r.client, keys,
		entry.CorrelationId, entry.AmountCents, entry.ProcessedAt.UnixMilli(),
	).Int()
	if err != nil {
		return false, err
	}

	return inserted == 1, nil
}

func (r *redisLedger) Exists(ctx context.Context, correlationId string) (bool, error) {
	return r.client.SIsMember(ctx, idsKey, correlationId).Result()
}

func (r *redisLedger) AggregateSummary(ctx context.Context, summaryDate SummaryDate) (*ProcessorsSummary, error) {
	result := make([]Summary, len(processors))
	errs := make([]error, len(processors))
	var wg sync.WaitGroup

	for idx, proc := range processors {
		wg.Add(1)
		go func(idx int, processor string) {
			defer wg.Done()
			result[idx], errs[idx] = r.aggregateForProcessor(ctx, processor, summaryDate)
		}(idx, proc)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return &ProcessorsSummary{
		Default:  result[0],
		FallBack: result[1],
	}, nil
}

func (r *redisLedger) aggregateForProcessor(ctx context.Context, processor string, summaryDate SummaryDate) (Summary, error) {
	var (
		historyKey = getHistoryKey(processor)
		dataKey    = getDataKey(processor)
		from       = int64(0)
		to         = time.Now().UTC().UnixMilli()
	)

	if summaryDate.From != nil {
		from = summaryDate.From.UnixMilli()
	}
	if summaryDate.To != nil {
		to = summaryDate.To.UnixMilli()
	}

	ids, err := r.client.ZRangeByScore(ctx, historyKey, &redis.ZRangeBy{
		Min: fmt.Sprintf("%d", from),
		Max: fmt.Sprintf("%d", to),
	}).Result()
	if err != nil {
		return Summary{}, err
	}

	totalRequests := len(ids)
	totalCents := int64(0)

	if totalRequests > 0 {
		amounts, err := r.client.HMGet(ctx, dataKey, ids...).Result()
		if err != nil {
			return Summary{}, err
		}

		for _, a := range amounts {
			if a == nil {
				continue
			}
			value, canCast := a.(string)
			if !canCast {
				return Summary{}, fmt.Errorf("invalid type for amount")
			}

			cents, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return Summary{}, fmt.Errorf("invalid amount value: %v", err)
			}
			totalCents += cents
		}
	}

	return Summary{
		TotalRequests: totalRequests,
		TotalAmount:   float64(totalCents) / 100,
	}, nil
}

func (r *redisLedger) DeleteAll(ctx context.Context) error {
	return r.client.Del(
		ctx,
		idsKey,
		defaultDataKey,
		defaultHistoryKey,
		fallbackDataKey,
		fallbackHistoryKey,
	).Err()
}
