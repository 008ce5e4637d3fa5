package service

import "time"

// SelectorConfig carries the selection tunables.
type SelectorConfig struct {
	// LatencyMultiplier: default stays primary while its observed latency
	// does not exceed fallback's latency times this factor.
	LatencyMultiplier int
	// StalenessWindow bounds how long a failing flag is trusted as current.
	StalenessWindow time.Duration
}

// Selection is the order in which a payment is attempted. Secondary is tried
// once, and only after Primary's attempt budget is exhausted.
type Selection struct {
	Primary   ProcessorType
	Secondary ProcessorType
}

// Select decides which processor to try first given the latest snapshots.
// Pure and deterministic: same snapshots, config and now always yield the
// same selection. A failing flag older than the staleness window is treated
// as unknown rather than as a hard down-vote. The secondary is always the
// processor not picked as primary; even a failing one may have recovered
// since its last probe, and the attempt costs nothing extra.
func Select(def, fb Health, cfg SelectorConfig, now time.Time) Selection {
	defFailing := def.Failing && !def.Stale(cfg.StalenessWindow, now)
	fbFailing := fb.Failing && !fb.Stale(cfg.StalenessWindow, now)

	switch {
	case defFailing && fbFailing:
		// Both down: a doomed attempt against the cheaper default first.
		return Selection{Primary: ProcessorTypeDefault, Secondary: ProcessorTypeFallback}
	case defFailing:
		return Selection{Primary: ProcessorTypeFallback, Secondary: ProcessorTypeDefault}
	case fbFailing:
		return Selection{Primary: ProcessorTypeDefault, Secondary: ProcessorTypeFallback}
	}

	// Both healthy: default wins on fees unless it is disproportionately
	// slower than the fallback. A zero fallback latency means no real
	// measurement yet, so the override stays off.
	if fb.MinResponseTime > 0 && def.MinResponseTime > fb.MinResponseTime*cfg.LatencyMultiplier {
		return Selection{Primary: ProcessorTypeFallback, Secondary: ProcessorTypeDefault}
	}
	return Selection{Primary: ProcessorTypeDefault, Secondary: ProcessorTypeFallback}
}
