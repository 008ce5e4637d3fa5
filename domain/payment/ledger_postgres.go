package payment

import (
	"context"
	"database/sql"
	"time"

	"payment-router/infrastructure/service"
)

const paymentsSchema = `create table if not exists payments (
	correlation_id text primary key,
	processed_by   text not null,
	amount_cents   bigint not null,
	processed_at   timestamptz not null
)`

// postgresLedger is the durable backend. The primary key on correlation_id
// plus "on conflict do nothing" gives the same first-writer-wins insert the
// memory backend implements with its mutex.
type postgresLedger struct {
	db *sql.DB
}

func NewPostgresLedger(db *sql.DB) (ILedger, error) {
	if _, err := db.Exec(paymentsSchema); err != nil {
		return nil, err
	}
	return &postgresLedger{db}, nil
}

func (l *postgresLedger) Record(ctx context.Context, entry Entity) (bool, error) {
	query := `insert into payments (correlation_id, processed_by, amount_cents, processed_at)
			  values ($1, $2, $3, $4)
			  on conflict (correlation_id) do nothing`

	res, err := l.db.ExecContext(ctx, query,
		entry.CorrelationId, string(entry.ProcessedBy), entry.AmountCents, entry.ProcessedAt,
	)
	if err != nil {
		return false, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (l *postgresLedger) Exists(ctx context.Context, correlationId string) (bool, error) {
	query := `select exists(select 1 from payments where correlation_id = $1)`

	var exists bool
	err := l.db.QueryRowContext(ctx, query, correlationId).Scan(&exists)

	return exists, err
}

func (l *postgresLedger) AggregateSummary(ctx context.Context, summaryDate SummaryDate) (*ProcessorsSummary, error) {
	query := `select processed_by, count(1), coalesce(sum(amount_cents), 0)
			  from payments
			  where processed_at >= $1 and processed_at <= $2
			  group by processed_by`

	from := time.Unix(0, 0).UTC()
	to := time.Now().UTC()
	if summaryDate.From != nil {
		from = *summaryDate.From
	}
	if summaryDate.To != nil {
		to = *summaryDate.To
	}

	rows, err := l.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summary := &ProcessorsSummary{}
	for rows.Next() {
		var (
			processor string
			count     int
			cents     int64
		)
		if err := rows.Scan(&processor, &count, &cents); err != nil {
			return nil, err
		}

		switch service.ProcessorType(processor) {
		case service.ProcessorTypeDefault:
			summary.Default = Summary{TotalRequests: count, TotalAmount: float64(cents) / 100}
		case service.ProcessorTypeFallback:
			summary.FallBack = Summary{TotalRequests: count, TotalAmount: float64(cents) / 100}
		}
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return summary, nil
}

func (l *postgresLedger) DeleteAll(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, `delete from payments`)
	return err
}
