package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"cmdvrp/internal/solver"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

// Migrate applies the embedded schema files in name order. Every statement is
// idempotent so Migrate is safe to run at each start.
func (p *Postgres) Migrate(ctx context.Context) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		body, err := migrations.ReadFile(name)
		if err != nil {
			return err
		}
		if _, err := p.db.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("migrate %s: %w", name, err)
		}
	}
	return nil
}

const runColumns = `id::text, created_at, instance_name, depots, customers, variant, subtour, status,
	n_variables, n_constraints, objective_value, solve_seconds, integral, families, solution, duals, system, error`

func (p *Postgres) SaveRun(ctx context.Context, r Run) (Run, error) {
	if r.ID == "" {
		r.ID = newID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := p.db.ExecContext(ctx, `INSERT INTO solve_runs (id, created_at, instance_name, depots, customers, variant, subtour, status,
		n_variables, n_constraints, objective_value, solve_seconds, integral, families, solution, duals, system, error)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14::jsonb,$15::jsonb,$16::jsonb,$17::jsonb,$18)
		ON CONFLICT (id) DO UPDATE SET status=EXCLUDED.status, objective_value=EXCLUDED.objective_value,
		solve_seconds=EXCLUDED.solve_seconds, integral=EXCLUDED.integral, solution=EXCLUDED.solution,
		duals=EXCLUDED.duals, error=EXCLUDED.error`,
		r.ID, r.CreatedAt, nullIfEmpty(r.Instance), r.Depots, r.Customers, r.Metrics.Variant, r.Subtour, r.Metrics.Status.String(),
		r.Metrics.Variables, r.Metrics.Constraints, r.Metrics.Objective, r.Metrics.SolveSeconds, r.Metrics.Integral,
		toJSON(r.Families), toJSON(r.Solution), toJSON(r.Duals), toJSON(r.System), nullIfEmpty(r.Error))
	if err != nil {
		return Run{}, err
	}
	return r, nil
}

func (p *Postgres) GetRun(ctx context.Context, id string) (Run, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM solve_runs WHERE id::text=$1`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	return r, err
}

// ListRuns pages by id; ids are time-ordered so pages follow creation order.
func (p *Postgres) ListRuns(ctx context.Context, variant, cursor string, limit int) ([]Run, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx, `SELECT `+runColumns+` FROM solve_runs
		WHERE ($1 = '' OR variant = $1) AND ($2 = '' OR id::text > $2)
		ORDER BY id LIMIT $3`, variant, cursor, limit+1)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, "", err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}
	next := ""
	if len(out) > limit {
		out = out[:limit]
		next = out[limit-1].ID
	}
	return out, next, nil
}

func (p *Postgres) RunStats(ctx context.Context) ([]VariantStats, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT variant, status, count(*), avg(objective_value), avg(solve_seconds)
		FROM solve_runs GROUP BY variant, status ORDER BY variant, status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []VariantStats{}
	for rows.Next() {
		var s VariantStats
		if err := rows.Scan(&s.Variant, &s.Status, &s.Runs, &s.AvgObjective, &s.AvgSolveSeconds); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		r                                 Run
		instance, errText                 sql.NullString
		status                            string
		families, solution, duals, system []byte
	)
	err := row.Scan(&r.ID, &r.CreatedAt, &instance, &r.Depots, &r.Customers, &r.Metrics.Variant, &r.Subtour, &status,
		&r.Metrics.Variables, &r.Metrics.Constraints, &r.Metrics.Objective, &r.Metrics.SolveSeconds, &r.Metrics.Integral,
		&families, &solution, &duals, &system, &errText)
	if err != nil {
		return Run{}, err
	}
	r.Instance, r.Error = instance.String, errText.String
	if err := r.Metrics.Status.UnmarshalText([]byte(status)); err != nil {
		r.Metrics.Status = solver.StatusError
	}
	if err := fromJSON(families, &r.Families); err != nil {
		return Run{}, err
	}
	if err := fromJSON(solution, &r.Solution); err != nil {
		return Run{}, err
	}
	if err := fromJSON(duals, &r.Duals); err != nil {
		return Run{}, err
	}
	if err := fromJSON(system, &r.System); err != nil {
		return Run{}, err
	}
	return r, nil
}

func (p *Postgres) CreateSubscription(ctx context.Context, s Subscription) (Subscription, error) {
	s.ID = newID()
	s.CreatedAt = time.Now().UTC()
	events := s.Events
	if events == nil {
		events = []string{}
	}
	_, err := p.db.ExecContext(ctx, `INSERT INTO webhook_subscriptions (id, url, secret, events, created_at) VALUES ($1,$2,$3,$4::jsonb,$5)`,
		s.ID, s.URL, nullIfEmpty(s.Secret), toJSON(events), s.CreatedAt)
	if err != nil {
		return Subscription{}, err
	}
	return s, nil
}

func (p *Postgres) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id::text, url, secret, events, created_at FROM webhook_subscriptions ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Subscription{}
	for rows.Next() {
		var s Subscription
		var secret sql.NullString
		var events []byte
		if err := rows.Scan(&s.ID, &s.URL, &secret, &events, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Secret = secret.String
		if err := fromJSON(events, &s.Events); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]Subscription, error) {
	all, err := p.ListSubscriptions(ctx)
	if err != nil {
		return nil, err
	}
	out := []Subscription{}
	for _, s := range all {
		if s.Wants(eventType) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (p *Postgres) DeleteSubscription(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM webhook_subscriptions WHERE id::text=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	id := newID()
	dk := computeDedupKey(payload)
	_, err := p.db.ExecContext(ctx, `INSERT INTO webhook_deliveries (id, subscription_id, event_type, url, secret, payload, status, attempts, next_attempt_at, dedup_key)
		VALUES ($1,$2,$3,$4,$5,$6,'pending',0,now(),$7)
		ON CONFLICT (event_type, url, dedup_key) DO NOTHING`, id, nullIfEmpty(subscriptionID), eventType, url, nullIfEmpty(secret), payload, dk)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx, `SELECT id::text, coalesce(subscription_id::text,''), event_type, url, coalesce(secret,''), payload, status, attempts, next_attempt_at
		FROM webhook_deliveries WHERE status IN ('pending','retry') AND next_attempt_at <= now() ORDER BY next_attempt_at LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []WebhookDelivery{}
	for rows.Next() {
		var d WebhookDelivery
		if err := rows.Scan(&d.ID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts, &d.NextAttemptAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	if success {
		_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET status='delivered', attempts=attempts+1, response_code=$2, latency_ms=$3, delivered_at=now() WHERE id::text=$1`,
			id, responseCode, latencyMs)
		return err
	}
	next := time.Now().Add(time.Minute)
	if nextAttemptAt != nil {
		next = *nextAttemptAt
	}
	_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET status='retry', attempts=attempts+1, response_code=$2, latency_ms=$3, last_error=$4, next_attempt_at=$5 WHERE id::text=$1`,
		id, responseCode, latencyMs, nullIfEmpty(lastError), next)
	return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET status='failed', attempts=attempts+1, response_code=$2, latency_ms=$3, last_error=$4 WHERE id::text=$1`,
		id, responseCode, latencyMs, nullIfEmpty(lastError))
	return err
}

func (p *Postgres) ListWebhookDeliveries(ctx context.Context, status string, limit int) ([]WebhookDelivery, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx, `SELECT id::text, coalesce(subscription_id::text,''), event_type, url, status, attempts,
		coalesce(last_error,''), coalesce(response_code,0), next_attempt_at
		FROM webhook_deliveries WHERE ($1 = '' OR status = $1) ORDER BY id LIMIT $2`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []WebhookDelivery{}
	for rows.Next() {
		var d WebhookDelivery
		if err := rows.Scan(&d.ID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Status, &d.Attempts, &d.LastError, &d.ResponseCode, &d.NextAttemptAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// computeDedupKey uses the payload's "id" field, falling back to a short hash.
func computeDedupKey(payload []byte) string {
	var m map[string]any
	if json.Unmarshal(payload, &m) == nil {
		if v, ok := m["id"].(string); ok && v != "" {
			return v
		}
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:8])
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// toJSON encodes v for a jsonb parameter; nil maps and slices become SQL NULL.
func toJSON(v any) any {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return nil
	}
	return string(b)
}

func fromJSON(b []byte, v any) error {
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, v)
}
