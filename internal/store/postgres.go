package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-qualifier/internal/db"
	"github.com/sells-group/lead-qualifier/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const saveLeadSQL = `INSERT INTO leads (` + leadColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name, role = EXCLUDED.role, company = EXCLUDED.company,
		industry = EXCLUDED.industry, location = EXCLUDED.location,
		linkedin_bio = EXCLUDED.linkedin_bio,
		rule_score = EXCLUDED.rule_score, ai_score = EXCLUDED.ai_score,
		total_score = EXCLUDED.total_score, intent = EXCLUDED.intent,
		reasoning = EXCLUDED.reasoning, is_scored = EXCLUDED.is_scored,
		updated_at = EXCLUDED.updated_at`

// preparedStatements are prepared on each new connection; these run once per
// lead during a scoring batch.
var preparedStatements = map[string]string{
	"get_lead":  `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`,
	"save_lead": saveLeadSQL,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name         TEXT NOT NULL,
	role         TEXT NOT NULL DEFAULT '',
	company      TEXT NOT NULL DEFAULT '',
	industry     TEXT NOT NULL DEFAULT '',
	location     TEXT NOT NULL DEFAULT '',
	linkedin_bio TEXT NOT NULL DEFAULT '',
	rule_score   INTEGER,
	ai_score     INTEGER,
	total_score  INTEGER,
	intent       TEXT CHECK (intent IN ('HIGH', 'MEDIUM', 'LOW')),
	reasoning    TEXT,
	is_scored    BOOLEAN NOT NULL DEFAULT false,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT leads_scoring_all_or_nothing CHECK (
		is_scored = (rule_score IS NOT NULL AND ai_score IS NOT NULL
			AND total_score IS NOT NULL AND intent IS NOT NULL AND reasoning IS NOT NULL)
	)
);

CREATE TABLE IF NOT EXISTS offers (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name            TEXT NOT NULL,
	value_props     JSONB NOT NULL,
	ideal_use_cases JSONB NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_leads_is_scored ON leads(is_scored);
CREATE INDEX IF NOT EXISTS idx_leads_intent ON leads(intent);
CREATE INDEX IF NOT EXISTS idx_leads_total_score ON leads(total_score DESC);
CREATE INDEX IF NOT EXISTS idx_offers_updated_at ON offers(updated_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// --- Leads ---

// CreateLeads loads the batch with COPY inside one transaction, so an upload
// lands completely or not at all.
func (s *PostgresStore) CreateLeads(ctx context.Context, leads []model.Lead) ([]model.Lead, error) {
	if len(leads) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	created := make([]model.Lead, 0, len(leads))
	rows := make([][]any, 0, len(leads))
	for i, l := range leads {
		// Stagger timestamps so list order follows ingestion order.
		ts := now.Add(time.Duration(i) * time.Microsecond)
		l.ID = uuid.New().String()
		l.ClearScoring()
		l.CreatedAt, l.UpdatedAt = ts, ts
		if err := checkLead(&l); err != nil {
			return nil, err
		}
		created = append(created, l)
		rows = append(rows, []any{l.ID, l.Name, l.Role, l.Company, l.Industry, l.Location, l.LinkedInBio, false, ts, ts})
	}

	cols := []string{"id", "name", "role", "company", "industry", "location", "linkedin_bio", "is_scored", "created_at", "updated_at"}
	err := db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := db.CopyRows(ctx, tx, "leads", cols, rows)
		return err
	})
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create leads")
	}
	return created, nil
}

func (s *PostgresStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	l, err := scanPostgresLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.NotFound("Lead", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get lead %s", id)
	}
	return l, nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	where, args := filter.where(postgresPlaceholder, 0)
	query := `SELECT ` + leadColumns + ` FROM leads` + where + filter.orderBy()

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanPostgresLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: list leads iterate")
}

func (s *PostgresStore) CountLeads(ctx context.Context, filter LeadFilter) (int, error) {
	where, args := filter.where(postgresPlaceholder, 0)
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads`+where, args...).Scan(&n)
	return n, eris.Wrap(err, "postgres: count leads")
}

func (s *PostgresStore) SaveLead(ctx context.Context, l *model.Lead) error {
	if err := checkLead(l); err != nil {
		return err
	}

	now := time.Now().UTC()
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	l.UpdatedAt = now

	args := []any{l.ID, l.Name, l.Role, l.Company, l.Industry, l.Location, l.LinkedInBio}
	args = append(args, scoringArgs(l)...)
	args = append(args, l.IsScored, l.CreatedAt, l.UpdatedAt)

	_, err := s.pool.Exec(ctx, saveLeadSQL, args...)
	return eris.Wrapf(err, "postgres: save lead %s", l.ID)
}

func (s *PostgresStore) ClearScoring(ctx context.Context, filter LeadFilter) (int, error) {
	where, args := filter.where(postgresPlaceholder, 1)
	args = append([]any{time.Now().UTC()}, args...)

	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET rule_score = NULL, ai_score = NULL, total_score = NULL,
			intent = NULL, reasoning = NULL, is_scored = false, updated_at = $1`+where,
		args...,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: clear scoring")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) DeleteLeads(ctx context.Context, filter LeadFilter) (int, error) {
	where, args := filter.where(postgresPlaceholder, 0)
	tag, err := s.pool.Exec(ctx, `DELETE FROM leads`+where, args...)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete leads")
	}
	return int(tag.RowsAffected()), nil
}

// --- Offers ---

func (s *PostgresStore) CreateOffer(ctx context.Context, in model.OfferInput) (*model.Offer, error) {
	now := time.Now().UTC()
	o := &model.Offer{
		ID:            uuid.New().String(),
		Name:          in.Name,
		ValueProps:    in.ValueProps,
		IdealUseCases: in.IdealUseCases,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	props, cases, err := marshalOfferLists(o)
	if err != nil {
		return nil, err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO offers (`+offerColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		o.ID, o.Name, props, cases, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert offer")
	}
	return o, nil
}

func (s *PostgresStore) UpdateOffer(ctx context.Context, id string, in model.OfferInput) (*model.Offer, error) {
	o := &model.Offer{ID: id, Name: in.Name, ValueProps: in.ValueProps, IdealUseCases: in.IdealUseCases}
	props, cases, err := marshalOfferLists(o)
	if err != nil {
		return nil, err
	}

	row := s.pool.QueryRow(ctx,
		`UPDATE offers SET name = $1, value_props = $2, ideal_use_cases = $3, updated_at = $4
		 WHERE id = $5 RETURNING `+offerColumns,
		o.Name, props, cases, time.Now().UTC(), id,
	)
	updated, err := scanPostgresOffer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.NotFound("Offer", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: update offer %s", id)
	}
	return updated, nil
}

func (s *PostgresStore) GetOffer(ctx context.Context, id string) (*model.Offer, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+offerColumns+` FROM offers WHERE id = $1`, id)
	o, err := scanPostgresOffer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.NotFound("Offer", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get offer %s", id)
	}
	return o, nil
}

func (s *PostgresStore) ListOffers(ctx context.Context) ([]model.Offer, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+offerColumns+` FROM offers ORDER BY updated_at DESC, created_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list offers")
	}
	defer rows.Close()

	var offers []model.Offer
	for rows.Next() {
		o, err := scanPostgresOffer(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan offer")
		}
		offers = append(offers, *o)
	}
	return offers, eris.Wrap(rows.Err(), "postgres: list offers iterate")
}

func (s *PostgresStore) DeleteOffer(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM offers WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete offer %s", id)
	}
	if tag.RowsAffected() == 0 {
		return model.NotFound("Offer", id)
	}
	return nil
}

func (s *PostgresStore) LatestOffer(ctx context.Context) (*model.Offer, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+offerColumns+` FROM offers ORDER BY updated_at DESC, created_at DESC LIMIT 1`)
	o, err := scanPostgresOffer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest offer")
	}
	return o, nil
}

func scanPostgresLead(row scannable) (*model.Lead, error) {
	var l model.Lead
	var rule, ai, total *int
	var intent, reasoning *string

	err := row.Scan(
		&l.ID, &l.Name, &l.Role, &l.Company, &l.Industry, &l.Location, &l.LinkedInBio,
		&rule, &ai, &total, &intent, &reasoning, &l.IsScored, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if l.IsScored {
		if rule == nil || ai == nil || total == nil || intent == nil || reasoning == nil {
			return nil, eris.Errorf("postgres: lead %s is scored but missing scoring fields", l.ID)
		}
		l.Scoring = &model.Scoring{
			RuleScore:  *rule,
			AIScore:    *ai,
			TotalScore: *total,
			Intent:     model.IntentTier(*intent),
			Reasoning:  *reasoning,
		}
	}
	return &l, nil
}

func scanPostgresOffer(row scannable) (*model.Offer, error) {
	var o model.Offer
	var props, cases []byte
	if err := row.Scan(&o.ID, &o.Name, &props, &cases, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(props, &o.ValueProps); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal value props")
	}
	if err := json.Unmarshal(cases, &o.IdealUseCases); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal use cases")
	}
	return &o, nil
}
