package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/lead-qualifier/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// A single connection serializes writers; concurrent scoring tasks would
	// otherwise race for the write lock.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	role         TEXT NOT NULL DEFAULT '',
	company      TEXT NOT NULL DEFAULT '',
	industry     TEXT NOT NULL DEFAULT '',
	location     TEXT NOT NULL DEFAULT '',
	linkedin_bio TEXT NOT NULL DEFAULT '',
	rule_score   INTEGER,
	ai_score     INTEGER,
	total_score  INTEGER,
	intent       TEXT,
	reasoning    TEXT,
	is_scored    INTEGER NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL,
	updated_at   DATETIME NOT NULL,
	CHECK ((is_scored = 1) = (rule_score IS NOT NULL AND ai_score IS NOT NULL
		AND total_score IS NOT NULL AND intent IS NOT NULL AND reasoning IS NOT NULL))
);

CREATE TABLE IF NOT EXISTS offers (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	value_props     TEXT NOT NULL,
	ideal_use_cases TEXT NOT NULL,
	created_at      DATETIME NOT NULL,
	updated_at      DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_leads_is_scored ON leads(is_scored);
CREATE INDEX IF NOT EXISTS idx_leads_intent ON leads(intent);
CREATE INDEX IF NOT EXISTS idx_leads_total_score ON leads(total_score);
CREATE INDEX IF NOT EXISTS idx_offers_updated_at ON offers(updated_at);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Leads ---

func (s *SQLiteStore) CreateLeads(ctx context.Context, leads []model.Lead) ([]model.Lead, error) {
	if len(leads) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin create leads")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO leads (id, name, role, company, industry, location, linkedin_bio, is_scored, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: prepare insert lead")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	created := make([]model.Lead, 0, len(leads))
	for i, l := range leads {
		// Stagger timestamps so list order follows ingestion order.
		ts := now.Add(time.Duration(i) * time.Microsecond)
		l.ID = uuid.New().String()
		l.ClearScoring()
		l.CreatedAt, l.UpdatedAt = ts, ts
		if err := checkLead(&l); err != nil {
			return nil, err
		}
		if _, err := stmt.ExecContext(ctx,
			l.ID, l.Name, l.Role, l.Company, l.Industry, l.Location, l.LinkedInBio, ts, ts,
		); err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert lead %q", l.Name)
		}
		created = append(created, l)
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit create leads")
	}
	return created, nil
}

func (s *SQLiteStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = ?`, id)
	l, err := scanSQLiteLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("Lead", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get lead %s", id)
	}
	return l, nil
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	where, args := filter.where(sqlitePlaceholder, 0)
	query := `SELECT ` + leadColumns + ` FROM leads` + where + filter.orderBy()

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		query += ` LIMIT -1`
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanSQLiteLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: list leads iterate")
}

func (s *SQLiteStore) CountLeads(ctx context.Context, filter LeadFilter) (int, error) {
	where, args := filter.where(sqlitePlaceholder, 0)
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads`+where, args...).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count leads")
}

func (s *SQLiteStore) SaveLead(ctx context.Context, l *model.Lead) error {
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

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO leads (`+leadColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, role = excluded.role, company = excluded.company,
			industry = excluded.industry, location = excluded.location,
			linkedin_bio = excluded.linkedin_bio,
			rule_score = excluded.rule_score, ai_score = excluded.ai_score,
			total_score = excluded.total_score, intent = excluded.intent,
			reasoning = excluded.reasoning, is_scored = excluded.is_scored,
			updated_at = excluded.updated_at`,
		args...,
	)
	return eris.Wrapf(err, "sqlite: save lead %s", l.ID)
}

func (s *SQLiteStore) ClearScoring(ctx context.Context, filter LeadFilter) (int, error) {
	where, args := filter.where(sqlitePlaceholder, 1)
	args = append([]any{time.Now().UTC()}, args...)

	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET rule_score = NULL, ai_score = NULL, total_score = NULL,
			intent = NULL, reasoning = NULL, is_scored = 0, updated_at = ?`+where,
		args...,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: clear scoring")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) DeleteLeads(ctx context.Context, filter LeadFilter) (int, error) {
	where, args := filter.where(sqlitePlaceholder, 0)
	res, err := s.db.ExecContext(ctx, `DELETE FROM leads`+where, args...)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete leads")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// --- Offers ---

func (s *SQLiteStore) CreateOffer(ctx context.Context, in model.OfferInput) (*model.Offer, error) {
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

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO offers (`+offerColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		o.ID, o.Name, string(props), string(cases), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert offer")
	}
	return o, nil
}

func (s *SQLiteStore) UpdateOffer(ctx context.Context, id string, in model.OfferInput) (*model.Offer, error) {
	o := &model.Offer{ID: id, Name: in.Name, ValueProps: in.ValueProps, IdealUseCases: in.IdealUseCases}
	props, cases, err := marshalOfferLists(o)
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE offers SET name = ?, value_props = ?, ideal_use_cases = ?, updated_at = ? WHERE id = ?`,
		o.Name, string(props), string(cases), time.Now().UTC(), id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: update offer %s", id)
	}
	if err := checkRowsAffected(res, "Offer", id); err != nil {
		return nil, err
	}
	return s.GetOffer(ctx, id)
}

func (s *SQLiteStore) GetOffer(ctx context.Context, id string) (*model.Offer, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+offerColumns+` FROM offers WHERE id = ?`, id)
	o, err := scanSQLiteOffer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("Offer", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get offer %s", id)
	}
	return o, nil
}

func (s *SQLiteStore) ListOffers(ctx context.Context) ([]model.Offer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+offerColumns+` FROM offers ORDER BY updated_at DESC, created_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list offers")
	}
	defer rows.Close()

	var offers []model.Offer
	for rows.Next() {
		o, err := scanSQLiteOffer(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan offer")
		}
		offers = append(offers, *o)
	}
	return offers, eris.Wrap(rows.Err(), "sqlite: list offers iterate")
}

func (s *SQLiteStore) DeleteOffer(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM offers WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete offer %s", id)
	}
	return checkRowsAffected(res, "Offer", id)
}

func (s *SQLiteStore) LatestOffer(ctx context.Context) (*model.Offer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+offerColumns+` FROM offers ORDER BY updated_at DESC, created_at DESC LIMIT 1`)
	o, err := scanSQLiteOffer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: latest offer")
	}
	return o, nil
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return model.NotFound(entity, id)
	}
	return nil
}

func scanSQLiteLead(row scannable) (*model.Lead, error) {
	var l model.Lead
	var rule, ai, total sql.NullInt64
	var intent, reasoning sql.NullString

	err := row.Scan(
		&l.ID, &l.Name, &l.Role, &l.Company, &l.Industry, &l.Location, &l.LinkedInBio,
		&rule, &ai, &total, &intent, &reasoning, &l.IsScored, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if l.IsScored {
		l.Scoring = &model.Scoring{
			RuleScore:  int(rule.Int64),
			AIScore:    int(ai.Int64),
			TotalScore: int(total.Int64),
			Intent:     model.IntentTier(intent.String),
			Reasoning:  reasoning.String,
		}
	}
	return &l, nil
}

func scanSQLiteOffer(row scannable) (*model.Offer, error) {
	var o model.Offer
	var props, cases string
	if err := row.Scan(&o.ID, &o.Name, &props, &cases, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(props), &o.ValueProps); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal value props")
	}
	if err := json.Unmarshal([]byte(cases), &o.IdealUseCases); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal use cases")
	}
	return &o, nil
}

func marshalOfferLists(o *model.Offer) (props, cases []byte, err error) {
	if props, err = json.Marshal(o.ValueProps); err != nil {
		return nil, nil, eris.Wrap(err, "store: marshal value props")
	}
	if cases, err = json.Marshal(o.IdealUseCases); err != nil {
		return nil, nil, eris.Wrap(err, "store: marshal use cases")
	}
	return props, cases, nil
}
