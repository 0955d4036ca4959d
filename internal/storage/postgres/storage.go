package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcoot/skateduel/internal/model"
	"github.com/mcoot/skateduel/internal/storage"
)

// Postgres error codes the store maps onto domain errors
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so queries work with both
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Storage is a Postgres-backed implementation of the storage interface
type Storage struct {
	pool *pgxpool.Pool
}

// New creates a pool from cfg and verifies the connection
func New(ctx context.Context, cfg Config) (*Storage, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolCfg.HealthCheckPeriod = cfg.HealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return NewWithPool(pool), nil
}

// NewWithPool wraps an existing pool
func NewWithPool(pool *pgxpool.Pool) *Storage {
	return &Storage{pool: pool}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Ping checks a pooled connection
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the pool
func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func (s *Storage) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

// Rider operations

const riderColumns = `id, handle, country, elo, xp, coins, created_at`

func scanRider(row pgx.Row) (*model.RiderProfile, error) {
	var r model.RiderProfile
	err := row.Scan(&r.ID, &r.Handle, &r.Country, &r.Elo, &r.XP, &r.Coins, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrRiderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Storage) EnsureRider(ctx context.Context, rider *model.RiderProfile) (*model.RiderProfile, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO riders (`+riderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		rider.ID, rider.Handle, rider.Country, rider.Elo, rider.XP, rider.Coins, rider.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s.GetRider(ctx, rider.ID)
}

func (s *Storage) GetRider(ctx context.Context, id model.RiderID) (*model.RiderProfile, error) {
	return scanRider(s.pool.QueryRow(ctx, `SELECT `+riderColumns+` FROM riders WHERE id = $1`, id))
}

func (s *Storage) CreateCredentials(ctx context.Context, creds *model.RiderCredentials) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO rider_credentials (handle, rider_id, password_hash, created_at)
		VALUES ($1, $2, $3, $4)`,
		creds.Handle, creds.RiderID, creds.PasswordHash, creds.CreatedAt)
	if pgCode(err) == codeUniqueViolation {
		return model.ErrHandleTaken
	}
	return err
}

func (s *Storage) GetCredentialsByHandle(ctx context.Context, handle string) (*model.RiderCredentials, error) {
	var c model.RiderCredentials
	err := s.pool.QueryRow(ctx, `
		SELECT handle, rider_id, password_hash, created_at
		FROM rider_credentials WHERE handle = $1`, handle).
		Scan(&c.Handle, &c.RiderID, &c.PasswordHash, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrRiderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Match operations

const matchColumns = `id, mode, player_a, player_b, status, letters_a, letters_b,
	winner, created_at, started_at, finished_at, version`

func scanMatch(row pgx.Row) (*model.Match, error) {
	var m model.Match
	err := row.Scan(&m.ID, &m.Mode, &m.PlayerA, &m.PlayerB, &m.Status, &m.LettersA, &m.LettersB,
		&m.Winner, &m.CreatedAt, &m.StartedAt, &m.FinishedAt, &m.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrMatchNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Storage) CreateMatch(ctx context.Context, match *model.Match) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO matches (`+matchColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		match.ID, match.Mode, match.PlayerA, match.PlayerB, match.Status, match.LettersA, match.LettersB,
		match.Winner, match.CreatedAt, match.StartedAt, match.FinishedAt, match.Version)
	return err
}

func (s *Storage) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	return scanMatch(s.pool.QueryRow(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id))
}

func (s *Storage) UpdateMatch(ctx context.Context, match *model.Match) error {
	return updateMatch(ctx, s.pool, match)
}

// updateMatch writes match guarded by its version and bumps match.Version
func updateMatch(ctx context.Context, db DBTX, match *model.Match) error {
	var version int64
	err := db.QueryRow(ctx, `
		UPDATE matches
		SET status = $3, letters_a = $4, letters_b = $5, winner = $6,
		    started_at = $7, finished_at = $8, version = version + 1
		WHERE id = $1 AND version = $2
		RETURNING version`,
		match.ID, match.Version, match.Status, match.LettersA, match.LettersB, match.Winner,
		match.StartedAt, match.FinishedAt).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM matches WHERE id = $1)`, match.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return model.ErrMatchNotFound
		}
		return model.ErrVersionConflict
	}
	if err != nil {
		return err
	}
	match.Version = version
	return nil
}

// Turn operations

const turnColumns = `id, match_id, turn_index, proposer, trick_name, difficulty, video_a_url,
	video_b_url, status, remote_deadline, created_at, responded_at`

func scanTurn(row pgx.Row) (*model.Turn, error) {
	var t model.Turn
	err := row.Scan(&t.ID, &t.MatchID, &t.TurnIndex, &t.Proposer, &t.TrickName, &t.Difficulty, &t.VideoAURL,
		&t.VideoBURL, &t.Status, &t.RemoteDeadline, &t.CreatedAt, &t.RespondedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrTurnNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Storage) CreateTurn(ctx context.Context, turn *model.Turn) error {
	var index int
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		// Row lock on the match serializes concurrent proposers
		var status model.MatchStatus
		err := tx.QueryRow(ctx, `SELECT status FROM matches WHERE id = $1 FOR UPDATE`, turn.MatchID).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrMatchNotFound
		}
		if err != nil {
			return err
		}
		if status != model.MatchStatusActive {
			return model.ErrMatchNotActive
		}

		var inFlight bool
		err = tx.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM turns WHERE match_id = $1 AND status IN ('proposed', 'responded'))`,
			turn.MatchID).Scan(&inFlight)
		if err != nil {
			return err
		}
		if inFlight {
			return model.ErrTurnInFlight
		}

		err = tx.QueryRow(ctx, `SELECT COALESCE(MAX(turn_index) + 1, 0) FROM turns WHERE match_id = $1`,
			turn.MatchID).Scan(&index)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO turns (`+turnColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			turn.ID, turn.MatchID, index, turn.Proposer, turn.TrickName, turn.Difficulty, turn.VideoAURL,
			turn.VideoBURL, turn.Status, turn.RemoteDeadline, turn.CreatedAt, turn.RespondedAt)
		if pgCode(err) == codeUniqueViolation {
			return model.ErrTurnInFlight
		}
		return err
	})
	if err != nil {
		return err
	}
	turn.TurnIndex = index
	return nil
}

func (s *Storage) GetTurn(ctx context.Context, id model.TurnID) (*model.Turn, error) {
	return scanTurn(s.pool.QueryRow(ctx, `SELECT `+turnColumns+` FROM turns WHERE id = $1`, id))
}

func (s *Storage) ListTurns(ctx context.Context, matchID model.MatchID) ([]*model.Turn, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+turnColumns+` FROM turns WHERE match_id = $1 ORDER BY turn_index`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	turns := []*model.Turn{}
	for rows.Next() {
		t, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

func (s *Storage) TransitionTurn(ctx context.Context, t storage.TurnTransition) error {
	match := t.Match.Clone()
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE turns
			SET status = $3, video_b_url = $4, responded_at = $5, remote_deadline = $6
			WHERE id = $1 AND status = $2`,
			t.Turn.ID, t.From, t.Turn.Status, t.Turn.VideoBURL, t.Turn.RespondedAt, t.Turn.RemoteDeadline)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM turns WHERE id = $1)`, t.Turn.ID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return model.ErrTurnNotFound
			}
			return model.ErrAlreadyResolved
		}
		return updateMatch(ctx, tx, match)
	})
	if err != nil {
		return err
	}
	t.Match.Version = match.Version
	return nil
}

// Review operations

func (s *Storage) CreateReview(ctx context.Context, review *model.TurnReview) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO turn_reviews (id, turn_id, reviewer, decision, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		review.ID, review.TurnID, review.Reviewer, review.Decision, review.Reason, review.CreatedAt)
	switch pgCode(err) {
	case codeUniqueViolation:
		return model.ErrAlreadyReviewed
	case codeForeignKeyViolation:
		return model.ErrTurnNotFound
	}
	return err
}

func (s *Storage) ListReviews(ctx context.Context, turnID model.TurnID) ([]*model.TurnReview, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, turn_id, reviewer, decision, reason, created_at
		FROM turn_reviews WHERE turn_id = $1 ORDER BY created_at, id`, turnID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := []*model.TurnReview{}
	for rows.Next() {
		var r model.TurnReview
		if err := rows.Scan(&r.ID, &r.TurnID, &r.Reviewer, &r.Decision, &r.Reason, &r.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, &r)
	}
	return reviews, rows.Err()
}

// Reward operations

// balanceColumn maps a reward kind onto its projection column
func balanceColumn(kind model.RewardKind) (string, error) {
	switch kind {
	case model.RewardXP:
		return "xp", nil
	case model.RewardElo:
		return "elo", nil
	case model.RewardCoin:
		return "coins", nil
	default:
		return "", model.NewValidationError(fmt.Sprintf("unknown reward kind %q", kind))
	}
}

func (s *Storage) AppendRewards(ctx context.Context, rewards []*model.RiderReward) ([]*model.RiderReward, error) {
	var inserted []*model.RiderReward
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		inserted = inserted[:0]
		for _, r := range rewards {
			column, err := balanceColumn(r.Kind)
			if err != nil {
				return err
			}

			var id model.RewardID
			err = tx.QueryRow(ctx, `
				INSERT INTO rider_rewards (id, user_id, match_id, kind, delta, reason, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (user_id, match_id, kind) WHERE match_id IS NOT NULL DO NOTHING
				RETURNING id`,
				r.ID, r.UserID, r.MatchID, r.Kind, r.Delta, r.Reason, r.CreatedAt).Scan(&id)
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			if pgCode(err) == codeForeignKeyViolation {
				return model.ErrRiderNotFound
			}
			if err != nil {
				return err
			}

			if _, err := tx.Exec(ctx,
				`UPDATE riders SET `+column+` = `+column+` + $2 WHERE id = $1`, r.UserID, r.Delta); err != nil {
				return err
			}
			inserted = append(inserted, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inserted, nil
}

func (s *Storage) ListRewards(ctx context.Context, riderID model.RiderID) ([]*model.RiderReward, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, match_id, kind, delta, reason, created_at
		FROM rider_rewards WHERE user_id = $1 ORDER BY seq`, riderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rewards := []*model.RiderReward{}
	for rows.Next() {
		var r model.RiderReward
		if err := rows.Scan(&r.ID, &r.UserID, &r.MatchID, &r.Kind, &r.Delta, &r.Reason, &r.CreatedAt); err != nil {
			return nil, err
		}
		rewards = append(rewards, &r)
	}
	return rewards, rows.Err()
}
