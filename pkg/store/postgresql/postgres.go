// Package postgresql provides the PostgreSQL state store implementation.
package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/enrollhq/admitflow/pkg/models"
	"github.com/enrollhq/admitflow/pkg/store"
	"github.com/enrollhq/admitflow/pkg/store/sqlbase"
)

// Store implements store.Store on PostgreSQL. Transitions are recorded in a
// single transaction with a row lock on the application state, so the
// close-current/open-next history update is atomic.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore connects, runs migrations, and returns a ready store.
func NewStore(ctx context.Context, logger *slog.Logger, databaseURL string) (*Store, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	if err := database.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{
		db:     database,
		logger: logger.With("module", "postgresql_store"),
	}

	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

func (s *Store) Get(ctx context.Context, applicationID string) (*models.ApplicationWorkflowState, error) {
	state, err := s.loadState(ctx, s.db, applicationID)
	if err != nil {
		return nil, err
	}

	if err := s.loadHistory(ctx, state); err != nil {
		return nil, err
	}

	return state, nil
}

func (s *Store) Create(ctx context.Context, state *models.ApplicationWorkflowState) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO application_states (application_id, template_id, template_version, current_stage_id, entered_at)
		VALUES ($1, $2, $3, $4, $5)
	`, state.ApplicationID, state.TemplateID, state.TemplateVersion, state.CurrentStageID, state.EnteredAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return store.NewStateError("Create", state.ApplicationID, store.ErrStateExists)
		}

		return fmt.Errorf("failed to insert application state: %w", err)
	}

	for position, entry := range state.History {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO application_history (id, application_id, stage_id, entered_at, exited_at, transition_name, triggered_by, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, entry.ID, state.ApplicationID, entry.StageID, entry.EnteredAt, entry.ExitedAt, entry.TransitionName, entry.TriggeredBy, position)
		if err != nil {
			return fmt.Errorf("failed to insert history entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (s *Store) AppendTransition(ctx context.Context, applicationID, expectedStageID, newStageID, transitionName, triggeredBy string) (*models.ApplicationWorkflowState, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	var currentStageID string

	err = tx.QueryRowContext(ctx, `
		SELECT current_stage_id FROM application_states WHERE application_id = $1 FOR UPDATE
	`, applicationID).Scan(&currentStageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.NewStateError("AppendTransition", applicationID, store.ErrStateNotFound)
		}

		return nil, fmt.Errorf("failed to lock application state: %w", err)
	}

	if currentStageID != expectedStageID {
		return nil, store.NewStateError("AppendTransition", applicationID, store.ErrStaleTransition)
	}

	now := time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		UPDATE application_history SET exited_at = $1
		WHERE application_id = $2 AND exited_at IS NULL
	`, now, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to close current history entry: %w", err)
	}

	entryID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate history entry ID: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO application_history (id, application_id, stage_id, entered_at, exited_at, transition_name, triggered_by, position)
		VALUES ($1, $2, $3, $4, NULL, $5, $6,
			(SELECT COALESCE(MAX(position), -1) + 1 FROM application_history WHERE application_id = $2))
	`, entryID.String(), applicationID, newStageID, now, transitionName, triggeredBy)
	if err != nil {
		return nil, fmt.Errorf("failed to insert history entry: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE application_states SET current_stage_id = $1, entered_at = $2 WHERE application_id = $3
	`, newStageID, now, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to update application state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.Get(ctx, applicationID)
}

func (s *Store) CandidateApplications(ctx context.Context, templateID string, templateVersion int, stageIDs []string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT application_id FROM application_states
		WHERE template_id = $1 AND template_version = $2 AND current_stage_id = ANY($3)
	`, templateID, templateVersion, pq.Array(stageIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query candidate applications: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	candidates := make([]string, 0)

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan application id: %w", err)
		}

		candidates = append(candidates, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidate applications: %w", err)
	}

	return candidates, nil
}

// AcquireLease claims the application with an upsert that only succeeds when
// no live lease exists (or the holder already owns it).
func (s *Store) AcquireLease(ctx context.Context, applicationID, holderToken string, ttl time.Duration) (*models.Lease, error) {
	expiresAt := time.Now().UTC().Add(ttl)

	var granted string

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO application_leases (application_id, holder_token, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (application_id) DO UPDATE
			SET holder_token = EXCLUDED.holder_token, expires_at = EXCLUDED.expires_at
			WHERE application_leases.expires_at <= NOW()
				OR application_leases.holder_token = EXCLUDED.holder_token
		RETURNING holder_token
	`, applicationID, holderToken, expiresAt).Scan(&granted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.NewStateError("AcquireLease", applicationID, store.ErrLeaseHeld)
		}

		return nil, fmt.Errorf("failed to acquire lease: %w", err)
	}

	return &models.Lease{ApplicationID: applicationID, HolderToken: holderToken, ExpiresAt: expiresAt}, nil
}

func (s *Store) RenewLease(ctx context.Context, applicationID, holderToken string, ttl time.Duration) (*models.Lease, error) {
	expiresAt := time.Now().UTC().Add(ttl)

	result, err := s.db.ExecContext(ctx, `
		UPDATE application_leases SET expires_at = $1
		WHERE application_id = $2 AND holder_token = $3 AND expires_at > NOW()
	`, expiresAt, applicationID, holderToken)
	if err != nil {
		return nil, fmt.Errorf("failed to renew lease: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check renewed lease: %w", err)
	}

	if affected == 0 {
		return nil, store.NewStateError("RenewLease", applicationID, store.ErrLeaseNotHeld)
	}

	return &models.Lease{ApplicationID: applicationID, HolderToken: holderToken, ExpiresAt: expiresAt}, nil
}

func (s *Store) ReleaseLease(ctx context.Context, applicationID, holderToken string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM application_leases
		WHERE application_id = $1 AND holder_token = $2
	`, applicationID, holderToken)
	if err != nil {
		return fmt.Errorf("failed to release lease: %w", err)
	}

	return nil
}

func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	return nil
}

func (s *Store) Close(_ context.Context) error {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

func (s *Store) loadState(ctx context.Context, q queryer, applicationID string) (*models.ApplicationWorkflowState, error) {
	state := &models.ApplicationWorkflowState{}

	err := q.QueryRowContext(ctx, `
		SELECT application_id, template_id, template_version, current_stage_id, entered_at
		FROM application_states WHERE application_id = $1
	`, applicationID).Scan(
		&state.ApplicationID, &state.TemplateID, &state.TemplateVersion,
		&state.CurrentStageID, &state.EnteredAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.NewStateError("Get", applicationID, store.ErrStateNotFound)
		}

		return nil, fmt.Errorf("failed to scan application state: %w", err)
	}

	return state, nil
}

func (s *Store) loadHistory(ctx context.Context, state *models.ApplicationWorkflowState) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, stage_id, entered_at, exited_at, transition_name, triggered_by
		FROM application_history WHERE application_id = $1 ORDER BY position
	`, state.ApplicationID)
	if err != nil {
		return fmt.Errorf("failed to query history: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	for rows.Next() {
		var entry models.HistoryEntry

		err := rows.Scan(&entry.ID, &entry.StageID, &entry.EnteredAt, &entry.ExitedAt, &entry.TransitionName, &entry.TriggeredBy)
		if err != nil {
			return fmt.Errorf("failed to scan history entry: %w", err)
		}

		state.History = append(state.History, entry)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating history: %w", err)
	}

	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	return sqlbase.NewMigrationManager(s.logger, s.db, migrations()).RunMigrations(ctx)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
