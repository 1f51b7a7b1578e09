package service

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/quillsign/quillsign/backend/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements Store on a pgx connection pool. Migrations run
// through goose at connect time.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, url string) (*PostgresStore, error) {
	if err := migrate(url); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// migrate applies embedded goose migrations over database/sql, which goose
// requires; the pool itself stays on native pgx.
func migrate(url string) error {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, "migrations")
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

const contractColumns = `id, title, description, owner_user, status,
	source_object, source_url, filename, page_count,
	owner_signed_at, owner_field_values, artifact_object, artifact_url,
	created_at, updated_at`

func scanContract(row pgx.Row) (*model.Contract, error) {
	var c model.Contract
	var values []byte
	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.OwnerUser, &c.Status,
		&c.SourceObject, &c.SourceURL, &c.Filename, &c.PageCount,
		&c.OwnerSignedAt, &values, &c.ArtifactObject, &c.ArtifactURL,
		&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(values) > 0 {
		if err := json.Unmarshal(values, &c.OwnerFieldValues); err != nil {
			return nil, fmt.Errorf("failed to decode owner values: %w", err)
		}
	}
	return &c, nil
}

func (s *PostgresStore) CreateContract(ctx context.Context, c *model.Contract) error {
	values, err := json.Marshal(c.OwnerFieldValues)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO contracts (id, title, description, owner_user, status,
			source_object, source_url, filename, page_count,
			owner_signed_at, owner_field_values, artifact_object, artifact_url,
			created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`, c.ID, c.Title, c.Description, c.OwnerUser, c.Status,
		c.SourceObject, c.SourceURL, c.Filename, c.PageCount,
		c.OwnerSignedAt, values, c.ArtifactObject, c.ArtifactURL,
		c.CreatedAt, c.UpdatedAt)
	return err
}

func (s *PostgresStore) GetContract(ctx context.Context, id string) (*model.Contract, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+contractColumns+` FROM contracts WHERE id = $1`, id)
	return scanContract(row)
}

func (s *PostgresStore) ListContracts(ctx context.Context, ownerUser string) ([]*model.Contract, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+contractColumns+`
		FROM contracts WHERE owner_user = $1
		ORDER BY created_at DESC
	`, ownerUser)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*model.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (s *PostgresStore) UpdateContract(ctx context.Context, c *model.Contract) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE contracts
		SET title = $2, description = $3, status = $4, page_count = $5, updated_at = now()
		WHERE id = $1
	`, c.ID, c.Title, c.Description, c.Status, c.PageCount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateContractStatus(ctx context.Context, id, status string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE contracts SET status = $2, updated_at = now() WHERE id = $1
	`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetArtifact(ctx context.Context, id, object, url string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE contracts SET artifact_object = $2, artifact_url = $3, updated_at = now()
		WHERE id = $1
	`, id, object, url)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteContract(ctx context.Context, id string) error {
	// fields and submissions cascade
	tag, err := s.pool.Exec(ctx, `DELETE FROM contracts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListFields(ctx context.Context, contractID string) ([]model.Field, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, contract_id, type, label, page_number, x, y, width, height,
			signer_party, display_order
		FROM fields WHERE contract_id = $1
		ORDER BY display_order, id
	`, contractID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Field
	for rows.Next() {
		var f model.Field
		if err := rows.Scan(&f.ID, &f.ContractID, &f.Type, &f.Label, &f.PageNumber,
			&f.X, &f.Y, &f.Width, &f.Height, &f.SignerParty, &f.DisplayOrder); err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

// ReplaceFields swaps the field set inside one transaction, closing the
// delete-then-insert partial-failure window.
func (s *PostgresStore) ReplaceFields(ctx context.Context, contractID string, fields []model.Field) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM contracts WHERE id = $1)`, contractID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM fields WHERE contract_id = $1`, contractID); err != nil {
		return err
	}
	for _, f := range fields {
		if _, err := tx.Exec(ctx, `
			INSERT INTO fields (id, contract_id, type, label, page_number,
				x, y, width, height, signer_party, display_order)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		`, f.ID, contractID, f.Type, f.Label, f.PageNumber,
			f.X, f.Y, f.Width, f.Height, f.SignerParty, f.DisplayOrder); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// CommitOwnerSigning writes values, timestamp and the active status in one
// statement so a failure can never leave them mixed.
func (s *PostgresStore) CommitOwnerSigning(ctx context.Context, contractID string, values map[string]string, signedAt time.Time) error {
	encoded, err := json.Marshal(values)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE contracts
		SET owner_field_values = $2, owner_signed_at = $3, status = $4, updated_at = now()
		WHERE id = $1
	`, contractID, encoded, signedAt, model.StatusActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	values, err := json.Marshal(sub.FieldValues)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO submissions (id, contract_id, signer_name, signer_email, field_values, signed_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, sub.ID, sub.ContractID, sub.SignerName, sub.SignerEmail, values, sub.SignedAt)
	return err
}

func scanSubmission(row pgx.Row) (*model.Submission, error) {
	var sub model.Submission
	var values []byte
	err := row.Scan(&sub.ID, &sub.ContractID, &sub.SignerName, &sub.SignerEmail, &values, &sub.SignedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(values, &sub.FieldValues); err != nil {
		return nil, fmt.Errorf("failed to decode submission values: %w", err)
	}
	return &sub, nil
}

func (s *PostgresStore) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, contract_id, signer_name, signer_email, field_values, signed_at
		FROM submissions WHERE id = $1
	`, id)
	return scanSubmission(row)
}

func (s *PostgresStore) ListSubmissions(ctx context.Context, contractID string) ([]*model.Submission, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, contract_id, signer_name, signer_email, field_values, signed_at
		FROM submissions WHERE contract_id = $1
		ORDER BY signed_at
	`, contractID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*model.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, sub)
	}
	return result, rows.Err()
}

func (s *PostgresStore) CreateSavedSignature(ctx context.Context, sig *model.SavedSignature) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if sig.IsDefault {
		if _, err := tx.Exec(ctx, `
			UPDATE saved_signatures SET is_default = FALSE WHERE user_id = $1
		`, sig.UserID); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO saved_signatures (id, user_id, name, data, is_default, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, sig.ID, sig.UserID, sig.Name, sig.Data, sig.IsDefault, sig.CreatedAt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) GetSavedSignature(ctx context.Context, id string) (*model.SavedSignature, error) {
	var sig model.SavedSignature
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, name, data, is_default, created_at
		FROM saved_signatures WHERE id = $1
	`, id).Scan(&sig.ID, &sig.UserID, &sig.Name, &sig.Data, &sig.IsDefault, &sig.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sig, nil
}

func (s *PostgresStore) ListSavedSignatures(ctx context.Context, userID string) ([]*model.SavedSignature, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, name, data, is_default, created_at
		FROM saved_signatures WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*model.SavedSignature
	for rows.Next() {
		var sig model.SavedSignature
		if err := rows.Scan(&sig.ID, &sig.UserID, &sig.Name, &sig.Data, &sig.IsDefault, &sig.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &sig)
	}
	return result, rows.Err()
}

func (s *PostgresStore) DeleteSavedSignature(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM saved_signatures WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
