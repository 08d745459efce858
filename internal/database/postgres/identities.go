package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// IdentityRepository provides PostgreSQL-backed identity storage.
type IdentityRepository struct {
	pool *Pool
}

// NewIdentityRepository creates a new PostgreSQL identity repository.
func NewIdentityRepository(pool *Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

const identityColumns = `id, name, email, employee_id, department, created_at, updated_at`

func scanIdentity(row interface{ Scan(...any) error }) (*database.Identity, error) {
	var i database.Identity
	if err := row.Scan(&i.ID, &i.Name, &i.Email, &i.EmployeeID, &i.Department, &i.CreatedAt, &i.UpdatedAt); err != nil {
		return nil, err
	}
	return &i, nil
}

func scanIdentities(rows *sql.Rows) ([]database.Identity, error) {
	var result []database.Identity
	for rows.Next() {
		i, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		result = append(result, *i)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate identities", err)
	}
	return result, nil
}

// GetIdentity returns the identity or database.ErrIdentityNotFound.
func (r *IdentityRepository) GetIdentity(ctx context.Context, id string) (*database.Identity, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+identityColumns+` FROM identities WHERE id = $1`, id)
	identity, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("identity %s: %w", id, database.ErrIdentityNotFound)
	}
	if err != nil {
		return nil, storeErr("get identity", err)
	}
	return identity, nil
}

// ListIdentities returns all identities ordered by name.
func (r *IdentityRepository) ListIdentities(ctx context.Context) ([]database.Identity, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+identityColumns+` FROM identities ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("query identities: %w", err)
	}
	defer rows.Close()
	return scanIdentities(rows)
}

// FindIdentitiesByName matches on the normalized name stored at write time.
func (r *IdentityRepository) FindIdentitiesByName(ctx context.Context, name string) ([]database.Identity, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE name_normalized = $1 ORDER BY name, id`,
		facematch.NormalizePersonName(name),
	)
	if err != nil {
		return nil, fmt.Errorf("query identities by name: %w", err)
	}
	defer rows.Close()
	return scanIdentities(rows)
}

// CountIdentities returns the number of identities.
func (r *IdentityRepository) CountIdentities(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM identities").Scan(&count); err != nil {
		return 0, storeErr("count identities", err)
	}
	return count, nil
}

// CreateIdentity inserts a new identity, generating a UUID when ID is empty.
func (r *IdentityRepository) CreateIdentity(ctx context.Context, identity *database.Identity) error {
	if identity.ID == "" {
		identity.ID = uuid.NewString()
	}
	now := time.Now()
	identity.CreatedAt = now
	identity.UpdatedAt = now

	_, err := r.pool.Exec(ctx, `
		INSERT INTO identities (id, name, name_normalized, email, employee_id, department, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, identity.ID, identity.Name, facematch.NormalizePersonName(identity.Name),
		identity.Email, identity.EmployeeID, identity.Department, identity.CreatedAt, identity.UpdatedAt)
	if err != nil {
		return storeErr("insert identity", err)
	}
	return nil
}

// UpdateIdentity applies the update inside a transaction and returns the stored identity.
func (r *IdentityRepository) UpdateIdentity(ctx context.Context, id string, update database.IdentityUpdate) (*database.Identity, error) {
	tx, err := r.pool.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeErr("begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	identity, err := scanIdentity(tx.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("identity %s: %w", id, database.ErrIdentityNotFound)
	}
	if err != nil {
		return nil, storeErr("get identity for update", err)
	}

	update.Apply(identity)
	identity.UpdatedAt = time.Now()

	_, err = tx.ExecContext(ctx, `
		UPDATE identities
		SET name = $2, name_normalized = $3, email = $4, employee_id = $5, department = $6, updated_at = $7
		WHERE id = $1
	`, identity.ID, identity.Name, facematch.NormalizePersonName(identity.Name),
		identity.Email, identity.EmployeeID, identity.Department, identity.UpdatedAt)
	if err != nil {
		return nil, storeErr("update identity", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storeErr("commit identity update", err)
	}
	return identity, nil
}

var _ database.IdentityWriter = (*IdentityRepository)(nil)
