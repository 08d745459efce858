package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// FaceSampleRepository stores reference embeddings as pgvector columns.
type FaceSampleRepository struct {
	pool *Pool
}

// NewFaceSampleRepository creates a new PostgreSQL face sample repository.
func NewFaceSampleRepository(pool *Pool) *FaceSampleRepository {
	return &FaceSampleRepository{pool: pool}
}

// FetchAll loads the whole reference set in insertion order.
func (r *FaceSampleRepository) FetchAll(ctx context.Context) (facematch.ReferenceSet, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.identity_id, i.name, s.embedding
		FROM face_samples s
		JOIN identities i ON i.id = s.identity_id
		ORDER BY s.id
	`)
	if err != nil {
		return nil, fmt.Errorf("query face samples: %w", err)
	}
	defer rows.Close()

	var refs facematch.ReferenceSet
	for rows.Next() {
		var ref facematch.Reference
		var vec pgvector.Vector
		if err := rows.Scan(&ref.IdentityID, &ref.Name, &vec); err != nil {
			return nil, fmt.Errorf("scan face sample: %w", err)
		}
		ref.Embedding = facematch.FromFloat32(vec.Slice())
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate face samples", err)
	}
	return refs, nil
}

// ListSamples returns the samples of one identity ordered by ID.
func (r *FaceSampleRepository) ListSamples(ctx context.Context, identityID string) ([]database.FaceSample, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, identity_id, embedding, model, dim, created_at
		FROM face_samples
		WHERE identity_id = $1
		ORDER BY id
	`, identityID)
	if err != nil {
		return nil, fmt.Errorf("query samples of identity: %w", err)
	}
	defer rows.Close()

	var result []database.FaceSample
	for rows.Next() {
		var s database.FaceSample
		var vec pgvector.Vector
		if err := rows.Scan(&s.ID, &s.IdentityID, &vec, &s.Model, &s.Dim, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan face sample: %w", err)
		}
		s.Embedding = facematch.FromFloat32(vec.Slice())
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate face samples", err)
	}
	return result, nil
}

// CountSamples returns the number of stored samples.
func (r *FaceSampleRepository) CountSamples(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM face_samples").Scan(&count); err != nil {
		return 0, storeErr("count face samples", err)
	}
	return count, nil
}

// Append inserts one more sample for the identity.
func (r *FaceSampleRepository) Append(ctx context.Context, identityID string, embedding facematch.Embedding, model string) (*database.FaceSample, error) {
	sample := &database.FaceSample{
		IdentityID: identityID,
		Embedding:  embedding,
		Model:      model,
		Dim:        len(embedding),
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO face_samples (identity_id, embedding, model, dim)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, identityID, pgvector.NewVector(embedding.Float32()), model, sample.Dim).Scan(&sample.ID, &sample.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" { // foreign_key_violation
			return nil, fmt.Errorf("identity %s: %w", identityID, database.ErrIdentityNotFound)
		}
		return nil, storeErr("insert face sample", err)
	}
	return sample, nil
}

// DeleteSamples removes all samples of an identity.
func (r *FaceSampleRepository) DeleteSamples(ctx context.Context, identityID string) (int64, error) {
	result, err := r.pool.Exec(ctx, "DELETE FROM face_samples WHERE identity_id = $1", identityID)
	if err != nil {
		return 0, storeErr("delete face samples", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

var _ database.FaceSampleWriter = (*FaceSampleRepository)(nil)
