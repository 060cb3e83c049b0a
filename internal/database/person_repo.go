package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"facetrace/internal/models"
)

// PersonRepository owns the identity roster. People are only ever created
// or enriched with additional reference embeddings, never deleted.
type PersonRepository struct {
	db *DB
}

func NewPersonRepository(db *DB) *PersonRepository {
	return &PersonRepository{db: db}
}

func (r *PersonRepository) Create(ctx context.Context, person *models.Person) error {
	embeddings, err := json.Marshal(person.Embeddings)
	if err != nil {
		return fmt.Errorf("failed to marshal embeddings: %w", err)
	}

	query := `
		INSERT INTO people (id, name, embeddings, created_at)
		VALUES ($1, $2, $3, $4)`

	_, err = r.db.conn.ExecContext(ctx, query,
		person.ID, person.Name, string(embeddings), person.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert person: %w", err)
	}
	return nil
}

func (r *PersonRepository) GetByID(ctx context.Context, id string) (*models.Person, error) {
	query := `SELECT id, name, embeddings, created_at FROM people WHERE id = $1`

	person := &models.Person{}
	var embeddings string
	err := r.db.conn.QueryRowContext(ctx, query, id).Scan(
		&person.ID, &person.Name, &embeddings, &person.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person: %w", err)
	}

	if err := json.Unmarshal([]byte(embeddings), &person.Embeddings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal embeddings: %w", err)
	}
	return person, nil
}

func (r *PersonRepository) List(ctx context.Context) ([]*models.Person, error) {
	query := `SELECT id, name, embeddings, created_at FROM people ORDER BY created_at, id`

	rows, err := r.db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query people: %w", err)
	}
	defer rows.Close()

	var people []*models.Person
	for rows.Next() {
		person := &models.Person{}
		var embeddings string
		if err := rows.Scan(&person.ID, &person.Name, &embeddings, &person.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		if err := json.Unmarshal([]byte(embeddings), &person.Embeddings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal embeddings: %w", err)
		}
		people = append(people, person)
	}
	return people, rows.Err()
}

// AppendEmbedding adds a reference embedding to an existing person, subject
// to the cap. The read-modify-write runs in a transaction so concurrent
// enrichment of the same person from two jobs serializes; the bounded set
// means a lost race costs at most one reference.
func (r *PersonRepository) AppendEmbedding(ctx context.Context, personID string, embedding []float64, maxEmbeddings int) error {
	tx, err := r.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT embeddings FROM people WHERE id = $1`, personID).Scan(&raw)
	if err == sql.ErrNoRows {
		return fmt.Errorf("person %s not found", personID)
	}
	if err != nil {
		return fmt.Errorf("failed to read embeddings: %w", err)
	}

	var embeddings [][]float64
	if err := json.Unmarshal([]byte(raw), &embeddings); err != nil {
		return fmt.Errorf("failed to unmarshal embeddings: %w", err)
	}

	if maxEmbeddings > 0 && len(embeddings) >= maxEmbeddings {
		return nil
	}
	embeddings = append(embeddings, embedding)

	updated, err := json.Marshal(embeddings)
	if err != nil {
		return fmt.Errorf("failed to marshal embeddings: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE people SET embeddings = $1 WHERE id = $2`, string(updated), personID); err != nil {
		return fmt.Errorf("failed to update embeddings: %w", err)
	}
	return tx.Commit()
}
