package assets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/dbx"
	"github.com/dmitrijs2005/gophgallery/internal/server/models"
)

const assetColumns = `id, owner_id, blob_locator, blob_delete_key, category, description, group_id, created_at`

// PostgresRepository implements asset storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// validID reports whether id can name a row. Ids are UUID columns; anything
// else cannot match and would fail the cast server-side.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (r *PostgresRepository) Insert(ctx context.Context, a *models.Asset) error {
	return insert(ctx, r.db, a)
}

// InsertMany writes the batch in one transaction unless the repository is
// already bound to one.
func (r *PostgresRepository) InsertMany(ctx context.Context, assets []*models.Asset) error {
	if len(assets) == 0 {
		return nil
	}
	return dbx.InTx(ctx, r.db, func(ctx context.Context, tx dbx.DBTX) error {
		for _, a := range assets {
			if err := insert(ctx, tx, a); err != nil {
				return err
			}
		}
		return nil
	})
}

func insert(ctx context.Context, db dbx.DBTX, a *models.Asset) error {
	query :=
		`INSERT INTO assets (owner_id, blob_locator, blob_delete_key, category, description, group_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id
		 `

	err := db.QueryRowContext(ctx, query,
		nullable(a.OwnerID), a.BlobLocator, nullable(a.BlobDeleteKey), a.Category,
		nullable(a.Description), nullable(a.GroupID), a.CreatedAt).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.Asset, error) {
	if !validID(id) {
		return nil, common.ErrorNotFound
	}
	query := `SELECT ` + assetColumns + ` FROM assets WHERE id = $1`

	a, err := scanAsset(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) FindAllByOwner(ctx context.Context, ownerID string) ([]*models.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE owner_id = $1 ORDER BY created_at`
	return r.selectAssets(ctx, query, ownerID)
}

func (r *PostgresRepository) FindAll(ctx context.Context) ([]*models.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets ORDER BY created_at`
	return r.selectAssets(ctx, query)
}

func (r *PostgresRepository) selectAssets(ctx context.Context, query string, args ...any) ([]*models.Asset, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select assets: %w", err)
	}
	defer rows.Close()

	var result []*models.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) DistinctCategories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT category FROM assets`)
	if err != nil {
		return nil, fmt.Errorf("failed to select categories: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) DeleteByID(ctx context.Context, id string) error {
	if !validID(id) {
		return common.ErrorNotFound
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM assets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAsset(s scanner) (*models.Asset, error) {
	var (
		a                                     models.Asset
		owner, deleteKey, description, group sql.NullString
	)
	if err := s.Scan(&a.ID, &owner, &a.BlobLocator, &deleteKey, &a.Category, &description, &group, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.OwnerID = owner.String
	a.BlobDeleteKey = deleteKey.String
	a.Description = description.String
	a.GroupID = group.String
	return &a, nil
}

// nullable stores empty optional fields as NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
