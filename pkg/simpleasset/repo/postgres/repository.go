package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-asset/pkg/simpleasset"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements simpleasset.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

var (
	_ simpleasset.Repository        = (*Repository)(nil)
	_ simpleasset.ProfileStore      = (*Repository)(nil)
	_ simpleasset.ReferenceResolver = (*Repository)(nil)
)

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// ErrMigrationRequired indicates the schema has not been applied.
var ErrMigrationRequired = errors.New("table does not exist - database migration required")

// handlePostgresError maps driver errors onto the package's sentinels.
func handlePostgresError(operation string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return simpleasset.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s", simpleasset.ErrDuplicateKey, pgErr.ConstraintName)
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found: %s", pgErr.ConstraintName)
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "23514": // check_violation
			return fmt.Errorf("%w: constraint %s", simpleasset.ErrValidation, pgErr.ConstraintName)
		case "42P01": // undefined_table
			return ErrMigrationRequired
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

const assetColumns = `id, tenant_id, name, original_name, description, size, mime_type, extension,
	storage_key, bucket, category, subcategory, ai_instructions, usage_context, keywords, priority, notes,
	client_ref, product_ref, proposal_ref, contract_ref, status, ai_available, ai_processed, processed_at,
	version, parent_asset_ref, visibility, view_count, download_count, last_ai_usage_at,
	created_by, updated_by, created_at, updated_at, deleted_at`

func scanAsset(row pgx.Row) (*simpleasset.Asset, error) {
	var a simpleasset.Asset
	var category, status, visibility string
	err := row.Scan(
		&a.ID, &a.TenantID, &a.Name, &a.OriginalName, &a.Description, &a.Size, &a.MimeType, &a.Extension,
		&a.StorageKey, &a.Bucket, &category, &a.Subcategory, &a.AIInstructions, &a.UsageContext, &a.Keywords, &a.Priority, &a.Notes,
		&a.ClientRef, &a.ProductRef, &a.ProposalRef, &a.ContractRef, &status, &a.AIAvailable, &a.AIProcessed, &a.ProcessedAt,
		&a.Version, &a.ParentAssetRef, &visibility, &a.ViewCount, &a.DownloadCount, &a.LastAIUsageAt,
		&a.CreatedBy, &a.UpdatedBy, &a.CreatedAt, &a.UpdatedAt, &a.DeletedAt)
	if err != nil {
		return nil, err
	}
	a.Category = simpleasset.Category(category)
	a.Status = simpleasset.AssetStatus(status)
	a.Visibility = simpleasset.Visibility(visibility)
	return &a, nil
}

func keywordsArg(keywords []string) []string {
	if keywords == nil {
		return []string{}
	}
	return keywords
}

func (r *Repository) CreateAsset(ctx context.Context, a *simpleasset.Asset) error {
	query := `INSERT INTO assets (` + assetColumns + `) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
		$19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34, $35, $36)`

	_, err := r.db.Exec(ctx, query,
		a.ID, a.TenantID, a.Name, a.OriginalName, a.Description, a.Size, a.MimeType, a.Extension,
		a.StorageKey, a.Bucket, string(a.Category), a.Subcategory, a.AIInstructions, a.UsageContext, keywordsArg(a.Keywords), a.Priority, a.Notes,
		a.ClientRef, a.ProductRef, a.ProposalRef, a.ContractRef, string(a.Status), a.AIAvailable, a.AIProcessed, a.ProcessedAt,
		a.Version, a.ParentAssetRef, string(a.Visibility), a.ViewCount, a.DownloadCount, a.LastAIUsageAt,
		a.CreatedBy, a.UpdatedBy, a.CreatedAt, a.UpdatedAt, a.DeletedAt)
	if err != nil {
		return handlePostgresError("create asset", err)
	}
	return nil
}

func (r *Repository) GetAsset(ctx context.Context, tenantID, id uuid.UUID, includeDeleted bool) (*simpleasset.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE tenant_id = $1 AND id = $2`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}

	asset, err := scanAsset(r.db.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		return nil, handlePostgresError("get asset", err)
	}
	return asset, nil
}

func (r *Repository) ListAssets(ctx context.Context, q simpleasset.AssetQuery) ([]*simpleasset.Asset, error) {
	query, args := buildListQuery(q)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, handlePostgresError("list assets", err)
	}
	defer rows.Close()

	assets := []*simpleasset.Asset{}
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, handlePostgresError("scan asset", err)
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, handlePostgresError("iterate asset rows", err)
	}
	return assets, nil
}

// UpdateAsset writes descriptive fields and status only. Counters, key,
// bucket, processing and deletion state have dedicated statements.
func (r *Repository) UpdateAsset(ctx context.Context, a *simpleasset.Asset) error {
	query := `
		UPDATE assets SET
			name = $3, description = $4, category = $5, subcategory = $6,
			ai_instructions = $7, usage_context = $8, keywords = $9, priority = $10, notes = $11,
			client_ref = $12, product_ref = $13, proposal_ref = $14, contract_ref = $15,
			status = $16, ai_available = $17, visibility = $18, updated_by = $19, updated_at = $20
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`

	tag, err := r.db.Exec(ctx, query,
		a.TenantID, a.ID, a.Name, a.Description, string(a.Category), a.Subcategory,
		a.AIInstructions, a.UsageContext, keywordsArg(a.Keywords), a.Priority, a.Notes,
		a.ClientRef, a.ProductRef, a.ProposalRef, a.ContractRef,
		string(a.Status), a.AIAvailable, string(a.Visibility), a.UpdatedBy, a.UpdatedAt)
	if err != nil {
		return handlePostgresError("update asset", err)
	}
	if tag.RowsAffected() == 0 {
		return simpleasset.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteAsset(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM assets WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return handlePostgresError("delete asset", err)
	}
	if tag.RowsAffected() == 0 {
		return simpleasset.ErrNotFound
	}
	return nil
}

func (r *Repository) SoftDeleteAsset(ctx context.Context, tenantID, id uuid.UUID, by string, at time.Time) error {
	query := `UPDATE assets SET deleted_at = $3, updated_at = $3, updated_by = $4
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`
	return r.execOne(ctx, "soft delete asset", query, tenantID, id, at, by)
}

func (r *Repository) RestoreAsset(ctx context.Context, tenantID, id uuid.UUID, by string, at time.Time) error {
	query := `UPDATE assets SET deleted_at = NULL, updated_at = $3, updated_by = $4
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NOT NULL`
	return r.execOne(ctx, "restore asset", query, tenantID, id, at, by)
}

func (r *Repository) MarkProcessed(ctx context.Context, tenantID, id uuid.UUID, by string, at time.Time) error {
	query := `UPDATE assets SET ai_processed = TRUE, processed_at = $3, updated_at = $3, updated_by = $4
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`
	return r.execOne(ctx, "mark processed", query, tenantID, id, at, by)
}

func (r *Repository) TouchAIUsage(ctx context.Context, tenantID, id uuid.UUID, at time.Time) error {
	query := `UPDATE assets SET last_ai_usage_at = $3
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`
	return r.execOne(ctx, "touch ai usage", query, tenantID, id, at)
}

// execOne runs a single-row update and reports ErrNotFound when nothing matched.
func (r *Repository) execOne(ctx context.Context, operation, query string, args ...interface{}) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return handlePostgresError(operation, err)
	}
	if tag.RowsAffected() == 0 {
		return simpleasset.ErrNotFound
	}
	return nil
}

// IncrementCounter performs the increment inside the UPDATE so concurrent
// callers never lose updates.
func (r *Repository) IncrementCounter(ctx context.Context, tenantID, id uuid.UUID, counter simpleasset.Counter) (int64, error) {
	var column string
	switch counter {
	case simpleasset.CounterViews:
		column = "view_count"
	case simpleasset.CounterDownloads:
		column = "download_count"
	default:
		return 0, fmt.Errorf("unknown counter %q", counter)
	}

	query := fmt.Sprintf(`UPDATE assets SET %[1]s = %[1]s + 1
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
		RETURNING %[1]s`, column)

	var n int64
	if err := r.db.QueryRow(ctx, query, tenantID, id).Scan(&n); err != nil {
		return 0, handlePostgresError("increment "+column, err)
	}
	return n, nil
}

func (r *Repository) CategoryStatistics(ctx context.Context, tenantID uuid.UUID) ([]simpleasset.CategoryStats, error) {
	query := `
		SELECT category,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE status = $2),
		       COUNT(*) FILTER (WHERE ai_available),
		       COUNT(*) FILTER (WHERE ai_processed)
		FROM assets
		WHERE tenant_id = $1 AND deleted_at IS NULL
		GROUP BY category
		ORDER BY category`

	rows, err := r.db.Query(ctx, query, tenantID, string(simpleasset.AssetStatusActive))
	if err != nil {
		return nil, handlePostgresError("category statistics", err)
	}
	defer rows.Close()

	stats := []simpleasset.CategoryStats{}
	for rows.Next() {
		var category string
		var st simpleasset.CategoryStats
		if err := rows.Scan(&category, &st.Total, &st.Active, &st.AIAvailable, &st.AIProcessed); err != nil {
			return nil, handlePostgresError("scan category statistics", err)
		}
		st.Category = simpleasset.Category(category)
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, handlePostgresError("iterate category statistics", err)
	}
	return stats, nil
}

// ListDeletedBefore spans tenants; it backs the scheduled purge only.
func (r *Repository) ListDeletedBefore(ctx context.Context, before time.Time, limit int) ([]*simpleasset.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets
		WHERE deleted_at IS NOT NULL AND deleted_at < $1
		ORDER BY deleted_at
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, before, limit)
	if err != nil {
		return nil, handlePostgresError("list deleted assets", err)
	}
	defer rows.Close()

	var assets []*simpleasset.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, handlePostgresError("scan asset", err)
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, handlePostgresError("iterate asset rows", err)
	}
	return assets, nil
}
