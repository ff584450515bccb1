package postgres

import (
	"fmt"
	"strings"

	"github.com/tendant/simple-asset/pkg/simpleasset"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// buildListQuery renders a tenant-scoped SELECT. The tenant predicate and the
// deleted_at predicate come first and are never optional. The filter is
// expected to be normalized (see simpleasset.NormalizeFilter).
func buildListQuery(q simpleasset.AssetQuery) (string, []interface{}) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE tenant_id = $1`
	args := []interface{}{q.TenantID}
	argIndex := 2

	switch {
	case q.OnlyDeleted:
		query += " AND deleted_at IS NOT NULL"
	case !q.IncludeDeleted:
		query += " AND deleted_at IS NULL"
	}

	f := q.Filter
	if f.Category != nil {
		query += fmt.Sprintf(" AND category = $%d", argIndex)
		args = append(args, string(*f.Category))
		argIndex++
	}
	if f.Subcategory != nil {
		query += fmt.Sprintf(" AND subcategory = $%d", argIndex)
		args = append(args, *f.Subcategory)
		argIndex++
	}
	if f.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, string(*f.Status))
		argIndex++
	}
	if f.AIAvailable != nil {
		query += fmt.Sprintf(" AND ai_available = $%d", argIndex)
		args = append(args, *f.AIAvailable)
		argIndex++
	}
	if f.AIProcessed != nil {
		query += fmt.Sprintf(" AND ai_processed = $%d", argIndex)
		args = append(args, *f.AIProcessed)
		argIndex++
	}
	if f.Visibility != nil {
		query += fmt.Sprintf(" AND visibility = $%d", argIndex)
		args = append(args, string(*f.Visibility))
		argIndex++
	}
	if f.ClientRef != nil {
		query += fmt.Sprintf(" AND client_ref = $%d", argIndex)
		args = append(args, *f.ClientRef)
		argIndex++
	}
	if f.ProductRef != nil {
		query += fmt.Sprintf(" AND product_ref = $%d", argIndex)
		args = append(args, *f.ProductRef)
		argIndex++
	}
	if f.ProposalRef != nil {
		query += fmt.Sprintf(" AND proposal_ref = $%d", argIndex)
		args = append(args, *f.ProposalRef)
		argIndex++
	}
	if f.Search != "" {
		query += fmt.Sprintf(" AND (name ILIKE $%[1]d OR original_name ILIKE $%[1]d OR description ILIKE $%[1]d)", argIndex)
		args = append(args, "%"+likeEscaper.Replace(f.Search)+"%")
		argIndex++
	}
	if len(f.Keywords) > 0 {
		query += fmt.Sprintf(" AND keywords && $%d", argIndex)
		args = append(args, f.Keywords)
		argIndex++
	}

	// Sorting
	sortBy := "priority"
	switch f.SortBy {
	case "created_at", "updated_at", "name", "priority":
		sortBy = f.SortBy
	}
	sortOrder := "DESC"
	if strings.EqualFold(f.SortOrder, "asc") {
		sortOrder = "ASC"
	}
	order := fmt.Sprintf("%s %s, created_at DESC, id", sortBy, sortOrder)
	if q.OnlyDeleted {
		order = "deleted_at DESC, " + order
	}
	query += " ORDER BY " + order

	// Pagination
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, f.Limit)
		argIndex++
	}
	if f.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, f.Offset)
	}

	return query, args
}
