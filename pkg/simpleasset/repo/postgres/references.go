package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/tendant/simple-asset/pkg/simpleasset"
)

// LookupTenant returns the tenant recorded on the subject's profile.
func (r *Repository) LookupTenant(ctx context.Context, subject string) (uuid.UUID, error) {
	var tenantID uuid.UUID
	err := r.db.QueryRow(ctx, `SELECT tenant_id FROM profiles WHERE subject = $1`, subject).Scan(&tenantID)
	if err != nil {
		return uuid.Nil, handlePostgresError("lookup tenant", err)
	}
	return tenantID, nil
}

// ResolveReferenceNames fetches display names in one round trip. Each lookup
// is scoped to the tenant so a foreign reference resolves to an empty name.
func (r *Repository) ResolveReferenceNames(ctx context.Context, tenantID uuid.UUID, asset *simpleasset.Asset) (simpleasset.ReferenceNames, error) {
	var names simpleasset.ReferenceNames
	if asset.ClientRef == nil && asset.ProductRef == nil && asset.ProposalRef == nil {
		return names, nil
	}

	query := `
		SELECT
			COALESCE((SELECT name FROM clients WHERE id = $2 AND tenant_id = $1), ''),
			COALESCE((SELECT name FROM products WHERE id = $3 AND tenant_id = $1), ''),
			COALESCE((SELECT title FROM proposals WHERE id = $4 AND tenant_id = $1), '')`

	err := r.db.QueryRow(ctx, query, tenantID, asset.ClientRef, asset.ProductRef, asset.ProposalRef).
		Scan(&names.ClientName, &names.ProductName, &names.ProposalTitle)
	if err != nil {
		return simpleasset.ReferenceNames{}, handlePostgresError("resolve reference names", err)
	}
	return names, nil
}
