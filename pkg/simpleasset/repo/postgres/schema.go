package postgres

import "context"

// Schema creates the assets table and its indexes. Profiles and the
// referenced entities (clients, products, proposals) are owned by other
// services; ReferenceTables documents the columns this package reads.
const Schema = `
CREATE TABLE IF NOT EXISTS assets (
	id               UUID PRIMARY KEY,
	tenant_id        UUID NOT NULL,
	name             TEXT NOT NULL,
	original_name    TEXT NOT NULL DEFAULT '',
	description      TEXT NOT NULL DEFAULT '',
	size             BIGINT NOT NULL CHECK (size >= 0),
	mime_type        TEXT NOT NULL,
	extension        TEXT NOT NULL,
	storage_key      TEXT NOT NULL,
	bucket           TEXT NOT NULL,
	category         TEXT NOT NULL,
	subcategory      TEXT NOT NULL DEFAULT '',
	ai_instructions  TEXT NOT NULL DEFAULT '',
	usage_context    TEXT NOT NULL DEFAULT '',
	keywords         TEXT[] NOT NULL DEFAULT '{}',
	priority         INTEGER NOT NULL DEFAULT 5 CHECK (priority BETWEEN 1 AND 10),
	notes            TEXT NOT NULL DEFAULT '',
	client_ref       UUID,
	product_ref      UUID,
	proposal_ref     UUID,
	contract_ref     UUID,
	status           TEXT NOT NULL DEFAULT 'ativo' CHECK (status IN ('ativo', 'inativo', 'arquivado')),
	ai_available     BOOLEAN NOT NULL DEFAULT TRUE,
	ai_processed     BOOLEAN NOT NULL DEFAULT FALSE,
	processed_at     TIMESTAMPTZ,
	version          INTEGER NOT NULL DEFAULT 1,
	parent_asset_ref UUID REFERENCES assets (id) ON DELETE SET NULL,
	visibility       TEXT NOT NULL DEFAULT 'privado' CHECK (visibility IN ('publico', 'privado', 'restrito')),
	view_count       BIGINT NOT NULL DEFAULT 0,
	download_count   BIGINT NOT NULL DEFAULT 0,
	last_ai_usage_at TIMESTAMPTZ,
	created_by       TEXT NOT NULL DEFAULT '',
	updated_by       TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	deleted_at       TIMESTAMPTZ,
	CONSTRAINT assets_storage_key_unique UNIQUE (tenant_id, bucket, storage_key)
);

CREATE INDEX IF NOT EXISTS idx_assets_tenant_category ON assets (tenant_id, category) WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_assets_tenant_priority ON assets (tenant_id, priority DESC, created_at DESC) WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_assets_keywords ON assets USING GIN (keywords);
CREATE INDEX IF NOT EXISTS idx_assets_deleted_at ON assets (deleted_at) WHERE deleted_at IS NOT NULL;
`

// ReferenceTables lists the externally owned tables read by LookupTenant and
// ResolveReferenceNames. It is applied only in development setups.
const ReferenceTables = `
CREATE TABLE IF NOT EXISTS profiles (
	subject   TEXT PRIMARY KEY,
	tenant_id UUID NOT NULL
);
CREATE TABLE IF NOT EXISTS clients (
	id        UUID PRIMARY KEY,
	tenant_id UUID NOT NULL,
	name      TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS products (
	id        UUID PRIMARY KEY,
	tenant_id UUID NOT NULL,
	name      TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS proposals (
	id        UUID PRIMARY KEY,
	tenant_id UUID NOT NULL,
	title     TEXT NOT NULL
);
`

// Migrate applies Schema, and ReferenceTables when withReferences is set.
func Migrate(ctx context.Context, db DBTX, withReferences bool) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return handlePostgresError("migrate assets", err)
	}
	if withReferences {
		if _, err := db.Exec(ctx, ReferenceTables); err != nil {
			return handlePostgresError("migrate reference tables", err)
		}
	}
	return nil
}
