// Package simpleasset provides a tenant-scoped asset lifecycle manager with
// pluggable repository and blob storage backends.
//
// It exposes a single Service interface that uploads assets (object write
// followed by a metadata insert, compensated on failure), queries them within
// a tenant, moves them through soft delete, restore and hard delete, and
// records usage counters. Implementations of repositories (memory, Postgres)
// and blob stores (memory, filesystem, S3, MinIO) are provided under
// subpackages.
//
// Tenant Scoping
//
// Every operation resolves the caller's tenant exactly once through a
// TenantResolver and passes it explicitly to the repository. Storage keys
// always begin with the tenant id, so identical uploads from two tenants never
// share a key.
//
// Storage Keys
//
// Keys follow <tenant>/<category-folder>/[<subcategory>/]<nanos>_<name>.<ext>
// and are immutable once the metadata row exists. Changing content means a new
// asset.
package simpleasset
