package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tendant/simple-asset/pkg/simpleasset"
)

// paramError is a malformed request parameter.
type paramError struct {
	field  string
	reason string
}

func (e *paramError) asValidation() *simpleasset.ValidationError {
	return &simpleasset.ValidationError{Field: e.field, Reason: e.reason}
}

func assetID(r *http.Request) (uuid.UUID, *paramError) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, &paramError{field: "id", reason: "must be a UUID"}
	}
	return id, nil
}

// values reads request parameters from a query string or a parsed form.
type values interface {
	Get(key string) string
}

func optString(v values, key string) *string {
	s := strings.TrimSpace(v.Get(key))
	if s == "" {
		return nil
	}
	return &s
}

func optBool(v values, key string) (*bool, *paramError) {
	s := strings.TrimSpace(v.Get(key))
	if s == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, &paramError{field: key, reason: "must be a boolean"}
	}
	return &b, nil
}

func optInt(v values, key string) (*int, *paramError) {
	s := strings.TrimSpace(v.Get(key))
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, &paramError{field: key, reason: "must be an integer"}
	}
	return &n, nil
}

func optUUID(v values, key string) (*uuid.UUID, *paramError) {
	s := strings.TrimSpace(v.Get(key))
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, &paramError{field: key, reason: "must be a UUID"}
	}
	return &id, nil
}

// csv splits repeated and comma-separated values into one list.
func csv(all []string) []string {
	var out []string
	for _, v := range all {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// parseFilter builds an AssetFilter from query parameters. Enum values are
// passed through and checked by the service.
func parseFilter(q url.Values) (simpleasset.AssetFilter, *paramError) {
	var f simpleasset.AssetFilter
	var perr *paramError

	if s := optString(q, "category"); s != nil {
		c := simpleasset.Category(*s)
		f.Category = &c
	}
	f.Subcategory = optString(q, "subcategory")
	if s := optString(q, "status"); s != nil {
		st := simpleasset.AssetStatus(*s)
		f.Status = &st
	}
	if s := optString(q, "visibility"); s != nil {
		v := simpleasset.Visibility(*s)
		f.Visibility = &v
	}
	if f.AIAvailable, perr = optBool(q, "ai_available"); perr != nil {
		return f, perr
	}
	if f.AIProcessed, perr = optBool(q, "ai_processed"); perr != nil {
		return f, perr
	}
	if f.ClientRef, perr = optUUID(q, "client_ref"); perr != nil {
		return f, perr
	}
	if f.ProductRef, perr = optUUID(q, "product_ref"); perr != nil {
		return f, perr
	}
	if f.ProposalRef, perr = optUUID(q, "proposal_ref"); perr != nil {
		return f, perr
	}

	f.Search = strings.TrimSpace(q.Get("q"))
	f.Keywords = csv(q["keywords"])
	f.SortBy = q.Get("sort")
	f.SortOrder = q.Get("order")

	limit, perr := optInt(q, "limit")
	if perr != nil {
		return f, perr
	}
	if limit != nil {
		f.Limit = *limit
	}
	offset, perr := optInt(q, "offset")
	if perr != nil {
		return f, perr
	}
	if offset != nil {
		f.Offset = *offset
	}
	return f, nil
}
