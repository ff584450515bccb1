package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/simple-asset/pkg/simpleasset"
)

// DefaultMaxUploadBytes bounds multipart uploads.
const DefaultMaxUploadBytes int64 = 100 << 20

// AssetHandler handles HTTP requests for assets
type AssetHandler struct {
	service        simpleasset.Service
	maxUploadBytes int64
}

// NewAssetHandler creates a new asset handler. maxUploadBytes <= 0 uses
// DefaultMaxUploadBytes.
func NewAssetHandler(service simpleasset.Service, maxUploadBytes int64) *AssetHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &AssetHandler{service: service, maxUploadBytes: maxUploadBytes}
}

// Routes returns the routes for assets. Authentication is applied by the caller.
func (h *AssetHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/categories", h.ListCategories)

	r.Route("/assets", func(r chi.Router) {
		r.Post("/", h.Upload)
		r.Get("/", h.ListAssets)
		r.Get("/stats", h.CategoryStatistics)
		r.Get("/trash", h.ListTrash)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetAsset)
			r.Patch("/", h.UpdateMetadata)
			r.Delete("/", h.SoftDelete)
			r.Put("/status", h.UpdateStatus)
			r.Post("/restore", h.Restore)
			r.Delete("/permanent", h.HardDelete)
			r.Post("/processed", h.MarkProcessed)
			r.Post("/views", h.RecordView)
			r.Post("/ai-usage", h.TouchAIUsage)
			r.Get("/download", h.Download)
			r.Get("/url", h.DownloadURL)
		})
	})

	return r
}

// ListCategories returns the taxonomy
func (h *AssetHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"version":    simpleasset.TaxonomyVersion,
		"categories": simpleasset.Categories(),
	})
}

// Upload stores a multipart "file" part plus form metadata
func (h *AssetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			badRequest(w, r, "file", fmt.Sprintf("exceeds %d bytes", h.maxUploadBytes))
			return
		}
		badRequest(w, r, "file", "multipart form required")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, r, "file", "is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		slog.Error("Failed to read upload", "err", err)
		badRequest(w, r, "file", "could not be read")
		return
	}

	req, perr := uploadRequestFromForm(r, header.Filename, header.Header.Get("Content-Type"), data)
	if perr != nil {
		writeError(w, r, perr.asValidation())
		return
	}

	asset, err := h.service.Upload(r.Context(), principalFrom(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, asset)
}

func uploadRequestFromForm(r *http.Request, filename, partType string, data []byte) (simpleasset.UploadRequest, *paramError) {
	form := r.MultipartForm.Value
	v := formValues(form)

	req := simpleasset.UploadRequest{
		Data:           data,
		Name:           strings.TrimSpace(v.Get("name")),
		OriginalName:   filename,
		MimeType:       strings.TrimSpace(v.Get("mime_type")),
		Category:       simpleasset.Category(strings.TrimSpace(v.Get("category"))),
		Subcategory:    strings.TrimSpace(v.Get("subcategory")),
		Description:    v.Get("description"),
		AIInstructions: v.Get("ai_instructions"),
		UsageContext:   v.Get("usage_context"),
		Keywords:       csv(form["keywords"]),
		Notes:          v.Get("notes"),
		Visibility:     simpleasset.Visibility(strings.TrimSpace(v.Get("visibility"))),
	}
	if req.Name == "" {
		req.Name = filename
	}
	if req.MimeType == "" {
		req.MimeType = partType
	}
	if req.MimeType == "" || req.MimeType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(extOf(filename)); byExt != "" {
			req.MimeType = byExt
		} else {
			req.MimeType = http.DetectContentType(data)
		}
	}

	var perr *paramError
	if req.Priority, perr = optInt(v, "priority"); perr != nil {
		return req, perr
	}
	if req.AIAvailable, perr = optBool(v, "ai_available"); perr != nil {
		return req, perr
	}
	if req.ClientRef, perr = optUUID(v, "client_ref"); perr != nil {
		return req, perr
	}
	if req.ProductRef, perr = optUUID(v, "product_ref"); perr != nil {
		return req, perr
	}
	if req.ProposalRef, perr = optUUID(v, "proposal_ref"); perr != nil {
		return req, perr
	}
	if req.ContractRef, perr = optUUID(v, "contract_ref"); perr != nil {
		return req, perr
	}
	if req.ParentAssetRef, perr = optUUID(v, "parent_asset_ref"); perr != nil {
		return req, perr
	}
	return req, nil
}

// formValues adapts multipart form values to the values interface.
type formValues map[string][]string

func (u formValues) Get(key string) string {
	if vs := u[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

func extOf(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i:]
	}
	return ""
}

// ListAssets lists the caller's assets
func (h *AssetHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	filter, perr := parseFilter(r.URL.Query())
	if perr != nil {
		writeError(w, r, perr.asValidation())
		return
	}

	assets, err := h.service.ListAssets(r.Context(), principalFrom(r), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, assets)
}

// CategoryStatistics returns per-category counts
func (h *AssetHandler) CategoryStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.CategoryStatistics(r.Context(), principalFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, stats)
}

// ListTrash lists soft-deleted assets, most recently deleted first
func (h *AssetHandler) ListTrash(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, perr := optInt(q, "limit")
	if perr != nil {
		writeError(w, r, perr.asValidation())
		return
	}
	offset, perr := optInt(q, "offset")
	if perr != nil {
		writeError(w, r, perr.asValidation())
		return
	}

	var l, o int
	if limit != nil {
		l = *limit
	}
	if offset != nil {
		o = *offset
	}

	assets, err := h.service.ListTrash(r.Context(), principalFrom(r), l, o)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, assets)
}

// GetAsset returns one asset with resolved reference names
func (h *AssetHandler) GetAsset(w http.ResponseWriter, r *http.Request) {
	id, perr := assetID(r)
	if perr != nil {
		writeError(w, r, perr.asValidation())
		return
	}

	details, err := h.service.GetAsset(r.Context(), principalFrom(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, details)
}

// UpdateMetadata applies a partial update from a JSON body
func (h *AssetHandler) UpdateMetadata(w http.ResponseWriter, r *http.Request) {
	id, perr := assetID(r)
	if perr != nil {
		writeError(w, r, perr.asValidation())
		return
	}

	var req simpleasset.UpdateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, "body", "invalid JSON")
		return
	}

	asset, err := h.service.UpdateMetadata(r.Context(), principalFrom(r), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, asset)
}

// UpdateStatusRequest is the request body for changing an asset's status
type UpdateStatusRequest struct {
	Status simpleasset.AssetStatus `json:"status"`
}

// UpdateStatus sets the caller-driven status
func (h *AssetHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, perr := assetID(r)
	if perr != nil {
		writeError(w, r, perr.asValidation())
		return
	}

	var req UpdateStatusRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, "body", "invalid JSON")
		return
	}

	asset, err := h.service.UpdateStatus(r.Context(), principalFrom(r), id, req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, asset)
}

// SoftDelete moves an asset to the trash
func (h *AssetHandler) SoftDelete(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, r, h.service.SoftDelete)
}

// HardDelete removes the object and the row
func (h *AssetHandler) HardDelete(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, r, h.service.HardDelete)
}

// Restore brings an asset back from the trash
func (h *AssetHandler) Restore(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, r, h.service.Restore)
}

// MarkProcessed records that AI processing finished
func (h *AssetHandler) MarkProcessed(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, r, h.service.MarkProcessed)
}

// TouchAIUsage records that an AI agent used the asset
func (h *AssetHandler) TouchAIUsage(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, r, h.service.TouchAIUsage)
}

func (h *AssetHandler) noContent(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, p simpleasset.Principal, id uuid.UUID) error) {
	id, perr := assetID(r)
	if perr != nil {
		writeError(w, r, perr.asValidation())
		return
	}
	if err := op(r.Context(), principalFrom(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecordView increments the view counter
func (h *AssetHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	id, perr := assetID(r)
	if perr != nil {
		writeError(w, r, perr.asValidation())
		return
	}

	n, err := h.service.RecordView(r.Context(), principalFrom(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]int64{"view_count": n})
}

// Download streams the object and counts the download
func (h *AssetHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, perr := assetID(r)
	if perr != nil {
		writeError(w, r, perr.asValidation())
		return
	}

	principal := principalFrom(r)
	reader, asset, err := h.service.OpenAsset(r.Context(), principal, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer reader.Close()

	if _, err := h.service.RecordDownload(r.Context(), principal, id); err != nil {
		slog.Warn("Failed to record download", "asset_id", id, "err", err)
	}

	filename := asset.OriginalName
	if filename == "" {
		filename = asset.Name + "." + asset.Extension
	}
	w.Header().Set("Content-Type", asset.MimeType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	if asset.Size > 0 {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", asset.Size))
	}
	if _, err := io.Copy(w, reader); err != nil {
		slog.Error("Failed to stream asset", "asset_id", id, "err", err)
	}
}

// DownloadURL returns a backend download URL when the store supports one
func (h *AssetHandler) DownloadURL(w http.ResponseWriter, r *http.Request) {
	id, perr := assetID(r)
	if perr != nil {
		writeError(w, r, perr.asValidation())
		return
	}

	u, err := h.service.DownloadURL(r.Context(), principalFrom(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]string{"url": u})
}
