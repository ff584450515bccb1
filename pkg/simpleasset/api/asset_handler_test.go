package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-asset/pkg/simpleasset"
	"github.com/tendant/simple-asset/pkg/simpleasset/repo/memory"
	memorystorage "github.com/tendant/simple-asset/pkg/simpleasset/storage/memory"
)

type testServer struct {
	router   http.Handler
	ta       *jwtauth.JWTAuth
	repo     *memory.Repository
	tenantID uuid.UUID
}

func setupAssetHandlerTest(t *testing.T) *testServer {
	t.Helper()
	repo := memory.New()
	tenantID := uuid.New()
	repo.SetProfile("user-1", tenantID)

	svc, err := simpleasset.New(
		simpleasset.WithRepository(repo),
		simpleasset.WithReferenceResolver(repo),
		simpleasset.WithTenantResolver(simpleasset.NewProfileTenantResolver(repo)),
		simpleasset.WithBlobStore(simpleasset.FamilyAIFiles, memorystorage.New()),
		simpleasset.WithBlobStore(simpleasset.FamilyFiles, memorystorage.New()),
	)
	require.NoError(t, err)

	ta := jwtauth.New("HS256", []byte("test-secret"), nil)
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(Authenticate(ta))
		r.Mount("/", NewAssetHandler(svc, 0).Routes())
	})

	return &testServer{router: r, ta: ta, repo: repo, tenantID: tenantID}
}

func (s *testServer) token(t *testing.T, subject string) string {
	t.Helper()
	_, tok, err := s.ta.Encode(map[string]interface{}{"sub": subject})
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, req *http.Request, subject string) *httptest.ResponseRecorder {
	t.Helper()
	if subject != "" {
		req.Header.Set("Authorization", "Bearer "+s.token(t, subject))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func multipartUpload(t *testing.T, fields map[string]string, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/assets", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestAssetHandler_RequiresToken(t *testing.T) {
	s := setupAssetHandlerTest(t)

	w := s.do(t, httptest.NewRequest(http.MethodGet, "/assets", nil), "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthenticated", decodeError(t, w).Code)
}

func TestAssetHandler_UnknownProfileIsForbidden(t *testing.T) {
	s := setupAssetHandlerTest(t)

	w := s.do(t, httptest.NewRequest(http.MethodGet, "/assets", nil), "stranger")

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "tenant_unresolved", decodeError(t, w).Code)
}

func TestAssetHandler_ListCategories(t *testing.T) {
	s := setupAssetHandlerTest(t)

	w := s.do(t, httptest.NewRequest(http.MethodGet, "/categories", nil), "user-1")

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Version    int                        `json:"version"`
		Categories []simpleasset.CategorySpec `json:"categories"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, simpleasset.TaxonomyVersion, body.Version)
	assert.Len(t, body.Categories, len(simpleasset.Categories()))
}

func TestAssetHandler_UploadAndLifecycle(t *testing.T) {
	s := setupAssetHandlerTest(t)
	content := []byte("%PDF-1.4 catalog")

	// Upload
	w := s.do(t, multipartUpload(t, map[string]string{
		"name":     "Catálogo 2024",
		"category": "catalogo",
		"keywords": "Inox, linha-a",
		"priority": "8",
	}, "catalogo.pdf", content), "user-1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created simpleasset.Asset
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	assert.Equal(t, s.tenantID, created.TenantID)
	assert.Equal(t, "application/pdf", created.MimeType)
	assert.Equal(t, int64(len(content)), created.Size)
	assert.Equal(t, 8, created.Priority)
	assert.ElementsMatch(t, []string{"inox", "linha-a"}, created.Keywords)
	path := "/assets/" + created.ID.String()

	// Get
	w = s.do(t, httptest.NewRequest(http.MethodGet, path, nil), "user-1")
	require.Equal(t, http.StatusOK, w.Code)

	// List with filter
	w = s.do(t, httptest.NewRequest(http.MethodGet, "/assets?category=catalogo&keywords=inox", nil), "user-1")
	require.Equal(t, http.StatusOK, w.Code)
	var listed []simpleasset.Asset
	require.NoError(t, json.NewDecoder(w.Body).Decode(&listed))
	assert.Len(t, listed, 1)

	// View counter
	w = s.do(t, httptest.NewRequest(http.MethodPost, path+"/views", nil), "user-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"view_count":1}`, w.Body.String())

	// Download streams the bytes and counts
	w = s.do(t, httptest.NewRequest(http.MethodGet, path+"/download", nil), "user-1")
	require.Equal(t, http.StatusOK, w.Code)
	got, _ := io.ReadAll(w.Body)
	assert.Equal(t, content, got)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "catalogo.pdf")

	stored, err := s.repo.GetAsset(t.Context(), s.tenantID, created.ID, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.DownloadCount)

	// Soft delete hides it, trash shows it, restore brings it back
	w = s.do(t, httptest.NewRequest(http.MethodDelete, path, nil), "user-1")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, httptest.NewRequest(http.MethodGet, path, nil), "user-1")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, httptest.NewRequest(http.MethodGet, "/assets/trash", nil), "user-1")
	require.Equal(t, http.StatusOK, w.Code)
	var trash []simpleasset.Asset
	require.NoError(t, json.NewDecoder(w.Body).Decode(&trash))
	require.Len(t, trash, 1)
	assert.Equal(t, created.ID, trash[0].ID)

	w = s.do(t, httptest.NewRequest(http.MethodPost, path+"/restore", nil), "user-1")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, httptest.NewRequest(http.MethodGet, path, nil), "user-1")
	assert.Equal(t, http.StatusOK, w.Code)

	// Hard delete
	w = s.do(t, httptest.NewRequest(http.MethodDelete, path+"/permanent", nil), "user-1")
	require.Equal(t, http.StatusNoContent, w.Code)

	_, err = s.repo.GetAsset(t.Context(), s.tenantID, created.ID, true)
	assert.ErrorIs(t, err, simpleasset.ErrNotFound)
}

func TestAssetHandler_UpdateMetadataAndStatus(t *testing.T) {
	s := setupAssetHandlerTest(t)

	w := s.do(t, multipartUpload(t, map[string]string{"category": "manual"}, "guia.pdf", []byte("x")), "user-1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created simpleasset.Asset
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	path := "/assets/" + created.ID.String()

	req := httptest.NewRequest(http.MethodPatch, path, bytes.NewBufferString(`{"description":"Guia rápido","priority":9}`))
	req.Header.Set("Content-Type", "application/json")
	w = s.do(t, req, "user-1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated simpleasset.Asset
	require.NoError(t, json.NewDecoder(w.Body).Decode(&updated))
	assert.Equal(t, "Guia rápido", updated.Description)
	assert.Equal(t, 9, updated.Priority)
	assert.Equal(t, created.StorageKey, updated.StorageKey)

	req = httptest.NewRequest(http.MethodPatch, path, bytes.NewBufferString(`{"priority":11}`))
	req.Header.Set("Content-Type", "application/json")
	w = s.do(t, req, "user-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodPut, path+"/status", bytes.NewBufferString(`{"status":"arquivado"}`))
	req.Header.Set("Content-Type", "application/json")
	w = s.do(t, req, "user-1")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&updated))
	assert.Equal(t, simpleasset.AssetStatusArchived, updated.Status)
}

func TestAssetHandler_BadRequests(t *testing.T) {
	s := setupAssetHandlerTest(t)

	t.Run("unknown category", func(t *testing.T) {
		w := s.do(t, multipartUpload(t, map[string]string{"category": "planilha"}, "a.xlsx", []byte("x")), "user-1")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "unknown_category", decodeError(t, w).Code)
	})

	t.Run("missing file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/assets", bytes.NewBufferString("{}"))
		req.Header.Set("Content-Type", "application/json")
		w := s.do(t, req, "user-1")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		w := s.do(t, httptest.NewRequest(http.MethodGet, "/assets/not-a-uuid", nil), "user-1")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "id", decodeError(t, w).Field)
	})

	t.Run("invalid boolean filter", func(t *testing.T) {
		w := s.do(t, httptest.NewRequest(http.MethodGet, "/assets?ai_available=maybe", nil), "user-1")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing asset", func(t *testing.T) {
		w := s.do(t, httptest.NewRequest(http.MethodGet, "/assets/"+uuid.NewString(), nil), "user-1")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"auth", &simpleasset.AuthenticationError{}, http.StatusUnauthorized},
		{"tenant", &simpleasset.TenantResolutionError{Principal: "p"}, http.StatusForbidden},
		{"category", &simpleasset.UnknownCategoryError{Category: "x"}, http.StatusBadRequest},
		{"validation", &simpleasset.ValidationError{Field: "name"}, http.StatusBadRequest},
		{"not found", &simpleasset.NotFoundError{AssetID: uuid.New()}, http.StatusNotFound},
		{"storage", &simpleasset.StorageWriteError{Op: "put", Err: errors.New("boom")}, http.StatusServiceUnavailable},
		{"metadata", &simpleasset.MetadataWriteError{Op: "create", Err: errors.New("boom")}, http.StatusServiceUnavailable},
		{"compensation", &simpleasset.CompensationFailureError{
			MetadataErr: &simpleasset.MetadataWriteError{Op: "create", Err: errors.New("boom")},
			CleanupErr:  errors.New("boom"),
		}, http.StatusInternalServerError},
		{"dangling", &simpleasset.DanglingRowError{Err: errors.New("boom")}, http.StatusInternalServerError},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := statusFor(tt.err)
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestWriteError_RetryableFlag(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	writeError(w, r, &simpleasset.StorageWriteError{Backend: "ai-files", Op: "put", Err: errors.New("timeout")})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decodeError(t, w)
	assert.True(t, resp.Retryable)
	assert.Equal(t, "storage_unavailable", resp.Code)
}
