package minio

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		useSSL   bool
		host     string
		secure   bool
		wantErr  bool
	}{
		{endpoint: "localhost:9000", host: "localhost:9000"},
		{endpoint: "minio.internal:9000", useSSL: true, host: "minio.internal:9000", secure: true},
		{endpoint: "http://localhost:9000", useSSL: true, host: "localhost:9000"},
		{endpoint: "https://storage.example.com", host: "storage.example.com", secure: true},
		{endpoint: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			host, secure, err := parseEndpoint(tt.endpoint, tt.useSSL)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.host, host)
			assert.Equal(t, tt.secure, secure)
		})
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(context.Background(), Config{Endpoint: "localhost:9000"})
	assert.Error(t, err)

	_, err = New(context.Background(), Config{Bucket: "files"})
	assert.Error(t, err)
}

func TestDownloadURL_Presigned(t *testing.T) {
	b, err := New(context.Background(), Config{
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
		Bucket:          "files",
		Region:          "us-east-1",
		PresignDuration: 10 * time.Minute,
	})
	require.NoError(t, err)

	raw, err := b.DownloadURL(context.Background(), "tenant/imagens/1_logo.png", "logo.png")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "http", u.Scheme)
	assert.Equal(t, "/files/tenant/imagens/1_logo.png", u.Path)
	assert.Equal(t, "600", u.Query().Get("X-Amz-Expires"))
	assert.Equal(t, `attachment; filename="logo.png"`, u.Query().Get("response-content-disposition"))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.True(t, isNotFound(minio.ErrorResponse{StatusCode: 404}))
	assert.False(t, isNotFound(minio.ErrorResponse{Code: "AccessDenied", StatusCode: 403}))
	assert.False(t, isNotFound(errors.New("dial tcp: connection refused")))
}
