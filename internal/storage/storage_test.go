package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathFromURL(t *testing.T) {
	const prefix = "https://p.supabase.co/storage/v1/object/public/maintenance-images/"

	path, ok := PathFromURL(prefix, prefix+"uploads/1-abc.jpg")
	require.True(t, ok)
	assert.Equal(t, "uploads/1-abc.jpg", path)

	for _, url := range []string{
		"https://elsewhere.example/uploads/1-abc.jpg",
		"https://p.supabase.co/storage/v1/object/public/old-maintenance-images/uploads/1-abc.jpg",
		"https://elsewhere.example/maintenance-images/uploads/1-abc.jpg",
		prefix,
	} {
		_, ok = PathFromURL(prefix, url)
		assert.False(t, ok, url)
	}

	_, ok = PathFromURL("", "uploads/1-abc.jpg")
	assert.False(t, ok)
}

func TestSupabaseStorage(t *testing.T) {
	var (
		mu      sync.Mutex
		objects = map[string][]byte{}
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()

		if r.Header.Get("Authorization") != "Bearer service-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		key := strings.TrimPrefix(r.URL.Path, "/storage/v1/object/")
		switch r.Method {
		case http.MethodPost:
			if _, exists := objects[key]; exists {
				w.WriteHeader(http.StatusConflict)
				_, _ = w.Write([]byte(`{"error":"Duplicate"}`))
				return
			}
			body, _ := io.ReadAll(r.Body)
			objects[key] = body
			w.WriteHeader(http.StatusOK)
		case http.MethodDelete:
			delete(objects, key)
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	st := NewSupabaseStorage(srv.URL+"/", "service-key", "maintenance-images")

	require.NoError(t, st.Upload(ctx, "uploads/a.jpg", []byte("jpeg"), "image/jpeg"))
	assert.Equal(t, []byte("jpeg"), objects["maintenance-images/uploads/a.jpg"])

	err := st.Upload(ctx, "uploads/a.jpg", []byte("again"), "image/jpeg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409")

	url := st.PublicURL("uploads/a.jpg")
	assert.Equal(t, srv.URL+"/storage/v1/object/public/maintenance-images/uploads/a.jpg", url)
	path, ok := PathFromURL(st.PublicURL(""), url)
	require.True(t, ok)
	assert.Equal(t, "uploads/a.jpg", path)

	require.NoError(t, st.Delete(ctx, path))
	assert.Empty(t, objects)

	bad := NewSupabaseStorage(srv.URL, "wrong", "maintenance-images")
	assert.Error(t, bad.Upload(ctx, "uploads/b.jpg", []byte("x"), "image/jpeg"))
}

type s3RoundTripper struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (m *s3RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.TrimPrefix(req.URL.Path, "/")
	switch req.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		m.objects[key] = body
		m.types[key] = req.Header.Get("Content-Type")
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{"ETag": {"\"etag\""}}}, nil
	case http.MethodDelete:
		delete(m.objects, key)
		return &http.Response{StatusCode: http.StatusNoContent, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}}, nil
	}
	return &http.Response{StatusCode: http.StatusNotImplemented, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}}, nil
}

func TestS3Storage(t *testing.T) {
	rt := &s3RoundTripper{objects: map[string][]byte{}, types: map[string]string{}}
	client := s3.New(s3.Options{
		Region:       "us-east-1",
		Credentials:  credentials.NewStaticCredentialsProvider("AKIA", "SECRET", ""),
		HTTPClient:   &http.Client{Transport: rt},
		BaseEndpoint: aws.String("https://mock.s3.local"),
		UsePathStyle: true,
	})

	ctx := context.Background()
	st := NewS3StorageFromClient(client, "maintenance-images", "https://cdn.example/public")

	require.NoError(t, st.Upload(ctx, "uploads/a.jpg", []byte("jpeg"), "image/jpeg"))
	require.Contains(t, rt.objects, "maintenance-images/uploads/a.jpg")
	assert.Equal(t, "image/jpeg", rt.types["maintenance-images/uploads/a.jpg"])

	assert.Equal(t, "https://cdn.example/public/maintenance-images/uploads/a.jpg", st.PublicURL("uploads/a.jpg"))

	require.NoError(t, st.Delete(ctx, "uploads/a.jpg"))
	assert.Empty(t, rt.objects)
}
