package storage

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinIO_ObjectKeyAndURL(t *testing.T) {
	m := newMinIO(nil, "gallery", "/uploads/", "https://cdn.example.com")

	assert.Equal(t, "uploads/images/2024/01/01/a.jpg", m.objectKey("images/2024/01/01/a.jpg"))
	assert.Equal(t, "https://cdn.example.com/uploads/images/a.jpg", m.URL("images/a.jpg"))

	bare := newMinIO(nil, "gallery", "", "http://localhost:9000/gallery/")
	assert.Equal(t, "images/a.jpg", bare.objectKey("images/a.jpg"))
	assert.Equal(t, "http://localhost:9000/gallery/images/a.jpg", bare.URL("images/a.jpg"))
}

func TestMinIO_KeyRejectsInvalidPaths(t *testing.T) {
	m := newMinIO(nil, "gallery", "", "")

	for _, p := range []string{"", "/abs", "../up", "images/./a.jpg", "images//a.jpg"} {
		_, err := m.key(p)
		assert.ErrorIs(t, err, ErrInvalidPath, p)
	}

	key, err := m.key("images/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "images/a.jpg", key)
}

func TestMapMinIOError(t *testing.T) {
	assert.ErrorIs(t, mapMinIOError("stat", minio.ErrorResponse{Code: "NoSuchKey"}), ErrNotExist)
	assert.ErrorIs(t, mapMinIOError("stat", minio.ErrorResponse{StatusCode: http.StatusNotFound}), ErrNotExist)

	boom := minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}
	err := mapMinIOError("remove object", boom)
	assert.NotErrorIs(t, err, ErrNotExist)
	assert.Contains(t, err.Error(), "remove object")

	var resp minio.ErrorResponse
	assert.True(t, errors.As(err, &resp))
	assert.Equal(t, "AccessDenied", resp.Code)
}

// fakeS3 serves path-style requests for a single bucket from memory.
type fakeS3 struct {
	mu       sync.Mutex
	objects  map[string][]byte
	types    map[string]string
	requests []string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)

	key := strings.TrimPrefix(r.URL.Path, "/gallery/")
	switch r.Method {
	case http.MethodPut:
		f.objects[key] = readPayload(r)
		f.types[key] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodHead, http.MethodGet:
		data, ok := f.objects[key]
		if !ok {
			if r.Method == http.MethodGet {
				w.Header().Set("Content-Type", "application/xml")
				w.WriteHeader(http.StatusNotFound)
				_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
				return
			}
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("ETag", `"etag"`)
		w.Header().Set("Last-Modified", time.Date(2024, 3, 7, 10, 0, 0, 0, time.UTC).Format(http.TimeFormat))
		w.Header().Set("Content-Type", f.types[key])
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(data)
		}
	case http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeS3) contentType(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.types[key]
}

func (f *fakeS3) calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if strings.HasPrefix(r, method+" ") {
			n++
		}
	}
	return n
}

// readPayload undoes aws-chunked framing, which minio-go uses over plain HTTP.
func readPayload(r *http.Request) []byte {
	if !strings.HasPrefix(r.Header.Get("X-Amz-Content-Sha256"), "STREAMING-") {
		body, _ := io.ReadAll(r.Body)
		return body
	}
	var out []byte
	br := bufio.NewReader(r.Body)
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return out
		}
		sizeHex, _, _ := strings.Cut(strings.TrimSpace(line), ";")
		size, err := strconv.ParseInt(sizeHex, 16, 64)
		if err != nil || size == 0 {
			return out
		}
		chunk := make([]byte, size)
		if _, err := io.ReadFull(br, chunk); err != nil {
			return out
		}
		out = append(out, chunk...)
		_, _ = br.ReadString('\n')
	}
}

func newFakeMinIO(t *testing.T) (*MinIO, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := minio.New(strings.TrimPrefix(srv.URL, "http://"), &minio.Options{
		Creds:  credentials.NewStaticV4("access", "secret", ""),
		Secure: false,
		Region: "us-east-1",
	})
	require.NoError(t, err)
	return newMinIO(client, "gallery", "", "http://cdn.test/gallery"), fake
}

func TestMinIO_DeleteMissingObject(t *testing.T) {
	m, fake := newFakeMinIO(t)

	err := m.Delete(context.Background(), "images/2024/03/07/missing.jpg")
	assert.ErrorIs(t, err, ErrNotExist)
	assert.Equal(t, 1, fake.calls(http.MethodHead))
	assert.Zero(t, fake.calls(http.MethodDelete), "nothing to remove")
}

func TestMinIO_StoreOpenDelete(t *testing.T) {
	m, fake := newFakeMinIO(t)
	ctx := context.Background()

	p, err := m.Store(ctx, []byte("hello"), "sunset.jpg", "image/jpeg")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, "images/"), p)
	assert.Equal(t, "image/jpeg", fake.contentType(p))

	data, err := ReadAll(ctx, m, p)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, m.Delete(ctx, p))
	assert.Equal(t, 1, fake.calls(http.MethodDelete))

	_, err = m.Open(ctx, p)
	assert.ErrorIs(t, err, ErrNotExist)
	assert.ErrorIs(t, m.Delete(ctx, p), ErrNotExist)
}
