package archive

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/newthinker/scorecard/internal/core"
)

func TestS3Storage_ImplementsStorage(t *testing.T) {
	var _ Storage = (*S3Storage)(nil)
}

func TestS3Config_Key(t *testing.T) {
	tests := []struct {
		prefix string
		path   string
		want   string
	}{
		{"", "file.txt", "file.txt"},
		{"archive", "file.txt", "archive/file.txt"},
		{"archive/", "file.txt", "archive/file.txt"},
		{"/archive/", "scores/A/x.json", "archive/scores/A/x.json"},
	}

	for _, tt := range tests {
		s := &S3Storage{prefix: strings.Trim(tt.prefix, "/")}
		got := s.key(tt.path)
		if got != tt.want {
			t.Errorf("key(%q) with prefix %q = %q, want %q", tt.path, tt.prefix, got, tt.want)
		}
		if rel := s.relative(got); rel != tt.path {
			t.Errorf("relative(%q) = %q, want %q", got, rel, tt.path)
		}
	}
}

func TestNewS3_RequiresBucket(t *testing.T) {
	_, err := NewS3(S3Config{})
	if !errors.Is(err, core.ErrConfigMissing) {
		t.Errorf("expected missing config error, got %v", err)
	}
}

// fakeS3 serves path-style PUT and GET for a single bucket.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.TrimPrefix(r.URL.Path, "/bucket/")
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = body
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		data, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return
		}
		w.Write(data)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestS3Storage_WriteRead(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	s, err := NewS3(S3Config{
		Bucket:    "bucket",
		Endpoint:  srv.URL,
		AccessKey: "key",
		SecretKey: "secret",
		Prefix:    "prod",
	})
	if err != nil {
		t.Fatalf("NewS3: %v", err)
	}
	ctx := context.Background()

	if err := s.Write(ctx, "scores/AAPL/2025-01-02.json", []byte(`{"score":80}`)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, ok := fake.objects["prod/scores/AAPL/2025-01-02.json"]; !ok {
		t.Fatalf("expected prefixed key, have %v", fake.objects)
	}

	got, err := s.Read(ctx, "scores/AAPL/2025-01-02.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != `{"score":80}` {
		t.Errorf("got %q", got)
	}

	_, err = s.Read(ctx, "scores/AAPL/1999-01-01.json")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
