package archive

import (
	"errors"
	"testing"
	"time"

	"github.com/newthinker/scorecard/internal/core"
)

func TestScoreKey(t *testing.T) {
	asOf := time.Date(2025, 3, 7, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))

	got := ScoreKey("aapl", asOf)
	if got != "scores/AAPL/2025-03-08.json" {
		t.Errorf("ScoreKey() = %q", got)
	}
	if ScorePrefix("aapl") != "scores/AAPL/" {
		t.Errorf("ScorePrefix() = %q", ScorePrefix("aapl"))
	}
}

func TestNew(t *testing.T) {
	s, err := New(Options{})
	if err != nil || s != nil {
		t.Errorf("empty type should disable archive, got %v, %v", s, err)
	}

	s, err = New(Options{Type: "localfs", Path: t.TempDir()})
	if err != nil {
		t.Fatalf("New localfs: %v", err)
	}
	if _, ok := s.(*LocalFS); !ok {
		t.Errorf("expected *LocalFS, got %T", s)
	}

	_, err = New(Options{Type: "tape"})
	if !errors.Is(err, core.ErrConfigInvalid) {
		t.Errorf("expected config error, got %v", err)
	}
}

func TestValidPath(t *testing.T) {
	tests := []struct {
		path string
		ok   bool
	}{
		{"scores/AAPL/2025-01-01.json", true},
		{"", false},
		{"/etc/passwd", false},
		{"scores/../../secret", false},
	}
	for _, tt := range tests {
		err := validPath(tt.path)
		if (err == nil) != tt.ok {
			t.Errorf("validPath(%q) = %v", tt.path, err)
		}
	}
}
