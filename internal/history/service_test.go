package history

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

const (
	first  = `{"content":[{"type":"paragraph"}],"type":"doc"}`
	second = `{"content":[{"content":[{"text":"Hello <world>","type":"text"}],"type":"paragraph"}],"type":"doc"}`
)

func TestDraftHistoryLifecycle(t *testing.T) {
	tempDir := t.TempDir()
	svc := New(tempDir)

	if _, err := svc.History("drf-1", 10); !errors.Is(err, ErrNoHistory) {
		t.Fatalf("History() before first commit error = %v, want ErrNoHistory", err)
	}

	rev1, err := svc.Commit("drf-1", json.RawMessage(first), "Avery", "Create draft")
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "drf-1", contentFile)); err != nil {
		t.Fatalf("content file missing: %v", err)
	}

	rev2, err := svc.Commit("drf-1", json.RawMessage(second), "Avery", "Autosave")
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if rev1.Hash == rev2.Hash {
		t.Fatal("expected a new revision")
	}

	revisions, err := svc.History("drf-1", 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(revisions) != 2 || revisions[0].Hash != rev2.Hash || revisions[1].Hash != rev1.Hash {
		t.Fatalf("unexpected history: %+v", revisions)
	}
	if revisions[0].Author != "Avery" {
		t.Fatalf("unexpected author %q", revisions[0].Author)
	}

	limited, err := svc.History("drf-1", 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("History(limit=1) = %v, %v", limited, err)
	}

	content, rev, err := svc.ContentAt("drf-1", rev1.Hash)
	if err != nil {
		t.Fatalf("ContentAt() error = %v", err)
	}
	if string(content) != first {
		t.Fatalf("ContentAt() = %s, want %s", content, first)
	}
	if rev.Hash != rev1.Hash {
		t.Fatalf("ContentAt() revision = %s", rev.Hash)
	}

	latest, _, err := svc.ContentAt("drf-1", rev2.Hash)
	if err != nil {
		t.Fatalf("ContentAt() error = %v", err)
	}
	if string(latest) != second {
		t.Fatalf("round trip changed content: %s", latest)
	}
}

func TestUnchangedContentReusesHead(t *testing.T) {
	svc := New(t.TempDir())

	rev1, err := svc.Commit("drf-2", json.RawMessage(first), "Avery", "Create draft")
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	rev2, err := svc.Commit("drf-2", json.RawMessage(first), "Avery", "Autosave")
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if rev1.Hash != rev2.Hash {
		t.Fatalf("expected head reuse, got %s and %s", rev1.Hash, rev2.Hash)
	}

	revisions, err := svc.History("drf-2", 0)
	if err != nil || len(revisions) != 1 {
		t.Fatalf("History() = %v, %v", revisions, err)
	}
}

func TestInvalidJSONIsRejected(t *testing.T) {
	svc := New(t.TempDir())
	if _, err := svc.Commit("drf-3", json.RawMessage(`{"type":`), "Avery", "bad"); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestUnknownRevision(t *testing.T) {
	svc := New(t.TempDir())
	if _, err := svc.Commit("drf-4", json.RawMessage(first), "Avery", "Create draft"); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if _, _, err := svc.ContentAt("drf-4", "deadbee"); err == nil {
		t.Fatal("expected error for unknown revision")
	}
}

func TestConcurrentCommitsSerializePerDraft(t *testing.T) {
	svc := New(t.TempDir())
	if _, err := svc.Commit("drf-5", json.RawMessage(first), "Avery", "Create draft"); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := `{"content":[{"attrs":{"n":` + string(rune('0'+i)) + `},"type":"paragraph"}],"type":"doc"}`
			if _, err := svc.Commit("drf-5", json.RawMessage(body), "Avery", "Autosave"); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent Commit() error = %v", err)
	}

	revisions, err := svc.History("drf-5", 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(revisions) != 5 {
		t.Fatalf("expected 5 revisions, got %d", len(revisions))
	}
}

func TestSanitizeEmail(t *testing.T) {
	cases := map[string]string{
		"Avery Lee": "Avery.Lee",
		"":          "user",
		"ünï":       "user",
		"a_b-c":     "a.b.c",
	}
	for in, want := range cases {
		if got := sanitizeEmail(in); got != want {
			t.Errorf("sanitizeEmail(%q) = %q, want %q", in, got, want)
		}
	}
}
