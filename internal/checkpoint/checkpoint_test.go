package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/electricfoxes1989/the-triton-sub000/internal/domain"
)

func TestLoadAbsentFileStartsEmpty(t *testing.T) {
	t.Parallel()

	s, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("absent file must not be an error: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty state, got %d records", s.Len())
	}
}

func TestSaveAndReload(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "migrated.json")
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	s.Set("captains-corner", domain.MigrationRecord{
		Status:         domain.StatusImported,
		ImageCount:     3,
		AuthorResolved: true,
	})
	s.Set("broken-post", domain.MigrationRecord{
		Status: domain.StatusFailed,
		Detail: "resolve category: boom",
	})
	if err := s.Save(); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload error: %v", err)
	}
	if !reloaded.Imported("captains-corner") {
		t.Fatal("imported slug lost on reload")
	}
	if reloaded.Imported("broken-post") {
		t.Fatal("failed slug must not report imported")
	}
	rec, ok := reloaded.Get("broken-post")
	if !ok || rec.Detail != "resolve category: boom" {
		t.Fatalf("failure detail lost: %+v", rec)
	}
	rec, _ = reloaded.Get("captains-corner")
	if rec.ImageCount != 3 || !rec.AuthorResolved {
		t.Fatalf("metadata lost: %+v", rec)
	}
}

func TestSaveLeavesNoTempFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "migrated.json")
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	s.Set("a", domain.MigrationRecord{Status: domain.StatusImported})
	if err := s.Save(); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind after rename: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("checkpoint file missing: %v", err)
	}
}
