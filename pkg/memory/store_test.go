package memory

import (
	"os"
	"strings"
	"testing"
)

func TestNewStore_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if s == nil {
		t.Fatal("expected non-nil store")
	}
}

func TestReadLongTerm_AbsentReturnsEmpty(t *testing.T) {
	s, _ := NewStore(t.TempDir())
	content, err := s.ReadLongTerm()
	if err != nil {
		t.Fatalf("ReadLongTerm failed: %v", err)
	}
	if content != "" {
		t.Errorf("expected empty string, got %q", content)
	}
}

func TestWriteAndReadLongTerm(t *testing.T) {
	s, _ := NewStore(t.TempDir())
	if err := s.WriteLongTerm("# Facts\n\nUser likes Go."); err != nil {
		t.Fatalf("WriteLongTerm failed: %v", err)
	}
	content, err := s.ReadLongTerm()
	if err != nil {
		t.Fatalf("ReadLongTerm failed: %v", err)
	}
	if content != "# Facts\n\nUser likes Go." {
		t.Errorf("unexpected content: %q", content)
	}
}

func TestWriteLongTerm_Overwrites(t *testing.T) {
	s, _ := NewStore(t.TempDir())
	s.WriteLongTerm("first")
	s.WriteLongTerm("second")

	content, _ := s.ReadLongTerm()
	if content != "second" {
		t.Errorf("expected full overwrite, got %q", content)
	}
}

func TestAppendHistory(t *testing.T) {
	s, _ := NewStore(t.TempDir())
	if err := s.AppendHistory("[2026-08-01 10:00] User discussed the roadmap."); err != nil {
		t.Fatalf("AppendHistory failed: %v", err)
	}
	if err := s.AppendHistory("[2026-08-01 10:05] User asked about deployment."); err != nil {
		t.Fatalf("AppendHistory failed: %v", err)
	}

	b, err := readFile(s.historyPath())
	if err != nil {
		t.Fatalf("reading HISTORY.md: %v", err)
	}
	if !strings.Contains(b, "roadmap") || !strings.Contains(b, "deployment") {
		t.Errorf("expected both entries present, got %q", b)
	}
	if !strings.HasSuffix(b, "\n\n") {
		t.Errorf("expected trailing blank line after last entry, got %q", b)
	}
}

func TestGetMemoryContext_EmptyWhenNoMemory(t *testing.T) {
	s, _ := NewStore(t.TempDir())
	ctx, err := s.GetMemoryContext()
	if err != nil {
		t.Fatalf("GetMemoryContext failed: %v", err)
	}
	if ctx != "" {
		t.Errorf("expected empty context, got %q", ctx)
	}
}

func TestGetMemoryContext_WrapsContent(t *testing.T) {
	s, _ := NewStore(t.TempDir())
	s.WriteLongTerm("User is a Go developer.")

	ctx, err := s.GetMemoryContext()
	if err != nil {
		t.Fatalf("GetMemoryContext failed: %v", err)
	}
	want := "## Long-term Memory\nUser is a Go developer."
	if ctx != want {
		t.Errorf("expected %q, got %q", want, ctx)
	}
}

func readFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
