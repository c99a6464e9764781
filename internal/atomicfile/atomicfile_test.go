package atomicfile

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestWriteFile_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")

	if err := WriteFile(path, []byte(`{"ok":true}`), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read back: %v", err)
	}
	if string(got) != `{"ok":true}` {
		t.Errorf("unexpected content: %q", got)
	}
}

func TestWriteFile_ReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")

	if err := os.WriteFile(path, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := WriteFile(path, []byte("new"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	got, _ := os.ReadFile(path)
	if string(got) != "new" {
		t.Errorf("expected replacement, got %q", got)
	}
}

func TestWriteFile_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")

	for i := 0; i < 5; i++ {
		if err := WriteFile(path, []byte("content"), 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("stray temp file left behind: %s", e.Name())
		}
	}
	if len(entries) != 1 {
		t.Errorf("expected only the destination file, found %d entries", len(entries))
	}
}

func TestWriteFile_FailureLeavesDestinationUntouched(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "missing-dir", "doc.json")

	if err := WriteFile(path, []byte("content"), 0644); err == nil {
		t.Fatal("expected error writing into a missing directory")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("destination should not exist after failed write")
	}
}

func TestWriteFile_FailureKeepsExistingContentIntact(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")
	old := []byte(`{"title":"Original","version":1}`)
	if err := os.WriteFile(path, old, 0644); err != nil {
		t.Fatal(err)
	}

	// A read-only directory makes temp file creation fail before any
	// rename can happen.
	if err := os.Chmod(dir, 0555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(dir, 0755) })

	if err := WriteFile(path, []byte(`{"title":"Replacement"}`), 0644); err == nil {
		t.Fatal("expected error writing into a read-only directory")
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read back: %v", err)
	}
	if !bytes.Equal(got, old) {
		t.Errorf("existing file changed after failed write: %q", got)
	}
}

func TestWriteFile_ConcurrentWritersNeverInterleave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")

	payloads := []string{
		strings.Repeat("a", 4096),
		strings.Repeat("b", 4096),
		strings.Repeat("c", 4096),
	}

	var wg sync.WaitGroup
	for _, p := range payloads {
		wg.Add(1)
		go func(content string) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				if err := WriteFile(path, []byte(content), 0644); err != nil {
					t.Errorf("WriteFile failed: %v", err)
					return
				}
			}
		}(p)
	}
	wg.Wait()

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// Whatever writer won, the file must be exactly one payload.
	s := string(got)
	if s != payloads[0] && s != payloads[1] && s != payloads[2] {
		t.Errorf("file content is a mix of writes, len=%d", len(s))
	}
}
