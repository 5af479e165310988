package bridge

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestArchiveFolderSkipsJunkDirs(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	writeFile(t, filepath.Join(src, "keep.txt"))
	for _, junk := range []string{".git", "node_modules", "__pycache__"} {
		if err := os.MkdirAll(filepath.Join(src, junk), 0o700); err != nil {
			t.Fatal(err)
		}
		writeFile(t, filepath.Join(src, junk, "dropped.txt"))
	}
	if err := os.MkdirAll(filepath.Join(src, "nested"), 0o700); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(src, "nested", "also.txt"))

	result, err := archiveFolder(context.Background(), src, t.TempDir(), 0)
	if err != nil {
		t.Fatalf("archiveFolder() error = %v", err)
	}
	if result.FileCount != 2 {
		t.Fatalf("FileCount = %d, want 2", result.FileCount)
	}

	r, err := zip.OpenReader(result.ArchivePath)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	base := filepath.Base(src)
	names := make(map[string]bool)
	for _, f := range r.File {
		names[f.Name] = true
	}
	if !names[base+"/keep.txt"] || !names[base+"/nested/also.txt"] {
		t.Fatalf("archive entries = %v", names)
	}
	for name := range names {
		if filepath.Base(name) == "dropped.txt" {
			t.Fatalf("junk-dir file made it into the archive: %s", name)
		}
	}
}

func TestArchiveFolderEmpty(t *testing.T) {
	t.Parallel()

	dest := t.TempDir()
	_, err := archiveFolder(context.Background(), t.TempDir(), dest, 0)
	if !errors.Is(err, ErrEmptyArchive) {
		t.Fatalf("error = %v, want ErrEmptyArchive", err)
	}
	entries, _ := os.ReadDir(dest)
	if len(entries) != 0 {
		t.Fatalf("empty run left %d files in dest", len(entries))
	}
}

func TestArchiveFolderRejectsFile(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	file := filepath.Join(src, "plain.txt")
	writeFile(t, file)
	if _, err := archiveFolder(context.Background(), file, t.TempDir(), 0); err == nil {
		t.Fatalf("archiveFolder() accepted a plain file")
	}
}

func TestArchiveFolderBudget(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "aaa.txt"), make([]byte, 100), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "zzz.txt"), make([]byte, 200), 0o600); err != nil {
		t.Fatal(err)
	}

	result, err := archiveFolder(context.Background(), src, t.TempDir(), 150)
	if err != nil {
		t.Fatalf("archiveFolder() error = %v", err)
	}
	if result.FileCount != 1 {
		t.Fatalf("FileCount = %d, want 1", result.FileCount)
	}
	if result.SkippedCount != 1 {
		t.Fatalf("SkippedCount = %d, want 1", result.SkippedCount)
	}
	if result.SourceBytes != 100 {
		t.Fatalf("SourceBytes = %d, want 100", result.SourceBytes)
	}

	r, err := zip.OpenReader(result.ArchivePath)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	for _, f := range r.File {
		if filepath.Base(f.Name) == "zzz.txt" {
			t.Fatalf("over-budget file made it into the archive: %s", f.Name)
		}
	}
}

func TestArchiveFolderSanitizesName(t *testing.T) {
	t.Parallel()

	parent := t.TempDir()
	src := filepath.Join(parent, "My Photos (2025)!")
	if err := os.MkdirAll(src, 0o700); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(src, "a.jpg"))

	result, err := archiveFolder(context.Background(), src, t.TempDir(), 0)
	if err != nil {
		t.Fatalf("archiveFolder() error = %v", err)
	}
	name := filepath.Base(result.ArchivePath)
	if strings.ContainsAny(name, " ()!") {
		t.Fatalf("archive name not sanitized: %q", name)
	}

	r, err := zip.OpenReader(result.ArchivePath)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	for _, f := range r.File {
		if strings.ContainsAny(f.Name, " ()!") {
			t.Fatalf("entry name not sanitized: %q", f.Name)
		}
	}
}

func TestTransferPoolQueueFull(t *testing.T) {
	t.Parallel()

	started := make(chan struct{}, 4)
	release := make(chan struct{})
	done := func(ctx context.Context, job TransferJob, result TransferResult, err error) {
		started <- struct{}{}
		<-release
	}

	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.txt"))

	pool := NewTransferPool(1, 1, t.TempDir(), done)
	defer func() {
		close(release)
		pool.Close()
	}()

	if _, err := pool.Submit(1, src); err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("worker never picked up the first job")
	}

	// Worker is blocked in done; this job fills the queue slot.
	if _, err := pool.Submit(1, src); err != nil {
		t.Fatalf("second Submit() error = %v", err)
	}
	if _, err := pool.Submit(1, src); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("third Submit() error = %v, want ErrQueueFull", err)
	}
}

func TestTransferPoolJobStatus(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.txt"))

	finished := make(chan string, 1)
	pool := NewTransferPool(1, 2, t.TempDir(), func(ctx context.Context, job TransferJob, result TransferResult, err error) {
		finished <- job.ID
	})
	defer pool.Close()

	id, err := pool.Submit(9, src)
	if err != nil {
		t.Fatal(err)
	}
	select {
	case got := <-finished:
		if got != id {
			t.Fatalf("done callback job id = %q, want %q", got, id)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("job never finished")
	}

	// The done state lands after the callback returns.
	deadline := time.Now().Add(5 * time.Second)
	for {
		st, ok := pool.Status(id)
		if ok && st.State == JobDone {
			if st.Err != nil {
				t.Fatalf("job error = %v", st.Err)
			}
			if st.Result.FileCount != 1 {
				t.Fatalf("FileCount = %d, want 1", st.Result.FileCount)
			}
			os.Remove(st.Result.ArchivePath)
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("job status = %+v, never reached done", st)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
