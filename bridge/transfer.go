package bridge

import (
	"archive/zip"
	"compress/flate"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pixieuiii/pixiebridge/internal/cachedir"
)

const (
	// Transport upload ceiling for bot accounts.
	maxUploadBytes = 50 * 1024 * 1024
	// Total source bytes a single archive request may pull in.
	maxArchiveSourceBytes = 350 * 1024 * 1024
)

var skipDirNames = map[string]bool{
	".git":         true,
	".venv":        true,
	"venv":         true,
	"__pycache__":  true,
	"node_modules": true,
	"dist":         true,
	"build":        true,
}

var (
	ErrTooLarge     = errors.New("file exceeds the upload limit")
	ErrQueueFull    = errors.New("transfer queue is full")
	ErrEmptyArchive = errors.New("no files matched within the archive budget")
)

// TransferResult summarizes one folder archive run.
type TransferResult struct {
	ArchivePath  string
	FileCount    int
	SkippedCount int
	SourceBytes  int64
	ArchiveBytes int64
	Elapsed      time.Duration
}

// archiveFolder zips the regular files under src into destDir, walking
// depth-first, skipping well-known junk directories, and stopping short of
// the source-byte budget (0 means the default). Files that would blow the
// budget are counted as skipped; the walk keeps going so smaller files
// later in the tree still make it in.
func archiveFolder(ctx context.Context, src, destDir string, budget int64) (TransferResult, error) {
	start := time.Now()
	if budget <= 0 {
		budget = maxArchiveSourceBytes
	}

	info, err := os.Stat(src)
	if err != nil {
		return TransferResult{}, err
	}
	if !info.IsDir() {
		return TransferResult{}, fmt.Errorf("%s is not a folder", src)
	}
	if err := os.MkdirAll(destDir, 0o700); err != nil {
		return TransferResult{}, err
	}

	base := cachedir.SanitizeFilename(filepath.Base(src))
	archivePath := filepath.Join(destDir, fmt.Sprintf("%s_%d.zip", base, time.Now().UnixMilli()))

	out, err := os.OpenFile(archivePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return TransferResult{}, err
	}

	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestSpeed)
	})

	result := TransferResult{ArchivePath: archivePath}

	walkErr := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtree: note it and move on.
			result.SkippedCount++
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != src && skipDirNames[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}
		fi, err := d.Info()
		if err != nil || !fi.Mode().IsRegular() {
			result.SkippedCount++
			return nil
		}
		if result.SourceBytes+fi.Size() > budget {
			result.SkippedCount++
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			result.SkippedCount++
			return nil
		}
		hdr, err := zip.FileInfoHeader(fi)
		if err != nil {
			result.SkippedCount++
			return nil
		}
		hdr.Name = filepath.ToSlash(filepath.Join(base, rel))
		hdr.Method = zip.Deflate

		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			result.SkippedCount++
			return nil
		}
		n, err := io.Copy(w, f)
		_ = f.Close()
		if err != nil {
			return err
		}
		result.FileCount++
		result.SourceBytes += n
		return nil
	})

	closeErr := zw.Close()
	syncErr := out.Sync()
	if err := out.Close(); err != nil && closeErr == nil {
		closeErr = err
	}

	if walkErr != nil || closeErr != nil || syncErr != nil {
		_ = os.Remove(archivePath)
		if walkErr != nil {
			return TransferResult{}, walkErr
		}
		if closeErr != nil {
			return TransferResult{}, closeErr
		}
		return TransferResult{}, syncErr
	}
	if result.FileCount == 0 {
		_ = os.Remove(archivePath)
		return TransferResult{}, ErrEmptyArchive
	}

	fi, err := os.Stat(archivePath)
	if err != nil {
		_ = os.Remove(archivePath)
		return TransferResult{}, err
	}
	result.ArchiveBytes = fi.Size()
	result.Elapsed = time.Since(start)
	return result, nil
}

// TransferJob is a queued folder archive request.
type TransferJob struct {
	ID     string
	ChatID int64
	Folder string
}

// JobState is the observable lifecycle of a submitted transfer.
type JobState string

const (
	JobQueued  JobState = "queued"
	JobRunning JobState = "running"
	JobDone    JobState = "done"
)

// JobStatus is a snapshot of one job.
type JobStatus struct {
	State  JobState
	Result TransferResult
	Err    error
}

// TransferPool runs folder archives on a fixed set of workers with a
// bounded queue. Completion is delivered through the done callback on the
// worker goroutine; the caller decides what to send where.
type TransferPool struct {
	queue   chan TransferJob
	destDir string
	budget  int64
	done    func(ctx context.Context, job TransferJob, result TransferResult, err error)

	mu      sync.Mutex
	pending int
	jobs    map[string]JobStatus

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewTransferPool(workers, queueDepth int, destDir string, done func(context.Context, TransferJob, TransferResult, error)) *TransferPool {
	if workers <= 0 {
		workers = 2
	}
	if queueDepth <= 0 {
		queueDepth = 8
	}
	p := &TransferPool{
		queue:   make(chan TransferJob, queueDepth),
		destDir: destDir,
		budget:  maxArchiveSourceBytes,
		done:    done,
		jobs:    make(map[string]JobStatus),
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
	return p
}

// Submit enqueues a folder archive and returns its job id. It never
// blocks: a full queue returns ErrQueueFull immediately so the requester
// gets told instead of waiting.
func (p *TransferPool) Submit(chatID int64, folder string) (string, error) {
	job := TransferJob{ID: uuid.NewString(), ChatID: chatID, Folder: folder}
	select {
	case p.queue <- job:
		p.mu.Lock()
		p.pending++
		p.jobs[job.ID] = JobStatus{State: JobQueued}
		p.mu.Unlock()
		return job.ID, nil
	default:
		return "", ErrQueueFull
	}
}

// Status looks up a job by id.
func (p *TransferPool) Status(jobID string) (JobStatus, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.jobs[jobID]
	return st, ok
}

// Pending reports queued plus running jobs.
func (p *TransferPool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending
}

// Close stops the workers after the queue drains.
func (p *TransferPool) Close() {
	close(p.queue)
	p.wg.Wait()
	p.cancel()
}

func (p *TransferPool) worker(ctx context.Context) {
	defer p.wg.Done()
	for job := range p.queue {
		p.mu.Lock()
		p.jobs[job.ID] = JobStatus{State: JobRunning}
		p.mu.Unlock()

		result, err := archiveFolder(ctx, job.Folder, p.destDir, p.budget)
		if p.done != nil {
			p.done(ctx, job, result, err)
		}

		p.mu.Lock()
		p.pending--
		p.jobs[job.ID] = JobStatus{State: JobDone, Result: result, Err: err}
		p.mu.Unlock()
	}
}
