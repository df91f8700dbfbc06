package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/budgetbook/budgetbook/internal/importlog"
	"github.com/budgetbook/budgetbook/internal/logger"
)

// FileInfo describes a statement waiting in the inbox.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// ProcessedDir is the inbox subdirectory imported files are moved to.
const ProcessedDir = "processed"

// Scan returns the statement files directly inside inbox. A missing inbox
// has no files.
func Scan(inbox string) ([]FileInfo, error) {
	entries, err := os.ReadDir(inbox)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading inbox: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || !Supported(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(inbox, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from inbox to inbox/processed.
func MarkProcessed(inbox, fileName string) error {
	src := filepath.Join(inbox, fileName)
	dstDir := filepath.Join(inbox, ProcessedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}

// ImportInbox imports every statement in inbox. Unless sel.DryRun is set,
// files that contributed records are moved to the processed folder; failed
// files and files that yielded nothing stay for the next run.
func (s *Service) ImportInbox(ctx context.Context, inbox string, sel Selection) ([]Outcome, error) {
	files, err := Scan(inbox)
	if err != nil || len(files) == 0 {
		return nil, err
	}
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}

	outcomes, err := s.ImportFiles(ctx, paths, sel)
	if err != nil {
		return outcomes, err
	}
	if sel.DryRun {
		return outcomes, nil
	}
	for _, o := range outcomes {
		if o.Err != nil || o.Result == nil || o.Result.YieldedNothing {
			continue
		}
		if err := MarkProcessed(inbox, filepath.Base(o.File)); err != nil {
			return outcomes, err
		}
	}
	return outcomes, nil
}

// InboxJob imports the inbox on a schedule and records each run in the
// import log of DataDir.
type InboxJob struct {
	Service *Service
	Inbox   string
	DataDir string
	Ctx     context.Context
}

func (j *InboxJob) Name() string { return "inbox-import" }

func (j *InboxJob) Run() error {
	ctx := j.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	outcomes, err := j.Service.ImportInbox(ctx, j.Inbox, Selection{})
	if err != nil {
		return err
	}
	if len(outcomes) == 0 {
		return nil
	}

	now := time.Now()
	entries := make([]importlog.Entry, len(outcomes))
	failed := 0
	for i, o := range outcomes {
		entries[i] = o.LogEntry(now, false)
		if o.Err != nil {
			failed++
		}
	}
	if err := importlog.Append(j.DataDir, entries); err != nil {
		return fmt.Errorf("writing import log: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().
		Int("files", len(outcomes)).
		Int("failed", failed).
		Msg("inbox imported")
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(outcomes))
	}
	return nil
}
