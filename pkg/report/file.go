package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/miki725/subui/pkg/errors"
	"github.com/miki725/subui/pkg/observability"
)

// FileStore persists transcripts as JSON files, one per run.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileStore creates a file-based transcript store rooted at baseDir.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "report directory cannot be empty")
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) reportPath(runID string) string {
	return filepath.Join(s.baseDir, runID+".json")
}

func (s *FileStore) Save(ctx context.Context, t *Transcript) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		err = fmt.Errorf("marshal transcript: %w", err)
		observability.Store().OnSave(ctx, "file", t.RunID, err)
		return err
	}
	err = os.WriteFile(s.reportPath(t.RunID), data, 0644)
	if err != nil {
		err = fmt.Errorf("write transcript: %w", err)
	}
	observability.Store().OnSave(ctx, "file", t.RunID, err)
	return err
}

func (s *FileStore) Load(ctx context.Context, runID string) (*Transcript, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.reportPath(runID))
	if err != nil {
		if os.IsNotExist(err) {
			err = errors.New(errors.ErrCodeReportNotFound, "no report for run %q", runID)
		} else {
			err = fmt.Errorf("read transcript: %w", err)
		}
		observability.Store().OnLoad(ctx, "file", runID, err)
		return nil, err
	}

	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		err = fmt.Errorf("parse transcript: %w", err)
		observability.Store().OnLoad(ctx, "file", runID, err)
		return nil, err
	}
	observability.Store().OnLoad(ctx, "file", runID, nil)
	return &t, nil
}

func (s *FileStore) List(ctx context.Context, limit int) ([]*Transcript, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read report dir: %w", err)
	}

	var transcripts []*Transcript
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name()))
		if err != nil {
			continue
		}
		var t Transcript
		if err := json.Unmarshal(data, &t); err != nil {
			continue
		}
		transcripts = append(transcripts, &t)
	}

	sort.Slice(transcripts, func(i, j int) bool {
		return transcripts[i].StartedAt.After(transcripts[j].StartedAt)
	})
	if limit > 0 && len(transcripts) > limit {
		transcripts = transcripts[:limit]
	}
	return transcripts, nil
}

// Delete removes a stored transcript. Missing reports are not an error.
func (s *FileStore) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.reportPath(runID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove transcript: %w", err)
	}
	return nil
}

// Clear removes all stored transcripts.
func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return fmt.Errorf("read report dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(s.baseDir, entry.Name())); err != nil {
			return fmt.Errorf("remove transcript: %w", err)
		}
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

// Path returns the base directory for report files.
func (s *FileStore) Path() string {
	return s.baseDir
}

var _ Store = (*FileStore)(nil)
