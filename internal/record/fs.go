package record

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// FS stores records on a filesystem under a base directory:
//
//	<base>/<runID>/phases/<phase>/<execID>/input.json
//	<base>/<runID>/phases/<phase>/<execID>/output.json
//	<base>/<runID>/reports/<name>
type FS struct {
	fs      afero.Fs
	baseDir string
}

// NewFS creates a filesystem store rooted at baseDir.
func NewFS(fs afero.Fs, baseDir string) *FS {
	return &FS{fs: fs, baseDir: baseDir}
}

// DefaultFS returns a store at ~/.qaforge/runs on the OS filesystem,
// creating the directory if needed.
func DefaultFS() (*FS, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".qaforge", "runs")
	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return NewFS(osFs, dir), nil
}

// BaseDir returns the store's root directory.
func (s *FS) BaseDir() string {
	return s.baseDir
}

func (s *FS) runDir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

func (s *FS) execDir(runID, phase, execID string) string {
	return filepath.Join(s.runDir(runID), "phases", phase, execID)
}

func (s *FS) PutInput(_ context.Context, runID, phase, execID string, data []byte) error {
	return s.write(s.execDir(runID, phase, execID), "input.json", data)
}

func (s *FS) PutOutput(_ context.Context, runID, phase, execID string, data []byte) error {
	return s.write(s.execDir(runID, phase, execID), "output.json", data)
}

func (s *FS) PutReport(_ context.Context, runID, name string, data []byte) (string, error) {
	dir := filepath.Join(s.runDir(runID), "reports")
	if err := s.write(dir, name, data); err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// ReadInput returns the recorded input snapshot for one execution.
func (s *FS) ReadInput(runID, phase, execID string) ([]byte, error) {
	return afero.ReadFile(s.fs, filepath.Join(s.execDir(runID, phase, execID), "input.json"))
}

// ReadOutput returns the recorded output snapshot for one execution.
func (s *FS) ReadOutput(runID, phase, execID string) ([]byte, error) {
	return afero.ReadFile(s.fs, filepath.Join(s.execDir(runID, phase, execID), "output.json"))
}

// ListExecutions returns the execution ids recorded for a phase, sorted by
// directory name (execution ids are ULIDs, so this is creation order).
func (s *FS) ListExecutions(runID, phase string) ([]string, error) {
	dir := filepath.Join(s.runDir(runID), "phases", phase)
	infos, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read phase dir: %w", err)
	}
	var ids []string
	for _, info := range infos {
		if info.IsDir() {
			ids = append(ids, info.Name())
		}
	}
	return ids, nil
}

func (s *FS) write(dir, name string, data []byte) error {
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
