package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/pianotube/internal/types"
)

// ErrInvalidJobID is returned for job ids that cannot be part of a file name
var ErrInvalidJobID = errors.New("invalid job id")

// ValidJobID reports whether jobID stays inside the output folder when used
// in a file name
func ValidJobID(jobID string) bool {
	return jobID != "" && jobID != "." && jobID != ".." && !strings.ContainsAny(jobID, "/\\\x00")
}

// ArtifactName is the file name used for a downloaded artifact
func ArtifactName(jobID string, format types.ArtifactFormat) string {
	return "transcription_" + jobID + format.Extension()
}

// SaveArtifact copies r into dir as transcription_<job>.<ext>. The file
// appears only once fully written.
func SaveArtifact(dir, jobID string, format types.ArtifactFormat, r io.Reader) (string, error) {
	if !ValidJobID(jobID) {
		return "", fmt.Errorf("%w: %q", ErrInvalidJobID, jobID)
	}
	return writeAtomic(filepath.Join(dir, ArtifactName(jobID, format)), func(w io.Writer) error {
		_, err := io.Copy(w, r)
		return err
	})
}

// writeAtomic writes through a temp file in the target directory and
// renames it into place
func writeAtomic(path string, write func(w io.Writer) error) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("error creating folder: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return "", fmt.Errorf("error creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if err := write(tmp); err != nil {
		tmp.Close()
		return "", fmt.Errorf("error writing %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("error closing %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("error renaming %s: %w", filepath.Base(path), err)
	}
	return path, nil
}

// DefaultFolder is the per-user pianotube folder, searched for a config file
func DefaultFolder() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "pianotube")
	}
	return ".pianotube"
}
