package service

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
)

// ArchiveService streams zip archives of the node's output directory so
// operators can pull every generated artifact in one download.
type ArchiveService struct {
	outputDir string
}

// NewArchiveService creates an archive service over the given output directory.
func NewArchiveService(outputDir string) *ArchiveService {
	return &ArchiveService{outputDir: outputDir}
}

// WriteOutputs writes a zip of the output directory tree to w, with entry
// names relative to the output root. The archive is streamed, never buffered
// whole in memory.
func (s *ArchiveService) WriteOutputs(w io.Writer) error {
	zipWriter := zip.NewWriter(w)
	defer zipWriter.Close()

	count := 0
	err := filepath.WalkDir(s.outputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		arcname, err := filepath.Rel(s.outputDir, path)
		if err != nil {
			return err
		}

		entry, err := zipWriter.Create(arcname)
		if err != nil {
			return fmt.Errorf("failed to create zip entry: %w", err)
		}

		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		if _, err := io.Copy(entry, file); err != nil {
			return fmt.Errorf("failed to write %s to zip: %w", arcname, err)
		}

		count++
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("Created output archive (%d files)", count)
	return nil
}
