package output

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// ZipFrames packs every regular file in framesDir into outZip, in sorted
// name order so archives are reproducible.
func ZipFrames(framesDir, outZip string) error {
	if err := os.MkdirAll(filepath.Dir(outZip), 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}

	entries, err := os.ReadDir(framesDir)
	if err != nil {
		return fmt.Errorf("read frames dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	f, err := os.Create(outZip)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, name := range names {
		if err := addFile(zw, filepath.Join(framesDir, name), name); err != nil {
			zw.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}

func addFile(zw *zip.Writer, path, name string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer src.Close()

	dst, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("add %s to archive: %w", name, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("write %s to archive: %w", name, err)
	}
	return nil
}

// CleanupTmp removes the temporary directory and all its contents.
func CleanupTmp(tmpDir string) error {
	return os.RemoveAll(tmpDir)
}
