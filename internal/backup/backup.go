// file: internal/backup/backup.go
// version: 2.0.0
// guid: 8f9e0a1b-2c3d-4e5f-6a7b-8c9d0e1f2a3b

package backup

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const manifestName = "MANIFEST.json"

// ErrChecksumMismatch is returned by Restore when an archived file does not
// match the checksum recorded in the manifest.
var ErrChecksumMismatch = errors.New("backup checksum mismatch")

// Source is one path saved in a backup under a fixed name. Directories
// (the settings store, the search index) are archived recursively.
type Source struct {
	Name string
	Path string
}

// BackupInfo contains information about a backup
type BackupInfo struct {
	Filename  string    `json:"filename"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum"`
	Sources   []string  `json:"sources,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// manifest is written first in every archive.
type manifest struct {
	CreatedAt time.Time         `json:"created_at"`
	Sources   []string          `json:"sources"`
	Files     map[string]string `json:"files"` // archive path -> sha256
}

// BackupConfig holds backup configuration
type BackupConfig struct {
	BackupDir        string
	MaxBackups       int
	CompressionLevel int
}

// DefaultBackupConfig returns the default configuration for dataDir.
func DefaultBackupConfig(dataDir string) BackupConfig {
	return BackupConfig{
		BackupDir:        filepath.Join(dataDir, "backups"),
		MaxBackups:       10,
		CompressionLevel: gzip.BestCompression,
	}
}

// CreateBackup writes a compressed archive of sources. Missing sources are
// skipped; at least one must exist.
func CreateBackup(sources []Source, config BackupConfig) (*BackupInfo, error) {
	present := make([]Source, 0, len(sources))
	for _, s := range sources {
		if s.Path == "" {
			continue
		}
		if _, err := os.Stat(s.Path); err != nil {
			log.Printf("[DEBUG] backup: skipping %s: %v", s.Name, err)
			continue
		}
		present = append(present, s)
	}
	if len(present) == 0 {
		return nil, fmt.Errorf("nothing to back up")
	}

	if err := os.MkdirAll(config.BackupDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	now := time.Now()
	backupFilename := fmt.Sprintf("book-search_%s.tar.gz", now.Format("20060102_150405.000"))
	backupPath := filepath.Join(config.BackupDir, backupFilename)

	m := manifest{CreatedAt: now, Files: make(map[string]string)}
	for _, s := range present {
		m.Sources = append(m.Sources, s.Name)
		if err := checksumTree(s, m.Files); err != nil {
			return nil, fmt.Errorf("failed to checksum %s: %w", s.Name, err)
		}
	}

	if err := writeArchive(backupPath, config.CompressionLevel, m, present); err != nil {
		_ = os.Remove(backupPath)
		return nil, err
	}

	fileInfo, err := os.Stat(backupPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat backup file: %w", err)
	}
	checksum, err := calculateFileChecksum(backupPath)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate checksum: %w", err)
	}

	if err := cleanupOldBackups(config.BackupDir, config.MaxBackups); err != nil {
		log.Printf("[WARN] failed to clean up old backups: %v", err)
	}

	log.Printf("[INFO] backup: wrote %s (%d bytes)", backupPath, fileInfo.Size())
	return &BackupInfo{
		Filename:  backupFilename,
		Path:      backupPath,
		Size:      fileInfo.Size(),
		Checksum:  checksum,
		Sources:   m.Sources,
		CreatedAt: now,
	}, nil
}

func writeArchive(path string, level int, m manifest, sources []Source) error {
	backupFile, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer backupFile.Close()

	gzipWriter, err := gzip.NewWriterLevel(backupFile, level)
	if err != nil {
		return fmt.Errorf("failed to create gzip writer: %w", err)
	}
	tarWriter := tar.NewWriter(gzipWriter)

	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := tarWriter.WriteHeader(&tar.Header{
		Name:    manifestName,
		Mode:    0o644,
		Size:    int64(len(raw)),
		ModTime: m.CreatedAt,
	}); err != nil {
		return err
	}
	if _, err := tarWriter.Write(raw); err != nil {
		return err
	}

	for _, s := range sources {
		if err := addToArchive(tarWriter, s); err != nil {
			return fmt.Errorf("failed to add %s to archive: %w", s.Name, err)
		}
	}

	// Close writers to ensure all data is flushed
	if err := tarWriter.Close(); err != nil {
		return fmt.Errorf("failed to close tar writer: %w", err)
	}
	if err := gzipWriter.Close(); err != nil {
		return fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return backupFile.Close()
}

// walkSource calls fn for every regular file of s with its archive name.
func walkSource(s Source, fn func(file, name string, fi os.FileInfo) error) error {
	return filepath.Walk(s.Path, func(file string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.Path, file)
		if err != nil {
			return err
		}
		name := s.Name
		if rel != "." {
			name = s.Name + "/" + filepath.ToSlash(rel)
		}
		return fn(file, name, fi)
	})
}

func checksumTree(s Source, out map[string]string) error {
	return walkSource(s, func(file, name string, fi os.FileInfo) error {
		if !fi.Mode().IsRegular() {
			return nil
		}
		sum, err := calculateFileChecksum(file)
		if err != nil {
			return err
		}
		out[name] = sum
		return nil
	})
}

// addToArchive adds a file or directory tree under its source name.
func addToArchive(tarWriter *tar.Writer, s Source) error {
	return walkSource(s, func(file, name string, fi os.FileInfo) error {
		if !fi.IsDir() && !fi.Mode().IsRegular() {
			return nil
		}
		header, err := tar.FileInfoHeader(fi, "")
		if err != nil {
			return err
		}
		header.Name = name
		if err := tarWriter.WriteHeader(header); err != nil {
			return err
		}
		if fi.IsDir() {
			return nil
		}
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tarWriter, f)
		return err
	})
}

// RestoreBackup extracts a backup into targetDir. With verify set, every
// file is checked against the manifest and a mismatch aborts the restore.
func RestoreBackup(backupPath, targetDir string, verify bool) error {
	backupFile, err := os.Open(backupPath)
	if err != nil {
		return fmt.Errorf("failed to open backup file: %w", err)
	}
	defer backupFile.Close()

	gzipReader, err := gzip.NewReader(backupFile)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	tarReader := tar.NewReader(gzipReader)
	var m *manifest

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read tar header: %w", err)
		}

		if header.Name == manifestName {
			m = &manifest{}
			if err := json.NewDecoder(tarReader).Decode(m); err != nil {
				return fmt.Errorf("invalid backup manifest: %w", err)
			}
			continue
		}

		target, err := safeJoin(targetDir, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("failed to create parent directory for %s: %w", target, err)
			}
			sum, err := extractFile(tarReader, target, os.FileMode(header.Mode))
			if err != nil {
				return err
			}
			if verify {
				if m == nil {
					return fmt.Errorf("%w: archive has no manifest", ErrChecksumMismatch)
				}
				if want := m.Files[header.Name]; want != sum {
					return fmt.Errorf("%w: %s", ErrChecksumMismatch, header.Name)
				}
			}
		default:
			log.Printf("[WARN] backup: unsupported file type %d for %s", header.Typeflag, header.Name)
		}
	}
	return nil
}

func extractFile(r io.Reader, target string, mode os.FileMode) (string, error) {
	outFile, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", target, err)
	}
	hash := sha256.New()
	if _, err := io.Copy(io.MultiWriter(outFile, hash), r); err != nil {
		outFile.Close()
		return "", fmt.Errorf("failed to write file %s: %w", target, err)
	}
	if err := outFile.Close(); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// safeJoin rejects archive names escaping dir.
func safeJoin(dir, name string) (string, error) {
	target := filepath.Join(dir, filepath.FromSlash(name))
	rel, err := filepath.Rel(dir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid path in backup: %s", name)
	}
	return target, nil
}

// ListBackups lists the backups in backupDir, newest first.
func ListBackups(backupDir string) ([]BackupInfo, error) {
	var backups []BackupInfo

	entries, err := os.ReadDir(backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return backups, nil // No backups directory yet
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".tar.gz") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		backupPath := filepath.Join(backupDir, entry.Name())
		checksum, _ := calculateFileChecksum(backupPath)
		backups = append(backups, BackupInfo{
			Filename:  entry.Name(),
			Path:      backupPath,
			Size:      info.Size(),
			Checksum:  checksum,
			CreatedAt: info.ModTime(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		if !backups[i].CreatedAt.Equal(backups[j].CreatedAt) {
			return backups[i].CreatedAt.After(backups[j].CreatedAt)
		}
		return backups[i].Filename > backups[j].Filename
	})
	return backups, nil
}

// DeleteBackup deletes a specific backup file
func DeleteBackup(backupPath string) error {
	if err := os.Remove(backupPath); err != nil {
		return fmt.Errorf("failed to delete backup: %w", err)
	}
	return nil
}

// calculateFileChecksum calculates SHA256 checksum of a file
func calculateFileChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// cleanupOldBackups keeps the newest maxBackups archives.
func cleanupOldBackups(backupDir string, maxBackups int) error {
	if maxBackups <= 0 {
		return nil
	}
	backups, err := ListBackups(backupDir)
	if err != nil {
		return err
	}
	for _, b := range backups[min(maxBackups, len(backups)):] {
		if err := os.Remove(b.Path); err != nil {
			log.Printf("[WARN] failed to delete old backup %s: %v", b.Filename, err)
		}
	}
	return nil
}
