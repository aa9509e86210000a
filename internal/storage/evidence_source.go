// Package storage keeps evidence on the local filesystem using the same tree
// as the Drive provider: base / business / YYYY-MM-DD / numbered folders.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/cierres-audit/internal/application/port"
	"github.com/garyjia/cierres-audit/internal/domain/entity"
)

// DefaultMaxFileBytes is the largest file read as evidence
const DefaultMaxFileBytes int64 = 4 * 1024 * 1024

// LocalEvidenceSource implements port.EvidenceSource and
// port.FolderProvisioner on a local directory
type LocalEvidenceSource struct {
	baseDir      string
	maxFileBytes int64
	logger       *zap.Logger
}

// NewLocalEvidenceSource creates a LocalEvidenceSource rooted at baseDir
func NewLocalEvidenceSource(baseDir string, maxFileBytes int64, logger *zap.Logger) *LocalEvidenceSource {
	if maxFileBytes <= 0 {
		maxFileBytes = DefaultMaxFileBytes
	}
	return &LocalEvidenceSource{
		baseDir:      baseDir,
		maxFileBytes: maxFileBytes,
		logger:       logger,
	}
}

// List returns the files of each evidence folder. Files left directly in the
// date folder are reported under the last evidence folder.
func (s *LocalEvidenceSource) List(ctx context.Context, business, date string) (map[string][]entity.EvidenceFile, error) {
	result := map[string][]entity.EvidenceFile{}

	dateDir := s.GetPath(business, date)
	if err := s.validatePath(dateDir); err != nil {
		return nil, err
	}
	info, err := os.Stat(dateDir)
	if os.IsNotExist(err) {
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", dateDir, err)
	}
	if !info.IsDir() {
		return result, nil
	}

	for _, name := range entity.EvidenceFolders {
		result[name] = []entity.EvidenceFile{}
	}

	entries, err := os.ReadDir(dateDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dateDir, err)
	}

	var loose []entity.EvidenceFile
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() {
			if f, ok := s.toEvidenceFile(dateDir, entry, entity.FolderOther); ok {
				loose = append(loose, f)
			}
			continue
		}
		if _, known := result[entry.Name()]; !known {
			continue
		}

		folderDir := filepath.Join(dateDir, entry.Name())
		files, err := os.ReadDir(folderDir)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", folderDir, err)
		}
		for _, file := range files {
			if file.IsDir() {
				continue
			}
			if f, ok := s.toEvidenceFile(folderDir, file, entry.Name()); ok {
				result[entry.Name()] = append(result[entry.Name()], f)
			}
		}
	}
	result[entity.FolderOther] = append(result[entity.FolderOther], loose...)

	for name := range result {
		files := result[name]
		sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	}

	s.logger.Debug("Listed local evidence",
		zap.String("business", business),
		zap.String("date", date),
		zap.String("path", dateDir))

	return result, nil
}

// Fetch reads an image or PDF of at most the configured size
func (s *LocalEvidenceSource) Fetch(ctx context.Context, file entity.EvidenceFile) ([]byte, error) {
	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(file.ID))
	if err := s.validatePath(fullPath); err != nil {
		return nil, err
	}
	if !file.IsReviewable() {
		return nil, fmt.Errorf("unsupported file type %s: %s", file.MimeType, file.Name)
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file %s: %w", file.Name, err)
	}
	if info.Size() > s.maxFileBytes {
		s.logger.Warn("Evidence file too large",
			zap.String("file", file.Name),
			zap.Int64("size", info.Size()),
			zap.Int64("max", s.maxFileBytes))
		return nil, fmt.Errorf("file too large: %s (%d bytes)", file.Name, info.Size())
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		s.logger.Error("Failed to read file",
			zap.String("path", fullPath),
			zap.Error(err))
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return content, nil
}

// EnsureDateFolders creates the date folder and its evidence folders.
// Existing folders are left untouched.
func (s *LocalEvidenceSource) EnsureDateFolders(ctx context.Context, business, date string) error {
	if strings.TrimSpace(business) == "" || strings.TrimSpace(date) == "" {
		return fmt.Errorf("cannot create folders: empty business or date")
	}

	dateDir := s.GetPath(business, date)
	if err := s.validatePath(dateDir); err != nil {
		return err
	}
	for _, name := range entity.EvidenceFolders {
		folderPath := filepath.Join(dateDir, name)
		if err := os.MkdirAll(folderPath, 0755); err != nil {
			s.logger.Error("Failed to create folder",
				zap.String("folder_path", folderPath),
				zap.Error(err))
			return fmt.Errorf("failed to create folder: %w", err)
		}
	}

	s.logger.Debug("Created evidence folders",
		zap.String("business", business),
		zap.String("date", date),
		zap.String("folder_path", dateDir))
	return nil
}

// GetPath returns the date folder of a business. It does not create it.
func (s *LocalEvidenceSource) GetPath(business, date string) string {
	return filepath.Join(s.baseDir, SanitizeName(business), SanitizeName(date))
}

// SanitizeName strips path separators and parent references so a business
// name or date always maps to a single directory level
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "/", "")
	name = strings.ReplaceAll(name, "\\", "")
	return strings.TrimSpace(name)
}

func (s *LocalEvidenceSource) toEvidenceFile(dir string, entry os.DirEntry, folder string) (entity.EvidenceFile, bool) {
	info, err := entry.Info()
	if err != nil {
		return entity.EvidenceFile{}, false
	}
	rel, err := filepath.Rel(s.baseDir, filepath.Join(dir, entry.Name()))
	if err != nil {
		return entity.EvidenceFile{}, false
	}
	return entity.EvidenceFile{
		ID:       filepath.ToSlash(rel),
		Name:     entry.Name(),
		Folder:   folder,
		MimeType: mimeType(filepath.Ext(entry.Name())),
		Size:     info.Size(),
	}, true
}

// mimeType returns the MIME type for a file extension
func mimeType(ext string) string {
	switch strings.ToLower(ext) {
	case ".pdf":
		return "application/pdf"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}

// validatePath checks that the path stays within baseDir
func (s *LocalEvidenceSource) validatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) && absPath != absBase {
		return fmt.Errorf("path escapes base directory: %s", fullPath)
	}
	return nil
}

// Verify interface compliance
var (
	_ port.EvidenceSource    = (*LocalEvidenceSource)(nil)
	_ port.FolderProvisioner = (*LocalEvidenceSource)(nil)
)
