package drive

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
	"google.golang.org/api/drive/v3"

	"github.com/garyjia/cierres-audit/internal/application/port"
	"github.com/garyjia/cierres-audit/internal/domain/entity"
)

// List returns the files of every evidence folder of the business and date.
// Files left directly in the date folder are reported under the last
// evidence folder. A missing business or date folder yields an empty map.
func (c *Client) List(ctx context.Context, business, date string) (map[string][]entity.EvidenceFile, error) {
	result := map[string][]entity.EvidenceFile{}

	businessID, err := c.findFolder(ctx, c.rootID, business)
	if err != nil {
		return nil, err
	}
	if businessID == "" {
		c.logger.Debug("No evidence folder for business", zap.String("business", business))
		return result, nil
	}

	dateID, err := c.findFolder(ctx, businessID, date)
	if err != nil {
		return nil, err
	}
	if dateID == "" {
		c.logger.Debug("No evidence folder for date",
			zap.String("business", business),
			zap.String("date", date))
		return result, nil
	}

	known := make(map[string]bool, len(entity.EvidenceFolders))
	for _, name := range entity.EvidenceFolders {
		known[name] = true
		result[name] = []entity.EvidenceFile{}
	}

	items, err := c.children(ctx, dateID)
	if err != nil {
		return nil, err
	}

	var loose []entity.EvidenceFile
	for _, item := range items {
		if item.MimeType != folderMimeType {
			loose = append(loose, toEvidenceFile(item, entity.FolderOther))
			continue
		}
		if !known[item.Name] {
			continue
		}
		files, err := c.children(ctx, item.Id)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if f.MimeType == folderMimeType {
				continue
			}
			result[item.Name] = append(result[item.Name], toEvidenceFile(f, item.Name))
		}
	}
	result[entity.FolderOther] = append(result[entity.FolderOther], loose...)

	c.logger.Debug("Listed evidence",
		zap.String("business", business),
		zap.String("date", date),
		zap.Int("items", len(items)))

	return result, nil
}

// Fetch downloads an image or PDF of at most the configured size
func (c *Client) Fetch(ctx context.Context, file entity.EvidenceFile) ([]byte, error) {
	meta, err := c.files.Get(file.ID).
		Fields("id", "name", "mimeType", "size").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get file %s: %w", file.Name, err)
	}

	if !toEvidenceFile(meta, file.Folder).IsReviewable() {
		return nil, fmt.Errorf("unsupported file type %s: %s", meta.MimeType, file.Name)
	}
	if meta.Size > c.maxFileBytes {
		c.logger.Warn("Evidence file too large",
			zap.String("file", file.Name),
			zap.Int64("size", meta.Size),
			zap.Int64("max", c.maxFileBytes))
		return nil, fmt.Errorf("file too large: %s (%d bytes)", file.Name, meta.Size)
	}

	resp, err := c.files.Get(file.ID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("failed to download file %s: %w", file.Name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", file.Name, err)
	}
	if int64(len(data)) > c.maxFileBytes {
		return nil, fmt.Errorf("file too large: %s", file.Name)
	}
	return data, nil
}

func toEvidenceFile(f *drive.File, folder string) entity.EvidenceFile {
	return entity.EvidenceFile{
		ID:       f.Id,
		Name:     f.Name,
		Folder:   folder,
		MimeType: f.MimeType,
		Size:     f.Size,
	}
}

// Verify interface compliance
var _ port.EvidenceSource = (*Client)(nil)
