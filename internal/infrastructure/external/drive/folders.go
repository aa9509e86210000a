package drive

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/cierres-audit/internal/application/port"
	"github.com/garyjia/cierres-audit/internal/domain/entity"
)

// EnsureDateFolders creates whatever is missing of business / date / evidence
// folders. Existing folders are reused, so repeated runs are harmless.
func (c *Client) EnsureDateFolders(ctx context.Context, business, date string) error {
	if c.rootID == "" {
		return fmt.Errorf("root folder id is not configured")
	}

	businessID, err := c.getOrCreateFolder(ctx, c.rootID, business)
	if err != nil {
		return err
	}
	dateID, err := c.getOrCreateFolder(ctx, businessID, date)
	if err != nil {
		return err
	}
	for _, name := range entity.EvidenceFolders {
		if _, err := c.getOrCreateFolder(ctx, dateID, name); err != nil {
			return err
		}
	}

	c.logger.Info("Evidence folders ready",
		zap.String("business", business),
		zap.String("date", date),
		zap.String("folder_id", dateID))
	return nil
}

func (c *Client) getOrCreateFolder(ctx context.Context, parentID, name string) (string, error) {
	id, err := c.findFolder(ctx, parentID, name)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}
	return c.createFolder(ctx, parentID, name)
}

// Verify interface compliance
var _ port.FolderProvisioner = (*Client)(nil)
