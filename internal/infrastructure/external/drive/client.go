// Package drive reads evidence from and provisions folders in Google Drive.
// The tree is root / business / YYYY-MM-DD / numbered evidence folders.
package drive

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const (
	folderMimeType = "application/vnd.google-apps.folder"

	// DefaultMaxFileBytes is the largest file downloaded as evidence
	DefaultMaxFileBytes int64 = 4 * 1024 * 1024

	listPageSize = 100
)

// Config holds Drive configuration
type Config struct {
	RootFolderID string
	MaxFileBytes int64
}

// Client implements port.EvidenceSource and port.FolderProvisioner on Drive
type Client struct {
	files        *drive.FilesService
	rootID       string
	maxFileBytes int64
	logger       *zap.Logger
}

// NewService builds a Drive service from a service-account key, given either
// as JSON or as base64-encoded JSON
func NewService(ctx context.Context, serviceAccountKey string) (*drive.Service, error) {
	key := []byte(strings.TrimSpace(serviceAccountKey))
	if len(key) == 0 {
		return nil, fmt.Errorf("service account key cannot be empty")
	}
	if key[0] != '{' {
		decoded, err := base64.StdEncoding.DecodeString(string(key))
		if err != nil {
			return nil, fmt.Errorf("failed to decode service account key: %w", err)
		}
		key = decoded
	}

	config, err := google.JWTConfigFromJSON(key, drive.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account key: %w", err)
	}

	svc, err := drive.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return svc, nil
}

// NewClient creates a Drive client. A non-positive MaxFileBytes selects
// DefaultMaxFileBytes.
func NewClient(svc *drive.Service, cfg Config, logger *zap.Logger) *Client {
	maxBytes := cfg.MaxFileBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}
	return &Client{
		files:        svc.Files,
		rootID:       cfg.RootFolderID,
		maxFileBytes: maxBytes,
		logger:       logger,
	}
}

// findFolder returns the id of the named folder under parent, or "" if none
func (c *Client) findFolder(ctx context.Context, parentID, name string) (string, error) {
	q := fmt.Sprintf("'%s' in parents and name = '%s' and mimeType = '%s' and trashed = false",
		escape(parentID), escape(name), folderMimeType)

	list, err := c.files.List().
		Q(q).
		Fields("files(id, name)").
		PageSize(1).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to find folder %s: %w", name, err)
	}
	if len(list.Files) == 0 {
		return "", nil
	}
	return list.Files[0].Id, nil
}

// children lists every non-trashed item directly under parent
func (c *Client) children(ctx context.Context, parentID string) ([]*drive.File, error) {
	q := fmt.Sprintf("'%s' in parents and trashed = false", escape(parentID))

	var items []*drive.File
	err := c.files.List().
		Q(q).
		Fields("nextPageToken", "files(id, name, mimeType, size)").
		PageSize(listPageSize).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Pages(ctx, func(page *drive.FileList) error {
			items = append(items, page.Files...)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list folder %s: %w", parentID, err)
	}
	return items, nil
}

func (c *Client) createFolder(ctx context.Context, parentID, name string) (string, error) {
	created, err := c.files.Create(&drive.File{
		Name:     name,
		MimeType: folderMimeType,
		Parents:  []string{parentID},
	}).
		Fields("id").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to create folder %s: %w", name, err)
	}
	return created.Id, nil
}

// escape quotes a value for a Drive search query
func escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
