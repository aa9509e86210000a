package service

import (
	"context"
	"fmt"

	"github.com/garyjia/cierres-audit/internal/application/port"
	"github.com/garyjia/cierres-audit/internal/dates"
)

// FolderResult reports the provisioning of one date's evidence folders
type FolderResult struct {
	Date    string   `json:"date"`
	Results []string `json:"results"`
	Failed  int      `json:"failed"`
}

// FolderService prepares the evidence folders operators upload into
type FolderService interface {
	// ProvisionTomorrow creates tomorrow's folders for every business
	ProvisionTomorrow(ctx context.Context) (*FolderResult, error)
	// Provision creates the folders of date for every business
	Provision(ctx context.Context, date string) (*FolderResult, error)
}

type folderServiceImpl struct {
	provisioner port.FolderProvisioner
	businesses  []string
	clock       dates.Clock
	logger      Logger
}

// NewFolderService creates a new FolderService
func NewFolderService(provisioner port.FolderProvisioner, businesses []string, clock dates.Clock, logger Logger) FolderService {
	return &folderServiceImpl{
		provisioner: provisioner,
		businesses:  businesses,
		clock:       clock,
		logger:      logger,
	}
}

func (s *folderServiceImpl) ProvisionTomorrow(ctx context.Context) (*FolderResult, error) {
	tomorrow := dates.FormatISO(s.clock.Today().AddDate(0, 0, 1))
	return s.Provision(ctx, tomorrow)
}

// Provision continues past a failing business; each business gets one result line
func (s *folderServiceImpl) Provision(ctx context.Context, date string) (*FolderResult, error) {
	if s.provisioner == nil {
		return nil, fmt.Errorf("no folder provisioner configured")
	}

	result := &FolderResult{Date: date, Results: make([]string, 0, len(s.businesses))}
	for _, business := range s.businesses {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.provisioner.EnsureDateFolders(ctx, business, date); err != nil {
			s.logger.Error("Failed to create evidence folders", "error", err, "business", business, "date", date)
			result.Results = append(result.Results, fmt.Sprintf("%s: Error - %v", business, err))
			result.Failed++
			continue
		}
		result.Results = append(result.Results, business+": OK")
	}

	s.logger.Info("Evidence folders provisioned", "date", date, "businesses", len(s.businesses), "failed", result.Failed)
	return result, nil
}
