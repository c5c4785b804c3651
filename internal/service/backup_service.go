package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"intan/internal/models"
	"intan/internal/repository"
)

// BackupVersion is the format version written by Export
const BackupVersion = "1.0"

// BackupData represents the complete store backup structure
type BackupData struct {
	Version     string                              `json:"version"`
	ExportedAt  time.Time                           `json:"exported_at"`
	StorageType string                              `json:"storage_type"`
	CurrentUser string                              `json:"current_user,omitempty"`
	Profiles    []models.UserProfile                `json:"profiles"`
	Progress    map[string]*models.LearningProgress `json:"progress"`
}

// BackupService handles store backup and restore operations
type BackupService struct {
	repo        *repository.ProgressRepository
	storageType string
	logger      logrus.FieldLogger
}

// NewBackupService creates a new backup service
func NewBackupService(repo *repository.ProgressRepository, storageType string, logger logrus.FieldLogger) *BackupService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &BackupService{repo: repo, storageType: storageType, logger: logger}
}

// Export creates a complete backup of the store to a file
func (s *BackupService) Export(ctx context.Context, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.ExportToWriter(ctx, file); err != nil {
		return err
	}

	s.logger.WithField("path", outputPath).Info("Store exported successfully")
	return nil
}

// ExportToWriter writes a complete backup as indented JSON
func (s *BackupService) ExportToWriter(ctx context.Context, w io.Writer) error {
	backup, err := s.collect(ctx)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"profiles": len(backup.Profiles),
		"progress": len(backup.Progress),
	}).Info("Export complete")
	return nil
}

// Import restores the store from a backup file
func (s *BackupService) Import(ctx context.Context, inputPath string) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(ctx, file)
}

// ImportFromReader restores the store from a backup reader.
// Every record overwrites the stored one with the same id.
func (s *BackupService) ImportFromReader(ctx context.Context, reader io.Reader) error {
	var backup BackupData
	if err := json.NewDecoder(reader).Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != BackupVersion {
		return fmt.Errorf("unsupported backup version %q", backup.Version)
	}

	s.logger.WithFields(logrus.Fields{
		"version":     backup.Version,
		"exported_at": backup.ExportedAt,
		"source":      backup.StorageType,
	}).Info("Starting store import")

	for i := range backup.Profiles {
		profile := &backup.Profiles[i]
		if profile.ID == "" {
			return fmt.Errorf("profile %d has no id", i)
		}
		if err := s.repo.SaveProfile(ctx, profile); err != nil {
			return fmt.Errorf("failed to import profile %s: %w", profile.ID, err)
		}
	}

	for userID, progress := range backup.Progress {
		if progress == nil {
			continue
		}
		normalizeProgress(progress)
		if err := s.repo.SaveProgress(ctx, userID, progress); err != nil {
			return fmt.Errorf("failed to import progress %s: %w", userID, err)
		}
	}

	if backup.CurrentUser != "" {
		if err := s.repo.SetCurrentUserID(ctx, backup.CurrentUser); err != nil {
			return fmt.Errorf("failed to import current user: %w", err)
		}
	}

	s.logger.WithFields(logrus.Fields{
		"profiles": len(backup.Profiles),
		"progress": len(backup.Progress),
	}).Info("Store import completed successfully")
	return nil
}

func (s *BackupService) collect(ctx context.Context) (*BackupData, error) {
	backup := &BackupData{
		Version:     BackupVersion,
		ExportedAt:  time.Now().UTC(),
		StorageType: s.storageType,
		Profiles:    []models.UserProfile{},
		Progress:    map[string]*models.LearningProgress{},
	}

	currentUser, err := s.repo.GetCurrentUserID(ctx)
	if err != nil {
		return nil, err
	}
	backup.CurrentUser = currentUser

	profileIDs, err := s.repo.ListProfileIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export profiles: %w", err)
	}
	for _, id := range profileIDs {
		profile, err := s.repo.GetProfile(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to export profile %s: %w", id, err)
		}
		if profile != nil {
			backup.Profiles = append(backup.Profiles, *profile)
		}
	}

	progressIDs, err := s.repo.ListProgressIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export progress: %w", err)
	}
	for _, id := range progressIDs {
		progress, err := s.repo.GetProgress(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to export progress %s: %w", id, err)
		}
		if progress != nil {
			backup.Progress[id] = progress
		}
	}

	return backup, nil
}

// normalizeProgress re-derives totalScore and achievements so imported records hold the invariants
func normalizeProgress(p *models.LearningProgress) {
	p.TotalScore = p.SumBestScores()
	p.Achievements = models.CheckAchievements(*p)
}
