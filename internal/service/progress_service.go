package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"intan/internal/models"
	"intan/internal/repository"
	"intan/internal/validation"
)

// Notifier delivers learner-facing messages
type Notifier interface {
	SendWelcomeEmail(ctx context.Context, toEmail, toName string) error
	SendAllCompleteEmail(ctx context.Context, toEmail, toName string, totalScore int) error
}

// RegisterInput carries the fields a learner provides at registration
type RegisterInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Age   int    `json:"age"`
	Grade int    `json:"grade"`
}

// Validate checks every field and returns the first failure
func (in RegisterInput) Validate() error {
	if err := validation.ValidateName(in.Name); err != nil {
		return err
	}
	if err := validation.ValidateOptionalEmail(in.Email); err != nil {
		return err
	}
	if err := validation.ValidateAge(in.Age); err != nil {
		return err
	}
	return validation.ValidateGrade(in.Grade)
}

// ProgressService owns profile and learning progress records.
//
// Updates are read-modify-write over a whole snapshot with no versioning:
// two writers interleaving on the same user lose the first writer's changes.
type ProgressService struct {
	repo     *repository.ProgressRepository
	notifier Notifier
	logger   logrus.FieldLogger
	now      func() time.Time
}

// NewProgressService creates a new progress service. notifier may be nil.
func NewProgressService(repo *repository.ProgressRepository, notifier Notifier, logger logrus.FieldLogger) *ProgressService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ProgressService{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock replaces the time source used for timestamps
func (s *ProgressService) SetClock(now func() time.Time) {
	s.now = now
}

// RestoreSession loads the persisted current-user pointer into a persistent session
func (s *ProgressService) RestoreSession(ctx context.Context) (*Session, error) {
	userID, err := s.repo.GetCurrentUserID(ctx)
	if err != nil {
		return nil, err
	}
	return &Session{userID: userID, persistent: true}, nil
}

// Login makes userID the session's current user
func (s *ProgressService) Login(ctx context.Context, sess *Session, userID string) error {
	if sess == nil {
		return ErrNoSession
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return validation.ValidationError{Field: "userId", Message: "user id is required"}
	}

	if sess.persistent {
		if err := s.repo.SetCurrentUserID(ctx, userID); err != nil {
			return err
		}
	}
	sess.set(userID)

	s.logger.WithField("user_id", userID).Info("User logged in")
	return nil
}

// Logout clears the current-user pointer. Stored profile and progress stay.
func (s *ProgressService) Logout(ctx context.Context, sess *Session) error {
	if sess == nil {
		return ErrNoSession
	}
	userID := sess.CurrentUserID()

	if sess.persistent {
		if err := s.repo.ClearCurrentUserID(ctx); err != nil {
			return err
		}
	}
	sess.set("")

	if userID != "" {
		s.logger.WithField("user_id", userID).Info("User logged out")
	}
	return nil
}

// SaveProfile upserts a profile without validation
func (s *ProgressService) SaveProfile(ctx context.Context, profile *models.UserProfile) error {
	return s.repo.SaveProfile(ctx, profile)
}

// GetProfile returns the profile for userID, or for the session's user when userID is empty
func (s *ProgressService) GetProfile(ctx context.Context, sess *Session, userID string) (*models.UserProfile, error) {
	userID, err := resolveUserID(sess, userID)
	if err != nil {
		return nil, err
	}

	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}
	return profile, nil
}

// InitializeProgress stores fresh zeroed progress for userID, replacing any existing record
func (s *ProgressService) InitializeProgress(ctx context.Context, userID string) (*models.LearningProgress, error) {
	progress := models.NewLearningProgress(s.now())
	if err := s.repo.SaveProgress(ctx, userID, progress); err != nil {
		return nil, err
	}
	return progress, nil
}

// GetProgress returns progress for userID, or for the session's user when userID is empty
func (s *ProgressService) GetProgress(ctx context.Context, sess *Session, userID string) (*models.LearningProgress, error) {
	userID, err := resolveUserID(sess, userID)
	if err != nil {
		return nil, err
	}

	progress, err := s.repo.GetProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		return nil, ErrProgressNotFound
	}
	return progress, nil
}

// UpdateStepProgress records one step result for the session's user and persists the snapshot
func (s *ProgressService) UpdateStepProgress(ctx context.Context, sess *Session, step models.StepID, score int, completed bool) (*models.LearningProgress, error) {
	userID := sess.CurrentUserID()
	if userID == "" {
		return nil, ErrNoCurrentUser
	}

	progress, err := s.repo.GetProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		return nil, ErrProgressNotFound
	}

	hadAllComplete := progress.HasAchievement(models.AchievementAllComplete)

	if err := progress.RecordResult(step, score, completed, s.now()); err != nil {
		return nil, err
	}

	if err := s.repo.SaveProgress(ctx, userID, progress); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":     userID,
		"step":        step,
		"score":       score,
		"completed":   completed,
		"total_score": progress.TotalScore,
	}).Debug("Step progress recorded")

	if !hadAllComplete && progress.HasAchievement(models.AchievementAllComplete) {
		s.notifyAllComplete(ctx, userID, progress.TotalScore)
	}

	return progress, nil
}

// Register validates input, creates the profile and its zeroed progress, and logs the session in
func (s *ProgressService) Register(ctx context.Context, sess *Session, in RegisterInput) (*models.UserProfile, error) {
	if sess == nil {
		return nil, ErrNoSession
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	profile := &models.UserProfile{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.TrimSpace(in.Email),
		Age:       in.Age,
		Grade:     in.Grade,
		CreatedAt: s.now(),
	}

	if err := s.repo.SaveProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	if _, err := s.InitializeProgress(ctx, profile.ID); err != nil {
		return nil, fmt.Errorf("failed to initialize progress: %w", err)
	}
	if err := s.Login(ctx, sess, profile.ID); err != nil {
		return nil, err
	}

	s.logger.WithField("user_id", profile.ID).Info("Learner registered")

	if profile.HasEmail() && s.notifier != nil {
		if err := s.notifier.SendWelcomeEmail(ctx, profile.Email, profile.Name); err != nil {
			s.logger.WithError(err).WithField("user_id", profile.ID).Warn("Failed to send welcome email")
		}
	}

	return profile, nil
}

// UpdateProfile validates in and rewrites the session user's editable profile fields
func (s *ProgressService) UpdateProfile(ctx context.Context, sess *Session, in RegisterInput) (*models.UserProfile, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	profile, err := s.GetProfile(ctx, sess, "")
	if err != nil {
		return nil, err
	}

	profile.Name = strings.TrimSpace(in.Name)
	profile.Email = strings.TrimSpace(in.Email)
	profile.Age = in.Age
	profile.Grade = in.Grade

	if err := s.repo.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *ProgressService) notifyAllComplete(ctx context.Context, userID string, totalScore int) {
	if s.notifier == nil {
		return
	}

	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Failed to load profile for achievement email")
		return
	}
	if !profile.HasEmail() {
		return
	}

	if err := s.notifier.SendAllCompleteEmail(ctx, profile.Email, profile.Name, totalScore); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Failed to send achievement email")
	}
}

func resolveUserID(sess *Session, userID string) (string, error) {
	if userID != "" {
		return userID, nil
	}
	if current := sess.CurrentUserID(); current != "" {
		return current, nil
	}
	return "", ErrNoCurrentUser
}
