package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"intan/internal/models"
	"intan/internal/storage"
)

// Storage keys. Values under the profile and progress prefixes are JSON;
// the current user pointer is the raw id.
const (
	CurrentUserKey    = "intan_current_user"
	ProfileKeyPrefix  = "intan_user_profile_"
	ProgressKeyPrefix = "intan_learning_progress_"
)

// ProfileKey returns the storage key of a user's profile
func ProfileKey(userID string) string {
	return ProfileKeyPrefix + userID
}

// ProgressKey returns the storage key of a user's learning progress
func ProgressKey(userID string) string {
	return ProgressKeyPrefix + userID
}

// ProgressRepository reads and writes profile and progress records
type ProgressRepository struct {
	store storage.Storage
}

// NewProgressRepository creates a new progress repository
func NewProgressRepository(store storage.Storage) *ProgressRepository {
	return &ProgressRepository{store: store}
}

// GetCurrentUserID returns the persisted current user pointer, or "" if none is set
func (r *ProgressRepository) GetCurrentUserID(ctx context.Context) (string, error) {
	userID, ok, err := r.store.Get(ctx, CurrentUserKey)
	if err != nil {
		return "", fmt.Errorf("failed to read current user: %w", err)
	}
	if !ok {
		return "", nil
	}
	return userID, nil
}

// SetCurrentUserID persists the current user pointer
func (r *ProgressRepository) SetCurrentUserID(ctx context.Context, userID string) error {
	if err := r.store.Set(ctx, CurrentUserKey, userID); err != nil {
		return fmt.Errorf("failed to set current user: %w", err)
	}
	return nil
}

// ClearCurrentUserID removes the current user pointer; stored records stay
func (r *ProgressRepository) ClearCurrentUserID(ctx context.Context) error {
	if err := r.store.Remove(ctx, CurrentUserKey); err != nil {
		return fmt.Errorf("failed to clear current user: %w", err)
	}
	return nil
}

// SaveProfile upserts a profile keyed by its ID
func (r *ProgressRepository) SaveProfile(ctx context.Context, profile *models.UserProfile) error {
	return r.put(ctx, ProfileKey(profile.ID), profile)
}

// GetProfile retrieves a profile; it returns nil, nil when none is stored
func (r *ProgressRepository) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	profile := &models.UserProfile{}
	found, err := r.get(ctx, ProfileKey(userID), profile)
	if err != nil || !found {
		return nil, err
	}
	return profile, nil
}

// SaveProgress writes the whole progress snapshot for a user
func (r *ProgressRepository) SaveProgress(ctx context.Context, userID string, progress *models.LearningProgress) error {
	return r.put(ctx, ProgressKey(userID), progress)
}

// GetProgress retrieves a user's progress; it returns nil, nil when none is stored
func (r *ProgressRepository) GetProgress(ctx context.Context, userID string) (*models.LearningProgress, error) {
	progress := &models.LearningProgress{}
	found, err := r.get(ctx, ProgressKey(userID), progress)
	if err != nil || !found {
		return nil, err
	}
	if progress.Achievements == nil {
		progress.Achievements = []models.Achievement{}
	}
	return progress, nil
}

// ListProfileIDs returns the ids of every stored profile
func (r *ProgressRepository) ListProfileIDs(ctx context.Context) ([]string, error) {
	return r.listIDs(ctx, ProfileKeyPrefix)
}

// ListProgressIDs returns the ids of every stored progress record
func (r *ProgressRepository) ListProgressIDs(ctx context.Context) ([]string, error) {
	return r.listIDs(ctx, ProgressKeyPrefix)
}

func (r *ProgressRepository) listIDs(ctx context.Context, prefix string) ([]string, error) {
	keys, err := r.store.Keys(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s keys: %w", prefix, err)
	}

	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, strings.TrimPrefix(key, prefix))
	}
	return ids, nil
}

func (r *ProgressRepository) put(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := r.store.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// get decodes the JSON value at key into v. Malformed JSON is returned as an error.
func (r *ProgressRepository) get(ctx context.Context, key string, v any) (bool, error) {
	raw, ok, err := r.store.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}
