package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"intan/internal/models"
	"intan/internal/ninja"
	"intan/internal/scoring"
	"intan/internal/security"
	"intan/internal/service"
	"intan/internal/validation"
)

// APIHandler serves the JSON API used by the game front-end
type APIHandler struct {
	progress *service.ProgressService
	tokens   *security.TokenManager
	csrf     *security.CSRFGenerator
	runs     *ninja.Registry
	levels   []ninja.Level
	logger   logrus.FieldLogger
}

// ninjaRunMaxAge bounds how long an abandoned run is kept
const ninjaRunMaxAge = 2 * time.Hour

// NewAPIHandler creates a new API handler
func NewAPIHandler(progress *service.ProgressService, tokens *security.TokenManager, csrf *security.CSRFGenerator, logger logrus.FieldLogger) *APIHandler {
	return &APIHandler{
		progress: progress,
		tokens:   tokens,
		csrf:     csrf,
		runs:     ninja.NewRegistry(ninjaRunMaxAge),
		levels:   ninja.DefaultLevels,
		logger:   logger,
	}
}

// RegisterRoutes wires every API route onto mux
func (h *APIHandler) RegisterRoutes(mux *http.ServeMux, m *Middleware) {
	mux.HandleFunc("GET /healthz", h.Health)
	mux.HandleFunc("GET /api/catalog", h.Catalog)
	mux.HandleFunc("POST /api/ninja/score", h.NinjaScore)

	mux.HandleFunc("POST /api/register", m.RateLimit(m.WithSession(h.Register)))
	mux.HandleFunc("POST /api/login", m.RateLimit(m.WithSession(h.Login)))
	mux.HandleFunc("POST /api/logout", m.WithSession(m.CSRFProtect(h.Logout)))
	mux.HandleFunc("GET /api/session", m.WithSession(h.Session))

	mux.HandleFunc("GET /api/profile", m.WithSession(m.RequireUser(h.GetProfile)))
	mux.HandleFunc("PUT /api/profile", m.WithSession(m.RequireUser(m.CSRFProtect(h.UpdateProfile))))
	mux.HandleFunc("GET /api/progress", m.WithSession(m.RequireUser(h.GetProgress)))
	mux.HandleFunc("POST /api/progress/{step}", m.WithSession(m.RequireUser(m.CSRFProtect(h.RecordStep))))

	mux.HandleFunc("GET /api/ninja/run", m.WithSession(m.RequireUser(h.NinjaRunState)))
	mux.HandleFunc("POST /api/ninja/run", m.WithSession(m.RequireUser(m.CSRFProtect(h.StartNinjaRun))))
	mux.HandleFunc("POST /api/ninja/run/level", m.WithSession(m.RequireUser(m.CSRFProtect(h.StartNinjaLevel))))
	mux.HandleFunc("POST /api/ninja/run/cut", m.WithSession(m.RequireUser(m.CSRFProtect(h.NinjaCut))))
	mux.HandleFunc("POST /api/ninja/run/finish", m.WithSession(m.RequireUser(m.CSRFProtect(h.FinishNinjaRun))))
}

type authResponse struct {
	Profile   *models.UserProfile `json:"profile"`
	CSRFToken string              `json:"csrfToken"`
}

type sessionResponse struct {
	LoggedIn  bool   `json:"loggedIn"`
	UserID    string `json:"userId,omitempty"`
	CSRFToken string `json:"csrfToken,omitempty"`
}

type progressResponse struct {
	Progress *models.LearningProgress `json:"progress"`
	Summary  models.ProgressSummary   `json:"summary"`
}

type loginRequest struct {
	UserID string `json:"userId"`
}

type stepRequest struct {
	Score     int  `json:"score"`
	Completed bool `json:"completed"`
}

type ninjaScoreRequest struct {
	Accuracy      *float64 `json:"accuracy"`
	PositionError *float64 `json:"positionError"`
	Threshold     float64  `json:"threshold"`
	TimeRemaining float64  `json:"timeRemaining"`
	LevelIndex    int      `json:"levelIndex"`
}

type ninjaCutRequest struct {
	PositionError float64 `json:"positionError"`
	Threshold     float64 `json:"threshold"`
}

type ninjaCutResponse struct {
	Result ninja.LevelResult `json:"result"`
	Run    ninja.State       `json:"run"`
}

type ninjaFinishResponse struct {
	Run       ninja.State              `json:"run"`
	StepScore int                      `json:"stepScore"`
	Completed bool                     `json:"completed"`
	Progress  *models.LearningProgress `json:"progress"`
	Summary   models.ProgressSummary   `json:"summary"`
}

type levelInfo struct {
	Index            int     `json:"index"`
	TimeLimitSeconds float64 `json:"timeLimitSeconds"`
}

type catalogResponse struct {
	Steps        []models.StepInfo        `json:"steps"`
	Achievements []models.AchievementInfo `json:"achievements"`
	Tiers        []scoring.Tier           `json:"tiers"`
	NinjaLevels  []levelInfo              `json:"ninjaLevels"`
}

// Health reports liveness
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Catalog returns the static game metadata
func (h *APIHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	levels := make([]levelInfo, 0, len(h.levels))
	for i, level := range h.levels {
		levels = append(levels, levelInfo{Index: i, TimeLimitSeconds: level.TimeLimit.Seconds()})
	}

	respondJSON(w, http.StatusOK, catalogResponse{
		Steps:        models.StepCatalog,
		Achievements: models.AchievementCatalog,
		Tiers:        scoring.Tiers,
		NinjaLevels:  levels,
	})
}

// Register creates a learner and logs them in
func (h *APIHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidJSON})
		return
	}

	sess := sessionFromContext(r.Context()).session
	profile, err := h.progress.Register(r.Context(), sess, in)
	if err != nil {
		respondWithServiceError(w, h.logger, "Failed to register learner", err)
		return
	}

	csrfToken, err := h.startSession(w, r, profile.ID)
	if err != nil {
		respondWithError(w, h.logger, http.StatusInternalServerError, ErrInternalServerError, "Failed to issue session", err)
		return
	}

	respondJSON(w, http.StatusCreated, authResponse{Profile: profile, CSRFToken: csrfToken})
}

// Login resumes an existing learner by id
func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeJSON(w, r, &in); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidJSON})
		return
	}
	if in.UserID == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "user id is required", Field: "userId"})
		return
	}

	sess := sessionFromContext(r.Context()).session
	profile, err := h.progress.GetProfile(r.Context(), sess, in.UserID)
	if err != nil {
		respondWithServiceError(w, h.logger, "Failed to load profile for login", err)
		return
	}

	if err := h.progress.Login(r.Context(), sess, profile.ID); err != nil {
		respondWithServiceError(w, h.logger, "Failed to log in", err)
		return
	}

	csrfToken, err := h.startSession(w, r, profile.ID)
	if err != nil {
		respondWithError(w, h.logger, http.StatusInternalServerError, ErrInternalServerError, "Failed to issue session", err)
		return
	}

	respondJSON(w, http.StatusOK, authResponse{Profile: profile, CSRFToken: csrfToken})
}

// Logout revokes the session token and clears the cookie. Stored records are kept.
func (h *APIHandler) Logout(w http.ResponseWriter, r *http.Request) {
	rs := sessionFromContext(r.Context())
	if err := h.progress.Logout(r.Context(), rs.session); err != nil {
		respondWithServiceError(w, h.logger, "Failed to log out", err)
		return
	}

	if rs.tokenID != "" {
		h.tokens.Revoke(rs.tokenID, rs.expiresAt)
		h.runs.Remove(rs.tokenID)
	}

	http.SetCookie(w, security.CreateDeleteCookie(r))
	w.WriteHeader(http.StatusNoContent)
}

// Session reports the current login state and a fresh copy of the CSRF token
func (h *APIHandler) Session(w http.ResponseWriter, r *http.Request) {
	rs := sessionFromContext(r.Context())
	resp := sessionResponse{LoggedIn: rs.session.IsLoggedIn(), UserID: rs.session.CurrentUserID()}
	if resp.LoggedIn {
		resp.CSRFToken, _ = h.csrf.GenerateToken(rs.tokenID)
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetProfile returns the logged-in learner's profile
func (h *APIHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context()).session
	profile, err := h.progress.GetProfile(r.Context(), sess, "")
	if err != nil {
		respondWithServiceError(w, h.logger, "Failed to load profile", err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// UpdateProfile edits the logged-in learner's profile
func (h *APIHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidJSON})
		return
	}

	sess := sessionFromContext(r.Context()).session
	profile, err := h.progress.UpdateProfile(r.Context(), sess, in)
	if err != nil {
		respondWithServiceError(w, h.logger, "Failed to update profile", err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// GetProgress returns the logged-in learner's progress and summary
func (h *APIHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context()).session
	progress, err := h.progress.GetProgress(r.Context(), sess, "")
	if err != nil {
		respondWithServiceError(w, h.logger, "Failed to load progress", err)
		return
	}
	respondJSON(w, http.StatusOK, progressResponse{Progress: progress, Summary: progress.Summary()})
}

// RecordStep records one step result for the logged-in learner
func (h *APIHandler) RecordStep(w http.ResponseWriter, r *http.Request) {
	step, err := models.ParseStepID(r.PathValue("step"))
	if err != nil {
		respondWithServiceError(w, h.logger, "", err)
		return
	}

	var in stepRequest
	if err := decodeJSON(w, r, &in); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidJSON})
		return
	}
	if in.Score < 0 || in.Score > models.MaxStepScore {
		respondWithServiceError(w, h.logger, "", validation.ValidationError{Field: "score", Message: "score must be between 0 and 10"})
		return
	}

	sess := sessionFromContext(r.Context()).session
	progress, err := h.progress.UpdateStepProgress(r.Context(), sess, step, in.Score, in.Completed)
	if err != nil {
		respondWithServiceError(w, h.logger, "Failed to record step result", err)
		return
	}
	respondJSON(w, http.StatusOK, progressResponse{Progress: progress, Summary: progress.Summary()})
}

// NinjaScore scores one Fraction Ninja cut. It takes either an accuracy
// percentage or a position error with its threshold.
func (h *APIHandler) NinjaScore(w http.ResponseWriter, r *http.Request) {
	var in ninjaScoreRequest
	if err := decodeJSON(w, r, &in); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidJSON})
		return
	}

	var accuracy float64
	switch {
	case in.Accuracy != nil:
		accuracy = *in.Accuracy
	case in.PositionError != nil:
		if in.Threshold <= 0 {
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: "threshold must be positive", Field: "threshold"})
			return
		}
		accuracy = scoring.AccuracyFromPositionError(*in.PositionError, in.Threshold)
	default:
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "accuracy or positionError is required"})
		return
	}

	respondJSON(w, http.StatusOK, scoring.ComputeScore(accuracy, in.TimeRemaining, in.LevelIndex))
}

// NinjaRunState returns the session's Fraction Ninja run
func (h *APIHandler) NinjaRunState(w http.ResponseWriter, r *http.Request) {
	run, ok := h.runs.Get(sessionFromContext(r.Context()).tokenID)
	if !ok {
		respondJSON(w, http.StatusNotFound, errorResponse{Error: ErrNoNinjaRun})
		return
	}
	respondJSON(w, http.StatusOK, run.State())
}

// StartNinjaRun begins a new Fraction Ninja run and starts its first level.
// Any run already held by the session is discarded.
func (h *APIHandler) StartNinjaRun(w http.ResponseWriter, r *http.Request) {
	run := h.runs.Start(sessionFromContext(r.Context()).tokenID, h.levels)
	if err := run.StartLevel(); err != nil {
		respondWithNinjaError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, run.State())
}

// StartNinjaLevel starts the countdown of the run's current level
func (h *APIHandler) StartNinjaLevel(w http.ResponseWriter, r *http.Request) {
	run, ok := h.runs.Get(sessionFromContext(r.Context()).tokenID)
	if !ok {
		respondJSON(w, http.StatusNotFound, errorResponse{Error: ErrNoNinjaRun})
		return
	}
	if err := run.StartLevel(); err != nil {
		respondWithNinjaError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, run.State())
}

// NinjaCut scores a cut on the current level
func (h *APIHandler) NinjaCut(w http.ResponseWriter, r *http.Request) {
	var in ninjaCutRequest
	if err := decodeJSON(w, r, &in); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidJSON})
		return
	}
	if in.Threshold <= 0 {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "threshold must be positive", Field: "threshold"})
		return
	}

	run, ok := h.runs.Get(sessionFromContext(r.Context()).tokenID)
	if !ok {
		respondJSON(w, http.StatusNotFound, errorResponse{Error: ErrNoNinjaRun})
		return
	}

	result, err := run.Cut(in.PositionError, in.Threshold)
	if err != nil {
		respondWithNinjaError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ninjaCutResponse{Result: result, Run: run.State()})
}

// FinishNinjaRun records the run as a step3 result and discards it.
// Levels that were not cut count as zero.
func (h *APIHandler) FinishNinjaRun(w http.ResponseWriter, r *http.Request) {
	rs := sessionFromContext(r.Context())
	run, ok := h.runs.Get(rs.tokenID)
	if !ok {
		respondJSON(w, http.StatusNotFound, errorResponse{Error: ErrNoNinjaRun})
		return
	}

	run.Stop()
	score, completed := run.StepResult()
	progress, err := h.progress.UpdateStepProgress(r.Context(), rs.session, models.Step3, score, completed)
	if err != nil {
		respondWithServiceError(w, h.logger, "Failed to record Fraction Ninja run", err)
		return
	}
	h.runs.Remove(rs.tokenID)

	respondJSON(w, http.StatusOK, ninjaFinishResponse{
		Run:       run.State(),
		StepScore: score,
		Completed: completed,
		Progress:  progress,
		Summary:   progress.Summary(),
	})
}

func respondWithNinjaError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ninja.ErrRunFinished),
		errors.Is(err, ninja.ErrLevelNotStarted),
		errors.Is(err, ninja.ErrTimeUp):
		respondJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: ErrInternalServerError})
	}
}

// startSession issues a session token, sets the cookie and returns the matching CSRF token
func (h *APIHandler) startSession(w http.ResponseWriter, r *http.Request, userID string) (string, error) {
	token, claims, err := h.tokens.Issue(userID)
	if err != nil {
		return "", err
	}

	http.SetCookie(w, security.CreateSessionCookie(r, token, time.Now().Add(h.tokens.TTL())))
	return h.csrf.GenerateToken(claims.ID)
}
