package models

import "time"

// StepProgress tracks results for a single learning step
type StepProgress struct {
	Completed   bool       `json:"completed"`
	Score       int        `json:"score"`
	BestScore   int        `json:"bestScore"`
	Attempts    int        `json:"attempts"`
	LastAttempt *time.Time `json:"lastAttempt,omitempty"`
}

// LearningProgress aggregates a learner's progress over the three steps
type LearningProgress struct {
	Step1        StepProgress  `json:"step1"`
	Step2        StepProgress  `json:"step2"`
	Step3        StepProgress  `json:"step3"`
	TotalScore   int           `json:"totalScore"`
	LastActive   time.Time     `json:"lastActive"`
	Achievements []Achievement `json:"achievements"`
}

// ProgressSummary is a derived, read-only view of LearningProgress
type ProgressSummary struct {
	CompletedSteps  int     `json:"completedSteps"`
	TotalSteps      int     `json:"totalSteps"`
	PercentComplete float64 `json:"percentComplete"`
	TotalScore      int     `json:"totalScore"`
	MaxScore        int     `json:"maxScore"`
}

// NewLearningProgress returns progress with every step zeroed
func NewLearningProgress(now time.Time) *LearningProgress {
	return &LearningProgress{
		LastActive:   now,
		Achievements: []Achievement{},
	}
}

// Step returns a pointer to the named step's progress
func (p *LearningProgress) Step(id StepID) (*StepProgress, error) {
	switch id {
	case Step1:
		return &p.Step1, nil
	case Step2:
		return &p.Step2, nil
	case Step3:
		return &p.Step3, nil
	}
	return nil, ErrUnknownStep
}

// SumBestScores adds the best score of every step
func (p *LearningProgress) SumBestScores() int {
	return p.Step1.BestScore + p.Step2.BestScore + p.Step3.BestScore
}

// RecordResult merges one step result into the snapshot.
// completed and score overwrite the previous values; bestScore keeps the maximum.
// totalScore, lastActive and achievements are recomputed afterwards.
func (p *LearningProgress) RecordResult(id StepID, score int, completed bool, now time.Time) error {
	step, err := p.Step(id)
	if err != nil {
		return err
	}

	attemptAt := now
	step.Completed = completed
	step.Score = score
	if score > step.BestScore {
		step.BestScore = score
	}
	step.Attempts++
	step.LastAttempt = &attemptAt

	p.TotalScore = p.SumBestScores()
	p.LastActive = now
	p.Achievements = CheckAchievements(*p)

	return nil
}

// HasAchievement reports whether the snapshot currently holds the achievement
func (p *LearningProgress) HasAchievement(a Achievement) bool {
	for _, got := range p.Achievements {
		if got == a {
			return true
		}
	}
	return false
}

// Summary computes completion figures for display
func (p *LearningProgress) Summary() ProgressSummary {
	completed := 0
	for _, id := range Steps {
		step, _ := p.Step(id)
		if step.Completed {
			completed++
		}
	}

	return ProgressSummary{
		CompletedSteps:  completed,
		TotalSteps:      len(Steps),
		PercentComplete: float64(completed) / float64(len(Steps)) * 100,
		TotalScore:      p.TotalScore,
		MaxScore:        len(Steps) * MaxStepScore,
	}
}
