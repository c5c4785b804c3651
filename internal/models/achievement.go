package models

// Achievement is a badge identifier derived from a progress snapshot
type Achievement string

const (
	AchievementFirstStep     Achievement = "first_step"
	AchievementAllComplete   Achievement = "all_complete"
	AchievementPerfectMaster Achievement = "perfect_master"
)

// AchievementInfo is display metadata for an achievement
type AchievementInfo struct {
	ID          Achievement `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
}

// AchievementCatalog lists every achievement in derivation order
var AchievementCatalog = []AchievementInfo{
	{ID: AchievementFirstStep, Title: "First Step", Description: "Finish step 1"},
	{ID: AchievementAllComplete, Title: "All Complete", Description: "Finish all three steps"},
	{ID: AchievementPerfectMaster, Title: "Perfect Master", Description: "Reach a best score of 10 on every step"},
}

// CheckAchievements derives the achievement set from a progress snapshot.
// The result depends only on p; nothing is carried over from earlier calls.
func CheckAchievements(p LearningProgress) []Achievement {
	achievements := []Achievement{}

	if p.Step1.Completed {
		achievements = append(achievements, AchievementFirstStep)
	}

	if p.Step1.Completed && p.Step2.Completed && p.Step3.Completed {
		achievements = append(achievements, AchievementAllComplete)
	}

	if p.Step1.BestScore == MaxStepScore && p.Step2.BestScore == MaxStepScore && p.Step3.BestScore == MaxStepScore {
		achievements = append(achievements, AchievementPerfectMaster)
	}

	return achievements
}
