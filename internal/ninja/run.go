package ninja

import (
	"errors"
	"math"
	"sync"
	"time"

	"intan/internal/models"
	"intan/internal/scoring"
)

var (
	// ErrRunFinished is returned when every level has been played
	ErrRunFinished = errors.New("run finished")
	// ErrLevelNotStarted is returned by Cut before StartLevel
	ErrLevelNotStarted = errors.New("level not started")
	// ErrTimeUp is returned by Cut after the level's countdown expired
	ErrTimeUp = errors.New("time is up")
)

// Level configures one line-cutting level
type Level struct {
	TimeLimit time.Duration
}

// DefaultLevels is the standard five-level run with shrinking time limits
var DefaultLevels = []Level{
	{TimeLimit: 30 * time.Second},
	{TimeLimit: 25 * time.Second},
	{TimeLimit: 20 * time.Second},
	{TimeLimit: 15 * time.Second},
	{TimeLimit: 12 * time.Second},
}

// LevelResult is the outcome of one level
type LevelResult struct {
	Level         int               `json:"level"`
	PositionError float64           `json:"positionError"`
	Threshold     float64           `json:"threshold"`
	TimeRemaining float64           `json:"timeRemaining"`
	TimedOut      bool              `json:"timedOut"`
	Score         scoring.Breakdown `json:"score"`
}

// State is a snapshot of a run for display
type State struct {
	Level            int           `json:"level"`
	Levels           int           `json:"levels"`
	Playing          bool          `json:"playing"`
	RemainingSeconds float64       `json:"remainingSeconds"`
	Finished         bool          `json:"finished"`
	TotalScore       int           `json:"totalScore"`
	Results          []LevelResult `json:"results"`
}

// Run plays a sequence of levels. Only one level timer is active at a time.
type Run struct {
	mu        sync.Mutex
	levels    []Level
	current   int
	started   bool
	countdown *Countdown
	results   []LevelResult
	onTimeout func(LevelResult)

	now      func() time.Time
	schedule scheduleFunc
}

// NewRun creates a run over levels. onTimeout, if set, is called when a level expires uncut.
func NewRun(levels []Level, onTimeout func(LevelResult)) *Run {
	return &Run{
		levels:    levels,
		onTimeout: onTimeout,
		now:       time.Now,
		schedule:  afterFunc,
	}
}

// StartLevel starts the current level's countdown, stopping any previous timer first
func (r *Run) StartLevel() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current >= len(r.levels) {
		return ErrRunFinished
	}

	if r.countdown != nil {
		r.countdown.Stop()
	}

	level := r.current
	r.countdown = newCountdown(r.levels[level].TimeLimit, func() { r.timeout(level) }, r.now, r.schedule)
	r.countdown.Start()
	r.started = true
	return nil
}

// Pause freezes the current level's countdown
func (r *Run) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.countdown != nil {
		r.countdown.Pause()
	}
}

// Resume continues the current level's countdown
func (r *Run) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.countdown != nil {
		r.countdown.Resume()
	}
}

// Remaining returns the time left on the current level
func (r *Run) Remaining() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.countdown == nil {
		return 0
	}
	return r.countdown.Remaining()
}

// Cut scores the current level and advances to the next one
func (r *Run) Cut(positionError, threshold float64) (LevelResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current >= len(r.levels) {
		return LevelResult{}, ErrRunFinished
	}
	if !r.started || r.countdown == nil {
		return LevelResult{}, ErrLevelNotStarted
	}

	r.countdown.Stop()
	if r.countdown.Expired() {
		return LevelResult{}, ErrTimeUp
	}

	remaining := r.countdown.Remaining().Seconds()
	accuracy := scoring.AccuracyFromPositionError(positionError, threshold)
	result := LevelResult{
		Level:         r.current,
		PositionError: positionError,
		Threshold:     threshold,
		TimeRemaining: remaining,
		Score:         scoring.ComputeScore(accuracy, remaining, r.current),
	}

	r.record(result)
	return result, nil
}

// Stop cancels the current level's countdown. The run keeps its results.
func (r *Run) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.countdown != nil {
		r.countdown.Stop()
	}
	r.started = false
}

// State returns a snapshot of the run
func (r *Run) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := State{
		Level:    r.current,
		Levels:   len(r.levels),
		Playing:  r.started,
		Finished: r.current >= len(r.levels),
		Results:  append([]LevelResult{}, r.results...),
	}
	if r.started && r.countdown != nil {
		st.RemainingSeconds = r.countdown.Remaining().Seconds()
	}
	for _, res := range r.results {
		st.TotalScore += res.Score.Total
	}
	return st
}

// Results returns a copy of the recorded level results
func (r *Run) Results() []LevelResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]LevelResult(nil), r.results...)
}

// CurrentLevel returns the index of the level in play
func (r *Run) CurrentLevel() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Finished reports whether every level has a result
func (r *Run) Finished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current >= len(r.levels)
}

// TotalScore sums the points of every recorded level
func (r *Run) TotalScore() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for _, res := range r.results {
		total += res.Score.Total
	}
	return total
}

// StepResult maps the run onto a step score out of models.MaxStepScore.
// The score is the mean accuracy over all levels divided by ten; levels not
// cut count as zero. completed is true only when every level was cut.
func (r *Run) StepResult() (score int, completed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.levels) == 0 {
		return 0, false
	}

	sum := 0.0
	cut := 0
	for _, res := range r.results {
		if res.TimedOut {
			continue
		}
		sum += res.Score.Accuracy
		cut++
	}

	mean := sum / float64(len(r.levels))
	score = int(math.Round(mean * float64(models.MaxStepScore) / 100))
	return score, cut == len(r.levels)
}

func (r *Run) timeout(level int) {
	r.mu.Lock()
	if level != r.current {
		r.mu.Unlock()
		return
	}
	result := LevelResult{Level: level, TimedOut: true}
	r.record(result)
	onTimeout := r.onTimeout
	r.mu.Unlock()

	if onTimeout != nil {
		onTimeout(result)
	}
}

func (r *Run) record(result LevelResult) {
	r.results = append(r.results, result)
	r.current++
	r.started = false
}
