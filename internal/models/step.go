package models

import (
	"errors"
	"fmt"
	"strings"
)

// StepID identifies one of the three learning steps
type StepID string

const (
	Step1 StepID = "step1"
	Step2 StepID = "step2"
	Step3 StepID = "step3"
)

// MaxStepScore is the best score a single step can report
const MaxStepScore = 10

// ErrUnknownStep is returned when a step identifier is not step1, step2 or step3
var ErrUnknownStep = errors.New("unknown step")

// Steps lists the learning steps in play order
var Steps = []StepID{Step1, Step2, Step3}

// StepInfo is display metadata for a learning step
type StepInfo struct {
	ID          StepID `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	MaxScore    int    `json:"maxScore"`
}

// StepCatalog describes every step, in play order
var StepCatalog = []StepInfo{
	{ID: Step1, Title: "Pizza Fractions", Description: "Slice pizzas into equal parts and pick the right share", MaxScore: MaxStepScore},
	{ID: Step2, Title: "Hexagon Shading", Description: "Shade parts of a hexagon to show a fraction", MaxScore: MaxStepScore},
	{ID: Step3, Title: "Fraction Ninja", Description: "Cut the line exactly where the fraction lands", MaxScore: MaxStepScore},
}

// ParseStepID converts a string such as "step2" into a StepID
func ParseStepID(s string) (StepID, error) {
	id := StepID(strings.ToLower(strings.TrimSpace(s)))
	switch id {
	case Step1, Step2, Step3:
		return id, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStep, s)
}
