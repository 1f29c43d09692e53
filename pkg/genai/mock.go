package genai

import (
	"context"
	"fmt"
	"strings"
)

// MockGenerator produces deterministic rule-based content when no model is configured
type MockGenerator struct{}

// NewMockGenerator creates a new mock generator
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

func (g *MockGenerator) Name() string { return GeneratorMock }

// GenerateChurnEmail picks a template by risk level
func (g *MockGenerator) GenerateChurnEmail(_ context.Context, in ChurnEmailInput) (*ChurnEmailDraft, error) {
	var subject, opener string
	switch in.RiskLevel {
	case "high":
		subject = "We miss you at PulseFit, [PROSPECT_NAME]"
		if in.DaysSinceLastVisit == nil {
			opener = "We noticed you haven't had a chance to visit us yet, and we'd love to help you get started."
		} else {
			opener = fmt.Sprintf("It's been %d days since your last visit, and the team has been wondering how you are.", *in.DaysSinceLastVisit)
		}
	case "medium":
		subject = "Your next workout is waiting, [PROSPECT_NAME]"
		opener = "Life gets busy. A short session this week is a great way to keep your momentum going."
	default:
		subject = "Keep up the great work, [PROSPECT_NAME]"
		opener = "Thanks for being part of the PulseFit community."
	}

	var b strings.Builder
	b.WriteString("Hi [PROSPECT_NAME],\n\n")
	b.WriteString(opener)
	b.WriteString("\n\n")
	if in.LoyaltyPoints > 0 {
		fmt.Fprintf(&b, "You have %d loyalty points ready to spend on rewards.\n", in.LoyaltyPoints)
	}
	b.WriteString("Take a look around before your next visit: [VIRTUAL_TOUR_LINK]\n\n")
	b.WriteString("See you soon,\nThe PulseFit Team\n\n")
	b.WriteString("Unsubscribe: [UNSUBSCRIBE_LINK]")

	return &ChurnEmailDraft{Subject: subject, Content: b.String()}, nil
}

var mockSplits = map[int][]Session{
	2: {
		{Day: "Day 1", Focus: "Full body A"},
		{Day: "Day 2", Focus: "Full body B"},
	},
	3: {
		{Day: "Day 1", Focus: "Push"},
		{Day: "Day 2", Focus: "Pull"},
		{Day: "Day 3", Focus: "Legs"},
	},
	4: {
		{Day: "Day 1", Focus: "Upper body"},
		{Day: "Day 2", Focus: "Lower body"},
		{Day: "Day 3", Focus: "Upper body"},
		{Day: "Day 4", Focus: "Lower body and core"},
	},
}

var mockExercises = map[string][]Exercise{
	"Push":                {{Name: "Bench press"}, {Name: "Overhead press"}, {Name: "Triceps dips"}},
	"Pull":                {{Name: "Lat pulldown"}, {Name: "Seated row"}, {Name: "Biceps curl"}},
	"Legs":                {{Name: "Back squat"}, {Name: "Romanian deadlift"}, {Name: "Walking lunge"}},
	"Upper body":          {{Name: "Dumbbell press"}, {Name: "Cable row"}, {Name: "Lateral raise"}},
	"Lower body":          {{Name: "Goblet squat"}, {Name: "Hip thrust"}, {Name: "Leg curl"}},
	"Lower body and core": {{Name: "Leg press"}, {Name: "Plank"}, {Name: "Dead bug"}},
	"Full body A":         {{Name: "Goblet squat"}, {Name: "Push-up"}, {Name: "Dumbbell row"}},
	"Full body B":         {{Name: "Deadlift"}, {Name: "Overhead press"}, {Name: "Lat pulldown"}},
}

// GenerateWorkoutPlan builds a fixed split sized to the requested days
func (g *MockGenerator) GenerateWorkoutPlan(_ context.Context, in WorkoutInput) (*WorkoutPlanDraft, error) {
	days := in.DaysPerWeek
	switch {
	case days <= 2:
		days = 2
	case days >= 4:
		days = 4
	}

	sets, reps := 3, "10-12"
	switch strings.ToLower(in.FitnessLevel) {
	case "beginner":
		sets, reps = 2, "12-15"
	case "advanced":
		sets, reps = 4, "6-8"
	}

	split := mockSplits[days]
	sessions := make([]Session, len(split))
	for i, s := range split {
		for _, e := range mockExercises[s.Focus] {
			e.Sets, e.Reps, e.Rest = sets, reps, "60s"
			s.Exercises = append(s.Exercises, e)
		}
		sessions[i] = s
	}

	goal := in.Goal
	if goal == "" {
		goal = "general fitness"
	}
	return &WorkoutPlanDraft{
		Title:    fmt.Sprintf("%d-day %s plan", days, goal),
		Sessions: sessions,
	}, nil
}
