// Package genai drafts churn emails and workout plans with a text generation model.
package genai

import (
	"context"
	"errors"
	"time"
)

// ErrGeneration wraps failures from the model or its output parser
var ErrGeneration = errors.New("content generation failed")

// Generator names, stored on generated records
const (
	GeneratorGemini = "gemini"
	GeneratorMock   = "mock"
)

// ChurnEmailInput is the member context given to the model
type ChurnEmailInput struct {
	FirstName          string
	LastName           string
	MembershipType     string
	LoyaltyPoints      int
	JoinDate           time.Time
	DaysSinceLastVisit *int // nil when the member never visited
	RiskLevel          string
	PreviousRiskLevel  string
}

// ChurnEmailDraft is the generated subject and body. Body may contain
// [PROSPECT_NAME], [VIRTUAL_TOUR_LINK], [UNSUBSCRIBE_LINK] and [HOME_PAGE_LINK].
type ChurnEmailDraft struct {
	Subject string
	Content string
}

// WorkoutInput describes the plan a member asked for
type WorkoutInput struct {
	FirstName    string
	Goal         string
	FitnessLevel string
	DaysPerWeek  int
	Equipment    string
}

// Exercise is one generated movement
type Exercise struct {
	Name string
	Sets int
	Reps string
	Rest string
}

// Session is one generated training day
type Session struct {
	Day       string
	Focus     string
	Exercises []Exercise
}

// WorkoutPlanDraft is a generated weekly plan
type WorkoutPlanDraft struct {
	Title    string
	Sessions []Session
}

// Generator produces draft content. Implementations are safe for concurrent use.
type Generator interface {
	Name() string
	GenerateChurnEmail(ctx context.Context, in ChurnEmailInput) (*ChurnEmailDraft, error)
	GenerateWorkoutPlan(ctx context.Context, in WorkoutInput) (*WorkoutPlanDraft, error)
}

// Config selects and configures the generator
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// New returns the Gemini generator when an API key is configured, otherwise the mock.
func New(cfg Config) Generator {
	if cfg.APIKey == "" {
		return NewMockGenerator()
	}
	return NewGeminiGenerator(cfg)
}
