package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// GeminiGenerator calls the Gemini generateContent endpoint
type GeminiGenerator struct {
	BaseURL    string
	APIKey     string
	Model      string
	httpClient *http.Client
}

// NewGeminiGenerator creates a new Gemini-backed generator
func NewGeminiGenerator(cfg Config) *GeminiGenerator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &GeminiGenerator{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     cfg.APIKey,
		Model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (g *GeminiGenerator) Name() string { return GeneratorGemini }

// GenerateChurnEmail asks the model for a JSON object with subject and content
func (g *GeminiGenerator) GenerateChurnEmail(ctx context.Context, in ChurnEmailInput) (*ChurnEmailDraft, error) {
	text, err := g.generate(ctx, churnEmailPrompt(in))
	if err != nil {
		return nil, err
	}

	subject := gjson.Get(text, "subject").String()
	content := gjson.Get(text, "content").String()
	if subject == "" || content == "" {
		return nil, fmt.Errorf("%w: model output missing subject or content", ErrGeneration)
	}
	return &ChurnEmailDraft{Subject: subject, Content: content}, nil
}

// GenerateWorkoutPlan asks the model for a JSON plan with title and sessions
func (g *GeminiGenerator) GenerateWorkoutPlan(ctx context.Context, in WorkoutInput) (*WorkoutPlanDraft, error) {
	text, err := g.generate(ctx, workoutPrompt(in))
	if err != nil {
		return nil, err
	}

	plan := &WorkoutPlanDraft{Title: gjson.Get(text, "title").String()}
	gjson.Get(text, "sessions").ForEach(func(_, s gjson.Result) bool {
		session := Session{Day: s.Get("day").String(), Focus: s.Get("focus").String()}
		s.Get("exercises").ForEach(func(_, e gjson.Result) bool {
			session.Exercises = append(session.Exercises, Exercise{
				Name: e.Get("name").String(),
				Sets: int(e.Get("sets").Int()),
				Reps: e.Get("reps").String(),
				Rest: e.Get("rest").String(),
			})
			return true
		})
		plan.Sessions = append(plan.Sessions, session)
		return true
	})
	if plan.Title == "" || len(plan.Sessions) == 0 {
		return nil, fmt.Errorf("%w: model output missing title or sessions", ErrGeneration)
	}
	return plan, nil
}

// generate sends a single-turn prompt and returns the first candidate's text
func (g *GeminiGenerator) generate(ctx context.Context, prompt string) (string, error) {
	requestBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": prompt}}},
		},
		"generationConfig": map[string]interface{}{
			"responseMimeType": "application/json",
		},
	}
	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.BaseURL, url.PathEscape(g.Model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.APIKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		message := gjson.GetBytes(body, "error.message").String()
		return "", fmt.Errorf("%w: status %d: %s", ErrGeneration, resp.StatusCode, message)
	}

	text := gjson.GetBytes(body, "candidates.0.content.parts.0.text").String()
	if text == "" {
		return "", fmt.Errorf("%w: empty candidate", ErrGeneration)
	}
	return stripCodeFence(text), nil
}

// stripCodeFence removes a ```json fence the model sometimes adds despite the mime type
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func churnEmailPrompt(in ChurnEmailInput) string {
	var b strings.Builder
	b.WriteString("Write a short, warm retention email for a gym member who may be about to cancel.\n")
	fmt.Fprintf(&b, "Member: %s %s, %s membership since %s, %d loyalty points.\n",
		in.FirstName, in.LastName, in.MembershipType, in.JoinDate.Format("January 2006"), in.LoyaltyPoints)
	if in.DaysSinceLastVisit != nil {
		fmt.Fprintf(&b, "Last visit: %d days ago.\n", *in.DaysSinceLastVisit)
	} else {
		b.WriteString("The member has never checked in.\n")
	}
	fmt.Fprintf(&b, "Churn risk: %s", in.RiskLevel)
	if in.PreviousRiskLevel != "" {
		fmt.Fprintf(&b, " (was %s)", in.PreviousRiskLevel)
	}
	b.WriteString(".\nAddress the member as [PROSPECT_NAME]. Include [VIRTUAL_TOUR_LINK] once and end with [UNSUBSCRIBE_LINK].\n")
	b.WriteString(`Respond with JSON: {"subject": string, "content": string}. Content is plain text.`)
	return b.String()
}

func workoutPrompt(in WorkoutInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a %d-day weekly workout plan for %s.\n", in.DaysPerWeek, in.FirstName)
	fmt.Fprintf(&b, "Goal: %s. Fitness level: %s.\n", in.Goal, in.FitnessLevel)
	if in.Equipment != "" {
		fmt.Fprintf(&b, "Available equipment: %s.\n", in.Equipment)
	}
	b.WriteString(`Respond with JSON: {"title": string, "sessions": [{"day": string, "focus": string, `)
	b.WriteString(`"exercises": [{"name": string, "sets": number, "reps": string, "rest": string}]}]}`)
	return b.String()
}
