package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pulsefit/retention-backend/internal/models"
	"github.com/pulsefit/retention-backend/internal/repositories"
	"github.com/pulsefit/retention-backend/internal/repositories/memory"
	"github.com/pulsefit/retention-backend/pkg/genai"
	"github.com/pulsefit/retention-backend/pkg/mailer"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://gym.test"

var testNow = time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// failingProvider rejects every message the way an upstream 5xx would
type failingProvider struct{}

func (failingProvider) Name() string { return mailer.ProviderResend }

func (failingProvider) Send(context.Context, mailer.Message) (string, error) {
	return "", &mailer.ProviderError{Provider: mailer.ProviderResend, StatusCode: 502, Message: "upstream unavailable"}
}

// failingGenerator fails every generation request
type failingGenerator struct{}

func (failingGenerator) Name() string { return "broken" }

func (failingGenerator) GenerateChurnEmail(context.Context, genai.ChurnEmailInput) (*genai.ChurnEmailDraft, error) {
	return nil, errors.New("model overloaded")
}

func (failingGenerator) GenerateWorkoutPlan(context.Context, genai.WorkoutInput) (*genai.WorkoutPlanDraft, error) {
	return nil, errors.New("model overloaded")
}

// gatedProvider holds every delivery until release is closed
type gatedProvider struct {
	*mailer.TestProvider
	entered chan struct{}
	release chan struct{}
}

func newGatedProvider() *gatedProvider {
	return &gatedProvider{
		TestProvider: mailer.NewTestProvider(),
		entered:      make(chan struct{}, 8),
		release:      make(chan struct{}),
	}
}

func (p *gatedProvider) Send(ctx context.Context, msg mailer.Message) (string, error) {
	p.entered <- struct{}{}
	<-p.release
	return p.TestProvider.Send(ctx, msg)
}

type testEnv struct {
	store    *repositories.Store
	outbox   *mailer.TestProvider
	email    *EmailServiceImpl
	tracking *TrackingServiceImpl
	churn    *ChurnEmailServiceImpl
}

func newTestEnv(t *testing.T, providers ...mailer.Provider) *testEnv {
	t.Helper()
	store := memory.NewStore()
	outbox := mailer.NewTestProvider()
	if len(providers) == 0 {
		providers = []mailer.Provider{outbox}
	}

	email := NewEmailService(mailer.NewDispatcherWith(providers...), store.Interactions, store.Suppressions, store.EmailTemplates, testBaseURL, "PulseFit <hello@gym.test>")
	email.now = fixedClock
	seq := 0
	email.newTrackingID = func() string {
		seq++
		return fmt.Sprintf("trk-%d", seq)
	}

	tracking := NewTrackingService(store.Interactions, store.Suppressions, testBaseURL)
	tracking.now = fixedClock

	churn := NewChurnEmailService(store.Members, store.ChurnEmails, genai.NewMockGenerator(), email)
	churn.now = fixedClock

	return &testEnv{store: store, outbox: outbox, email: email, tracking: tracking, churn: churn}
}

func (e *testEnv) addMember(t *testing.T, email string, lastVisit *time.Time, points int) *models.Member {
	t.Helper()
	m := &models.Member{
		Email:          email,
		FirstName:      "Sam",
		LastName:       "Rivera",
		Role:           models.RoleMember,
		MembershipType: models.MembershipPremium,
		LoyaltyPoints:  points,
		JoinDate:       testNow.AddDate(-1, 0, 0),
		LastVisit:      lastVisit,
	}
	require.NoError(t, e.store.Members.Create(context.Background(), m))
	return m
}
