package services

import (
	"context"
	"testing"
	"time"

	"github.com/pulsefit/retention-backend/internal/models"
	"github.com/pulsefit/retention-backend/pkg/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestChurnEmailService_AtRiskMembers(t *testing.T) {
	env := newTestEnv(t)
	never := env.addMember(t, "never@example.com", nil, 0)
	env.addMember(t, "eight@example.com", daysAgo(testNow, 8), 0)
	env.addMember(t, "recent@example.com", daysAgo(testNow, 2), 0)

	rows, err := env.churn.AtRiskMembers(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, never.ID, rows[0].ID)
	assert.Nil(t, rows[0].DaysSinceLastVisit)
	assert.Equal(t, models.RiskHigh, rows[0].Risk.Level)

	require.NotNil(t, rows[1].DaysSinceLastVisit)
	assert.Equal(t, 8, *rows[1].DaysSinceLastVisit)
	assert.Equal(t, models.RiskMedium, rows[1].Risk.Level)
}

func TestChurnEmailService_Generate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	member := env.addMember(t, "sam@example.com", daysAgo(testNow, 12), 340)

	email, created, err := env.churn.Generate(ctx, member.ID, nil)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.ChurnEmailPending, email.Status)
	assert.Equal(t, models.RiskHigh, email.RiskLevel)
	assert.Equal(t, models.RiskHigh, email.CurrentRiskBand)
	assert.Empty(t, email.PreviousRiskBand)
	assert.Equal(t, genai.GeneratorMock, email.GeneratedBy)
	assert.Contains(t, email.Content, PlaceholderVirtualTourLink)

	again, created, err := env.churn.Generate(ctx, member.ID, nil)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, email.ID, again.ID)

	_, _, err = env.churn.Generate(ctx, primitive.NewObjectID(), nil)
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestChurnEmailService_Generate_GeneratorFailure(t *testing.T) {
	env := newTestEnv(t)
	env.churn.generator = failingGenerator{}
	ctx := context.Background()
	member := env.addMember(t, "sam@example.com", nil, 0)

	_, _, err := env.churn.Generate(ctx, member.ID, nil)
	assert.ErrorIs(t, err, ErrGenerationFailed)

	all, err := env.churn.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestChurnEmailService_SnapshotIsFrozen(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	member := env.addMember(t, "sam@example.com", daysAgo(testNow, 9), 1250)

	email, _, err := env.churn.Generate(ctx, member.ID, nil)
	require.NoError(t, err)

	member.FirstName = "Changed"
	member.LoyaltyPoints = 5
	require.NoError(t, env.store.Members.Update(ctx, member))

	stored, err := env.churn.Get(ctx, email.ID)
	require.NoError(t, err)
	snap := stored.MemberProfile
	assert.Equal(t, models.MemberSnapshotVersion, snap.Version)
	assert.Equal(t, member.ID.Hex(), snap.MemberID)
	assert.Equal(t, "Sam", snap.FirstName)
	assert.Equal(t, 1250, snap.LoyaltyPoints)
	assert.Equal(t, models.MembershipPremium, snap.MembershipType)
	require.NotNil(t, snap.DaysSinceLastVisit)
	assert.Equal(t, 9, *snap.DaysSinceLastVisit)
	assert.Equal(t, models.RiskMedium, snap.RiskLevel)
	assert.Equal(t, 76, snap.RiskPercentage)
	assert.Equal(t, testNow, snap.CapturedAt)
}

func TestChurnEmailService_Transitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	staff := primitive.NewObjectID()
	member := env.addMember(t, "sam@example.com", nil, 0)

	email, _, err := env.churn.Generate(ctx, member.ID, nil)
	require.NoError(t, err)

	_, err = env.churn.MarkSent(ctx, email.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	approved, err := env.churn.Approve(ctx, email.ID, staff)
	require.NoError(t, err)
	assert.Equal(t, models.ChurnEmailApproved, approved.Status)
	require.NotNil(t, approved.ApprovedAt)

	_, err = env.churn.Reject(ctx, email.ID, staff)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = env.churn.Approve(ctx, email.ID, staff)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	sent, err := env.churn.MarkSent(ctx, email.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChurnEmailSent, sent.Status)

	_, err = env.churn.Approve(ctx, primitive.NewObjectID(), staff)
	assert.ErrorIs(t, err, ErrChurnEmailNotFound)
}

func TestChurnEmailService_RejectIsTerminal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	staff := primitive.NewObjectID()
	member := env.addMember(t, "sam@example.com", nil, 0)

	email, _, err := env.churn.Generate(ctx, member.ID, nil)
	require.NoError(t, err)

	rejected, err := env.churn.Reject(ctx, email.ID, staff)
	require.NoError(t, err)
	assert.Equal(t, models.ChurnEmailRejected, rejected.Status)

	_, err = env.churn.Approve(ctx, email.ID, staff)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, _, err = env.churn.Send(ctx, email.ID, staff)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestChurnEmailService_Send(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	staff := primitive.NewObjectID()
	member := env.addMember(t, "sam@example.com", nil, 0)

	email, _, err := env.churn.Generate(ctx, member.ID, nil)
	require.NoError(t, err)

	_, _, err = env.churn.Send(ctx, email.ID, staff)
	assert.ErrorIs(t, err, ErrInvalidTransition, "pending emails cannot be sent")
	assert.Empty(t, env.outbox.Sent())

	_, err = env.churn.Approve(ctx, email.ID, staff)
	require.NoError(t, err)

	sent, result, err := env.churn.Send(ctx, email.ID, staff)
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, models.ChurnEmailSent, sent.Status)
	assert.Equal(t, result.TrackingID, sent.TrackingID)
	require.NotNil(t, sent.SentAt)

	outbox := env.outbox.Sent()
	require.Len(t, outbox, 1)
	assert.Equal(t, "sam@example.com", outbox[0].To)
	assert.NotContains(t, outbox[0].Subject, PlaceholderProspectName)

	rows, err := env.store.Interactions.FindByTrackingID(ctx, result.TrackingID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, email.ID.Hex(), rows[0].Metadata.ChurnEmailID)

	_, _, err = env.churn.Send(ctx, email.ID, staff)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestChurnEmailService_Send_DispatchFailureLeavesApproved(t *testing.T) {
	env := newTestEnv(t, failingProvider{})
	ctx := context.Background()
	staff := primitive.NewObjectID()
	member := env.addMember(t, "sam@example.com", nil, 0)

	email, _, err := env.churn.Generate(ctx, member.ID, nil)
	require.NoError(t, err)
	_, err = env.churn.Approve(ctx, email.ID, staff)
	require.NoError(t, err)

	_, result, err := env.churn.Send(ctx, email.ID, staff)
	assert.ErrorIs(t, err, ErrDispatchFailed)
	require.NotNil(t, result)
	assert.False(t, result.Success)

	stored, err := env.churn.Get(ctx, email.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChurnEmailApproved, stored.Status)
	assert.Nil(t, stored.SentAt)
	assert.Nil(t, stored.DispatchingAt, "a failed delivery releases its claim")

	_, _, err = env.churn.Send(ctx, email.ID, staff)
	assert.ErrorIs(t, err, ErrDispatchFailed, "retry reaches the provider again")
}

func TestChurnEmailService_Send_ConcurrentDeliversOnce(t *testing.T) {
	gate := newGatedProvider()
	env := newTestEnv(t, gate)
	ctx := context.Background()
	staff := primitive.NewObjectID()
	member := env.addMember(t, "sam@example.com", nil, 0)

	email, _, err := env.churn.Generate(ctx, member.ID, nil)
	require.NoError(t, err)
	_, err = env.churn.Approve(ctx, email.ID, staff)
	require.NoError(t, err)

	firstErr := make(chan error, 1)
	go func() {
		_, _, err := env.churn.Send(ctx, email.ID, staff)
		firstErr <- err
	}()
	<-gate.entered

	_, _, err = env.churn.Send(ctx, email.ID, staff)
	assert.ErrorIs(t, err, ErrDispatchInProgress)

	close(gate.release)
	require.NoError(t, <-firstErr)

	assert.Len(t, gate.Sent(), 1)
	stored, err := env.churn.Get(ctx, email.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChurnEmailSent, stored.Status)
	assert.Nil(t, stored.DispatchingAt)

	rows, err := env.store.Interactions.FindByTrackingID(ctx, stored.TrackingID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.InteractionEmailSent, rows[0].InteractionType)
}

func TestChurnEmailService_ScanAtRisk(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addMember(t, "never@example.com", nil, 0)
	env.addMember(t, "eight@example.com", daysAgo(testNow, 8), 0)
	env.addMember(t, "six@example.com", daysAgo(testNow, 6), 0)
	env.addMember(t, "recent@example.com", daysAgo(testNow, 2), 0)

	result, err := env.churn.ScanAtRisk(ctx)
	require.NoError(t, err)
	assert.Equal(t, ScanResult{Scanned: 3, Generated: 2, Skipped: 1}, *result)

	result, err = env.churn.ScanAtRisk(ctx)
	require.NoError(t, err)
	assert.Equal(t, ScanResult{Scanned: 3, Generated: 0, Skipped: 3}, *result)

	pending, err := env.churn.List(ctx, models.ChurnEmailPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestChurnEmailService_ScanAtRisk_BandChange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	member := env.addMember(t, "sam@example.com", daysAgo(testNow, 8), 0)

	first, _, err := env.churn.Generate(ctx, member.ID, nil)
	require.NoError(t, err)
	require.Equal(t, models.RiskMedium, first.CurrentRiskBand)

	// four days later the member has crossed into the high band
	env.churn.now = func() time.Time { return testNow.Add(4 * 24 * time.Hour) }
	result, err := env.churn.ScanAtRisk(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Generated)

	latest, err := env.store.ChurnEmails.FindLatestByMember(ctx, member.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, latest.ID)
	assert.Equal(t, models.RiskHigh, latest.CurrentRiskBand)
	assert.Equal(t, models.RiskMedium, latest.PreviousRiskBand)
}

func TestChurnEmailService_ListRejectsUnknownStatus(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.churn.List(context.Background(), "archived")
	assert.ErrorIs(t, err, ErrValidation)
}
