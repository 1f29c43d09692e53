package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pulsefit/retention-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newLoyaltyService(t *testing.T, env *testEnv) (*LoyaltyServiceImpl, *NotificationServiceImpl) {
	t.Helper()
	notifications := NewNotificationService(env.store.Notifications)
	svc := NewLoyaltyService(env.store, notifications, 0)
	svc.now = fixedClock
	return svc, notifications
}

func addOffer(t *testing.T, svc *LoyaltyServiceImpl, title string, points int) *models.LoyaltyOffer {
	t.Helper()
	offer := &models.LoyaltyOffer{Title: title, Points: points, Category: "session", IsActive: true}
	require.NoError(t, svc.CreateOffer(context.Background(), offer))
	return offer
}

func balanceOf(t *testing.T, env *testEnv, id primitive.ObjectID) int {
	t.Helper()
	m, err := env.store.Members.FindByID(context.Background(), id)
	require.NoError(t, err)
	return m.LoyaltyPoints
}

func TestLoyaltyService_Redeem(t *testing.T) {
	env := newTestEnv(t)
	svc, notifications := newLoyaltyService(t, env)
	ctx := context.Background()
	member := env.addMember(t, "sam@example.com", nil, 1250)
	offer := addOffer(t, svc, "Free personal training session", 200)

	result, err := svc.Redeem(ctx, member.ID, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, 1050, result.Balance)
	assert.Equal(t, 200, result.Redemption.PointsSpent)
	assert.Equal(t, 1050, balanceOf(t, env, member.ID))

	redemptions, err := svc.Redemptions(ctx, member.ID)
	require.NoError(t, err)
	require.Len(t, redemptions, 1)
	assert.Equal(t, offer.ID, redemptions[0].OfferID)

	history, err := svc.History(ctx, member.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, -200, history[0].Delta)
	assert.Equal(t, 1050, history[0].BalanceAfter)
	assert.Equal(t, models.PointReasonRedemption, history[0].Reason)

	inbox, err := notifications.ListForMember(ctx, member.ID, true)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, models.NotificationReward, inbox[0].Type)

	_, err = svc.Redeem(ctx, member.ID, offer.ID)
	assert.ErrorIs(t, err, ErrAlreadyRedeemed)
	assert.Equal(t, 1050, balanceOf(t, env, member.ID))
}

func TestLoyaltyService_Redeem_InsufficientPoints(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := newLoyaltyService(t, env)
	ctx := context.Background()
	member := env.addMember(t, "sam@example.com", nil, 100)
	offer := addOffer(t, svc, "Branded water bottle", 200)

	_, err := svc.Redeem(ctx, member.ID, offer.ID)
	assert.ErrorIs(t, err, ErrInsufficientPoints)
	assert.Equal(t, 100, balanceOf(t, env, member.ID))

	redemptions, err := svc.Redemptions(ctx, member.ID)
	require.NoError(t, err)
	assert.Empty(t, redemptions)
}

func TestLoyaltyService_Redeem_UnavailableOffers(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := newLoyaltyService(t, env)
	ctx := context.Background()
	member := env.addMember(t, "sam@example.com", nil, 1000)

	_, err := svc.Redeem(ctx, member.ID, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrOfferNotFound)

	inactive := addOffer(t, svc, "Guest pass", 100)
	require.NoError(t, svc.DeactivateOffer(ctx, inactive.ID))
	_, err = svc.Redeem(ctx, member.ID, inactive.ID)
	assert.ErrorIs(t, err, ErrOfferInactive)

	expired := &models.LoyaltyOffer{Title: "Spring discount", Points: 50, IsActive: true, ValidUntil: daysAgo(testNow, 1)}
	require.NoError(t, svc.CreateOffer(ctx, expired))
	_, err = svc.Redeem(ctx, member.ID, expired.ID)
	assert.ErrorIs(t, err, ErrOfferInactive)

	offers, err := svc.ListOffers(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, offers)

	all, err := svc.ListOffers(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assert.Equal(t, 1000, balanceOf(t, env, member.ID))
}

func TestLoyaltyService_Redeem_ConcurrentNeverOverdraws(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := newLoyaltyService(t, env)
	ctx := context.Background()
	member := env.addMember(t, "sam@example.com", nil, 300)

	offers := make([]*models.LoyaltyOffer, 5)
	for i := range offers {
		offers[i] = addOffer(t, svc, "Reward "+string(rune('A'+i)), 200)
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(offers))
	for _, o := range offers {
		wg.Add(1)
		go func(id primitive.ObjectID) {
			defer wg.Done()
			_, err := svc.Redeem(ctx, member.ID, id)
			errs <- err
		}(o.ID)
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrInsufficientPoints)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 100, balanceOf(t, env, member.ID))
}

func TestLoyaltyService_OfferValidation(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := newLoyaltyService(t, env)
	ctx := context.Background()

	err := svc.CreateOffer(ctx, &models.LoyaltyOffer{Title: " ", Points: 10})
	assert.ErrorIs(t, err, ErrValidation)
	err = svc.CreateOffer(ctx, &models.LoyaltyOffer{Title: "Free smoothie", Points: 0})
	assert.ErrorIs(t, err, ErrValidation)

	offer := addOffer(t, svc, "Free smoothie", 50)
	offer.Points = 75
	require.NoError(t, svc.UpdateOffer(ctx, offer))

	stored, err := env.store.Offers.FindByID(ctx, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, 75, stored.Points)

	err = svc.UpdateOffer(ctx, &models.LoyaltyOffer{ID: primitive.NewObjectID(), Title: "x", Points: 1})
	assert.ErrorIs(t, err, ErrOfferNotFound)
	assert.ErrorIs(t, svc.DeactivateOffer(ctx, primitive.NewObjectID()), ErrOfferNotFound)
}

func TestLoyaltyService_RecordVisit(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := newLoyaltyService(t, env)
	ctx := context.Background()
	staff := primitive.NewObjectID()
	member := env.addMember(t, "sam@example.com", nil, 40)

	at := testNow.Add(-time.Hour)
	result, err := svc.RecordVisit(ctx, member.ID, staff, at)
	require.NoError(t, err)
	assert.Equal(t, 50, result.Balance)
	assert.Equal(t, DefaultPointsPerVisit, result.Visit.PointsAwarded)

	stored, err := env.store.Members.FindByID(ctx, member.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastVisit)
	assert.True(t, stored.LastVisit.Equal(at))

	history, err := svc.History(ctx, member.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.PointReasonVisit, history[0].Reason)
	assert.Equal(t, result.Visit.ID, history[0].ReferenceID)

	_, err = svc.RecordVisit(ctx, primitive.NewObjectID(), staff, time.Time{})
	assert.ErrorIs(t, err, ErrMemberNotFound)
}
