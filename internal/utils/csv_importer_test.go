package utils

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pulsefit/retention-backend/internal/models"
	"github.com/pulsefit/retention-backend/internal/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemberImporterCreatesAndUpdates(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	existing := &models.Member{
		Email:          "sam@example.com",
		PasswordHash:   "keep-me",
		FirstName:      "Sam",
		Role:           models.RoleMember,
		MembershipType: models.MembershipBasic,
	}
	require.NoError(t, store.Members.Create(ctx, existing))

	csvData := strings.Join([]string{
		"Email,First Name,Last Name,Plan,Join Date,Last Visit,Points",
		"SAM@example.com,Sam,Rivera,premium,2023-01-15,2024-02-01,1250",
		"jo@example.com,Jo,Park,,01/05/2024,,",
		"broken-row,No,Email,basic,,,",
		"lee@example.com,Lee,Ng,platinum,,,",
		"kim@example.com,Kim,Lo,vip,yesterday,,",
	}, "\n")

	importer := NewMemberImporter(store.Members)
	importer.now = func() time.Time { return time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC) }

	result, err := importer.Import(ctx, strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 5, result.TotalRows)
	assert.Equal(t, 1, result.MembersCreated)
	assert.Equal(t, 1, result.MembersUpdated)
	assert.Len(t, result.Errors, 3)

	sam, err := store.Members.FindByEmail(ctx, "sam@example.com")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, sam.ID)
	assert.Equal(t, "keep-me", sam.PasswordHash)
	assert.Equal(t, models.MembershipPremium, sam.MembershipType)
	assert.Equal(t, 1250, sam.LoyaltyPoints)
	require.NotNil(t, sam.LastVisit)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), *sam.LastVisit)

	jo, err := store.Members.FindByEmail(ctx, "jo@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.MembershipBasic, jo.MembershipType)
	assert.Equal(t, models.RoleMember, jo.Role)
	assert.Nil(t, jo.LastVisit)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), jo.JoinDate)
}

func TestMemberImporterRequiresEmailColumn(t *testing.T) {
	importer := NewMemberImporter(memory.NewStore().Members)
	_, err := importer.Import(context.Background(), strings.NewReader("name,points\nSam,10\n"))
	assert.Error(t, err)
}
