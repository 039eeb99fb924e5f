package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger-service/internal/database"
	"ledger-service/internal/models"
)

func TestSelectLevel(t *testing.T) {
	levels := database.DefaultLevels()

	tests := []struct {
		name     string
		deposits string
		team     TeamSize
		want     int
		ok       bool
	}{
		{"nothing qualifies", "99.99", TeamSize{A: 3, B: 2, C: 2}, 0, false},
		{"deposit threshold is inclusive", "100", TeamSize{}, 1, true},
		{"highest deposit level", "6500", TeamSize{}, 6, true},
		{"team path alone", "0", TeamSize{A: 10, B: 4, C: 4}, 2, true},
		{"team needs every tier", "0", TeamSize{A: 70, B: 35, C: 19}, 5, true},
		{"better of both paths", "1500", TeamSize{A: 30, B: 15, C: 7}, 4, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SelectLevel(levels, dec(tt.deposits), tt.team)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateUserLevel(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	u := newUser(t, "0")
	svc := NewLevelService(testDB, NewNotificationService(testDB, nil))

	level, err := svc.EvaluateUserLevel(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, level)

	require.NoError(t, testDB.Create(&[]models.Deposit{
		{UserId: u.ID, Amount: dec("400"), Reference: "lvl-a", Provider: models.ProviderGateway, Status: models.DepositStatusSuccess},
		{UserId: u.ID, Amount: dec("100"), Reference: "lvl-b", Provider: models.ProviderGateway, Status: models.DepositStatusSuccess},
		{UserId: u.ID, Amount: dec("5000"), Reference: "lvl-c", Provider: models.ProviderBonus, Status: models.DepositStatusSuccess},
		{UserId: u.ID, Amount: dec("5000"), Reference: "lvl-d", Provider: models.ProviderGateway, Status: models.DepositStatusPending},
	}).Error)

	deposits, err := svc.PersonalDeposits(ctx, u.ID)
	require.NoError(t, err)
	assertMoney(t, "500", deposits)

	level, err = svc.EvaluateUserLevel(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, level)

	var stored models.User
	require.NoError(t, testDB.First(&stored, u.ID).Error)
	assert.Equal(t, 2, stored.Level)

	var notices int64
	testDB.Model(&models.Notification{}).Where("user_id = ? AND type = ?", u.ID, models.NotificationLevel).Count(&notices)
	assert.Equal(t, int64(1), notices)

	_, err = svc.EvaluateUserLevel(ctx, u.ID+1000)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestTeamSize(t *testing.T) {
	requireDB(t)
	root := newUser(t, "0")
	a1, a2 := newUser(t, "0"), newUser(t, "0")
	b1 := newUser(t, "0")
	c1, c2 := newUser(t, "0"), newUser(t, "0")
	d1 := newUser(t, "0")

	refer(t, root, a1)
	refer(t, root, a2)
	refer(t, a1, b1)
	refer(t, b1, c1)
	refer(t, b1, c2)
	refer(t, c1, d1)

	team, err := NewLevelService(testDB, nil).TeamSize(context.Background(), root.ID)
	require.NoError(t, err)
	assert.Equal(t, TeamSize{A: 2, B: 1, C: 2}, team)
}

func TestEvaluateUplinePromotesSponsors(t *testing.T) {
	requireDB(t)
	top := newUser(t, "0")
	sponsor := newUser(t, "0")
	member := newUser(t, "0")
	refer(t, top, sponsor)
	refer(t, sponsor, member)

	require.NoError(t, testDB.Create(&[]models.Deposit{
		{UserId: sponsor.ID, Amount: dec("500"), Reference: "up-a", Provider: models.ProviderGateway, Status: models.DepositStatusSuccess},
		{UserId: top.ID, Amount: dec("1500"), Reference: "up-b", Provider: models.ProviderGateway, Status: models.DepositStatusSuccess},
	}).Error)

	NewLevelService(testDB, nil).EvaluateUpline(context.Background(), member.ID)

	levelOf := func(id uint) int {
		var u models.User
		require.NoError(t, testDB.First(&u, id).Error)
		return u.Level
	}
	assert.Equal(t, 2, levelOf(sponsor.ID))
	assert.Equal(t, 3, levelOf(top.ID))
	assert.Equal(t, 1, levelOf(member.ID))
}
