package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger-service/internal/models"
)

type fakeScheduler struct {
	mu        sync.Mutex
	scheduled map[uint]time.Time
	cancelled []uint
	err       error
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{scheduled: map[uint]time.Time{}}
}

func (f *fakeScheduler) Schedule(_ context.Context, trialId uint, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.scheduled[trialId] = at
	return nil
}

func (f *fakeScheduler) Cancel(_ context.Context, trialId uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, trialId)
	return nil
}

func newTrialService(scheduler RecoveryScheduler) *TrialFundService {
	helper := NewHelperService(testDB)
	return NewTrialFundService(testDB, helper, NewNotificationService(testDB, nil), scheduler)
}

func TestGrantAllowsOneActiveTrial(t *testing.T) {
	requireDB(t)
	u := newUser(t, "0")
	svc := newTrialService(nil)

	trial, err := svc.Grant(testDB, u.ID, dec("200"), 96*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, models.TrialStatusActive, trial.Status)
	assertMoney(t, "200", trial.Amount)
	assert.WithinDuration(t, trial.GrantedAt.Add(96*time.Hour), trial.ExpiresAt, time.Second)

	_, err = svc.Grant(testDB, u.ID, dec("200"), 96*time.Hour)
	assert.ErrorIs(t, err, ErrTrialActive)

	_, err = svc.Grant(testDB, u.ID, dec("200"), 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestScheduleRecovery(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	u := newUser(t, "0")
	scheduler := newFakeScheduler()
	svc := newTrialService(scheduler)

	future := newTrial(t, u.ID, "200", "0", time.Now().UTC().Add(time.Hour))
	require.NoError(t, svc.ScheduleRecovery(ctx, &future))
	assert.Contains(t, scheduler.scheduled, future.ID)

	// a broken broker is tolerated, the sweep covers it
	scheduler.err = errors.New("redis down")
	require.NoError(t, svc.ScheduleRecovery(ctx, &future))

	other := newUser(t, "0")
	past := newTrial(t, other.ID, "200", "0", time.Now().UTC().Add(-time.Minute))
	require.NoError(t, svc.ScheduleRecovery(ctx, &past))
	assert.Equal(t, models.TrialStatusRecovered, loadTrial(t, past.ID).Status)
}

func TestRecoverUnwindsTrialHoldings(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	u := newUser(t, "100")
	trial := newTrial(t, u.ID, "200", "180", time.Now().UTC().Add(time.Hour))
	p := newProduct(t, "60", "5", 1, 30)

	holding, err := NewPurchaseService(testDB, NewHelperService(testDB)).Buy(ctx, u.ID, p.ID)
	require.NoError(t, err)
	_, err = newRewardService().DistributeHolding(ctx, *holding, time.Now())
	require.NoError(t, err)
	assertMoney(t, "63", loadWallet(t, u.ID).Balance)

	scheduler := newFakeScheduler()
	svc := newTrialService(scheduler)
	recovered, err := svc.Recover(ctx, trial.ID)
	require.NoError(t, err)
	assert.True(t, recovered)

	tf := loadTrial(t, trial.ID)
	assert.Equal(t, models.TrialStatusRecovered, tf.Status)
	assertMoney(t, "0", tf.UsedAmount)
	assert.NotNil(t, tf.RecoveredAt)

	// 40 wallet principal back, 3 yield clawed back, 20 trial capital forfeited
	w := loadWallet(t, u.ID)
	assertMoney(t, "100", w.Balance)
	assertMoney(t, "20", w.Reserved)

	var stored models.UserProduct
	require.NoError(t, testDB.First(&stored, holding.ID).Error)
	assert.Equal(t, models.HoldingStatusRefunded, stored.Status)

	var reward models.Reward
	require.NoError(t, testDB.Where("user_product_id = ?", holding.ID).First(&reward).Error)
	assert.Equal(t, models.RewardStatusReversed, reward.Status)
	assert.Equal(t, []uint{trial.ID}, scheduler.cancelled)

	again, err := svc.Recover(ctx, trial.ID)
	require.NoError(t, err)
	assert.False(t, again)
	assertMoney(t, "100", loadWallet(t, u.ID).Balance)

	missing, err := svc.Recover(ctx, trial.ID+1000)
	require.NoError(t, err)
	assert.False(t, missing)
}

func TestRecoverKeepsWalletOnlyYield(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	u := newUser(t, "100")
	trial := newTrial(t, u.ID, "200", "200", time.Now().UTC().Add(time.Hour))
	p := newProduct(t, "50", "10", 1, 30)

	holding, err := NewPurchaseService(testDB, NewHelperService(testDB)).Buy(ctx, u.ID, p.ID)
	require.NoError(t, err)
	_, err = newRewardService().DistributeHolding(ctx, *holding, time.Now())
	require.NoError(t, err)

	_, err = newTrialService(nil).Recover(ctx, trial.ID)
	require.NoError(t, err)

	w := loadWallet(t, u.ID)
	assertMoney(t, "105", w.Balance)
	assertMoney(t, "0", w.Reserved)
}

func TestRecoverDue(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	a := newUser(t, "0")
	b := newUser(t, "0")
	due := newTrial(t, a.ID, "200", "0", time.Now().UTC().Add(-time.Minute))
	pending := newTrial(t, b.ID, "200", "0", time.Now().UTC().Add(time.Hour))

	n, err := newTrialService(nil).RecoverDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, models.TrialStatusRecovered, loadTrial(t, due.ID).Status)
	assert.Equal(t, models.TrialStatusActive, loadTrial(t, pending.ID).Status)
}
