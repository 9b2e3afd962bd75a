package tiergate

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/replygate/ReplyGate/app/models"
)

type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
	settings map[string]*models.AccountSettings
	err      error
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{
		accounts: map[string]*models.Account{},
		settings: map[string]*models.AccountSettings{},
	}
}

func (f *fakeAccountRepo) GetByAccountID(ctx context.Context, accountID string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	a, ok := f.accounts[accountID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return a, nil
}

func (f *fakeAccountRepo) GetOrCreateSettings(ctx context.Context, accountID string) (*models.AccountSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if s, ok := f.settings[accountID]; ok {
		return s, nil
	}
	s := &models.AccountSettings{AccountID: accountID, DefaultLanguage: "en"}
	f.settings[accountID] = s
	return s, nil
}

type fakeUsageRepo struct {
	mu        sync.Mutex
	responses int64
	analyses  int64
	platforms []models.PlatformAccount
	resets    []*models.UsageReset
	pending   []*models.PendingPlanChange

	countErr    error
	sumErr      error
	platformErr error
	resetErr    error

	countCalls int
}

func (f *fakeUsageRepo) CountResponses(ctx context.Context, accountID string, since time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countCalls++
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.responses, nil
}

func (f *fakeUsageRepo) SumAnalyses(ctx context.Context, accountID string, since time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sumErr != nil {
		return 0, f.sumErr
	}
	return f.analyses, nil
}

func (f *fakeUsageRepo) ActivePlatformAccounts(ctx context.Context, accountID string) ([]models.PlatformAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.platformErr != nil {
		return nil, f.platformErr
	}
	return f.platforms, nil
}

func (f *fakeUsageRepo) RecordActivity(ctx context.Context, event *models.ActivityEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch event.Kind {
	case models.ActivityAnalysis:
		f.analyses += int64(event.Quantity)
	case models.ActivityResponseGenerated:
		f.responses += int64(event.Quantity)
	}
	return nil
}

func (f *fakeUsageRepo) LatestUsageReset(ctx context.Context, accountID string) (*models.UsageReset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resetErr != nil {
		return nil, f.resetErr
	}
	var latest *models.UsageReset
	for _, r := range f.resets {
		if r.AccountID != accountID {
			continue
		}
		if latest == nil || r.ResetAt.After(latest.ResetAt) {
			latest = r
		}
	}
	return latest, nil
}

func (f *fakeUsageRepo) CreateUsageReset(ctx context.Context, reset *models.UsageReset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, reset)
	return nil
}

func (f *fakeUsageRepo) UpsertPendingPlanChange(ctx context.Context, change *models.PendingPlanChange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.pending {
		if c.AccountID == change.AccountID && c.EffectiveDate.Equal(change.EffectiveDate) {
			f.pending[i] = change
			return nil
		}
	}
	f.pending = append(f.pending, change)
	return nil
}
