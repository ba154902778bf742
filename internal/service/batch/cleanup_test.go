package batch

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"
	"github.com/ovenlab/booking/internal/config"
	"github.com/ovenlab/booking/internal/model"
)

// MockBookingRepository はテスト用のモックリポジトリです
type MockBookingRepository struct {
	deleteEndedBeforeCalled bool
	deleteEndedBeforeCutoff time.Time
	deleteEndedBeforeCount  int64
	deleteEndedBeforeError  error
}

func (m *MockBookingRepository) Get(ctx context.Context, tx *sqlx.Tx, bookingID string) (*model.Booking, error) {
	return nil, nil
}

func (m *MockBookingRepository) QueryOverlapCandidates(ctx context.Context, tx *sqlx.Tx, ovenID string, after time.Time) ([]model.Booking, error) {
	return nil, nil
}

func (m *MockBookingRepository) CountActiveByUser(ctx context.Context, tx *sqlx.Tx, userID string, now time.Time, activeOvensOnly bool) (int, error) {
	return 0, nil
}

func (m *MockBookingRepository) Insert(ctx context.Context, tx *sqlx.Tx, booking *model.Booking) error {
	return nil
}

func (m *MockBookingRepository) UpdateInterval(ctx context.Context, tx *sqlx.Tx, bookingID string, start, end time.Time, title string) error {
	return nil
}

func (m *MockBookingRepository) Delete(ctx context.Context, tx *sqlx.Tx, bookingID string) error {
	return nil
}

func (m *MockBookingRepository) ListByOven(ctx context.Context, ovenID string) ([]model.Booking, error) {
	return nil, nil
}

func (m *MockBookingRepository) DeleteEndedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.deleteEndedBeforeCalled = true
	m.deleteEndedBeforeCutoff = cutoff
	return m.deleteEndedBeforeCount, m.deleteEndedBeforeError
}

// newTestCleanupBatchService はテスト用のCleanupBatchServiceを作成します
func newTestCleanupBatchService(mockRepo *MockBookingRepository, retentionDays int, now time.Time) *CleanupBatchService {
	cfg := &config.Config{}
	cfg.Booking.RetentionDays = retentionDays
	return &CleanupBatchService{
		bookingRepo: mockRepo,
		cfg:         cfg,
		now:         func() time.Time { return now },
	}
}

func TestCleanupBatchService_Run(t *testing.T) {
	// X-Rayのセグメントを設定
	ctx, seg := xray.BeginSegment(context.Background(), "TestCleanupBatchService_Run")
	defer seg.Close(nil)

	// LOCAL環境に設定
	t.Setenv("ENV", "LOCAL")

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		retentionDays int
		deletedCount  int64
		expectError   bool
		description   string
	}{
		{
			name:          "削除対象なし",
			retentionDays: 90,
			deletedCount:  0,
			expectError:   false,
			description:   "削除対象が0件でも正常に完了すること",
		},
		{
			name:          "複数件を削除",
			retentionDays: 90,
			deletedCount:  12,
			expectError:   false,
			description:   "保持期間を過ぎた予約がまとめて削除されること",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &MockBookingRepository{
				deleteEndedBeforeCount: tt.deletedCount,
			}
			service := newTestCleanupBatchService(mockRepo, tt.retentionDays, now)

			err := service.Run(ctx)
			if tt.expectError && err == nil {
				t.Errorf("Run() error = nil, want error: %s", tt.description)
			}
			if !tt.expectError && err != nil {
				t.Errorf("Run() error = %v, want nil: %s", err, tt.description)
			}

			if !mockRepo.deleteEndedBeforeCalled {
				t.Error("DeleteEndedBefore was not called")
			}

			wantCutoff := now.AddDate(0, 0, -tt.retentionDays)
			if !mockRepo.deleteEndedBeforeCutoff.Equal(wantCutoff) {
				t.Errorf("cutoff = %v, want %v", mockRepo.deleteEndedBeforeCutoff, wantCutoff)
			}
		})
	}
}

func TestCleanupBatchService_RunRepositoryError(t *testing.T) {
	ctx, seg := xray.BeginSegment(context.Background(), "TestCleanupBatchService_RunRepositoryError")
	defer seg.Close(nil)

	t.Setenv("ENV", "LOCAL")

	mockRepo := &MockBookingRepository{
		deleteEndedBeforeError: context.DeadlineExceeded,
	}
	service := newTestCleanupBatchService(mockRepo, 90, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))

	if err := service.Run(ctx); err == nil {
		t.Error("Run() error = nil, want error when repository fails")
	}
}
