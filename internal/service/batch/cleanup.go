package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/ovenlab/booking/internal/common/utils"
	"github.com/ovenlab/booking/internal/config"
	"github.com/ovenlab/booking/internal/model"
	"github.com/ovenlab/booking/internal/repository"
)

// CleanupBatchService は終了済み予約の掃除バッチを担当します
// 保持期間を過ぎた予約をまとめて削除し、結果をStep Functionsに通知します
type CleanupBatchService struct {
	db          *repository.DB
	bookingRepo repository.BookingRepository
	sfnClient   *sfn.Client
	cfg         *config.Config

	// テストから差し替えられるよう現在時刻は関数で持ちます
	now func() time.Time
}

// NewCleanupBatchService は新しいCleanupBatchServiceを作成します
func NewCleanupBatchService(cfg *config.Config, sfnClient *sfn.Client) (*CleanupBatchService, error) {
	db, err := repository.NewDB(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	return &CleanupBatchService{
		db:          db,
		bookingRepo: repository.NewBookingRepository(db),
		sfnClient:   sfnClient,
		cfg:         cfg,
		now:         time.Now,
	}, nil
}

// Close は終了処理を行います
func (s *CleanupBatchService) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Run はクリーンアップバッチを実行します
func (s *CleanupBatchService) Run(ctx context.Context) error {
	// X-Rayセグメントの作成
	ctx, seg := xray.BeginSubsegment(ctx, "CleanupBatchService.Run")
	defer seg.Close(nil)

	startTime := time.Now()

	result, err := s.sweepEndedBookings(ctx)
	if err != nil {
		return utils.GetStackWithError(fmt.Errorf("failed to sweep ended bookings: %w", err))
	}

	if err := s.sendTaskSuccess(ctx, result); err != nil {
		return utils.GetStackWithError(fmt.Errorf("failed to send task success: %w", err))
	}

	duration := time.Since(startTime)

	// セグメントにメタデータを追加
	if err := seg.AddMetadata("duration", duration.String()); err != nil {
		log.Printf("Failed to add duration metadata: %v", err)
	}

	log.Printf("Cleanup batch process completed successfully. Deleted: %d, Duration: %v", result.DeletedCount, duration)
	return nil
}

// sweepEndedBookings は保持期間を過ぎた予約を削除します
func (s *CleanupBatchService) sweepEndedBookings(ctx context.Context) (*model.SweepResult, error) {
	cutoff := s.now().AddDate(0, 0, -s.cfg.Booking.RetentionDays)

	deleted, err := s.bookingRepo.DeleteEndedBefore(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to delete bookings ended before %v: %w", cutoff, err)
	}

	log.Printf("Deleted %d bookings ended before %v", deleted, cutoff)

	return &model.SweepResult{
		DeletedCount: deleted,
		Cutoff:       cutoff.UTC().Format(time.RFC3339),
	}, nil
}

// sendTaskSuccess は、Step Functionsのタスク成功を通知します
func (s *CleanupBatchService) sendTaskSuccess(ctx context.Context, result *model.SweepResult) error {
	// ローカルの場合はStep Functionsの処理をスキップ
	if os.Getenv("ENV") == "LOCAL" || s.sfnClient == nil {
		log.Printf("Local environment detected. Skipping Step Functions task success notification")
		return nil
	}

	output, err := json.Marshal(map[string]any{
		"sweep": result,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal sweep result: %w", err)
	}

	// タスクトークンを設定から取得
	taskToken := s.cfg.SFN.TaskToken
	if taskToken == "" {
		return fmt.Errorf("SFN_TASK_TOKEN is not set in config")
	}

	input := &sfn.SendTaskSuccessInput{
		TaskToken: aws.String(taskToken),
		Output:    aws.String(string(output)),
	}

	if _, err := s.sfnClient.SendTaskSuccess(ctx, input); err != nil {
		return fmt.Errorf("failed to send task success: %w", err)
	}

	log.Printf("Successfully sent task success with output: %s", string(output))
	return nil
}
