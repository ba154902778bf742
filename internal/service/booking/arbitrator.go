package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/ovenlab/booking/internal/config"
	"github.com/ovenlab/booking/internal/model"
	"github.com/ovenlab/booking/internal/repository"
)

// 表示名が解決できなかった場合のフォールバック
const unknownUserName = "Unknown User"

// TxRunner は検証読み取りと書き込みを1つの直列化可能トランザクションに
// まとめて実行します。直列化失敗の透過リトライはストア層の責務です
type TxRunner interface {
	RunInSerializableTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

// ArbitratorService は予約の作成・変更・キャンセルを調停するサービスです
// 検証読み取りと書き込みを1つの直列化可能トランザクションにまとめることで、
// 同一オーブンへの同時リクエスト間でも二重予約を防ぎます
type ArbitratorService struct {
	db          *repository.DB
	txRunner    TxRunner
	bookingRepo repository.BookingRepository
	ovenRepo    repository.OvenRepository
	userRepo    repository.UserRepository
	cfg         *config.Config

	// テストから差し替えられるよう現在時刻は関数で持ちます
	now func() time.Time
}

// NewArbitratorService は新しいArbitratorServiceを作成します
func NewArbitratorService(cfg *config.Config) (*ArbitratorService, error) {
	db, err := repository.NewDB(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	return &ArbitratorService{
		db:          db,
		txRunner:    db,
		bookingRepo: repository.NewBookingRepository(db),
		ovenRepo:    repository.NewOvenRepository(db),
		userRepo:    repository.NewUserRepository(db),
		cfg:         cfg,
		now:         time.Now,
	}, nil
}

// Close は終了処理を行います
func (s *ArbitratorService) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// CreateBookingInput は予約作成リクエストです
type CreateBookingInput struct {
	OvenID    string
	UserID    string
	UserName  string
	StartTime time.Time
	EndTime   time.Time
	Title     string
}

// UpdateBookingInput は予約変更リクエストです
type UpdateBookingInput struct {
	BookingID    string
	ActorID      string
	ActorIsAdmin bool
	OvenID       string
	StartTime    time.Time
	EndTime      time.Time
	Title        string
}

// CreateBooking は新規予約を調停します
// 成功した場合は採番した予約IDを返します
func (s *ArbitratorService) CreateBooking(ctx context.Context, in CreateBookingInput) (string, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "ArbitratorService.CreateBooking")
	defer seg.Close(nil)

	if err := model.ValidateInterval(in.StartTime, in.EndTime, s.cfg.Booking.MaxDuration); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInterval, err)
	}

	var bookingID string
	err := s.runInTx(ctx, func(tx *sqlx.Tx) error {
		now := s.now()

		// メンテナンス中オーブンの拒否は設定で切り替えます
		if s.cfg.Booking.BlockMaintenanceOvens {
			status, err := s.ovenRepo.GetStatus(ctx, tx, in.OvenID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return ErrNotFound
				}
				return err
			}
			if status == model.OvenStatusMaintenance {
				return ErrOvenUnavailable
			}
		}

		// 上限チェックはこのトランザクション内の確定読み取りで行います
		count, err := s.bookingRepo.CountActiveByUser(ctx, tx, in.UserID, now, s.cfg.Booking.QuotaActiveOvensOnly)
		if err != nil {
			return err
		}
		if err := CheckQuota(count, s.cfg.Booking.MaxActiveBookings); err != nil {
			return err
		}

		// 候補は広めに取り、正確な重複判定はHasConflictで行います
		candidates, err := s.bookingRepo.QueryOverlapCandidates(ctx, tx, in.OvenID, in.StartTime)
		if err != nil {
			return err
		}
		if HasConflict(in.StartTime, in.EndTime, candidates, "") {
			return ErrSlotConflict
		}

		name, err := s.resolveUserName(ctx, tx, in.UserID, in.UserName)
		if err != nil {
			return err
		}

		b := &model.Booking{
			ID:        uuid.NewString(),
			OvenID:    in.OvenID,
			UserID:    in.UserID,
			StartTime: in.StartTime,
			EndTime:   in.EndTime,
			Title:     model.ComposeTitle(in.Title, name),
			CreatedAt: now,
		}
		if err := s.bookingRepo.Insert(ctx, tx, b); err != nil {
			return err
		}

		bookingID = b.ID
		return nil
	})
	if err != nil {
		return "", err
	}

	log.Printf("Booking %s created for oven %s", bookingID, in.OvenID)
	return bookingID, nil
}

// UpdateBooking は既存予約の区間とタイトルの変更を調停します
func (s *ArbitratorService) UpdateBooking(ctx context.Context, in UpdateBookingInput) error {
	ctx, seg := xray.BeginSubsegment(ctx, "ArbitratorService.UpdateBooking")
	defer seg.Close(nil)

	if err := model.ValidateInterval(in.StartTime, in.EndTime, s.cfg.Booking.MaxDuration); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInterval, err)
	}

	err := s.runInTx(ctx, func(tx *sqlx.Tx) error {
		b, err := s.bookingRepo.Get(ctx, tx, in.BookingID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}

		if err := Authorize(in.ActorID, in.ActorIsAdmin, b, s.now(), s.cfg.Booking.EditGracePeriod); err != nil {
			return err
		}

		// 編集中の予約自身は重複判定から除外します
		candidates, err := s.bookingRepo.QueryOverlapCandidates(ctx, tx, in.OvenID, in.StartTime)
		if err != nil {
			return err
		}
		if HasConflict(in.StartTime, in.EndTime, candidates, in.BookingID) {
			return ErrSlotConflict
		}

		// タイトルには所有者の表示名を付けます(編集者ではなく)
		name, err := s.resolveUserName(ctx, tx, b.UserID, "")
		if err != nil {
			return err
		}

		return s.bookingRepo.UpdateInterval(ctx, tx, in.BookingID, in.StartTime, in.EndTime, model.ComposeTitle(in.Title, name))
	})
	if err != nil {
		return err
	}

	log.Printf("Booking %s updated", in.BookingID)
	return nil
}

// CancelBooking は予約のキャンセルを調停します
func (s *ArbitratorService) CancelBooking(ctx context.Context, bookingID, actorID string, actorIsAdmin bool) error {
	ctx, seg := xray.BeginSubsegment(ctx, "ArbitratorService.CancelBooking")
	defer seg.Close(nil)

	err := s.runInTx(ctx, func(tx *sqlx.Tx) error {
		b, err := s.bookingRepo.Get(ctx, tx, bookingID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}

		if err := Authorize(actorID, actorIsAdmin, b, s.now(), s.cfg.Booking.EditGracePeriod); err != nil {
			return err
		}

		return s.bookingRepo.Delete(ctx, tx, bookingID)
	})
	if err != nil {
		return err
	}

	log.Printf("Booking %s cancelled", bookingID)
	return nil
}

// ListBookings は指定されたオーブンの予約一覧を返します
// 読み取り専用で重複判定は行いません
func (s *ArbitratorService) ListBookings(ctx context.Context, ovenID string) ([]model.Booking, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "ArbitratorService.ListBookings")
	defer seg.Close(nil)

	bookings, err := s.bookingRepo.ListByOven(ctx, ovenID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageTransient, err)
	}
	return bookings, nil
}

// resolveUserName は予約タイトル用の表示名を解決します
// 呼び出し側から渡された名前があればそれを使い、なければ予約と同一
// トランザクション内でusersを読み取ります(コミット時点の一貫性を保つため)
func (s *ArbitratorService) resolveUserName(ctx context.Context, tx *sqlx.Tx, userID, provided string) (string, error) {
	if provided != "" {
		return provided, nil
	}
	name, err := s.userRepo.GetNameByID(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return unknownUserName, nil
		}
		return "", err
	}
	return name, nil
}

// runInTx はストア層の直列化可能トランザクションで処理を実行し、
// 調停エラー以外のストレージ障害をErrStorageTransientに畳み込みます
// 直列化失敗の再実行は同じ検証を最初からやり直すため、競合相手の
// コミットが本物の重複なら検出器が拾います
func (s *ArbitratorService) runInTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	err := s.txRunner.RunInSerializableTx(ctx, fn)
	if err == nil {
		return nil
	}
	if isArbitrationErr(err) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStorageTransient, err)
}

// isArbitrationErr は呼び出し側に型付きで返す調停エラーかを判定します
func isArbitrationErr(err error) bool {
	for _, sentinel := range []error{
		ErrInvalidInterval,
		ErrQuotaExceeded,
		ErrSlotConflict,
		ErrNotFound,
		ErrForbidden,
		ErrGracePeriodExpired,
		ErrOvenUnavailable,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
