package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"
	"github.com/ovenlab/booking/internal/model"
)

// BookingRepository は予約レコードの永続化を担当するインターフェースです
// 検証読み取りと書き込みを同一トランザクションに載せるため、
// 各メソッドは呼び出し側が開始したトランザクションを受け取ります
type BookingRepository interface {
	Get(ctx context.Context, tx *sqlx.Tx, bookingID string) (*model.Booking, error)
	QueryOverlapCandidates(ctx context.Context, tx *sqlx.Tx, ovenID string, after time.Time) ([]model.Booking, error)
	CountActiveByUser(ctx context.Context, tx *sqlx.Tx, userID string, now time.Time, activeOvensOnly bool) (int, error)
	Insert(ctx context.Context, tx *sqlx.Tx, booking *model.Booking) error
	UpdateInterval(ctx context.Context, tx *sqlx.Tx, bookingID string, start, end time.Time, title string) error
	Delete(ctx context.Context, tx *sqlx.Tx, bookingID string) error
	ListByOven(ctx context.Context, ovenID string) ([]model.Booking, error)
	DeleteEndedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type BookingRepositoryImpl struct {
	db *DB
}

func NewBookingRepository(db *DB) *BookingRepositoryImpl {
	return &BookingRepositoryImpl{db: db}
}

// Get は指定されたIDの予約をトランザクション内で取得します
// 見つからない場合は sql.ErrNoRows を返します
func (r *BookingRepositoryImpl) Get(ctx context.Context, tx *sqlx.Tx, bookingID string) (*model.Booking, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "BookingRepository.Get")
	defer seg.Close(nil)

	query := `
		SELECT
			id,
			oven_id,
			user_id,
			start_time,
			end_time,
			title,
			created_at
		FROM bookings
		WHERE id = $1
	`

	var b model.Booking
	if err := tx.GetContext(ctx, &b, query, bookingID); err != nil {
		seg.Close(err)
		return nil, err
	}

	return &b, nil
}

// QueryOverlapCandidates は、指定されたオーブンの予約のうち終了時刻が
// afterより後のものをすべて取得します
// 条件は単一インデックス(oven_id, end_time)で評価できるよう意図的に広く取り、
// 真の重複判定はサービス層で行います
func (r *BookingRepositoryImpl) QueryOverlapCandidates(ctx context.Context, tx *sqlx.Tx, ovenID string, after time.Time) ([]model.Booking, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "BookingRepository.QueryOverlapCandidates")
	defer seg.Close(nil)

	query := `
		SELECT
			id,
			oven_id,
			user_id,
			start_time,
			end_time,
			title,
			created_at
		FROM bookings
		WHERE oven_id = $1
		AND end_time > $2
	`

	rows, err := tx.QueryxContext(ctx, query, ovenID, after)
	if err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to query overlap candidates for oven %s: %w", ovenID, err)
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := rows.StructScan(&b); err != nil {
			seg.Close(err)
			return nil, fmt.Errorf("failed to scan booking row: %w", err)
		}
		bookings = append(bookings, b)
	}

	if err = rows.Err(); err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("error iterating booking rows: %w", err)
	}

	return bookings, nil
}

// CountActiveByUser は、指定されたユーザーの終了時刻が未来の予約数を返します
// activeOvensOnlyの場合は稼働中オーブンの予約のみを数えます
func (r *BookingRepositoryImpl) CountActiveByUser(ctx context.Context, tx *sqlx.Tx, userID string, now time.Time, activeOvensOnly bool) (int, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "BookingRepository.CountActiveByUser")
	defer seg.Close(nil)

	query := `
		SELECT COUNT(*)
		FROM bookings
		WHERE user_id = $1
		AND end_time >= $2
	`
	if activeOvensOnly {
		query = `
			SELECT COUNT(*)
			FROM bookings b
			JOIN ovens o ON o.id = b.oven_id
			WHERE b.user_id = $1
			AND b.end_time >= $2
			AND o.status = 'active'
		`
	}

	var count int
	if err := tx.GetContext(ctx, &count, query, userID, now); err != nil {
		seg.Close(err)
		return 0, fmt.Errorf("failed to count active bookings for user %s: %w", userID, err)
	}

	return count, nil
}

// Insert は予約を作成します
func (r *BookingRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, booking *model.Booking) error {
	ctx, seg := xray.BeginSubsegment(ctx, "BookingRepository.Insert")
	defer seg.Close(nil)

	query := `
		INSERT INTO bookings (
			id,
			oven_id,
			user_id,
			start_time,
			end_time,
			title,
			created_at
		) VALUES (
			:id,
			:oven_id,
			:user_id,
			:start_time,
			:end_time,
			:title,
			:created_at
		)
	`

	if _, err := tx.NamedExecContext(ctx, query, booking); err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	return nil
}

// UpdateInterval は予約の区間とタイトルを更新します
func (r *BookingRepositoryImpl) UpdateInterval(ctx context.Context, tx *sqlx.Tx, bookingID string, start, end time.Time, title string) error {
	ctx, seg := xray.BeginSubsegment(ctx, "BookingRepository.UpdateInterval")
	defer seg.Close(nil)

	query := `
		UPDATE bookings
		SET start_time = $1,
			end_time = $2,
			title = $3
		WHERE id = $4
	`

	result, err := tx.ExecContext(ctx, query, start, end, title, bookingID)
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to update booking: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		err := fmt.Errorf("no booking found with ID %s", bookingID)
		seg.Close(err)
		return err
	}

	return nil
}

// Delete は予約を削除します
func (r *BookingRepositoryImpl) Delete(ctx context.Context, tx *sqlx.Tx, bookingID string) error {
	ctx, seg := xray.BeginSubsegment(ctx, "BookingRepository.Delete")
	defer seg.Close(nil)

	query := `
		DELETE FROM bookings
		WHERE id = $1
	`

	result, err := tx.ExecContext(ctx, query, bookingID)
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to delete booking: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		err := fmt.Errorf("no booking found with ID %s", bookingID)
		seg.Close(err)
		return err
	}

	return nil
}

// ListByOven は指定されたオーブンの予約を過去分も含めてすべて取得します
// カレンダー表示用の読み取り専用クエリで、競合判定には使いません
func (r *BookingRepositoryImpl) ListByOven(ctx context.Context, ovenID string) ([]model.Booking, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "BookingRepository.ListByOven")
	defer seg.Close(nil)

	query := `
		SELECT
			id,
			oven_id,
			user_id,
			start_time,
			end_time,
			title,
			created_at
		FROM bookings
		WHERE oven_id = $1
		ORDER BY start_time ASC
	`

	rows, err := r.db.QueryxContext(ctx, query, ovenID)
	if err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to list bookings for oven %s: %w", ovenID, err)
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := rows.StructScan(&b); err != nil {
			seg.Close(err)
			return nil, fmt.Errorf("failed to scan booking row: %w", err)
		}
		bookings = append(bookings, b)
	}

	if err = rows.Err(); err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("error iterating booking rows: %w", err)
	}

	return bookings, nil
}

// DeleteEndedBefore は終了時刻がcutoffより前の予約をまとめて削除します
// クリーンアップバッチから呼び出されます
func (r *BookingRepositoryImpl) DeleteEndedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "BookingRepository.DeleteEndedBefore")
	defer seg.Close(nil)

	query := `
		DELETE FROM bookings
		WHERE end_time < $1
	`

	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		seg.Close(err)
		return 0, fmt.Errorf("failed to delete ended bookings: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		seg.Close(err)
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
