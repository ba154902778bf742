package repository

import (
	"context"
	"fmt"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"
)

// UserRepository はユーザー情報の参照を担当するインターフェースです
type UserRepository interface {
	GetNameByID(ctx context.Context, tx *sqlx.Tx, userID string) (string, error)
}

// UserRepositoryImpl はUserRepositoryの実装です
type UserRepositoryImpl struct {
	db *DB
}

// NewUserRepository は新しいUserRepositoryを作成します
func NewUserRepository(db *DB) UserRepository {
	return &UserRepositoryImpl{
		db: db,
	}
}

// GetNameByID は指定されたユーザーIDから表示名を取得します
// 予約タイトルの組み立てに使うため、予約と同一トランザクション内で読み取ります
func (r *UserRepositoryImpl) GetNameByID(ctx context.Context, tx *sqlx.Tx, userID string) (string, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "UserRepository.GetNameByID")
	defer seg.Close(nil)

	query := `
		SELECT name
		FROM users
		WHERE id = $1`

	var name string
	if err := tx.GetContext(ctx, &name, query, userID); err != nil {
		seg.Close(err)
		return "", fmt.Errorf("failed to get user name: %w", err)
	}

	return name, nil
}
