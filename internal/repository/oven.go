package repository

import (
	"context"
	"fmt"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"
)

// OvenRepository はオーブン情報の参照を担当するインターフェースです
// オーブンの登録・状態切替は管理系の別コンポーネントが行います
type OvenRepository interface {
	GetStatus(ctx context.Context, tx *sqlx.Tx, ovenID string) (string, error)
}

// OvenRepositoryImpl はOvenRepositoryの実装です
type OvenRepositoryImpl struct {
	db *DB
}

// NewOvenRepository は新しいOvenRepositoryを作成します
func NewOvenRepository(db *DB) OvenRepository {
	return &OvenRepositoryImpl{
		db: db,
	}
}

// GetStatus は指定されたオーブンの稼働状態を取得します
func (r *OvenRepositoryImpl) GetStatus(ctx context.Context, tx *sqlx.Tx, ovenID string) (string, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "OvenRepository.GetStatus")
	defer seg.Close(nil)

	query := `
		SELECT status
		FROM ovens
		WHERE id = $1`

	var status string
	if err := tx.GetContext(ctx, &status, query, ovenID); err != nil {
		seg.Close(err)
		return "", fmt.Errorf("failed to get oven status: %w", err)
	}

	return status, nil
}
