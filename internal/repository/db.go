package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type DB struct {
	*sqlx.DB
}

type DBConfig struct {
	Host     string
	Port     int
	UserName string
	Password string
	DBName   string
	SSLMode  string
}

func NewDB(cfg *DBConfig) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.UserName,
		cfg.Password,
		cfg.DBName,
		cfg.SSLMode,
	)

	// X-Ray対応のSQLコンテキストを作成
	db, err := xray.SQLContext("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database with X-Ray: %w", err)
	}

	conn := sqlx.NewDb(db, "postgres")

	// コネクションプールの設定
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(25)
	conn.SetConnMaxLifetime(5 * time.Minute)

	// 接続テスト
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("DB connected successfully")

	return &DB{conn}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// BeginSerializableTx は直列化可能分離レベルのトランザクションを開始します
// 予約の検証と書き込みは必ず同一トランザクション内で行います
func (db *DB) BeginSerializableTx(ctx context.Context) (*sqlx.Tx, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "DB.BeginSerializableTx")
	if seg == nil {
		return db.DB.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	}
	defer seg.Close(nil)

	tx, err := db.DB.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		seg.Close(err)
		return nil, err
	}

	return tx, nil
}

// 直列化失敗時の透過リトライ回数
// 1回の再実行で本物の重複は検証側が拾うため、それ以上は粘りません
const maxTxRetries = 1

// RunInSerializableTx は直列化可能トランザクションでfnを実行します
// fnがエラーを返した場合はロールバックし、直列化失敗(SQLSTATE 40001/40P01)は
// maxTxRetries回まで透過的に再実行します。fnはトランザクション外に副作用を
// 持たないことが前提で、再実行は検証を最初からやり直します
func (db *DB) RunInSerializableTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	var lastErr error
	for attempt := 0; attempt <= maxTxRetries; attempt++ {
		tx, err := db.BeginSerializableTx(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}

		if err := fn(tx); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Printf("rollback failed: %v, original error: %v", rbErr, err)
			}
			if IsSerializationFailure(err) && attempt < maxTxRetries {
				lastErr = err
				log.Printf("serialization failure, retrying transaction: %v", err)
				continue
			}
			return err
		}

		if err := tx.Commit(); err != nil {
			if IsSerializationFailure(err) && attempt < maxTxRetries {
				lastErr = err
				log.Printf("serialization failure on commit, retrying transaction: %v", err)
				continue
			}
			return fmt.Errorf("failed to commit transaction: %w", err)
		}

		return nil
	}
	return fmt.Errorf("transaction retries exhausted: %w", lastErr)
}

// IsSerializationFailure はPostgresの直列化失敗・デッドロックかを判定します
func IsSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

// QueryxContext wraps sqlx.DB.QueryxContext with X-Ray tracing
func (db *DB) QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "DB.Queryx")
	if seg == nil {
		return db.DB.QueryxContext(ctx, query, args...)
	}
	defer seg.Close(nil)

	// クエリをメタデータとして追加
	if err := seg.AddMetadata("query", query); err != nil {
		log.Printf("Failed to add query metadata: %v", err)
	}

	rows, err := db.DB.QueryxContext(ctx, query, args...)
	if err != nil {
		seg.Close(err)
		return nil, err
	}

	return rows, nil
}

// ExecContext wraps sqlx.DB.ExecContext with X-Ray tracing
func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "DB.Exec")
	if seg == nil {
		return db.DB.ExecContext(ctx, query, args...)
	}
	defer seg.Close(nil)

	// クエリをメタデータとして追加
	if err := seg.AddMetadata("query", query); err != nil {
		log.Printf("Failed to add query metadata: %v", err)
	}

	result, err := db.DB.ExecContext(ctx, query, args...)
	if err != nil {
		seg.Close(err)
		return nil, err
	}

	return result, nil
}
