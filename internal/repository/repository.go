package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgreSQL 错误码
// 参考: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	// Class 23: Integrity Constraint Violation
	pgErrUniqueViolation = "23505" // unique_violation

	// Class 40: Transaction Rollback
	pgErrSerializationFailure = "40001" // serialization_failure
	pgErrDeadlockDetected     = "40P01" // deadlock_detected

	// Class 08: Connection Exception
	pgErrConnectionFailure    = "08006" // connection_failure
	pgErrConnectionException  = "08000" // connection_exception
	pgErrSQLClientCantConnect = "08001" // sqlclient_unable_to_establish_sqlconnection

	// Class 53: Insufficient Resources
	pgErrTooManyConnections = "53300" // too_many_connections

	// Class 57: Operator Intervention
	pgErrQueryCanceled    = "57014" // query_canceled
	pgErrCannotConnectNow = "57P03" // cannot_connect_now
)

// Repository 基础仓储
type Repository struct {
	db *gorm.DB
}

// NewRepository 创建基础仓储
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// txKey 事务上下文键
type txKey struct{}

// DB 返回数据库连接, 上下文中有事务时返回事务
func (r *Repository) DB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return r.db.WithContext(ctx)
}

// Transaction 执行事务
// 上下文中已有事务时以 savepoint 嵌套, 与调用方持有的行锁处于同一事务
func (r *Repository) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.Transaction(func(sp *gorm.DB) error {
			return fn(context.WithValue(ctx, txKey{}, sp))
		})
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := context.WithValue(ctx, txKey{}, tx)
		return fn(txCtx)
	})
}

// TransactionWithRetry 带重试的事务执行
func (r *Repository) TransactionWithRetry(ctx context.Context, maxRetries int, fn func(ctx context.Context) error) error {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	var err error
	for i := 0; i < maxRetries; i++ {
		err = r.Transaction(ctx, fn)
		if err == nil {
			return nil
		}
		// 仅对可重试错误进行重试
		if !isRetryableError(err) {
			return err
		}
		// 指数退避
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(1<<uint(i)) * 100 * time.Millisecond):
		}
	}
	return err
}

// isRetryableError 判断是否为可重试错误
// 包括: 死锁、序列化失败、连接问题、连接数耗尽等临时性错误
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrSerializationFailure, pgErrDeadlockDetected:
			return true
		case pgErrConnectionFailure, pgErrConnectionException, pgErrSQLClientCantConnect:
			return true
		case pgErrTooManyConnections, pgErrQueryCanceled, pgErrCannotConnectNow:
			return true
		}
	}

	return false
}

// isUniqueViolation 唯一约束冲突
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation
}

// QueryOptions 查询选项
type QueryOptions struct {
	ForUpdate bool
	NoWait    bool
}

// ApplyLock 应用锁选项
func (o *QueryOptions) ApplyLock(db *gorm.DB) *gorm.DB {
	if o == nil || !o.ForUpdate {
		return db
	}
	if o.NoWait {
		return db.Clauses(clause.Locking{
			Strength: "UPDATE",
			Options:  "NOWAIT",
		})
	}
	return db.Clauses(clause.Locking{
		Strength: "UPDATE",
	})
}

var forUpdate = &QueryOptions{ForUpdate: true}
