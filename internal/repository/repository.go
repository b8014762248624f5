package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	User        UserRepository
	Requirement RequirementRepository
	Project     ProjectRepository
	ServiceUnit ServiceUnitRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:          db,
		User:        NewUserRepo(db),
		Requirement: NewRequirementRepo(db),
		Project:     NewProjectRepo(db),
		ServiceUnit: NewServiceUnitRepo(db),
	}
}

// Transaction 在单个数据库事务中执行 fn
// fn 返回 nil 时提交，返回错误或 panic 时回滚；tx 上的所有 Repository 共享同一事务
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

// Ping 检查数据库连通性
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// forUpdate 行锁，SQLite 方言会忽略该子句
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// likePattern 构造包含匹配的 LIKE 模式
func likePattern(keyword string) string {
	return "%" + strings.TrimSpace(keyword) + "%"
}

// StatusCount 按状态分组计数的扫描结果
type StatusCount struct {
	Status string
	Count  int64
}
