package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"req-pool/internal/model"
)

// ServiceUnitRepository 服务单元数据访问接口
type ServiceUnitRepository interface {
	Create(ctx context.Context, unit *model.ServiceUnit) error
	GetByID(ctx context.Context, id uint) (*model.ServiceUnit, error)
	GetByName(ctx context.Context, name string) (*model.ServiceUnit, error)
	List(ctx context.Context) ([]model.ServiceUnit, error)
	Update(ctx context.Context, unit *model.ServiceUnit) error
	Delete(ctx context.Context, id uint) error

	// 成员
	AddMembers(ctx context.Context, unitID uint, userIDs []uint) error
	DeleteMembers(ctx context.Context, unitID uint) error
	DeleteMembershipOf(ctx context.Context, userID uint) error
	FindMemberships(ctx context.Context, userIDs []uint, excludeUnitID uint) ([]model.ServiceUnitMember, error)
	CountLedBy(ctx context.Context, userID uint) (int64, error)
}

// serviceUnitRepo ServiceUnitRepository 的 GORM 实现
type serviceUnitRepo struct {
	db *gorm.DB
}

// NewServiceUnitRepo 创建 ServiceUnitRepository 实例
func NewServiceUnitRepo(db *gorm.DB) ServiceUnitRepository {
	return &serviceUnitRepo{db: db}
}

func (r *serviceUnitRepo) Create(ctx context.Context, unit *model.ServiceUnit) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(unit).Error
}

func (r *serviceUnitRepo) withMembers(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Leader").
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("user_id") }).
		Preload("Members.User")
}

func (r *serviceUnitRepo) GetByID(ctx context.Context, id uint) (*model.ServiceUnit, error) {
	var unit model.ServiceUnit
	if err := r.withMembers(ctx).First(&unit, id).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *serviceUnitRepo) GetByName(ctx context.Context, name string) (*model.ServiceUnit, error) {
	var unit model.ServiceUnit
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&unit).Error
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *serviceUnitRepo) List(ctx context.Context) ([]model.ServiceUnit, error) {
	var units []model.ServiceUnit
	err := r.withMembers(ctx).Order("id ASC").Find(&units).Error
	return units, err
}

func (r *serviceUnitRepo) Update(ctx context.Context, unit *model.ServiceUnit) error {
	return r.db.WithContext(ctx).
		Model(&model.ServiceUnit{ID: unit.ID}).
		Updates(map[string]interface{}{
			"name":      unit.Name,
			"leader_id": unit.LeaderID,
		}).Error
}

func (r *serviceUnitRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.ServiceUnit{}, id).Error
}

func (r *serviceUnitRepo) AddMembers(ctx context.Context, unitID uint, userIDs []uint) error {
	if len(userIDs) == 0 {
		return nil
	}
	members := make([]model.ServiceUnitMember, 0, len(userIDs))
	for _, uid := range userIDs {
		members = append(members, model.ServiceUnitMember{ServiceUnitID: unitID, UserID: uid})
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(&members).Error
}

func (r *serviceUnitRepo) DeleteMembers(ctx context.Context, unitID uint) error {
	return r.db.WithContext(ctx).
		Where("service_unit_id = ?", unitID).
		Delete(&model.ServiceUnitMember{}).Error
}

func (r *serviceUnitRepo) DeleteMembershipOf(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.ServiceUnitMember{}).Error
}

// FindMemberships 查询已属于某个服务单元的用户，excludeUnitID 非 0 时排除该单元
func (r *serviceUnitRepo) FindMemberships(ctx context.Context, userIDs []uint, excludeUnitID uint) ([]model.ServiceUnitMember, error) {
	var members []model.ServiceUnitMember
	if len(userIDs) == 0 {
		return members, nil
	}
	db := r.db.WithContext(ctx).Where("user_id IN ?", userIDs)
	if excludeUnitID != 0 {
		db = db.Where("service_unit_id <> ?", excludeUnitID)
	}
	err := db.Order("user_id").Find(&members).Error
	return members, err
}

func (r *serviceUnitRepo) CountLedBy(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.ServiceUnit{}).
		Where("leader_id = ?", userID).
		Count(&n).Error
	return n, err
}
