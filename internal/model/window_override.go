package model

import "time"

// WindowOverride 时间窗覆盖表 — 对应 window_overrides
//
// 针对单个日历日替换计划默认时间窗；每个 (plan_id, override_date)
// 至多一条（UNIQUE 约束），重复设置走 Upsert。
type WindowOverride struct {
	OverrideID   string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"override_id"`
	PlanID       string    `gorm:"type:uuid;not null"                             json:"plan_id"`
	OverrideDate time.Time `gorm:"type:date;not null"                             json:"override_date"`
	WindowStart  string    `gorm:"type:time;not null"                             json:"window_start"`
	WindowEnd    string    `gorm:"type:time;not null"                             json:"window_end"`
	BaseModel

	// 关联
	Plan *ServicePlan `gorm:"foreignKey:PlanID;references:PlanID" json:"plan,omitempty"`
}

// TableName 指定表名
func (WindowOverride) TableName() string { return "window_overrides" }
