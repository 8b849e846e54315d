package dto

// ── 养护计划模块 DTO ──

// CreatePlanRequest 创建养护计划请求
type CreatePlanRequest struct {
	CustomerRef string `json:"customer_ref" binding:"required,max=64"`
	Name        string `json:"name"         binding:"required,max=100"`
	Notes       string `json:"notes"        binding:"omitempty,max=500"`

	// Frequency 频率节奏；兼容历史别名 once_week / once_month
	Frequency        string `json:"frequency"           binding:"required"`
	AnchorWeekdays   []int  `json:"anchor_weekdays"     binding:"omitempty,dive,min=0,max=6"`
	AnchorDayOfMonth *int   `json:"anchor_day_of_month" binding:"omitempty"`

	DefaultWindowStart string `json:"default_window_start" binding:"required"`
	DefaultWindowEnd   string `json:"default_window_end"   binding:"required"`

	// ValidityStart/ValidityEnd 有效期（YYYY-MM-DD，起始含、结束不含）
	ValidityStart string `json:"validity_start" binding:"omitempty"`
	ValidityEnd   string `json:"validity_end"   binding:"omitempty"`

	// TrialDays > 0 时计划以 trial 状态创建，到期自动转 active
	TrialDays int `json:"trial_days" binding:"omitempty,min=0,max=90"`

	ServiceDurationMinutes int    `json:"service_duration_minutes" binding:"omitempty,min=15,max=480"`
	BillingCadence         string `json:"billing_cadence"          binding:"omitempty,oneof=per_visit monthly quarterly annually"`
}

// UpdatePlanRequest 更新养护计划请求（nil 字段不变更）
type UpdatePlanRequest struct {
	Name               *string `json:"name"                 binding:"omitempty,max=100"`
	Notes              *string `json:"notes"                binding:"omitempty,max=500"`
	Frequency          *string `json:"frequency"            binding:"omitempty"`
	AnchorWeekdays     []int   `json:"anchor_weekdays"      binding:"omitempty,dive,min=0,max=6"`
	AnchorDayOfMonth   *int    `json:"anchor_day_of_month"  binding:"omitempty"`
	DefaultWindowStart *string `json:"default_window_start" binding:"omitempty"`
	DefaultWindowEnd   *string `json:"default_window_end"   binding:"omitempty"`
	ValidityEnd        *string `json:"validity_end"         binding:"omitempty"`

	ServiceDurationMinutes *int    `json:"service_duration_minutes" binding:"omitempty,min=15,max=480"`
	BillingCadence         *string `json:"billing_cadence"          binding:"omitempty,oneof=per_visit monthly quarterly annually"`
}

// ListPlansRequest 计划列表查询参数
type ListPlansRequest struct {
	PaginationRequest
	Status      string `form:"status"       binding:"omitempty,oneof=trial active paused cancelled"`
	CustomerRef string `form:"customer_ref" binding:"omitempty,max=64"`
}

// SetWindowOverrideRequest 设置单日时间窗覆盖请求
type SetWindowOverrideRequest struct {
	Date        string `json:"date"         binding:"required"` // YYYY-MM-DD
	WindowStart string `json:"window_start" binding:"required"` // HH:MM
	WindowEnd   string `json:"window_end"   binding:"required"` // HH:MM
}

// RemoveWindowOverrideRequest 删除单日时间窗覆盖请求
type RemoveWindowOverrideRequest struct {
	Date string `json:"date" binding:"required"` // YYYY-MM-DD
}

// PlanResponse 养护计划信息响应
type PlanResponse struct {
	ID                     string `json:"id"`
	CustomerRef            string `json:"customer_ref"`
	Name                   string `json:"name"`
	Notes                  string `json:"notes,omitempty"`
	Frequency              string `json:"frequency"`
	AnchorWeekdays         []int  `json:"anchor_weekdays,omitempty"`
	AnchorDayOfMonth       *int   `json:"anchor_day_of_month,omitempty"`
	DefaultWindowStart     string `json:"default_window_start"`
	DefaultWindowEnd       string `json:"default_window_end"`
	ValidityStart          string `json:"validity_start,omitempty"`
	ValidityEnd            string `json:"validity_end,omitempty"`
	Status                 string `json:"status"`
	TrialEndsAt            string `json:"trial_ends_at,omitempty"`
	NextOccurrenceAnchor   string `json:"next_occurrence_anchor,omitempty"`
	ServiceDurationMinutes int    `json:"service_duration_minutes"`
	BillingCadence         string `json:"billing_cadence"`
	NextBillingDate        string `json:"next_billing_date,omitempty"`
	CreatedAt              string `json:"created_at"`
	UpdatedAt              string `json:"updated_at"`
}

// WindowOverrideResponse 时间窗覆盖响应
type WindowOverrideResponse struct {
	ID          string `json:"id"`
	PlanID      string `json:"plan_id"`
	Date        string `json:"date"`
	WindowStart string `json:"window_start"`
	WindowEnd   string `json:"window_end"`
}

// [自证通过] internal/dto/plan.go
