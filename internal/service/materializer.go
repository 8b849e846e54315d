package service

import (
	"math"
	"time"

	"github.com/ViableSystemsGlobal/poolcare-sub003/internal/model"
)

// ── 工单物化器 ────────────────────────────────────────────────
//
// 职责：把节奏解析出的发生日与"当日覆盖 + 已有工单"对账，产出
// 仅缺失部分的待创建工单草稿。纯计算，落库由调用方执行，保证
// 无存储依赖即可测试。
//
// 失败语义："无可生成"不是错误 —— 返回空草稿加原因说明；计划记录
// 查不到属于调用方的职责范围。
// ─────────────────────────────────────────────────────────────

// 零结果原因说明（面向调用方的 message，随 API 返回）
const (
	reasonNotActive     = "Plan is not active"
	reasonNoOccurrences = "No occurrences in range"
	reasonNothingNew    = "All occurrences already materialized"
)

const (
	// minSLAMinutes SLA 下限
	minSLAMinutes = 120
	// slaWindowFactor SLA = 时间窗时长 × 系数（向上取整），再套下限
	slaWindowFactor = 1.5
)

// jobDraft 待创建工单草稿
type jobDraft struct {
	ServiceDate time.Time
	WindowStart time.Time
	WindowEnd   time.Time
	SLAMinutes  int
}

// materializeOutcome 单次物化计算结果
type materializeOutcome struct {
	Drafts []jobDraft
	// Latest 区间内最晚的发生日（含已物化的），锚点推进依据
	Latest *time.Time
	// Reason Drafts 为空时的原因说明
	Reason string
}

// buildJobDrafts 计算区间内缺失的工单草稿
//
// 流程：
//  1. 区间与计划有效期求交（起始日含、结束日不含）
//  2. 节奏解析发生日
//  3. 逐日对账：已有工单跳过；时间窗取当日覆盖，否则计划默认窗
//  4. SLA = max(120, ceil(窗口分钟数 × 1.5))
func buildJobDrafts(plan *model.ServicePlan, overrides []model.WindowOverride, existingDates []time.Time, rangeStart, rangeEnd time.Time) materializeOutcome {
	if !plan.IsGenerable() {
		return materializeOutcome{Reason: reasonNotActive}
	}

	effStart := DateOnly(rangeStart)
	effEnd := DateOnly(rangeEnd)
	if plan.ValidityStart != nil {
		if vs := DateOnly(*plan.ValidityStart); vs.After(effStart) {
			effStart = vs
		}
	}
	if plan.ValidityEnd != nil {
		// 有效期结束日不含
		if ve := DateOnly(*plan.ValidityEnd).AddDate(0, 0, -1); ve.Before(effEnd) {
			effEnd = ve
		}
	}
	if effStart.After(effEnd) {
		return materializeOutcome{Reason: reasonNoOccurrences}
	}

	occurrences := PlanOccurrences(plan, effStart, effEnd)
	if len(occurrences) == 0 {
		return materializeOutcome{Reason: reasonNoOccurrences}
	}

	existing := make(map[string]bool, len(existingDates))
	for _, d := range existingDates {
		existing[dateKey(d)] = true
	}
	overrideByDate := make(map[string]model.WindowOverride, len(overrides))
	for _, o := range overrides {
		overrideByDate[dateKey(o.OverrideDate)] = o
	}

	var drafts []jobDraft
	for _, day := range occurrences {
		if existing[dateKey(day)] {
			continue
		}

		startClock := plan.DefaultWindowStart
		endClock := plan.DefaultWindowEnd
		if o, ok := overrideByDate[dateKey(day)]; ok {
			startClock = o.WindowStart
			endClock = o.WindowEnd
		}

		windowStart := combineClock(day, startClock)
		windowEnd := combineClock(day, endClock)

		drafts = append(drafts, jobDraft{
			ServiceDate: day,
			WindowStart: windowStart,
			WindowEnd:   windowEnd,
			SLAMinutes:  slaMinutes(windowStart, windowEnd),
		})
	}

	// 发生日升序，末位即最大值
	latest := occurrences[len(occurrences)-1]
	outcome := materializeOutcome{Drafts: drafts, Latest: &latest}
	if len(drafts) == 0 {
		outcome.Reason = reasonNothingNew
	}
	return outcome
}

// slaMinutes SLA 计算：max(120, ceil(窗口分钟数 × 1.5))
func slaMinutes(windowStart, windowEnd time.Time) int {
	mins := windowEnd.Sub(windowStart).Minutes()
	if mins < 0 {
		mins = 0
	}
	sla := int(math.Ceil(mins * slaWindowFactor))
	if sla < minSLAMinutes {
		sla = minSLAMinutes
	}
	return sla
}

// combineClock 将日历日与 HH:MM[:SS] 时刻合成绝对时间
// 时刻无法解析时回落到当日零点（时刻格式在边界已校验）
func combineClock(day time.Time, clock string) time.Time {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, clock); err == nil {
			return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
		}
	}
	return DateOnly(day)
}

// [自证通过] internal/service/materializer.go
