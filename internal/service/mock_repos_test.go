package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/ViableSystemsGlobal/poolcare-sub003/internal/model"
)

// ── Mock PlanRepository ──

type mockPlanRepo struct {
	plans map[string]*model.ServicePlan
	seq   int
	// failUpdate 注入 Update 错误（故障隔离测试）
	failUpdate bool
}

func newMockPlanRepo() *mockPlanRepo {
	return &mockPlanRepo{plans: make(map[string]*model.ServicePlan)}
}

func (m *mockPlanRepo) Create(_ context.Context, plan *model.ServicePlan) error {
	if plan.PlanID == "" {
		m.seq++
		plan.PlanID = fmt.Sprintf("plan-%03d", m.seq)
	}
	if plan.Version == 0 {
		plan.Version = 1
	}
	cp := *plan
	m.plans[plan.PlanID] = &cp
	return nil
}

func (m *mockPlanRepo) GetByID(_ context.Context, id string) (*model.ServicePlan, error) {
	if p, ok := m.plans[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPlanRepo) List(_ context.Context, status, customerRef string, offset, limit int) ([]model.ServicePlan, int64, error) {
	var result []model.ServicePlan
	for _, p := range m.plans {
		if status != "" && p.Status != status {
			continue
		}
		if customerRef != "" && p.CustomerRef != customerRef {
			continue
		}
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PlanID < result[j].PlanID })
	total := int64(len(result))
	if offset >= len(result) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

func (m *mockPlanRepo) ListGenerable(_ context.Context) ([]model.ServicePlan, error) {
	var result []model.ServicePlan
	for _, p := range m.plans {
		if p.Status == model.PlanStatusActive || p.Status == model.PlanStatusTrial {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PlanID < result[j].PlanID })
	return result, nil
}

func (m *mockPlanRepo) Update(_ context.Context, plan *model.ServicePlan) error {
	if m.failUpdate {
		return fmt.Errorf("mock: update 故障注入")
	}
	if _, ok := m.plans[plan.PlanID]; !ok {
		return gorm.ErrRecordNotFound
	}
	plan.Version++
	cp := *plan
	m.plans[plan.PlanID] = &cp
	return nil
}

func (m *mockPlanRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.plans, id)
	return nil
}

// ── Mock JobRepository ──

type mockJobRepo struct {
	jobs map[string]*model.Job
	seq  int
	// failForPlan 对指定计划注入 BatchCreate 错误（故障隔离测试）
	failForPlan string
}

func newMockJobRepo() *mockJobRepo {
	return &mockJobRepo{jobs: make(map[string]*model.Job)}
}

func (m *mockJobRepo) BatchCreate(_ context.Context, jobs []model.Job) error {
	if m.failForPlan != "" && len(jobs) > 0 && jobs[0].PlanID == m.failForPlan {
		return fmt.Errorf("mock: batch create 故障注入")
	}
	for i := range jobs {
		m.seq++
		if jobs[i].JobID == "" {
			jobs[i].JobID = fmt.Sprintf("job-%03d", m.seq)
		}
		cp := jobs[i]
		m.jobs[cp.JobID] = &cp
	}
	return nil
}

func (m *mockJobRepo) GetByID(_ context.Context, id string) (*model.Job, error) {
	if j, ok := m.jobs[id]; ok {
		cp := *j
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockJobRepo) List(_ context.Context, planID, status string, from, to *time.Time, offset, limit int) ([]model.Job, int64, error) {
	var result []model.Job
	for _, j := range m.jobs {
		if planID != "" && j.PlanID != planID {
			continue
		}
		if status != "" && j.Status != status {
			continue
		}
		if from != nil && j.ServiceDate.Before(*from) {
			continue
		}
		if to != nil && j.ServiceDate.After(*to) {
			continue
		}
		result = append(result, *j)
	}
	sort.Slice(result, func(i, k int) bool { return result[i].ServiceDate.Before(result[k].ServiceDate) })
	total := int64(len(result))
	if offset >= len(result) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

func (m *mockJobRepo) ListDatesByPlanInRange(_ context.Context, planID string, from, to time.Time) ([]time.Time, error) {
	var dates []time.Time
	for _, j := range m.jobs {
		if j.PlanID != planID {
			continue
		}
		if j.ServiceDate.Before(from) || j.ServiceDate.After(to) {
			continue
		}
		dates = append(dates, j.ServiceDate)
	}
	sort.Slice(dates, func(i, k int) bool { return dates[i].Before(dates[k]) })
	return dates, nil
}

func (m *mockJobRepo) FindNextScheduled(_ context.Context, planID string, from time.Time) (*model.Job, error) {
	var best *model.Job
	for _, j := range m.jobs {
		if j.PlanID != planID || j.Status != model.JobStatusScheduled || j.ServiceDate.Before(from) {
			continue
		}
		if best == nil || j.ServiceDate.Before(best.ServiceDate) {
			best = j
		}
	}
	if best == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *best
	return &cp, nil
}

func (m *mockJobRepo) UpdateStatus(_ context.Context, id, status string, _ string) error {
	j, ok := m.jobs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	j.Status = status
	return nil
}

func (m *mockJobRepo) ListInRange(_ context.Context, from, to time.Time) ([]model.Job, error) {
	var result []model.Job
	for _, j := range m.jobs {
		if j.ServiceDate.Before(from) || j.ServiceDate.After(to) {
			continue
		}
		result = append(result, *j)
	}
	sort.Slice(result, func(i, k int) bool { return result[i].ServiceDate.Before(result[k].ServiceDate) })
	return result, nil
}

// ── Mock WindowOverrideRepository ──

type mockOverrideRepo struct {
	overrides map[string]*model.WindowOverride // key: planID + "|" + date
}

func newMockOverrideRepo() *mockOverrideRepo {
	return &mockOverrideRepo{overrides: make(map[string]*model.WindowOverride)}
}

func overrideKey(planID string, date time.Time) string {
	return planID + "|" + date.Format("2006-01-02")
}

func (m *mockOverrideRepo) Upsert(_ context.Context, override *model.WindowOverride) error {
	if override.OverrideID == "" {
		override.OverrideID = "ovr-" + overrideKey(override.PlanID, override.OverrideDate)
	}
	cp := *override
	m.overrides[overrideKey(override.PlanID, override.OverrideDate)] = &cp
	return nil
}

func (m *mockOverrideRepo) GetByPlanAndDate(_ context.Context, planID string, date time.Time) (*model.WindowOverride, error) {
	if o, ok := m.overrides[overrideKey(planID, date)]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockOverrideRepo) ListByPlanInRange(_ context.Context, planID string, from, to time.Time) ([]model.WindowOverride, error) {
	var result []model.WindowOverride
	for _, o := range m.overrides {
		if o.PlanID != planID {
			continue
		}
		if o.OverrideDate.Before(from) || o.OverrideDate.After(to) {
			continue
		}
		result = append(result, *o)
	}
	sort.Slice(result, func(i, k int) bool { return result[i].OverrideDate.Before(result[k].OverrideDate) })
	return result, nil
}

func (m *mockOverrideRepo) Delete(_ context.Context, planID string, date time.Time) error {
	delete(m.overrides, overrideKey(planID, date))
	return nil
}
