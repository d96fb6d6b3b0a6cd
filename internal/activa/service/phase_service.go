package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/elmiguelacho7/sap-notes-sub000/internal/activa/entity"
	"github.com/elmiguelacho7/sap-notes-sub000/internal/activa/repository"
	"go.uber.org/zap"
)

// 级联填充默认值：下一阶段从前一阶段结束的次日开始，默认跨度 7 天
const (
	propagationGapDays  = 1
	propagationSpanDays = 7
)

// PhaseService 项目阶段服务
type PhaseService struct {
	projectRepo *repository.ProjectRepository
	logger      *zap.Logger
}

// NewPhaseService 创建阶段服务
func NewPhaseService(projectRepo *repository.ProjectRepository, logger *zap.Logger) *PhaseService {
	return &PhaseService{
		projectRepo: projectRepo,
		logger:      logger,
	}
}

// PropagatePhaseEdit 编辑某阶段结束日期后向后级联预填空白日期。
// 纯计算，不落库：只写用户尚未填写的字段，已填日期一律保留，
// 即使保留后局部顺序看起来不再递增也不纠正。
func PropagatePhaseEdit(phases []entity.ProjectPhase, editedPhaseID string, newEnd time.Time, newStart *time.Time) []entity.ProjectPhase {
	result := make([]entity.ProjectPhase, len(phases))
	copy(result, phases)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].SortOrder < result[j].SortOrder
	})

	edited := -1
	for i := range result {
		if result[i].ID == editedPhaseID {
			edited = i
			break
		}
	}
	if edited < 0 {
		return result
	}

	end := truncateToDay(newEnd)
	result[edited].EndDate = &end
	if newStart != nil {
		start := truncateToDay(*newStart)
		result[edited].StartDate = &start
	}

	cursor := end
	for j := edited + 1; j < len(result); j++ {
		if result[j].StartDate == nil {
			start := addDays(cursor, propagationGapDays)
			result[j].StartDate = &start
		}
		if result[j].EndDate == nil && result[j].StartDate != nil {
			phaseEnd := addDays(*result[j].StartDate, propagationSpanDays)
			result[j].EndDate = &phaseEnd
		}
		if result[j].EndDate != nil {
			cursor = *result[j].EndDate
		}
	}

	return result
}

// SaveAllPhasesResult 批量保存结果
type SaveAllPhasesResult struct {
	Success      bool       `json:"success"`
	ProjectStart *time.Time `json:"project_start,omitempty"`
	ProjectEnd   *time.Time `json:"project_end,omitempty"`
}

// SaveAllPhases 顺序保存整组阶段实例，遇错即停（已写入的不回滚），
// 全部成功后以所有阶段日期的最小/最大值回写项目起止日期。
func (s *PhaseService) SaveAllPhases(ctx context.Context, projectID string, phases []entity.ProjectPhase) (*SaveAllPhasesResult, error) {
	for i := range phases {
		phases[i].ProjectID = projectID
		phases[i].UpdatedAt = time.Now()
		if err := s.projectRepo.UpdatePhase(ctx, &phases[i]); err != nil {
			return nil, fmt.Errorf("save phase %s: %w", phases[i].PhaseKey, err)
		}
	}

	dates := make([]*time.Time, 0, len(phases)*2)
	for i := range phases {
		dates = append(dates, phases[i].StartDate, phases[i].EndDate)
	}
	start := minDate(dates)
	end := maxDate(dates)

	if err := s.projectRepo.UpdateDates(ctx, projectID, start, end); err != nil {
		return nil, fmt.Errorf("update project dates: %w", err)
	}

	s.logger.Info("Saved project phases",
		zap.String("project_id", projectID),
		zap.Int("phases", len(phases)),
	)

	return &SaveAllPhasesResult{
		Success:      true,
		ProjectStart: start,
		ProjectEnd:   end,
	}, nil
}
