package service

import (
	"github.com/elmiguelacho7/sap-notes-sub000/internal/activa/repository"
	"go.uber.org/zap"
)

// Services 服务集合
type Services struct {
	Project *ProjectService
	Plan    *PlanService
	Phase   *PhaseService
	Board   *BoardService
	Note    *NoteService
}

// NewServices 创建服务集合
func NewServices(repos *repository.Repositories, logger *zap.Logger) *Services {
	board := NewBoardService(repos.Task, repos.Catalog, logger)
	return &Services{
		Project: NewProjectService(repos.Project, repos.Task, repos.Catalog, board),
		Plan:    NewPlanService(repos.Project, repos.Task, repos.Catalog, logger),
		Phase:   NewPhaseService(repos.Project, logger),
		Board:   board,
		Note:    NewNoteService(repos.Note),
	}
}
