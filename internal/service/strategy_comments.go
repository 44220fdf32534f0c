package service

import (
	"workshopplus_backend/internal/model"
	"workshopplus_backend/internal/repository"
	"workshopplus_backend/internal/util"
)

// CommentsStrategy 纯评语式：只收集逐维度评语，从不产生成绩。
// 其评审行的 grade 保持为空，因此天然被提交聚合排除
type CommentsStrategy struct {
	Repo *repository.StrategyRepository
}

func (s *CommentsStrategy) Name() string {
	return model.StrategyComments
}

func (s *CommentsStrategy) FormReady(workshopID uint) (bool, error) {
	dims, err := s.Repo.ListCommentsDimensions(workshopID)
	if err != nil {
		return false, err
	}
	return len(dims) > 0, nil
}

func (s *CommentsStrategy) DimensionsInfo(workshopID uint) ([]DimensionInfo, error) {
	dims, err := s.Repo.ListCommentsDimensions(workshopID)
	if err != nil {
		return nil, err
	}
	infos := make([]DimensionInfo, len(dims))
	for i, d := range dims {
		infos[i] = DimensionInfo{
			ID:          d.ID,
			Description: d.Description,
		}
	}
	return infos, nil
}

func (s *CommentsStrategy) SaveAssessment(workshopID uint, assessment *model.Assessment, form AssessmentFormData) (*float64, error) {
	dims, err := s.Repo.ListCommentsDimensions(workshopID)
	if err != nil {
		return nil, err
	}
	if len(dims) == 0 {
		return nil, util.ErrFormNotReady
	}

	rows := make([]model.DimensionGrade, 0, len(form.Dimensions))
	for _, input := range form.Dimensions {
		rows = append(rows, model.DimensionGrade{
			Strategy:    model.StrategyComments,
			DimensionID: input.DimensionID,
			PeerComment: input.Comment,
		})
	}
	if err := s.Repo.ReplaceDimensionGrades(assessment.ID, rows); err != nil {
		return nil, err
	}
	return nil, nil
}
