package service

import (
	"workshopplus_backend/internal/model"
	"workshopplus_backend/internal/repository"
	"workshopplus_backend/internal/util"
)

// AccumulativeStrategy 累加式：每个维度独立打分，按维度权重取加权均值
type AccumulativeStrategy struct {
	Repo *repository.StrategyRepository
}

func (s *AccumulativeStrategy) Name() string {
	return model.StrategyAccumulative
}

func (s *AccumulativeStrategy) FormReady(workshopID uint) (bool, error) {
	dims, err := s.Repo.ListAccumulativeDimensions(workshopID)
	if err != nil {
		return false, err
	}
	return len(dims) > 0, nil
}

func (s *AccumulativeStrategy) DimensionsInfo(workshopID uint) ([]DimensionInfo, error) {
	dims, err := s.Repo.ListAccumulativeDimensions(workshopID)
	if err != nil {
		return nil, err
	}
	infos := make([]DimensionInfo, len(dims))
	for i, d := range dims {
		infos[i] = DimensionInfo{
			ID:          d.ID,
			Description: d.Description,
			Min:         0,
			Max:         d.GradeMax,
			Weight:      d.Weight,
		}
	}
	return infos, nil
}

// CalcAccumulativeGrade 纯计算：加权均值换算为百分比
func CalcAccumulativeGrade(dims []model.AccumulativeDimension, grades map[uint]float64) (float64, error) {
	if len(dims) == 0 {
		return 0, util.ErrFormNotReady
	}
	var sum, weightSum float64
	for _, d := range dims {
		g, ok := grades[d.ID]
		if !ok {
			return 0, util.ErrMissingDimension
		}
		if d.GradeMax <= 0 {
			continue
		}
		if g < 0 {
			g = 0
		}
		if g > d.GradeMax {
			g = d.GradeMax
		}
		sum += float64(d.Weight) * g / d.GradeMax
		weightSum += float64(d.Weight)
	}
	if weightSum == 0 {
		return 0, nil
	}
	return util.ClampGrade(sum / weightSum * 100), nil
}

func (s *AccumulativeStrategy) SaveAssessment(workshopID uint, assessment *model.Assessment, form AssessmentFormData) (*float64, error) {
	dims, err := s.Repo.ListAccumulativeDimensions(workshopID)
	if err != nil {
		return nil, err
	}
	if len(dims) == 0 {
		return nil, util.ErrFormNotReady
	}

	grades := make(map[uint]float64, len(form.Dimensions))
	rows := make([]model.DimensionGrade, 0, len(form.Dimensions))
	for _, input := range form.Dimensions {
		grades[input.DimensionID] = input.Grade
		rows = append(rows, model.DimensionGrade{
			Strategy:    model.StrategyAccumulative,
			DimensionID: input.DimensionID,
			Grade:       input.Grade,
			PeerComment: input.Comment,
		})
	}

	grade, err := CalcAccumulativeGrade(dims, grades)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.ReplaceDimensionGrades(assessment.ID, rows); err != nil {
		return nil, err
	}
	return &grade, nil
}
