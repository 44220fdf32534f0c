package service

import (
	"workshopplus_backend/internal/model"
	"workshopplus_backend/internal/repository"
	"workshopplus_backend/internal/util"
)

// NumErrorsStrategy 错误数式：评审者逐维度判定通过/不通过，加权错误数
// 经教师定义的稀疏映射表换算成成绩
type NumErrorsStrategy struct {
	Repo *repository.StrategyRepository
}

func (s *NumErrorsStrategy) Name() string {
	return model.StrategyNumErrors
}

func (s *NumErrorsStrategy) FormReady(workshopID uint) (bool, error) {
	dims, err := s.Repo.ListNumErrorsDimensions(workshopID)
	if err != nil {
		return false, err
	}
	return len(dims) > 0, nil
}

func (s *NumErrorsStrategy) DimensionsInfo(workshopID uint) ([]DimensionInfo, error) {
	dims, err := s.Repo.ListNumErrorsDimensions(workshopID)
	if err != nil {
		return nil, err
	}
	infos := make([]DimensionInfo, len(dims))
	for i, d := range dims {
		infos[i] = DimensionInfo{
			ID:          d.ID,
			Description: d.Description,
			Min:         0,
			Max:         1,
			Weight:      d.Weight,
		}
	}
	return infos, nil
}

// WeightedErrorCount 纯计算：不通过维度的权重之和
func WeightedErrorCount(dims []model.NumErrorsDimension, passed map[uint]bool) (int, error) {
	if len(dims) == 0 {
		return 0, util.ErrFormNotReady
	}
	count := 0
	for _, d := range dims {
		ok, present := passed[d.ID]
		if !present {
			return 0, util.ErrMissingDimension
		}
		if !ok {
			count += d.Weight
		}
	}
	return count, nil
}

// ErrorsToGrade 单调阶梯函数：映射表按错误数升序；给定错误数无精确项时，
// 取不大于它的最近已定义项；0 个错误缺省 100%；结果钳制 [0,100]
func ErrorsToGrade(mappings []model.NumErrorsMapping, errorCount int) float64 {
	grade := 100.0
	for _, m := range mappings {
		if m.NoNegative > errorCount {
			break
		}
		grade = m.Grade
	}
	return util.ClampGrade(grade)
}

func (s *NumErrorsStrategy) SaveAssessment(workshopID uint, assessment *model.Assessment, form AssessmentFormData) (*float64, error) {
	dims, err := s.Repo.ListNumErrorsDimensions(workshopID)
	if err != nil {
		return nil, err
	}
	if len(dims) == 0 {
		return nil, util.ErrFormNotReady
	}

	passed := make(map[uint]bool, len(form.Dimensions))
	rows := make([]model.DimensionGrade, 0, len(form.Dimensions))
	for _, input := range form.Dimensions {
		if input.Passed == nil {
			return nil, util.ErrMissingDimension
		}
		passed[input.DimensionID] = *input.Passed
		dimGrade := 0.0
		if *input.Passed {
			dimGrade = 1.0
		}
		rows = append(rows, model.DimensionGrade{
			Strategy:    model.StrategyNumErrors,
			DimensionID: input.DimensionID,
			Grade:       dimGrade,
			PeerComment: input.Comment,
		})
	}

	errorCount, err := WeightedErrorCount(dims, passed)
	if err != nil {
		return nil, err
	}
	mappings, err := s.Repo.ListNumErrorsMappings(workshopID)
	if err != nil {
		return nil, err
	}
	grade := ErrorsToGrade(mappings, errorCount)

	if err := s.Repo.ReplaceDimensionGrades(assessment.ID, rows); err != nil {
		return nil, err
	}
	return &grade, nil
}
