package service

import (
	"workshopplus_backend/internal/model"
	"workshopplus_backend/internal/repository"
	"workshopplus_backend/internal/util"
)

// RubricStrategy 量规式：每条准则选定一个等级，
// 成绩 = (所选等级分之和 - 最低可能和) / (最高可能和 - 最低可能和)
type RubricStrategy struct {
	Repo *repository.StrategyRepository
}

func (s *RubricStrategy) Name() string {
	return model.StrategyRubric
}

func (s *RubricStrategy) FormReady(workshopID uint) (bool, error) {
	cs, err := s.Repo.ListRubricCriteria(workshopID)
	if err != nil {
		return false, err
	}
	// 准则必须各自带至少两个等级才构成有效量规
	if len(cs) == 0 {
		return false, nil
	}
	for _, c := range cs {
		if len(c.Levels) < 2 {
			return false, nil
		}
	}
	return true, nil
}

func (s *RubricStrategy) DimensionsInfo(workshopID uint) ([]DimensionInfo, error) {
	cs, err := s.Repo.ListRubricCriteria(workshopID)
	if err != nil {
		return nil, err
	}
	infos := make([]DimensionInfo, len(cs))
	for i, c := range cs {
		info := DimensionInfo{
			ID:          c.ID,
			Description: c.Description,
			Weight:      1,
		}
		if len(c.Levels) > 0 {
			info.Min = c.Levels[0].Grade
			info.Max = c.Levels[len(c.Levels)-1].Grade
		}
		infos[i] = info
	}
	return infos, nil
}

// CalcRubricGrade 纯计算。chosen: 准则ID -> 所选等级ID
func CalcRubricGrade(criteria []model.RubricCriterion, chosen map[uint]uint) (float64, error) {
	if len(criteria) == 0 {
		return 0, util.ErrFormNotReady
	}
	var sum, minSum, maxSum float64
	for _, c := range criteria {
		if len(c.Levels) == 0 {
			return 0, util.ErrFormNotReady
		}
		levelID, ok := chosen[c.ID]
		if !ok {
			return 0, util.ErrMissingDimension
		}
		var chosenGrade *float64
		lo, hi := c.Levels[0].Grade, c.Levels[0].Grade
		for _, l := range c.Levels {
			if l.Grade < lo {
				lo = l.Grade
			}
			if l.Grade > hi {
				hi = l.Grade
			}
			if l.ID == levelID {
				g := l.Grade
				chosenGrade = &g
			}
		}
		if chosenGrade == nil {
			return 0, util.ErrMissingDimension
		}
		sum += *chosenGrade
		minSum += lo
		maxSum += hi
	}
	if maxSum == minSum {
		return 100, nil
	}
	return util.ClampGrade((sum - minSum) / (maxSum - minSum) * 100), nil
}

func (s *RubricStrategy) SaveAssessment(workshopID uint, assessment *model.Assessment, form AssessmentFormData) (*float64, error) {
	criteria, err := s.Repo.ListRubricCriteria(workshopID)
	if err != nil {
		return nil, err
	}
	if len(criteria) == 0 {
		return nil, util.ErrFormNotReady
	}

	levelGrade := make(map[uint]float64)
	for _, c := range criteria {
		for _, l := range c.Levels {
			levelGrade[l.ID] = l.Grade
		}
	}

	chosen := make(map[uint]uint, len(form.Dimensions))
	rows := make([]model.DimensionGrade, 0, len(form.Dimensions))
	for _, input := range form.Dimensions {
		chosen[input.DimensionID] = input.LevelID
		rows = append(rows, model.DimensionGrade{
			Strategy:    model.StrategyRubric,
			DimensionID: input.DimensionID,
			Grade:       levelGrade[input.LevelID],
			PeerComment: input.Comment,
		})
	}

	grade, err := CalcRubricGrade(criteria, chosen)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.ReplaceDimensionGrades(assessment.ID, rows); err != nil {
		return nil, err
	}
	return &grade, nil
}
