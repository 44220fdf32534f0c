package service

import (
	"fmt"
	"math"

	"workshopplus_backend/internal/model"
	"workshopplus_backend/internal/util"
	"workshopplus_backend/pkg/logger"

	"go.uber.org/zap"
)

// 评价方法名称。评价方法只产出评审质量分，从不改写提交成绩
const (
	EvaluationBest = "best"
)

// EvaluationStore 评价方法对持久层的要求
type EvaluationStore interface {
	ListWorkshopAssessments(workshopID uint) ([]model.Assessment, error)
	ListDimensionGrades(assessmentID uint) ([]model.DimensionGrade, error)
	UpdateGradingGrade(assessmentID uint, gradingGrade *float64) error
	BestSettings(workshopID uint) (*model.BestEvaluationSettings, error)
}

type EvaluationService struct {
	Store EvaluationStore
}

func NewEvaluationService(store EvaluationStore) *EvaluationService {
	return &EvaluationService{Store: store}
}

// GradingEvaluator 评价方法契约：对工作坊内全部评审计算质量分
type GradingEvaluator interface {
	Name() string
	Evaluate(w *model.Workshop) (Result, error)
}

var gradingEvaluators = map[string]func(s *EvaluationService) GradingEvaluator{
	EvaluationBest: func(s *EvaluationService) GradingEvaluator { return &BestEvaluator{Service: s} },
}

func (s *EvaluationService) Resolve(name string) (GradingEvaluator, error) {
	factory, ok := gradingEvaluators[name]
	if !ok {
		return nil, util.ErrEvaluatorNotFound
	}
	return factory(s), nil
}

// Run 在评价阶段执行工作坊配置的评价方法
func (s *EvaluationService) Run(w *model.Workshop) (Result, error) {
	if w.Phase != model.PhaseEvaluation {
		return Result{Status: StatusVoid, Message: "workshop is not in the evaluation phase"}, nil
	}
	evaluator, err := s.Resolve(w.Evaluation)
	if err != nil {
		return Result{}, err
	}
	return evaluator.Evaluate(w)
}

// NormalizedDistance 评审与参考评审之间的归一化距离，取值 [0,1]。
// 按参考评审的维度逐一比较，差值除以该维度在本组内的观测跨度；
// 跨度为零视为完全一致，不计入距离
func NormalizedDistance(ref, grades map[uint]float64, span map[uint]float64) float64 {
	total := 0.0
	counted := 0
	for dim, refGrade := range ref {
		s, ok := span[dim]
		if !ok || s < util.GradeEpsilon {
			continue
		}
		g, ok := grades[dim]
		if !ok {
			g = 0
		}
		d := math.Abs(g-refGrade) / s
		if d > 1 {
			d = 1
		}
		total += d
		counted++
	}
	if counted == 0 {
		return 0
	}
	return total / float64(counted)
}

// BestGradingGrade 距离换算为质量分。比较严格度抬高距离的惩罚幂次：
// 严格度 1 接近线性，严格度 9 下轻微偏离即大幅扣分
func BestGradingGrade(distance float64, compareLevel int) float64 {
	if compareLevel < 1 {
		compareLevel = 1
	}
	if distance < 0 {
		distance = 0
	}
	if distance > 1 {
		distance = 1
	}
	return util.ClampGrade(100 * math.Pow(1-distance, float64(compareLevel)))
}

// BestEvaluator 以参考评审为基准比较各评审的维度打分。
// 存在助教评审（weight>1）时以权重最高者为参考，否则取各维度均值
type BestEvaluator struct {
	Service *EvaluationService
}

func (e *BestEvaluator) Name() string {
	return EvaluationBest
}

type scoredAssessment struct {
	assessment model.Assessment
	grades     map[uint]float64
}

func (e *BestEvaluator) Evaluate(w *model.Workshop) (Result, error) {
	settings, err := e.Service.Store.BestSettings(w.ID)
	if err != nil {
		return Result{}, err
	}

	assessments, err := e.Service.Store.ListWorkshopAssessments(w.ID)
	if err != nil {
		return Result{}, err
	}

	// 按提交分组，只评价已完成的评审
	bySubmission := map[uint][]scoredAssessment{}
	for _, a := range assessments {
		if a.Grade == nil {
			continue
		}
		dims, err := e.Service.Store.ListDimensionGrades(a.ID)
		if err != nil {
			return Result{}, err
		}
		if len(dims) == 0 {
			continue
		}
		grades := make(map[uint]float64, len(dims))
		for _, d := range dims {
			grades[d.DimensionID] = d.Grade
		}
		bySubmission[a.SubmissionID] = append(bySubmission[a.SubmissionID], scoredAssessment{assessment: a, grades: grades})
	}

	if len(bySubmission) == 0 {
		return Result{Status: StatusVoid, Message: "no completed assessments to evaluate"}, nil
	}

	evaluated := 0
	for _, group := range bySubmission {
		ref := referenceVector(group)
		span := dimensionSpans(group)
		for _, sa := range group {
			// 教师覆盖过质量分的评审不再改写，但仍参与参考与跨度计算
			if sa.assessment.GradingGradeOver != nil {
				continue
			}
			distance := NormalizedDistance(ref, sa.grades, span)
			gg := BestGradingGrade(distance, settings.CompareLevel)
			if !util.GradesDiffer(sa.assessment.GradingGrade, &gg) {
				continue
			}
			if err := e.Service.Store.UpdateGradingGrade(sa.assessment.ID, &gg); err != nil {
				return Result{}, err
			}
			evaluated++
		}
	}

	logger.Log.Info("best evaluation executed",
		zap.Uint("workshopId", w.ID),
		zap.Int("compareLevel", settings.CompareLevel),
		zap.Int("evaluated", evaluated))
	return Result{
		Status:  StatusExecuted,
		Message: fmt.Sprintf("updated %d grading grade(s)", evaluated),
	}, nil
}

// referenceVector 权重最高的助教评审优先，平手取先创建者；无助教评审时退回维度均值
func referenceVector(group []scoredAssessment) map[uint]float64 {
	var best *scoredAssessment
	for i := range group {
		sa := &group[i]
		if sa.assessment.Weight <= 1 {
			continue
		}
		if best == nil ||
			sa.assessment.Weight > best.assessment.Weight ||
			(sa.assessment.Weight == best.assessment.Weight && sa.assessment.ID < best.assessment.ID) {
			best = sa
		}
	}
	if best != nil {
		return best.grades
	}

	sums := map[uint]float64{}
	counts := map[uint]int{}
	for _, sa := range group {
		for dim, g := range sa.grades {
			sums[dim] += g
			counts[dim]++
		}
	}
	mean := make(map[uint]float64, len(sums))
	for dim, sum := range sums {
		mean[dim] = sum / float64(counts[dim])
	}
	return mean
}

// dimensionSpans 每个维度在本组内的观测跨度，用于距离归一化
func dimensionSpans(group []scoredAssessment) map[uint]float64 {
	mins := map[uint]float64{}
	maxes := map[uint]float64{}
	for _, sa := range group {
		for dim, g := range sa.grades {
			if cur, ok := mins[dim]; !ok || g < cur {
				mins[dim] = g
			}
			if cur, ok := maxes[dim]; !ok || g > cur {
				maxes[dim] = g
			}
		}
	}
	spans := make(map[uint]float64, len(mins))
	for dim := range mins {
		spans[dim] = maxes[dim] - mins[dim]
	}
	return spans
}
