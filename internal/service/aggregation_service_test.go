package service

import (
	"sort"
	"testing"
	"time"

	"workshopplus_backend/internal/model"
	"workshopplus_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGradeStore 内存版 AggregationStore，按聚合引擎要求的顺序交付评审行
type fakeGradeStore struct {
	assessments []model.Assessment

	// 为空时按评审行推导；设置后模拟无评审行的提交
	submissionIDs []uint

	grades   map[uint]*float64
	gradedAt map[uint]time.Time
	aggs     map[uint]*model.Aggregation

	submissionWrites int
	reviewerWrites   int
}

func newFakeGradeStore(assessments []model.Assessment) *fakeGradeStore {
	return &fakeGradeStore{
		assessments: assessments,
		grades:      make(map[uint]*float64),
		gradedAt:    make(map[uint]time.Time),
		aggs:        make(map[uint]*model.Aggregation),
	}
}

func inRestrict(restrict []uint, id uint) bool {
	if len(restrict) == 0 {
		return true
	}
	for _, r := range restrict {
		if r == id {
			return true
		}
	}
	return false
}

func (f *fakeGradeStore) StreamSubmissionAssessments(workshopID uint, restrict []uint, fn func(model.Assessment) error) error {
	rows := make([]model.Assessment, 0, len(f.assessments))
	for _, a := range f.assessments {
		if inRestrict(restrict, a.SubmissionID) {
			rows = append(rows, a)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].SubmissionID != rows[j].SubmissionID {
			return rows[i].SubmissionID < rows[j].SubmissionID
		}
		return rows[i].ID < rows[j].ID
	})
	for _, a := range rows {
		if err := fn(a); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeGradeStore) StreamReviewerAssessments(workshopID uint, restrict []uint, fn func(model.Assessment) error) error {
	rows := make([]model.Assessment, 0, len(f.assessments))
	for _, a := range f.assessments {
		if inRestrict(restrict, a.ReviewerID) {
			rows = append(rows, a)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ReviewerID != rows[j].ReviewerID {
			return rows[i].ReviewerID < rows[j].ReviewerID
		}
		return rows[i].ID < rows[j].ID
	})
	for _, a := range rows {
		if err := fn(a); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeGradeStore) ListSubmissionIDs(workshopID uint) ([]uint, error) {
	if f.submissionIDs != nil {
		return f.submissionIDs, nil
	}
	seen := map[uint]bool{}
	var ids []uint
	for _, a := range f.assessments {
		if !seen[a.SubmissionID] {
			seen[a.SubmissionID] = true
			ids = append(ids, a.SubmissionID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (f *fakeGradeStore) SubmissionGrade(submissionID uint) (*float64, error) {
	return f.grades[submissionID], nil
}

func (f *fakeGradeStore) WriteSubmissionGrade(submissionID uint, grade *float64, gradedAt time.Time) error {
	f.grades[submissionID] = grade
	f.gradedAt[submissionID] = gradedAt
	f.submissionWrites++
	return nil
}

func (f *fakeGradeStore) ReviewerAggregation(workshopID, userID uint) (*model.Aggregation, bool, error) {
	agg, ok := f.aggs[userID]
	return agg, ok, nil
}

func (f *fakeGradeStore) UpsertReviewerAggregation(agg *model.Aggregation) error {
	f.aggs[agg.UserID] = agg
	f.reviewerWrites++
	return nil
}

func (f *fakeGradeStore) ClearGradingGrades(workshopID uint) error {
	for i := range f.assessments {
		f.assessments[i].GradingGrade = nil
	}
	return nil
}

func assessment(id, submissionID, reviewerID uint, weight int, grade *float64) model.Assessment {
	a := model.Assessment{
		SubmissionID: submissionID,
		ReviewerID:   reviewerID,
		Weight:       weight,
		Grade:        grade,
	}
	a.ID = id
	return a
}

func TestCombineSubmissionGrades(t *testing.T) {
	tests := []struct {
		name  string
		rows  []model.Assessment
		ratio float64
		want  *float64
	}{
		{
			name: "纯互评取均值",
			rows: []model.Assessment{
				assessment(1, 1, 10, 1, util.Float64Ptr(60)),
				assessment(2, 1, 11, 1, util.Float64Ptr(80)),
			},
			ratio: 5,
			want:  util.Float64Ptr(70),
		},
		{
			name: "助教与互评按 5:1 合成",
			rows: []model.Assessment{
				assessment(1, 1, 10, 1, util.Float64Ptr(60)),
				assessment(2, 1, 11, 1, util.Float64Ptr(80)),
				assessment(3, 1, 12, 16, util.Float64Ptr(90)),
			},
			ratio: 5,
			want:  util.Float64Ptr((5*90.0 + 70.0) / 6.0),
		},
		{
			name: "比率可配置",
			rows: []model.Assessment{
				assessment(1, 1, 10, 1, util.Float64Ptr(60)),
				assessment(2, 1, 11, 1, util.Float64Ptr(80)),
				assessment(3, 1, 12, 16, util.Float64Ptr(90)),
			},
			ratio: 1,
			want:  util.Float64Ptr(80),
		},
		{
			name: "零权重与未打分的行排除",
			rows: []model.Assessment{
				assessment(1, 1, 10, 0, util.Float64Ptr(5)),
				assessment(2, 1, 11, 1, nil),
				assessment(3, 1, 12, 1, util.Float64Ptr(75)),
			},
			ratio: 5,
			want:  util.Float64Ptr(75),
		},
		{
			name: "仅有助教评审",
			rows: []model.Assessment{
				assessment(1, 1, 12, 4, util.Float64Ptr(88)),
			},
			ratio: 5,
			want:  util.Float64Ptr(88),
		},
		{
			name:  "无有效评审保持未评分",
			rows:  []model.Assessment{assessment(1, 1, 10, 1, nil)},
			ratio: 5,
			want:  nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CombineSubmissionGrades(tt.rows, tt.ratio)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, util.GradeEpsilon)
		})
	}
}

func TestCombineReviewerGrades(t *testing.T) {
	overridden := assessment(2, 2, 10, 1, nil)
	overridden.GradingGrade = util.Float64Ptr(60)
	overridden.GradingGradeOver = util.Float64Ptr(95)

	plain := assessment(1, 1, 10, 1, nil)
	plain.GradingGrade = util.Float64Ptr(70)

	// 覆盖值优先：mean(70, 95) = 82.5
	got := CombineReviewerGrades([]model.Assessment{plain, overridden})
	require.NotNil(t, got)
	assert.InDelta(t, 82.5, *got, util.GradeEpsilon)

	// 两者皆空的行跳过
	empty := assessment(3, 3, 10, 1, nil)
	got = CombineReviewerGrades([]model.Assessment{plain, empty})
	require.NotNil(t, got)
	assert.InDelta(t, 70, *got, util.GradeEpsilon)

	assert.Nil(t, CombineReviewerGrades([]model.Assessment{empty}))
}

func TestAggregateSubmissionGradesIdempotent(t *testing.T) {
	store := newFakeGradeStore([]model.Assessment{
		assessment(1, 1, 10, 1, util.Float64Ptr(60)),
		assessment(2, 1, 11, 1, util.Float64Ptr(80)),
		assessment(3, 2, 10, 1, util.Float64Ptr(40)),
	})

	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	svc := NewAggregationService(store, 5)
	svc.Now = func() time.Time { return now }

	require.NoError(t, svc.AggregateSubmissionGrades(7, nil))
	assert.Equal(t, 2, store.submissionWrites)
	require.NotNil(t, store.grades[1])
	assert.InDelta(t, 70, *store.grades[1], util.GradeEpsilon)
	require.NotNil(t, store.grades[2])
	assert.InDelta(t, 40, *store.grades[2], util.GradeEpsilon)
	assert.Equal(t, now, store.gradedAt[1])

	// 第二遍无变化，跳过写入，时间戳不动
	later := now.Add(time.Hour)
	svc.Now = func() time.Time { return later }
	require.NoError(t, svc.AggregateSubmissionGrades(7, nil))
	assert.Equal(t, 2, store.submissionWrites)
	assert.Equal(t, now, store.gradedAt[1])

	// 某个评审改分后，只有受影响的提交重写
	store.assessments[0].Grade = util.Float64Ptr(90)
	require.NoError(t, svc.AggregateSubmissionGrades(7, []uint{1}))
	assert.Equal(t, 3, store.submissionWrites)
	assert.InDelta(t, 85, *store.grades[1], util.GradeEpsilon)
	assert.Equal(t, later, store.gradedAt[1])
	assert.Equal(t, now, store.gradedAt[2])
}

func TestAggregateGradingGrades(t *testing.T) {
	a1 := assessment(1, 1, 10, 1, nil)
	a1.GradingGrade = util.Float64Ptr(70)
	a2 := assessment(2, 2, 10, 1, nil)
	a2.GradingGrade = util.Float64Ptr(60)
	a2.GradingGradeOver = util.Float64Ptr(95)
	a3 := assessment(3, 1, 11, 1, nil)
	a3.GradingGrade = util.Float64Ptr(50)

	store := newFakeGradeStore([]model.Assessment{a1, a2, a3})

	now := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	svc := NewAggregationService(store, 5)
	svc.Now = func() time.Time { return now }

	require.NoError(t, svc.AggregateGradingGrades(7, nil))
	assert.Equal(t, 2, store.reviewerWrites)

	agg10 := store.aggs[10]
	require.NotNil(t, agg10)
	require.NotNil(t, agg10.GradingGrade)
	assert.InDelta(t, 82.5, *agg10.GradingGrade, util.GradeEpsilon)
	assert.Equal(t, uint(7), agg10.WorkshopID)
	require.NotNil(t, agg10.TimeGraded)
	assert.Equal(t, now, *agg10.TimeGraded)

	agg11 := store.aggs[11]
	require.NotNil(t, agg11)
	assert.InDelta(t, 50, *agg11.GradingGrade, util.GradeEpsilon)

	// 重复执行不产生写入
	require.NoError(t, svc.AggregateGradingGrades(7, nil))
	assert.Equal(t, 2, store.reviewerWrites)

	// restrict 只触碰给定评审者
	store.assessments[2].GradingGrade = util.Float64Ptr(80)
	require.NoError(t, svc.AggregateGradingGrades(7, []uint{11}))
	assert.Equal(t, 3, store.reviewerWrites)
	assert.InDelta(t, 80, *store.aggs[11].GradingGrade, util.GradeEpsilon)
	assert.InDelta(t, 82.5, *store.aggs[10].GradingGrade, util.GradeEpsilon)
}

func TestClearAssessments(t *testing.T) {
	a1 := assessment(1, 1, 10, 1, util.Float64Ptr(80))
	a1.GradingGrade = util.Float64Ptr(70)
	a2 := assessment(2, 2, 11, 1, util.Float64Ptr(60))
	a2.GradingGrade = util.Float64Ptr(55)
	a2.GradingGradeOver = util.Float64Ptr(90)

	store := newFakeGradeStore([]model.Assessment{a1, a2})
	svc := NewAggregationService(store, 5)

	require.NoError(t, svc.AggregateGradingGrades(7, nil))
	require.NotNil(t, store.aggs[10].GradingGrade)

	require.NoError(t, svc.ClearAssessments(7))

	// 评价方法写入的质量分被清空，覆盖值保留并继续参与汇总
	assert.Nil(t, store.aggs[10].GradingGrade)
	require.NotNil(t, store.aggs[11].GradingGrade)
	assert.InDelta(t, 90, *store.aggs[11].GradingGrade, util.GradeEpsilon)

	// 提交成绩不受影响
	require.NotNil(t, store.grades[1])
	assert.InDelta(t, 80, *store.grades[1], util.GradeEpsilon)
}

func TestAggregateSubmissionGradesOrphaned(t *testing.T) {
	// 提交 2 的评审行已被全部删除，旧成绩不得在重算后残留
	store := newFakeGradeStore([]model.Assessment{
		assessment(1, 1, 10, 1, util.Float64Ptr(70)),
	})
	store.submissionIDs = []uint{1, 2}
	store.grades[2] = util.Float64Ptr(88)

	svc := NewAggregationService(store, 5)

	require.NoError(t, svc.AggregateSubmissionGrades(7, nil))
	require.NotNil(t, store.grades[1])
	assert.InDelta(t, 70, *store.grades[1], util.GradeEpsilon)
	assert.Nil(t, store.grades[2])

	// 增量重算同样覆盖流中未出现的目标提交
	store.grades[2] = util.Float64Ptr(88)
	require.NoError(t, svc.AggregateSubmissionGrades(7, []uint{2}))
	assert.Nil(t, store.grades[2])

	// 本就无成绩的空提交不触发写入
	writes := store.submissionWrites
	require.NoError(t, svc.AggregateSubmissionGrades(7, nil))
	assert.Equal(t, writes, store.submissionWrites)
}
