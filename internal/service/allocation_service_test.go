package service

import (
	"testing"
	"time"

	"workshopplus_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAllocationStore struct {
	submissions []model.Submission
	assessments []model.Assessment
	nextID      uint
}

func newFakeAllocationStore(submissions []model.Submission) *fakeAllocationStore {
	return &fakeAllocationStore{submissions: submissions, nextID: 1}
}

func (f *fakeAllocationStore) FindAssessment(submissionID, reviewerID uint) (*model.Assessment, bool, error) {
	for i := range f.assessments {
		a := &f.assessments[i]
		if a.SubmissionID == submissionID && a.ReviewerID == reviewerID {
			return a, true, nil
		}
	}
	return nil, false, nil
}

func (f *fakeAllocationStore) CreateAssessment(a *model.Assessment) error {
	a.ID = f.nextID
	f.nextID++
	f.assessments = append(f.assessments, *a)
	return nil
}

func (f *fakeAllocationStore) ListWorkshopSubmissions(workshopID uint) ([]model.Submission, error) {
	return f.submissions, nil
}

func (f *fakeAllocationStore) ListWorkshopAssessments(workshopID uint) ([]model.Assessment, error) {
	return f.assessments, nil
}

func submission(id, workshopID, authorID uint) model.Submission {
	s := model.Submission{WorkshopID: workshopID, AuthorID: authorID, Title: "t"}
	s.ID = id
	return s
}

func TestAddAllocation(t *testing.T) {
	store := newFakeAllocationStore(nil)
	svc := NewAllocationService(store)

	sub := submission(1, 7, 100)
	outcome, err := svc.AddAllocation(&sub, 101, 1)
	require.NoError(t, err)
	assert.False(t, outcome.AlreadyExists)
	require.NotNil(t, outcome.Assessment)
	assert.Equal(t, uint(101), outcome.Assessment.ReviewerID)

	// 重复配对不建行
	outcome, err = svc.AddAllocation(&sub, 101, 1)
	require.NoError(t, err)
	assert.True(t, outcome.AlreadyExists)
	assert.Nil(t, outcome.Assessment)
	assert.Len(t, store.assessments, 1)

	// 权重钳制到上限
	outcome, err = svc.AddAllocation(&sub, 102, 99)
	require.NoError(t, err)
	assert.Equal(t, model.WeightMax, outcome.Assessment.Weight)
}

func TestRandomAllocator(t *testing.T) {
	store := newFakeAllocationStore([]model.Submission{
		submission(1, 7, 100),
		submission(2, 7, 101),
		submission(3, 7, 102),
		submission(4, 7, 103),
	})
	svc := NewAllocationService(store)
	allocator := &RandomAllocator{Service: svc}

	w := &model.Workshop{Phase: model.PhaseSubmission}
	w.ID = 7

	result := allocator.Execute(w, AllocationSettings{NumPerSubmission: 2, Seed: 42})
	assert.Equal(t, StatusExecuted, result.Status)

	perSubmission := map[uint]int{}
	for _, a := range store.assessments {
		perSubmission[a.SubmissionID]++
		// 不自评
		for _, s := range store.submissions {
			if s.ID == a.SubmissionID {
				assert.NotEqual(t, s.AuthorID, a.ReviewerID)
			}
		}
	}
	for id := uint(1); id <= 4; id++ {
		assert.Equal(t, 2, perSubmission[id], "submission %d", id)
	}

	// 重复执行不新增配对
	before := len(store.assessments)
	result = allocator.Execute(w, AllocationSettings{NumPerSubmission: 2, Seed: 42})
	assert.Equal(t, StatusExecuted, result.Status)
	assert.Len(t, store.assessments, before)
}

func TestRandomAllocatorSelfAssessment(t *testing.T) {
	store := newFakeAllocationStore([]model.Submission{
		submission(1, 7, 100),
		submission(2, 7, 101),
	})
	svc := NewAllocationService(store)
	allocator := &RandomAllocator{Service: svc}

	w := &model.Workshop{UseSelfAssessment: true}
	w.ID = 7

	allocator.Execute(w, AllocationSettings{NumPerSubmission: 1, AddSelfAssessment: true, Seed: 1})

	selfAllocated := 0
	for _, a := range store.assessments {
		for _, s := range store.submissions {
			if s.ID == a.SubmissionID && s.AuthorID == a.ReviewerID {
				selfAllocated++
			}
		}
	}
	assert.Equal(t, 2, selfAllocated)
}

func TestRandomAllocatorNoSubmissions(t *testing.T) {
	svc := NewAllocationService(newFakeAllocationStore(nil))
	allocator := &RandomAllocator{Service: svc}
	w := &model.Workshop{}
	w.ID = 7

	result := allocator.Execute(w, AllocationSettings{NumPerSubmission: 2})
	assert.Equal(t, StatusVoid, result.Status)
}

func TestScheduledAllocator(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeAllocationStore([]model.Submission{
		submission(1, 7, 100),
		submission(2, 7, 101),
	})
	svc := NewAllocationService(store)
	svc.Now = func() time.Time { return now }
	allocator := &ScheduledAllocator{Service: svc}

	// 未配置截止时间
	w := &model.Workshop{ScheduledAllocation: true}
	w.ID = 7
	assert.Equal(t, StatusVoid, allocator.Execute(w, AllocationSettings{}).Status)

	// 截止未到：保持待执行，不建任何行
	end := now.Add(time.Hour)
	w.SubmissionEnd = &end
	assert.Equal(t, StatusConfigured, allocator.Execute(w, AllocationSettings{NumPerSubmission: 1}).Status)
	assert.Empty(t, store.assessments)

	// 截止已过：委托随机分配
	past := now.Add(-time.Hour)
	w.SubmissionEnd = &past
	result := allocator.Execute(w, AllocationSettings{NumPerSubmission: 1, Seed: 9})
	assert.Equal(t, StatusExecuted, result.Status)
	assert.Len(t, store.assessments, 2)

	// 截止时间改动后重跑不产生重复行
	result = allocator.Execute(w, AllocationSettings{NumPerSubmission: 1, Seed: 9})
	assert.Equal(t, StatusExecuted, result.Status)
	assert.Len(t, store.assessments, 2)
}

func TestScheduledAllocatorRequiresOptIn(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeAllocationStore([]model.Submission{
		submission(1, 7, 100),
		submission(2, 7, 101),
	})
	svc := NewAllocationService(store)
	svc.Now = func() time.Time { return now }
	allocator := &ScheduledAllocator{Service: svc}

	// 截止已过但未开启定时分配：手工分配的工作坊不得被补入随机配对
	past := now.Add(-time.Hour)
	w := &model.Workshop{SubmissionEnd: &past}
	w.ID = 7

	result := allocator.Execute(w, AllocationSettings{NumPerSubmission: 1})
	assert.Equal(t, StatusVoid, result.Status)
	assert.Empty(t, store.assessments)

	// 开启后同一工作坊正常执行
	w.ScheduledAllocation = true
	result = allocator.Execute(w, SettingsFromWorkshop(w))
	assert.Equal(t, StatusExecuted, result.Status)
	assert.NotEmpty(t, store.assessments)
}

func TestSettingsFromWorkshop(t *testing.T) {
	w := &model.Workshop{
		ScheduledAllocation:   true,
		AllocNumPerSubmission: 4,
		AllocNumPerReviewer:   2,
		AllocSelfAssessment:   true,
	}
	settings := SettingsFromWorkshop(w)
	assert.Equal(t, 4, settings.NumPerSubmission)
	assert.Equal(t, 2, settings.NumPerReviewer)
	assert.True(t, settings.AddSelfAssessment)
	assert.Zero(t, settings.Seed)
}

func TestResolveAllocator(t *testing.T) {
	svc := NewAllocationService(newFakeAllocationStore(nil))

	for _, name := range []string{AllocatorManual, AllocatorRandom, AllocatorScheduled} {
		allocator, err := svc.Resolve(name)
		require.NoError(t, err)
		assert.Equal(t, name, allocator.Name())
	}

	_, err := svc.Resolve("roundrobin")
	assert.Error(t, err)
}
