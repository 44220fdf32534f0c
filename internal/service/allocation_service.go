package service

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"workshopplus_backend/internal/model"
	"workshopplus_backend/internal/util"
	"workshopplus_backend/pkg/logger"
	"workshopplus_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// 分配方法名称
const (
	AllocatorManual    = "manual"
	AllocatorRandom    = "random"
	AllocatorScheduled = "scheduled"
)

// Result 长任务（分配执行、定时分配）的状态结果，交由展示层消费
const (
	StatusVoid       = "void"       // 无事可做
	StatusFailed     = "failed"
	StatusConfigured = "configured" // 已保存设置，待执行
	StatusExecuted   = "executed"
)

type Result struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Logs    []string `json:"logs,omitempty"`
}

// AllocationStore 分配器对持久层的要求；测试用内存伪实现
type AllocationStore interface {
	FindAssessment(submissionID, reviewerID uint) (*model.Assessment, bool, error)
	CreateAssessment(a *model.Assessment) error
	ListWorkshopSubmissions(workshopID uint) ([]model.Submission, error)
	ListWorkshopAssessments(workshopID uint) ([]model.Assessment, error)
}

// AllocationOutcome AddAllocation 的带标签结果：二者取一。
// 重复分配不是异常，随机分配器会静默跳过
type AllocationOutcome struct {
	Assessment    *model.Assessment
	AlreadyExists bool
}

type AllocationSettings struct {
	NumPerSubmission  int   `json:"numPerSubmission"`
	NumPerReviewer    int   `json:"numPerReviewer"`
	AddSelfAssessment bool  `json:"addSelfAssessment"`
	Seed              int64 `json:"seed"`
}

// SettingsFromWorkshop 从工作坊上保存的定时分配参数还原执行设置
func SettingsFromWorkshop(w *model.Workshop) AllocationSettings {
	return AllocationSettings{
		NumPerSubmission:  w.AllocNumPerSubmission,
		NumPerReviewer:    w.AllocNumPerReviewer,
		AddSelfAssessment: w.AllocSelfAssessment,
	}
}

type AllocationService struct {
	Store AllocationStore
	Now   Clock
}

func NewAllocationService(store AllocationStore) *AllocationService {
	return &AllocationService{Store: store, Now: time.Now}
}

// AddAllocation 所有分配变体共用的原语：为 (提交, 评审者) 建一条空评审行。
// 已存在时返回 AlreadyExists，不建重复行；权重钳制到 [0,16]
func (s *AllocationService) AddAllocation(submission *model.Submission, reviewerID uint, weight int) (AllocationOutcome, error) {
	_, exists, err := s.Store.FindAssessment(submission.ID, reviewerID)
	if err != nil {
		return AllocationOutcome{}, err
	}
	if exists {
		return AllocationOutcome{AlreadyExists: true}, nil
	}

	a := &model.Assessment{
		SubmissionID: submission.ID,
		ReviewerID:   reviewerID,
		Weight:       util.ClampWeight(weight),
	}
	if err := s.Store.CreateAssessment(a); err != nil {
		return AllocationOutcome{}, err
	}
	monitoring.AllocationsCreated.Inc()
	return AllocationOutcome{Assessment: a}, nil
}

// Allocator 分配方法契约。manual 的配对在控制器层逐个 AddAllocation 完成，
// Execute 仅对延迟执行的变体有意义
type Allocator interface {
	Name() string
	Execute(w *model.Workshop, settings AllocationSettings) Result
}

var allocators = map[string]func(s *AllocationService) Allocator{
	AllocatorManual:    func(s *AllocationService) Allocator { return &ManualAllocator{} },
	AllocatorRandom:    func(s *AllocationService) Allocator { return &RandomAllocator{Service: s} },
	AllocatorScheduled: func(s *AllocationService) Allocator { return &ScheduledAllocator{Service: s} },
}

func (s *AllocationService) Resolve(name string) (Allocator, error) {
	factory, ok := allocators[name]
	if !ok {
		return nil, util.ErrAllocatorNotFound
	}
	return factory(s), nil
}

// ManualAllocator 教师显式指定配对，无延迟执行语义
type ManualAllocator struct{}

func (a *ManualAllocator) Name() string {
	return AllocatorManual
}

func (a *ManualAllocator) Execute(w *model.Workshop, settings AllocationSettings) Result {
	return Result{Status: StatusVoid, Message: "manual allocation has nothing to execute"}
}

// RandomAllocator 算法配对：按提交需求量补齐评审者，
// 已有分配保留，负载最轻的评审者优先，同负载随机
type RandomAllocator struct {
	Service *AllocationService
}

func (a *RandomAllocator) Name() string {
	return AllocatorRandom
}

func (a *RandomAllocator) Execute(w *model.Workshop, settings AllocationSettings) Result {
	if settings.NumPerSubmission <= 0 {
		settings.NumPerSubmission = 3
	}

	submissions, err := a.Service.Store.ListWorkshopSubmissions(w.ID)
	if err != nil {
		return Result{Status: StatusFailed, Message: err.Error()}
	}
	if len(submissions) == 0 {
		return Result{Status: StatusVoid, Message: "no submissions to allocate"}
	}

	existing, err := a.Service.Store.ListWorkshopAssessments(w.ID)
	if err != nil {
		return Result{Status: StatusFailed, Message: err.Error()}
	}

	// 现有负载：评审者 -> 已分到的评审数；提交 -> 已有的评审者数
	reviewerLoad := map[uint]int{}
	perSubmission := map[uint]int{}
	allocated := map[[2]uint]bool{}
	for _, as := range existing {
		reviewerLoad[as.ReviewerID]++
		perSubmission[as.SubmissionID]++
		allocated[[2]uint{as.SubmissionID, as.ReviewerID}] = true
	}

	seed := settings.Seed
	if seed == 0 {
		seed = a.Service.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	authors := make([]uint, 0, len(submissions))
	seen := map[uint]bool{}
	for _, sub := range submissions {
		if !seen[sub.AuthorID] {
			seen[sub.AuthorID] = true
			authors = append(authors, sub.AuthorID)
		}
	}

	var logs []string
	created := 0
	for i := range submissions {
		sub := &submissions[i]

		if w.UseSelfAssessment && settings.AddSelfAssessment && !allocated[[2]uint{sub.ID, sub.AuthorID}] {
			outcome, err := a.Service.AddAllocation(sub, sub.AuthorID, 1)
			if err != nil {
				return Result{Status: StatusFailed, Message: err.Error(), Logs: logs}
			}
			if !outcome.AlreadyExists {
				created++
				reviewerLoad[sub.AuthorID]++
				perSubmission[sub.ID]++
			}
		}

		need := settings.NumPerSubmission - perSubmission[sub.ID]
		if need <= 0 {
			continue
		}

		candidates := make([]uint, 0, len(authors))
		for _, author := range authors {
			if author == sub.AuthorID {
				continue
			}
			if allocated[[2]uint{sub.ID, author}] {
				continue
			}
			if settings.NumPerReviewer > 0 && reviewerLoad[author] >= settings.NumPerReviewer {
				continue
			}
			candidates = append(candidates, author)
		}

		// 同负载之间洗牌，再按负载稳定排序，保证轻载优先且给定种子下可复现
		rng.Shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})
		sort.SliceStable(candidates, func(i, j int) bool {
			return reviewerLoad[candidates[i]] < reviewerLoad[candidates[j]]
		})

		for _, reviewer := range candidates {
			if need == 0 {
				break
			}
			outcome, err := a.Service.AddAllocation(sub, reviewer, 1)
			if err != nil {
				return Result{Status: StatusFailed, Message: err.Error(), Logs: logs}
			}
			if outcome.AlreadyExists {
				continue
			}
			created++
			need--
			reviewerLoad[reviewer]++
			perSubmission[sub.ID]++
			allocated[[2]uint{sub.ID, reviewer}] = true
			logs = append(logs, fmt.Sprintf("submission %d -> reviewer %d", sub.ID, reviewer))
		}
		if need > 0 {
			logs = append(logs, fmt.Sprintf("submission %d short of %d reviewer(s)", sub.ID, need))
		}
	}

	logger.Log.Info("random allocation executed",
		zap.Uint("workshopId", w.ID),
		zap.Int("created", created))
	return Result{
		Status:  StatusExecuted,
		Message: fmt.Sprintf("created %d allocation(s)", created),
		Logs:    logs,
	}
}

// ScheduledAllocator 提交截止后触发一次随机分配。只处理开启了定时分配的
// 工作坊；可安全重复执行：委托的随机分配只补缺口、跳过既有分配，
// 截止时间改动不会造成重复行
type ScheduledAllocator struct {
	Service *AllocationService
}

func (a *ScheduledAllocator) Name() string {
	return AllocatorScheduled
}

func (a *ScheduledAllocator) Execute(w *model.Workshop, settings AllocationSettings) Result {
	if !w.ScheduledAllocation {
		return Result{Status: StatusVoid, Message: "scheduled allocation is not enabled"}
	}
	if w.SubmissionEnd == nil {
		return Result{Status: StatusVoid, Message: "no submission deadline configured"}
	}
	if a.Service.Now().Before(*w.SubmissionEnd) {
		return Result{Status: StatusConfigured, Message: "waiting for the submission deadline"}
	}
	delegate := &RandomAllocator{Service: a.Service}
	return delegate.Execute(w, settings)
}
