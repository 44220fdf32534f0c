package controller

import (
	"errors"
	"strconv"

	"workshopplus_backend/internal/model"
	"workshopplus_backend/internal/service"
	"workshopplus_backend/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AssessmentController struct {
	Assessments     *service.AssessmentService
	Allocations     *service.AllocationService
	Submissions     *service.SubmissionService
	WorkshopService *service.WorkshopService
	AuthService     *service.AuthService
}

func NewAssessmentController(
	assessments *service.AssessmentService,
	allocations *service.AllocationService,
	submissions *service.SubmissionService,
	workshopService *service.WorkshopService,
	authService *service.AuthService,
) *AssessmentController {
	return &AssessmentController{
		Assessments:     assessments,
		Allocations:     allocations,
		Submissions:     submissions,
		WorkshopService: workshopService,
		AuthService:     authService,
	}
}

func (c *AssessmentController) currentUser(ctx *gin.Context) *model.User {
	user := c.AuthService.GetCurrentUser(ctx)
	if user == nil {
		util.Unauthorized(ctx)
	}
	return user
}

func (c *AssessmentController) loadWorkshop(ctx *gin.Context) *model.Workshop {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid workshop id")
		return nil
	}
	w, err := c.WorkshopService.Get(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return nil
	}
	return w
}

func parseID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// Form godoc
// @Summary 评分表结构
// @Description 按工作坊的评分策略返回维度定义，供前端渲染评分表
// @Tags 评审
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "工作坊 ID"
// @Success 200 {object} util.Response{data=[]service.DimensionInfo}
// @Failure 409 {object} util.Response "评分表未配置完整"
// @Router /api/workshops/{id}/form [get]
func (c *AssessmentController) Form(ctx *gin.Context) {
	if c.currentUser(ctx) == nil {
		return
	}
	w := c.loadWorkshop(ctx)
	if w == nil {
		return
	}

	dims, err := c.Assessments.Form(w)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrFormNotReady):
			util.Error(ctx, 409, err.Error())
		case errors.Is(err, util.ErrStrategyNotFound):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, dims)
}

// ListMine godoc
// @Summary 我的评审任务
// @Tags 评审
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "工作坊 ID"
// @Success 200 {object} util.Response{data=[]model.Assessment}
// @Router /api/workshops/{id}/assessments/mine [get]
func (c *AssessmentController) ListMine(ctx *gin.Context) {
	user := c.currentUser(ctx)
	if user == nil {
		return
	}
	w := c.loadWorkshop(ctx)
	if w == nil {
		return
	}
	list, err := c.Assessments.ListForReviewer(w.ID, user.ID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// Save godoc
// @Summary 提交评分表
// @Description 落盘维度打分并重算该提交的聚合成绩
// @Tags 评审
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "工作坊 ID"
// @Param   aid path int true "评审 ID"
// @Param   body body service.AssessmentFormData true "评分表内容"
// @Success 200 {object} util.Response{data=model.Assessment}
// @Failure 403 {object} util.Response "当前阶段不可评审"
// @Failure 422 {object} util.Response "维度填写不完整"
// @Router /api/workshops/{id}/assessments/{aid} [put]
func (c *AssessmentController) Save(ctx *gin.Context) {
	user := c.currentUser(ctx)
	if user == nil {
		return
	}
	w := c.loadWorkshop(ctx)
	if w == nil {
		return
	}
	aid, ok := parseID(ctx, "aid")
	if !ok {
		return
	}

	var form service.AssessmentFormData
	if err := ctx.ShouldBindJSON(&form); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	a, err := c.Assessments.Save(w, aid, user, form)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrPermissionDenied):
			util.Forbidden(ctx)
		case errors.Is(err, util.ErrAssessingClosed):
			util.Error(ctx, 403, err.Error())
		case errors.Is(err, util.ErrFormNotReady):
			util.Error(ctx, 409, err.Error())
		case errors.Is(err, util.ErrMissingDimension):
			util.Error(ctx, 422, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, a)
}

type WeightRequest struct {
	Weight int `json:"weight"`
}

// SetWeight godoc
// @Summary 调整评审权重
// @Description 0 不参与聚合，1 普通互评，大于 1 为助教评审
// @Tags 评审
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "工作坊 ID"
// @Param   aid path int true "评审 ID"
// @Param   body body WeightRequest true "权重"
// @Success 200 {object} util.Response
// @Router /api/workshops/{id}/assessments/{aid}/weight [put]
func (c *AssessmentController) SetWeight(ctx *gin.Context) {
	user := c.currentUser(ctx)
	if user == nil {
		return
	}
	if !user.CanOverrideGrades() {
		util.Forbidden(ctx)
		return
	}
	w := c.loadWorkshop(ctx)
	if w == nil {
		return
	}
	aid, ok := parseID(ctx, "aid")
	if !ok {
		return
	}

	var req WeightRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.Assessments.SetWeight(w, aid, req.Weight); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

type GradingGradeOverRequest struct {
	GradingGradeOver *float64 `json:"gradingGradeOver"`
}

// OverrideGradingGrade godoc
// @Summary 覆盖评审质量分
// @Description 教师覆盖值优先于评价方法计算值；传 null 撤销覆盖
// @Tags 评审
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "工作坊 ID"
// @Param   aid path int true "评审 ID"
// @Param   body body GradingGradeOverRequest true "覆盖质量分"
// @Success 200 {object} util.Response
// @Router /api/workshops/{id}/assessments/{aid}/grading-grade [put]
func (c *AssessmentController) OverrideGradingGrade(ctx *gin.Context) {
	user := c.currentUser(ctx)
	if user == nil {
		return
	}
	w := c.loadWorkshop(ctx)
	if w == nil {
		return
	}
	aid, ok := parseID(ctx, "aid")
	if !ok {
		return
	}

	var req GradingGradeOverRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.Assessments.SetGradingGradeOver(w, aid, req.GradingGradeOver, user); err != nil {
		switch {
		case errors.Is(err, util.ErrPermissionDenied):
			util.Forbidden(ctx)
		case errors.Is(err, gorm.ErrRecordNotFound):
			util.NotFound(ctx)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

type ManualAllocationRequest struct {
	SubmissionID uint `json:"submissionId" binding:"required"`
	ReviewerID   uint `json:"reviewerId" binding:"required"`
	Weight       int  `json:"weight"`
}

// AddAllocation godoc
// @Summary 手工分配评审
// @Description 重复配对返回 409，不产生重复行
// @Tags 分配
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "工作坊 ID"
// @Param   body body ManualAllocationRequest true "配对"
// @Success 201 {object} util.Response{data=model.Assessment}
// @Failure 409 {object} util.Response "配对已存在"
// @Router /api/workshops/{id}/allocations [post]
func (c *AssessmentController) AddAllocation(ctx *gin.Context) {
	user := c.currentUser(ctx)
	if user == nil {
		return
	}
	if !user.CanOverrideGrades() {
		util.Forbidden(ctx)
		return
	}
	if c.loadWorkshop(ctx) == nil {
		return
	}

	var req ManualAllocationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sub, err := c.Submissions.Get(req.SubmissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	weight := req.Weight
	if weight == 0 {
		weight = 1
	}
	outcome, err := c.Allocations.AddAllocation(sub, req.ReviewerID, weight)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	if outcome.AlreadyExists {
		util.Error(ctx, 409, "该配对已存在")
		return
	}
	util.Created(ctx, outcome.Assessment)
}

type ExecuteAllocationRequest struct {
	Method   string                     `json:"method" binding:"required"`
	Settings service.AllocationSettings `json:"settings"`
}

// ExecuteAllocation godoc
// @Summary 执行分配方法
// @Description random 立即算法配对；scheduled 在提交截止后才实际执行，可安全重试
// @Tags 分配
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "工作坊 ID"
// @Param   body body ExecuteAllocationRequest true "分配方法与参数"
// @Success 200 {object} util.Response{data=service.Result}
// @Failure 400 {object} util.Response "分配方法不存在"
// @Router /api/workshops/{id}/allocations/execute [post]
func (c *AssessmentController) ExecuteAllocation(ctx *gin.Context) {
	user := c.currentUser(ctx)
	if user == nil {
		return
	}
	if !user.CanOverrideGrades() {
		util.Forbidden(ctx)
		return
	}
	w := c.loadWorkshop(ctx)
	if w == nil {
		return
	}

	var req ExecuteAllocationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	allocator, err := c.Allocations.Resolve(req.Method)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	// 选择定时分配即保存开关与参数，之后由后台任务在截止后执行
	settings := req.Settings
	if req.Method == service.AllocatorScheduled {
		if err := c.WorkshopService.ConfigureScheduledAllocation(w, req.Settings); err != nil {
			util.LogInternalError(ctx, err)
			return
		}
		settings = service.SettingsFromWorkshop(w)
	}
	util.Success(ctx, allocator.Execute(w, settings))
}

type ExampleAssessmentRequest struct {
	ExampleID uint `json:"exampleId" binding:"required"`
}

// AssessExample godoc
// @Summary 认领范例评审
// @Description 学员按范例模式认领一份范例评审，权重为零不进聚合
// @Tags 评审
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "工作坊 ID"
// @Param   body body ExampleAssessmentRequest true "范例"
// @Success 201 {object} util.Response{data=model.Assessment}
// @Failure 403 {object} util.Response "当前阶段不可评审范例"
// @Router /api/workshops/{id}/examples/assess [post]
func (c *AssessmentController) AssessExample(ctx *gin.Context) {
	user := c.currentUser(ctx)
	if user == nil {
		return
	}
	w := c.loadWorkshop(ctx)
	if w == nil {
		return
	}

	var req ExampleAssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	a, err := c.Assessments.AddExampleAssessment(w, req.ExampleID, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, util.ErrSubmissionNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrAssessingClosed):
			util.Error(ctx, 403, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, a)
}
