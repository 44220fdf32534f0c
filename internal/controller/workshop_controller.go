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

type WorkshopController struct {
	WorkshopService *service.WorkshopService
	Aggregator      *service.AggregationService
	Evaluations     *service.EvaluationService
	Gradebook       *service.GradebookService
	AuthService     *service.AuthService
}

func NewWorkshopController(
	workshopService *service.WorkshopService,
	aggregator *service.AggregationService,
	evaluations *service.EvaluationService,
	gradebook *service.GradebookService,
	authService *service.AuthService,
) *WorkshopController {
	return &WorkshopController{
		WorkshopService: workshopService,
		Aggregator:      aggregator,
		Evaluations:     evaluations,
		Gradebook:       gradebook,
		AuthService:     authService,
	}
}

func (c *WorkshopController) requireTeacher(ctx *gin.Context) *model.User {
	user := c.AuthService.GetCurrentUser(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return nil
	}
	if !user.CanOverrideGrades() {
		util.Forbidden(ctx)
		return nil
	}
	return user
}

func (c *WorkshopController) loadWorkshop(ctx *gin.Context) *model.Workshop {
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

// Create godoc
// @Summary 创建工作坊
// @Description 新建工作坊活动，初始处于准备阶段
// @Tags 工作坊
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.WorkshopRequest true "工作坊配置"
// @Success 201 {object} util.Response{data=model.Workshop}
// @Failure 400 {object} util.Response "评分策略或评价方法不存在、时间窗口非法"
// @Router /api/workshops [post]
func (c *WorkshopController) Create(ctx *gin.Context) {
	if c.requireTeacher(ctx) == nil {
		return
	}

	var req service.WorkshopRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	w, err := c.WorkshopService.Create(req)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrStrategyNotFound),
			errors.Is(err, util.ErrEvaluatorNotFound),
			errors.Is(err, model.ErrInvalidTimeWindow),
			errors.Is(err, model.ErrOverlappingWindows):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, w)
}

// List godoc
// @Summary 工作坊列表
// @Tags 工作坊
// @Produce  json
// @Security BearerAuth
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页数量" default(10)
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/workshops [get]
func (c *WorkshopController) List(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	ws, total, err := c.WorkshopService.List(page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: ws, Total: total, Page: page, Limit: limit})
}

// Get godoc
// @Summary 工作坊详情
// @Tags 工作坊
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "工作坊 ID"
// @Success 200 {object} util.Response{data=model.Workshop}
// @Failure 404 {object} util.Response
// @Router /api/workshops/{id} [get]
func (c *WorkshopController) Get(ctx *gin.Context) {
	w := c.loadWorkshop(ctx)
	if w == nil {
		return
	}
	util.Success(ctx, w)
}

// Update godoc
// @Summary 更新工作坊配置
// @Tags 工作坊
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "工作坊 ID"
// @Param   body body service.WorkshopRequest true "工作坊配置"
// @Success 200 {object} util.Response{data=model.Workshop}
// @Router /api/workshops/{id} [put]
func (c *WorkshopController) Update(ctx *gin.Context) {
	if c.requireTeacher(ctx) == nil {
		return
	}
	w := c.loadWorkshop(ctx)
	if w == nil {
		return
	}

	var req service.WorkshopRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	updated, err := c.WorkshopService.Update(w.ID, req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidTimeWindow), errors.Is(err, model.ErrOverlappingWindows):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, updated)
}

// Delete godoc
// @Summary 删除工作坊
// @Description 级联删除提交、评审、聚合与成绩册条目
// @Tags 工作坊
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "工作坊 ID"
// @Success 200 {object} util.Response
// @Router /api/workshops/{id} [delete]
func (c *WorkshopController) Delete(ctx *gin.Context) {
	if c.requireTeacher(ctx) == nil {
		return
	}
	w := c.loadWorkshop(ctx)
	if w == nil {
		return
	}
	if err := c.WorkshopService.Delete(w.ID); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

type SwitchPhaseRequest struct {
	Phase int `json:"phase" binding:"required"`
}

// SwitchPhase godoc
// @Summary 切换阶段
// @Description 阶段编码：10 准备 / 20 提交 / 30 评审 / 40 评价 / 50 关闭。
// @Description 切到关闭阶段时最终成绩推送至成绩册
// @Tags 工作坊
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "工作坊 ID"
// @Param   body body SwitchPhaseRequest true "目标阶段"
// @Success 200 {object} util.Response{data=object}
// @Failure 400 {object} util.Response "未知阶段编码"
// @Router /api/workshops/{id}/phase [put]
func (c *WorkshopController) SwitchPhase(ctx *gin.Context) {
	if c.requireTeacher(ctx) == nil {
		return
	}
	w := c.loadWorkshop(ctx)
	if w == nil {
		return
	}

	var req SwitchPhaseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	ok, err := c.WorkshopService.SwitchPhase(w, req.Phase)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	if !ok {
		util.BadRequest(ctx, "未知阶段编码")
		return
	}
	util.Success(ctx, gin.H{"phase": w.Phase})
}

// GradesReport godoc
// @Summary 成绩总览
// @Description 教师端的全员成绩报表，带缓存
// @Tags 工作坊
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "工作坊 ID"
// @Success 200 {object} util.Response{data=[]service.GradesReportRow}
// @Router /api/workshops/{id}/report [get]
func (c *WorkshopController) GradesReport(ctx *gin.Context) {
	if c.requireTeacher(ctx) == nil {
		return
	}
	w := c.loadWorkshop(ctx)
	if w == nil {
		return
	}
	rows, err := c.WorkshopService.GradesReport(ctx.Request.Context(), w.ID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, rows)
}

// Recalculate godoc
// @Summary 重算全部成绩
// @Description 全量重跑两类聚合；已是最新的行跳过写入
// @Tags 工作坊
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "工作坊 ID"
// @Success 200 {object} util.Response
// @Router /api/workshops/{id}/recalculate [post]
func (c *WorkshopController) Recalculate(ctx *gin.Context) {
	if c.requireTeacher(ctx) == nil {
		return
	}
	w := c.loadWorkshop(ctx)
	if w == nil {
		return
	}
	if err := c.Aggregator.RecalculateAll(w.ID); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// ClearAssessments godoc
// @Summary 清除评审成绩
// @Description 清空评价方法写入的质量分（教师覆盖值保留）并全量重算
// @Tags 工作坊
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "工作坊 ID"
// @Success 200 {object} util.Response
// @Router /api/workshops/{id}/assessments/clear [post]
func (c *WorkshopController) ClearAssessments(ctx *gin.Context) {
	if c.requireTeacher(ctx) == nil {
		return
	}
	w := c.loadWorkshop(ctx)
	if w == nil {
		return
	}
	if err := c.Aggregator.ClearAssessments(w.ID); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// RunEvaluation godoc
// @Summary 执行评价方法
// @Description 按工作坊配置的评价方法计算评审质量分，仅评价阶段可用
// @Tags 工作坊
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "工作坊 ID"
// @Success 200 {object} util.Response{data=service.Result}
// @Router /api/workshops/{id}/evaluate [post]
func (c *WorkshopController) RunEvaluation(ctx *gin.Context) {
	if c.requireTeacher(ctx) == nil {
		return
	}
	w := c.loadWorkshop(ctx)
	if w == nil {
		return
	}

	result, err := c.Evaluations.Run(w)
	if err != nil {
		if errors.Is(err, util.ErrEvaluatorNotFound) {
			util.BadRequest(ctx, err.Error())
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	// 质量分变了，评审成绩聚合跟着重算
	if result.Status == service.StatusExecuted {
		if err := c.Aggregator.AggregateGradingGrades(w.ID, nil); err != nil {
			util.LogInternalError(ctx, err)
			return
		}
	}
	util.Success(ctx, result)
}

// GradebookItems godoc
// @Summary 成绩册条目
// @Tags 工作坊
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "工作坊 ID"
// @Param   type query string false "条目类型 submission/grading"
// @Success 200 {object} util.Response{data=[]model.GradeItem}
// @Router /api/workshops/{id}/gradebook [get]
func (c *WorkshopController) GradebookItems(ctx *gin.Context) {
	if c.requireTeacher(ctx) == nil {
		return
	}
	w := c.loadWorkshop(ctx)
	if w == nil {
		return
	}
	items, err := c.Gradebook.Report(w.ID, ctx.Query("type"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, items)
}
