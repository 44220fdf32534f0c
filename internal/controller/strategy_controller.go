package controller

import (
	"errors"
	"strconv"

	"workshopplus_backend/internal/model"
	"workshopplus_backend/internal/repository"
	"workshopplus_backend/internal/service"
	"workshopplus_backend/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// StrategyController 评分表配置：维度定义、错误数映射、评价方法设置
type StrategyController struct {
	Strategies      *repository.StrategyRepository
	Evaluations     *repository.EvaluationRepository
	WorkshopService *service.WorkshopService
	AuthService     *service.AuthService
}

func NewStrategyController(
	strategies *repository.StrategyRepository,
	evaluations *repository.EvaluationRepository,
	workshopService *service.WorkshopService,
	authService *service.AuthService,
) *StrategyController {
	return &StrategyController{
		Strategies:      strategies,
		Evaluations:     evaluations,
		WorkshopService: workshopService,
		AuthService:     authService,
	}
}

func (c *StrategyController) requireTeacherWorkshop(ctx *gin.Context) *model.Workshop {
	user := c.AuthService.GetCurrentUser(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return nil
	}
	if !user.CanOverrideGrades() {
		util.Forbidden(ctx)
		return nil
	}

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

type AccumulativeDimensionRequest struct {
	Description string  `json:"description" binding:"required"`
	GradeMax    float64 `json:"gradeMax"`
	Weight      int     `json:"weight"`
	Order       int     `json:"order"`
}

// AddAccumulativeDimension godoc
// @Summary 新增累加式维度
// @Tags 评分表
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "工作坊 ID"
// @Param   body body AccumulativeDimensionRequest true "维度定义"
// @Success 201 {object} util.Response{data=model.AccumulativeDimension}
// @Router /api/workshops/{id}/strategy/accumulative/dimensions [post]
func (c *StrategyController) AddAccumulativeDimension(ctx *gin.Context) {
	w := c.requireTeacherWorkshop(ctx)
	if w == nil {
		return
	}

	var req AccumulativeDimensionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if req.GradeMax <= 0 {
		req.GradeMax = 10
	}
	if req.Weight <= 0 {
		req.Weight = 1
	}

	dim := &model.AccumulativeDimension{
		WorkshopID:  w.ID,
		Description: req.Description,
		GradeMax:    req.GradeMax,
		Weight:      req.Weight,
		Order:       req.Order,
	}
	if err := c.Strategies.CreateAccumulativeDimension(dim); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, dim)
}

type NumErrorsDimensionRequest struct {
	Description string `json:"description" binding:"required"`
	Weight      int    `json:"weight"`
	Order       int    `json:"order"`
	GradeFail   string `json:"gradeFail"`
	GradePass   string `json:"gradePass"`
}

// AddNumErrorsDimension godoc
// @Summary 新增错误数式维度
// @Tags 评分表
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "工作坊 ID"
// @Param   body body NumErrorsDimensionRequest true "维度定义"
// @Success 201 {object} util.Response{data=model.NumErrorsDimension}
// @Router /api/workshops/{id}/strategy/numerrors/dimensions [post]
func (c *StrategyController) AddNumErrorsDimension(ctx *gin.Context) {
	w := c.requireTeacherWorkshop(ctx)
	if w == nil {
		return
	}

	var req NumErrorsDimensionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if req.Weight <= 0 {
		req.Weight = 1
	}

	dim := &model.NumErrorsDimension{
		WorkshopID:  w.ID,
		Description: req.Description,
		Weight:      req.Weight,
		Order:       req.Order,
		GradeFail:   req.GradeFail,
		GradePass:   req.GradePass,
	}
	if err := c.Strategies.CreateNumErrorsDimension(dim); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, dim)
}

type NumErrorsMappingRequest struct {
	NoNegative int     `json:"noNegative"`
	Grade      float64 `json:"grade"`
}

// SaveNumErrorsMapping godoc
// @Summary 保存错误数映射项
// @Description 加权错误数到成绩百分比的稀疏映射，同错误数重复保存为覆盖
// @Tags 评分表
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "工作坊 ID"
// @Param   body body NumErrorsMappingRequest true "映射项"
// @Success 200 {object} util.Response{data=model.NumErrorsMapping}
// @Router /api/workshops/{id}/strategy/numerrors/mappings [put]
func (c *StrategyController) SaveNumErrorsMapping(ctx *gin.Context) {
	w := c.requireTeacherWorkshop(ctx)
	if w == nil {
		return
	}

	var req NumErrorsMappingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if req.NoNegative < 0 || req.Grade < 0 || req.Grade > 100 {
		util.BadRequest(ctx, "mapping out of range")
		return
	}

	m := &model.NumErrorsMapping{
		WorkshopID: w.ID,
		NoNegative: req.NoNegative,
		Grade:      req.Grade,
	}
	if err := c.Strategies.SaveNumErrorsMapping(m); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, m)
}

type RubricLevelRequest struct {
	Definition string  `json:"definition"`
	Grade      float64 `json:"grade"`
}

type RubricCriterionRequest struct {
	Description string               `json:"description" binding:"required"`
	Order       int                  `json:"order"`
	Levels      []RubricLevelRequest `json:"levels" binding:"required,min=2"`
}

// AddRubricCriterion godoc
// @Summary 新增量规准则
// @Description 每条准则至少两个等级
// @Tags 评分表
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "工作坊 ID"
// @Param   body body RubricCriterionRequest true "准则与等级"
// @Success 201 {object} util.Response{data=model.RubricCriterion}
// @Router /api/workshops/{id}/strategy/rubric/criteria [post]
func (c *StrategyController) AddRubricCriterion(ctx *gin.Context) {
	w := c.requireTeacherWorkshop(ctx)
	if w == nil {
		return
	}

	var req RubricCriterionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	criterion := &model.RubricCriterion{
		WorkshopID:  w.ID,
		Description: req.Description,
		Order:       req.Order,
	}
	for _, lv := range req.Levels {
		criterion.Levels = append(criterion.Levels, model.RubricLevel{
			Definition: lv.Definition,
			Grade:      lv.Grade,
		})
	}
	if err := c.Strategies.CreateRubricCriterion(criterion); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, criterion)
}

type CommentsDimensionRequest struct {
	Description string `json:"description" binding:"required"`
	Order       int    `json:"order"`
}

// AddCommentsDimension godoc
// @Summary 新增评语维度
// @Tags 评分表
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "工作坊 ID"
// @Param   body body CommentsDimensionRequest true "维度定义"
// @Success 201 {object} util.Response{data=model.CommentsDimension}
// @Router /api/workshops/{id}/strategy/comments/dimensions [post]
func (c *StrategyController) AddCommentsDimension(ctx *gin.Context) {
	w := c.requireTeacherWorkshop(ctx)
	if w == nil {
		return
	}

	var req CommentsDimensionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	dim := &model.CommentsDimension{
		WorkshopID:  w.ID,
		Description: req.Description,
		Order:       req.Order,
	}
	if err := c.Strategies.CreateCommentsDimension(dim); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, dim)
}

type BestSettingsRequest struct {
	CompareLevel int `json:"compareLevel" binding:"required,min=1,max=9"`
}

// SaveBestSettings godoc
// @Summary 保存 best 评价方法设置
// @Tags 评分表
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "工作坊 ID"
// @Param   body body BestSettingsRequest true "比较严格度"
// @Success 200 {object} util.Response{data=model.BestEvaluationSettings}
// @Router /api/workshops/{id}/evaluation/best [put]
func (c *StrategyController) SaveBestSettings(ctx *gin.Context) {
	w := c.requireTeacherWorkshop(ctx)
	if w == nil {
		return
	}

	var req BestSettingsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	settings := &model.BestEvaluationSettings{
		WorkshopID:   w.ID,
		CompareLevel: req.CompareLevel,
	}
	if err := c.Evaluations.SaveBestSettings(settings); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, settings)
}
