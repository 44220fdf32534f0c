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

// 附件大小上限 20MB
const maxAttachmentSize = 20 << 20

type SubmissionController struct {
	Submissions     *service.SubmissionService
	Assessments     *service.AssessmentService
	WorkshopService *service.WorkshopService
	AuthService     *service.AuthService
}

func NewSubmissionController(
	submissions *service.SubmissionService,
	assessments *service.AssessmentService,
	workshopService *service.WorkshopService,
	authService *service.AuthService,
) *SubmissionController {
	return &SubmissionController{
		Submissions:     submissions,
		Assessments:     assessments,
		WorkshopService: workshopService,
		AuthService:     authService,
	}
}

func (c *SubmissionController) currentUser(ctx *gin.Context) *model.User {
	user := c.AuthService.GetCurrentUser(ctx)
	if user == nil {
		util.Unauthorized(ctx)
	}
	return user
}

func (c *SubmissionController) loadWorkshop(ctx *gin.Context) *model.Workshop {
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

func (c *SubmissionController) loadSubmission(ctx *gin.Context) *model.Submission {
	id, err := strconv.ParseUint(ctx.Param("sid"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid submission id")
		return nil
	}
	sub, err := c.Submissions.Get(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return nil
	}
	return sub
}

// Create godoc
// @Summary 创建提交
// @Description 提交阶段内每人一份；开启迟交后评审阶段仍可新建
// @Tags 提交
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "工作坊 ID"
// @Param   body body service.SubmissionRequest true "提交内容"
// @Success 201 {object} util.Response{data=model.Submission}
// @Failure 403 {object} util.Response "当前阶段不可提交"
// @Failure 409 {object} util.Response "已有提交"
// @Router /api/workshops/{id}/submissions [post]
func (c *SubmissionController) Create(ctx *gin.Context) {
	user := c.currentUser(ctx)
	if user == nil {
		return
	}
	w := c.loadWorkshop(ctx)
	if w == nil {
		return
	}

	var req service.SubmissionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sub, err := c.Submissions.Create(w, user, req)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrSubmissionClosed):
			util.Error(ctx, 403, err.Error())
		case errors.Is(err, util.ErrAlreadySubmitted):
			util.Error(ctx, 409, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, sub)
}

// CreateExample godoc
// @Summary 录入训练范例
// @Tags 提交
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "工作坊 ID"
// @Param   body body service.SubmissionRequest true "范例内容"
// @Success 201 {object} util.Response{data=model.Submission}
// @Router /api/workshops/{id}/examples [post]
func (c *SubmissionController) CreateExample(ctx *gin.Context) {
	user := c.currentUser(ctx)
	if user == nil {
		return
	}
	w := c.loadWorkshop(ctx)
	if w == nil {
		return
	}

	var req service.SubmissionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sub, err := c.Submissions.CreateExample(w, user, req)
	if err != nil {
		if errors.Is(err, util.ErrPermissionDenied) {
			util.Forbidden(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, sub)
}

// List godoc
// @Summary 提交列表
// @Tags 提交
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "工作坊 ID"
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页数量" default(10)
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/workshops/{id}/submissions [get]
func (c *SubmissionController) List(ctx *gin.Context) {
	user := c.currentUser(ctx)
	if user == nil {
		return
	}
	w := c.loadWorkshop(ctx)
	if w == nil {
		return
	}

	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	ss, total, err := c.Submissions.List(w.ID, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	// 学员只能看到已发布的或自己的提交
	if !user.CanOverrideGrades() {
		visible := make([]model.Submission, 0, len(ss))
		for _, sub := range ss {
			if sub.Published || sub.AuthorID == user.ID {
				visible = append(visible, sub)
			}
		}
		ss = visible
	}
	util.Success(ctx, util.PageResponse{List: ss, Total: total, Page: page, Limit: limit})
}

// ListExamples godoc
// @Summary 范例列表
// @Tags 提交
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "工作坊 ID"
// @Success 200 {object} util.Response{data=[]model.Submission}
// @Router /api/workshops/{id}/examples [get]
func (c *SubmissionController) ListExamples(ctx *gin.Context) {
	if c.currentUser(ctx) == nil {
		return
	}
	w := c.loadWorkshop(ctx)
	if w == nil {
		return
	}
	ss, err := c.Submissions.ListExamples(w.ID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, ss)
}

// Get godoc
// @Summary 提交详情
// @Description 作者在关闭阶段才能看到收到的评审
// @Tags 提交
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "工作坊 ID"
// @Param   sid path int true "提交 ID"
// @Success 200 {object} util.Response{data=model.Submission}
// @Router /api/workshops/{id}/submissions/{sid} [get]
func (c *SubmissionController) Get(ctx *gin.Context) {
	user := c.currentUser(ctx)
	if user == nil {
		return
	}
	w := c.loadWorkshop(ctx)
	if w == nil {
		return
	}
	sub := c.loadSubmission(ctx)
	if sub == nil {
		return
	}

	if !user.CanOverrideGrades() && sub.AuthorID != user.ID && !sub.Published && !sub.Example {
		util.Forbidden(ctx)
		return
	}
	// 作者视角下未到关闭阶段先隐藏评审明细与成绩
	if sub.AuthorID == user.ID && !user.CanOverrideGrades() && !service.AssessmentsAvailable(w) {
		sub.Assessments = nil
		sub.Grade = nil
		sub.GradeOver = nil
	}
	util.Success(ctx, sub)
}

// Update godoc
// @Summary 编辑提交
// @Tags 提交
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "工作坊 ID"
// @Param   sid path int true "提交 ID"
// @Param   body body service.SubmissionRequest true "提交内容"
// @Success 200 {object} util.Response{data=model.Submission}
// @Failure 403 {object} util.Response "提交窗口已关闭"
// @Router /api/workshops/{id}/submissions/{sid} [put]
func (c *SubmissionController) Update(ctx *gin.Context) {
	user := c.currentUser(ctx)
	if user == nil {
		return
	}
	w := c.loadWorkshop(ctx)
	if w == nil {
		return
	}
	sub := c.loadSubmission(ctx)
	if sub == nil {
		return
	}

	var req service.SubmissionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.Submissions.Update(w, sub, user, req); err != nil {
		switch {
		case errors.Is(err, util.ErrPermissionDenied):
			util.Forbidden(ctx)
		case errors.Is(err, util.ErrModifyingClosed):
			util.Error(ctx, 403, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, sub)
}

// Delete godoc
// @Summary 删除提交
// @Tags 提交
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "工作坊 ID"
// @Param   sid path int true "提交 ID"
// @Success 200 {object} util.Response
// @Router /api/workshops/{id}/submissions/{sid} [delete]
func (c *SubmissionController) Delete(ctx *gin.Context) {
	user := c.currentUser(ctx)
	if user == nil {
		return
	}
	w := c.loadWorkshop(ctx)
	if w == nil {
		return
	}
	sub := c.loadSubmission(ctx)
	if sub == nil {
		return
	}

	if err := c.Submissions.Delete(w, sub, user); err != nil {
		switch {
		case errors.Is(err, util.ErrPermissionDenied):
			util.Forbidden(ctx)
		case errors.Is(err, util.ErrModifyingClosed):
			util.Error(ctx, 403, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

type GradeOverrideRequest struct {
	GradeOver *float64 `json:"gradeOver"`
	Feedback  string   `json:"feedback"`
}

// OverrideGrade godoc
// @Summary 覆盖提交成绩
// @Description 教师覆盖值不改动聚合值，展示与成绩册优先采用覆盖值；传 null 撤销覆盖
// @Tags 提交
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "工作坊 ID"
// @Param   sid path int true "提交 ID"
// @Param   body body GradeOverrideRequest true "覆盖成绩"
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response
// @Router /api/workshops/{id}/submissions/{sid}/grade [put]
func (c *SubmissionController) OverrideGrade(ctx *gin.Context) {
	user := c.currentUser(ctx)
	if user == nil {
		return
	}
	if c.loadWorkshop(ctx) == nil {
		return
	}
	sub := c.loadSubmission(ctx)
	if sub == nil {
		return
	}

	var req GradeOverrideRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.Submissions.OverrideGrade(sub, user, req.GradeOver, req.Feedback); err != nil {
		if errors.Is(err, util.ErrPermissionDenied) {
			util.Forbidden(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

type PublishRequest struct {
	Published bool `json:"published"`
}

// Publish godoc
// @Summary 发布/撤回提交
// @Tags 提交
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "工作坊 ID"
// @Param   sid path int true "提交 ID"
// @Param   body body PublishRequest true "发布状态"
// @Success 200 {object} util.Response
// @Router /api/workshops/{id}/submissions/{sid}/publish [put]
func (c *SubmissionController) Publish(ctx *gin.Context) {
	user := c.currentUser(ctx)
	if user == nil {
		return
	}
	if c.loadWorkshop(ctx) == nil {
		return
	}
	sub := c.loadSubmission(ctx)
	if sub == nil {
		return
	}

	var req PublishRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.Submissions.Publish(sub, user, req.Published); err != nil {
		if errors.Is(err, util.ErrPermissionDenied) {
			util.Forbidden(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

// UploadAttachment godoc
// @Summary 上传附件
// @Tags 提交
// @Accept  multipart/form-data
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "工作坊 ID"
// @Param   sid path int true "提交 ID"
// @Param   file formData file true "附件文件"
// @Success 201 {object} util.Response{data=model.SubmissionAttachment}
// @Failure 400 {object} util.Response "文件缺失或超出大小限制"
// @Router /api/workshops/{id}/submissions/{sid}/attachments [post]
func (c *SubmissionController) UploadAttachment(ctx *gin.Context) {
	user := c.currentUser(ctx)
	if user == nil {
		return
	}
	w := c.loadWorkshop(ctx)
	if w == nil {
		return
	}
	sub := c.loadSubmission(ctx)
	if sub == nil {
		return
	}
	if sub.AuthorID != user.ID && !user.CanOverrideGrades() {
		util.Forbidden(ctx)
		return
	}

	header, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	if header.Size > maxAttachmentSize {
		util.BadRequest(ctx, "file too large")
		return
	}

	f, err := header.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer f.Close()

	att, err := c.Submissions.AttachFile(ctx.Request.Context(), w, sub,
		header.Filename, header.Header.Get("Content-Type"), header.Size, f)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, att)
}
