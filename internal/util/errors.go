package util

import "errors"

var (
	ErrUserNotFound       = errors.New("用户不存在")
	ErrEmailRegistered    = errors.New("该邮箱已被注册")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrWorkshopNotFound   = errors.New("workshop not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrAssessmentNotFound = errors.New("assessment not found")

	// 阶段/截止时间守卫拒绝的操作
	ErrSubmissionClosed = errors.New("submissions are not being accepted at this time")
	ErrModifyingClosed  = errors.New("submission can no longer be edited")
	ErrAssessingClosed  = errors.New("assessments are not being accepted at this time")
	ErrAlreadySubmitted = errors.New("author already has a submission in this workshop")
	ErrInvalidPhaseCode = errors.New("unknown phase code")

	// 致命配置错误：插件名无对应实现、评分表未定义维度
	ErrStrategyNotFound  = errors.New("grading strategy not configured or unknown")
	ErrEvaluatorNotFound = errors.New("grading evaluation method not configured or unknown")
	ErrAllocatorNotFound = errors.New("allocation method unknown")
	ErrFormNotReady      = errors.New("assessment form has no dimensions defined")
	ErrMissingDimension  = errors.New("form data is missing a dimension grade")
)
