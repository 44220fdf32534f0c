package app

import (
	"workshopplus_backend/docs"
	"workshopplus_backend/internal/config"
	"workshopplus_backend/internal/middleware"
	"workshopplus_backend/internal/model"
	"workshopplus_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		authGroup.GET("/me", c.auth.Me)
		authGroup.PUT("/profile", c.user.UpdateProfile)
		authGroup.PUT("/profile/password", c.user.ChangePassword)

		workshops := authGroup.Group("/workshops")
		{
			workshops.GET("", c.workshop.List)
			workshops.GET("/:id", c.workshop.Get)

			// 提交
			workshops.POST("/:id/submissions", c.submission.Create)
			workshops.GET("/:id/submissions", c.submission.List)
			workshops.GET("/:id/submissions/:sid", c.submission.Get)
			workshops.PUT("/:id/submissions/:sid", c.submission.Update)
			workshops.DELETE("/:id/submissions/:sid", c.submission.Delete)
			workshops.POST("/:id/submissions/:sid/attachments", c.submission.UploadAttachment)

			// 范例
			workshops.GET("/:id/examples", c.submission.ListExamples)
			workshops.POST("/:id/examples/assess", c.assessment.AssessExample)

			// 评审
			workshops.GET("/:id/form", c.assessment.Form)
			workshops.GET("/:id/assessments/mine", c.assessment.ListMine)
			workshops.PUT("/:id/assessments/:aid", c.assessment.Save)
		}

		// 教师专属接口
		teacher := authGroup.Group("/workshops")
		teacher.Use(middleware.RoleMiddleware(model.Teacher))
		{
			teacher.POST("", c.workshop.Create)
			teacher.PUT("/:id", c.workshop.Update)
			teacher.DELETE("/:id", c.workshop.Delete)
			teacher.PUT("/:id/phase", c.workshop.SwitchPhase)
			teacher.GET("/:id/report", c.workshop.GradesReport)
			teacher.POST("/:id/recalculate", c.workshop.Recalculate)
			teacher.POST("/:id/assessments/clear", c.workshop.ClearAssessments)
			teacher.POST("/:id/evaluate", c.workshop.RunEvaluation)
			teacher.GET("/:id/gradebook", c.workshop.GradebookItems)

			teacher.POST("/:id/examples", c.submission.CreateExample)
			teacher.PUT("/:id/submissions/:sid/grade", c.submission.OverrideGrade)
			teacher.PUT("/:id/submissions/:sid/publish", c.submission.Publish)

			teacher.PUT("/:id/assessments/:aid/weight", c.assessment.SetWeight)
			teacher.PUT("/:id/assessments/:aid/grading-grade", c.assessment.OverrideGradingGrade)

			teacher.POST("/:id/allocations", c.assessment.AddAllocation)
			teacher.POST("/:id/allocations/execute", c.assessment.ExecuteAllocation)

			// 评分表配置
			teacher.POST("/:id/strategy/accumulative/dimensions", c.strategy.AddAccumulativeDimension)
			teacher.POST("/:id/strategy/numerrors/dimensions", c.strategy.AddNumErrorsDimension)
			teacher.PUT("/:id/strategy/numerrors/mappings", c.strategy.SaveNumErrorsMapping)
			teacher.POST("/:id/strategy/rubric/criteria", c.strategy.AddRubricCriterion)
			teacher.POST("/:id/strategy/comments/dimensions", c.strategy.AddCommentsDimension)
			teacher.PUT("/:id/evaluation/best", c.strategy.SaveBestSettings)
		}
	}
}
