package main

import (
	"cwms/src/config"
	"cwms/src/db"
	"cwms/src/lib/mailer"
	"cwms/src/models"
	"cwms/src/services"
	"cwms/src/types"
	"cwms/src/utils"
	"net/http"

	"github.com/gin-gonic/gin"
)

// applicationPublicHandlers covers the unauthenticated intake surface.
func applicationPublicHandlers(g *gin.RouterGroup, cfg *config.AppConfig) *gin.RouterGroup {
	g.
		GET("/cohorts", func(ctx *gin.Context) {
			db := db.GetDb()
			var cohorts []models.Cohort
			if err := db.
				Model(&models.Cohort{}).
				Order("start_date desc").
				Find(&cohorts).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": cohorts, "count": len(cohorts)})
		}).
		POST("/applications", func(ctx *gin.Context) {
			var body types.CreateApplicationRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			pipeline := services.NewApplicationPipeline(db.GetDb(), cfg)
			app, events, err := pipeline.Submit(&body)
			if err != nil {
				abortWithServiceError(ctx, err)
				return
			}
			publishEvents(events)
			ctx.JSON(http.StatusCreated, gin.H{"data": app})
		})
	return g
}

func applicationAdminHandlers(g *gin.RouterGroup, cfg *config.AppConfig) *gin.RouterGroup {
	g.
		GET("/applications", func(ctx *gin.Context) {
			var query struct {
				Status *types.ApplicationStatus `form:"status"`
				Cohort *uint                    `form:"cohort"`
			}
			if err := ctx.BindQuery(&query); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			q := db.Model(&models.Application{})
			if query.Status != nil {
				q = q.Where("status = ?", *query.Status)
			}
			if query.Cohort != nil {
				q = q.Where("cohort_id = ?", *query.Cohort)
			}
			var apps []models.Application
			if err := q.Order("created_at desc").Limit(200).Find(&apps).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": apps, "count": len(apps)})
		}).
		GET("/applications/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			db := db.GetDb()
			var app models.Application
			if err := db.
				Where(&models.Application{ID: params.ID}).
				Preload("History").
				First(&app).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": app})
		}).
		PUT("/applications/:id/transition", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.TransitionApplicationRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			pipeline := services.NewApplicationPipeline(db.GetDb(), cfg)
			if body.Status == types.APPLICATION_ACCEPTED {
				member, events, err := pipeline.Accept(params.ID, body.Reason, ctx.GetString("email"))
				if err != nil {
					abortWithServiceError(ctx, err)
					return
				}
				publishEvents(events)
				if cfg.NotificationsEnabled {
					mailer.SendApplicationDecision(member.Email, member.Name, true, body.Reason)
				}
				ctx.JSON(http.StatusOK, gin.H{"data": gin.H{"member_id": member.ID}})
				return
			}
			events, err := pipeline.Transition(params.ID, body.Status, body.Reason, ctx.GetString("email"), nil)
			if err != nil {
				abortWithServiceError(ctx, err)
				return
			}
			publishEvents(events)
			if body.Status == types.APPLICATION_REJECTED && cfg.NotificationsEnabled {
				db := db.GetDb()
				var app models.Application
				if err := db.Where(&models.Application{ID: params.ID}).First(&app).Error; err == nil {
					mailer.SendApplicationDecision(app.ContactEmail, app.StartupName, false, body.Reason)
				}
			}
			ctx.Status(http.StatusNoContent)
		}).
		PUT("/applications/:id/interview", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.ScheduleInterviewRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			at, err := utils.ParseTime(body.At)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			pipeline := services.NewApplicationPipeline(db.GetDb(), cfg)
			events, err := pipeline.ScheduleInterview(params.ID, at, body.Location, ctx.GetString("email"))
			if err != nil {
				abortWithServiceError(ctx, err)
				return
			}
			publishEvents(events)
			ctx.Status(http.StatusNoContent)
		}).
		PUT("/applications/:id/scores", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.ScoreApplicationRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			pipeline := services.NewApplicationPipeline(db.GetDb(), cfg)
			app, err := pipeline.RecordScores(params.ID, body.Scores, ctx.GetString("email"))
			if err != nil {
				abortWithServiceError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": app})
		})
	return g
}
