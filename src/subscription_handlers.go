package main

import (
	"cwms/src/config"
	"cwms/src/db"
	"cwms/src/models"
	"cwms/src/services"
	"cwms/src/types"
	"net/http"

	"github.com/gin-gonic/gin"
)

func subscriptionHandlers(g *gin.RouterGroup, cfg *config.AppConfig) *gin.RouterGroup {
	g.
		GET("/subscriptions", func(ctx *gin.Context) {
			memberID := ctx.GetUint("member_id")
			if memberID == 0 {
				ctx.JSON(http.StatusForbidden, gin.H{"error": "membership required"})
				return
			}
			db := db.GetDb()
			var subs []models.Subscription
			if err := db.
				Model(&models.Subscription{}).
				Where(&models.Subscription{MemberID: memberID}).
				Preload("Plan").
				Order("created_at desc").
				Find(&subs).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": subs, "count": len(subs)})
		}).
		POST("/subscriptions", func(ctx *gin.Context) {
			memberID := ctx.GetUint("member_id")
			if memberID == 0 {
				ctx.JSON(http.StatusForbidden, gin.H{"error": "membership required"})
				return
			}
			var body types.CreateSubscriptionRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			svc := services.NewSubscriptionService(db.GetDb(), cfg)
			sub, events, err := svc.Create(memberID, body.PlanID, body.AutoRenew, ctx.GetString("email"))
			if err != nil {
				abortWithServiceError(ctx, err)
				return
			}
			publishEvents(events)
			ctx.JSON(http.StatusCreated, gin.H{"data": sub})
		}).
		PUT("/subscriptions/:id/activate", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.ActivateSubscriptionRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			svc := services.NewSubscriptionService(db.GetDb(), cfg)
			events, err := svc.Activate(params.ID, body.PaymentReference, ctx.GetString("email"))
			if err != nil {
				abortWithServiceError(ctx, err)
				return
			}
			publishEvents(events)
			ctx.Status(http.StatusNoContent)
		}).
		PUT("/subscriptions/:id/renew", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.ActivateSubscriptionRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			svc := services.NewSubscriptionService(db.GetDb(), cfg)
			events, err := svc.Renew(params.ID, body.PaymentReference, ctx.GetString("email"))
			if err != nil {
				abortWithServiceError(ctx, err)
				return
			}
			publishEvents(events)
			ctx.Status(http.StatusNoContent)
		}).
		PUT("/subscriptions/:id/cancel", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.CancelSubscriptionRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			svc := services.NewSubscriptionService(db.GetDb(), cfg)
			events, err := svc.Cancel(params.ID, body.Reason, ctx.GetString("email"))
			if err != nil {
				abortWithServiceError(ctx, err)
				return
			}
			publishEvents(events)
			ctx.Status(http.StatusNoContent)
		})
	return g
}

func subscriptionAdminHandlers(g *gin.RouterGroup, cfg *config.AppConfig) *gin.RouterGroup {
	g.
		PUT("/subscriptions/:id/suspend", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.CancelSubscriptionRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			svc := services.NewSubscriptionService(db.GetDb(), cfg)
			events, err := svc.Suspend(params.ID, body.Reason, ctx.GetString("email"))
			if err != nil {
				abortWithServiceError(ctx, err)
				return
			}
			publishEvents(events)
			ctx.Status(http.StatusNoContent)
		}).
		GET("/subscriptions/:id/history", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			var history []models.SubscriptionHistory
			if err := db.
				Model(&models.SubscriptionHistory{}).
				Where(&models.SubscriptionHistory{SubscriptionID: params.ID}).
				Order("created_at asc").
				Find(&history).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": history, "count": len(history)})
		})
	return g
}
