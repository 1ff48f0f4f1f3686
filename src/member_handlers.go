package main

import (
	"cwms/src/config"
	"cwms/src/db"
	"cwms/src/models"
	"cwms/src/services"
	"cwms/src/types"
	"cwms/src/utils"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func authRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.
		POST("/register", func(ctx *gin.Context) {
			var body types.RegisterMemberRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			gdb := db.GetDb()
			user := models.User{Email: body.Email, Name: body.Name, Role: "guest"}
			if err := gdb.Transaction(func(tx *gorm.DB) error {
				return tx.Create(&user).Error
			}); err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			token, err := utils.GenerateToken(&user, 0)
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": user, "token": token})
		}).
		POST("/login", func(ctx *gin.Context) {
			var body types.LoginRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			gdb := db.GetDb()
			var user models.User
			if err := gdb.Where(&models.User{Email: body.Email}).First(&user).Error; err != nil {
				ctx.Status(http.StatusUnauthorized)
				return
			}
			var member models.Member
			memberID := uint(0)
			if err := gdb.Where(&models.Member{Email: body.Email}).First(&member).Error; err == nil {
				memberID = member.ID
			}
			token, err := utils.GenerateToken(&user, memberID)
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"token": token})
		})
	return apiv1
}

func planHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/plans", func(ctx *gin.Context) {
			db := db.GetDb()
			var plans []models.Plan
			if err := db.
				Model(&models.Plan{}).
				Where(&models.Plan{Active: true}).
				Order("price asc").
				Find(&plans).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": plans, "count": len(plans)})
		})
	return g
}

func memberHandlers(g *gin.RouterGroup, cfg *config.AppConfig) *gin.RouterGroup {
	g.
		GET("/members/me", func(ctx *gin.Context) {
			memberID := ctx.GetUint("member_id")
			if memberID == 0 {
				ctx.JSON(http.StatusForbidden, gin.H{"error": "membership required"})
				return
			}
			db := db.GetDb()
			var member models.Member
			if err := db.
				Where(&models.Member{ID: memberID}).
				Preload("Subscriptions", "status IN (?)", []types.SubscriptionStatus{
					types.SUBSCRIPTION_ACTIVE,
					types.SUBSCRIPTION_EXPIRING,
					types.SUBSCRIPTION_GRACE_PERIOD,
				}).
				First(&member).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": member})
		}).
		GET("/members/me/credits", func(ctx *gin.Context) {
			memberID := ctx.GetUint("member_id")
			if memberID == 0 {
				ctx.JSON(http.StatusForbidden, gin.H{"error": "membership required"})
				return
			}
			gdb := db.GetDb()
			ledger := services.NewCreditLedger()
			balances := gin.H{}
			err := gdb.Transaction(func(tx *gorm.DB) error {
				for _, rt := range []types.ResourceType{
					types.RESOURCE_MEETING_ROOM,
					types.RESOURCE_HOT_DESK,
					types.RESOURCE_PRIVATE_OFFICE,
				} {
					available, err := ledger.GetAvailable(tx, memberID, rt)
					if err != nil {
						return err
					}
					balances[string(rt)] = available
				}
				return nil
			})
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": balances})
		})
	return g
}

func memberAdminHandlers(g *gin.RouterGroup, cfg *config.AppConfig) *gin.RouterGroup {
	g.
		GET("/members", func(ctx *gin.Context) {
			db := db.GetDb()
			var members []models.Member
			if err := db.
				Model(&models.Member{}).
				Order("created_at desc").
				Limit(200).
				Find(&members).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": members, "count": len(members)})
		}).
		POST("/members/:id/credits", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body struct {
				ResourceType types.ResourceType `json:"resource_type" binding:"required,oneof=meeting_room hot_desk private_office"`
				Total        float64            `json:"total" binding:"required,gt=0"`
				PeriodStart  string             `json:"period_start" binding:"required"`
				PeriodEnd    string             `json:"period_end" binding:"required"`
			}
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			start, err := utils.ParseTime(body.PeriodStart)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			end, err := utils.ParseTime(body.PeriodEnd)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if !end.After(start) {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "period_end must be after period_start"})
				return
			}
			credit := models.BookingCredit{
				MemberID:     params.ID,
				ResourceType: body.ResourceType,
				PeriodStart:  start,
				PeriodEnd:    end,
				Total:        body.Total,
			}
			gdb := db.GetDb()
			if err := gdb.Transaction(func(tx *gorm.DB) error {
				var count int64
				if err := tx.Model(&models.Member{}).Where("id = ?", params.ID).Count(&count).Error; err != nil {
					return err
				}
				if count == 0 {
					return gorm.ErrRecordNotFound
				}
				return tx.Create(&credit).Error
			}); err != nil {
				abortWithServiceError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": credit})
		}).
		POST("/cohorts", func(ctx *gin.Context) {
			var body struct {
				Name      string `json:"name" binding:"required"`
				Capacity  uint   `json:"capacity,omitempty"`
				StartDate string `json:"start_date" binding:"required"`
				EndDate   string `json:"end_date" binding:"required"`
			}
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			start, err := utils.ParseTime(body.StartDate)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			end, err := utils.ParseTime(body.EndDate)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if !end.After(start) || !start.After(time.Now()) {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "cohort window must be in the future"})
				return
			}
			cohort := models.Cohort{
				Name:      body.Name,
				Slug:      utils.MakeSlug(body.Name),
				Capacity:  body.Capacity,
				StartDate: start,
				EndDate:   end,
			}
			gdb := db.GetDb()
			if err := gdb.Transaction(func(tx *gorm.DB) error {
				return tx.Create(&cohort).Error
			}); err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": cohort})
		})
	return g
}
