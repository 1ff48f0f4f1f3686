package main

import (
	"cwms/src/config"
	"cwms/src/db"
	"cwms/src/models"
	"cwms/src/services"
	"cwms/src/types"
	"cwms/src/utils"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// parseClock converts "HH:MM" to minutes from midnight.
func parseClock(value string) (*uint, error) {
	var h, m int
	if _, err := fmt.Sscanf(value, "%d:%d", &h, &m); err != nil {
		return nil, fmt.Errorf("invalid clock value %q", value)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 {
		return nil, fmt.Errorf("invalid clock value %q", value)
	}
	mins := uint(h*60 + m)
	return &mins, nil
}

func resourceHandlers(g *gin.RouterGroup, cfg *config.AppConfig) *gin.RouterGroup {
	g.
		GET("/resources", func(ctx *gin.Context) {
			db := db.GetDb()
			var resources []models.SpaceResource
			if err := db.
				Model(&models.SpaceResource{}).
				Where(&models.SpaceResource{Active: true}).
				Order("name asc").
				Find(&resources).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": resources, "count": len(resources)})
		}).
		GET("/resources/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			db := db.GetDb()
			var resource models.SpaceResource
			if err := db.Where(&models.SpaceResource{ID: params.ID}).First(&resource).Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": resource})
		}).
		GET("/resources/:id/availability", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var query struct {
				Start string `form:"start" binding:"required"`
				End   string `form:"end" binding:"required"`
			}
			if err := ctx.BindQuery(&query); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			start, err := utils.ParseTime(query.Start)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			end, err := utils.ParseTime(query.End)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			gdb := db.GetDb()
			var available bool
			err = gdb.Transaction(func(tx *gorm.DB) error {
				var resource models.SpaceResource
				if err := tx.Where(&models.SpaceResource{ID: params.ID}).First(&resource).Error; err != nil {
					return err
				}
				available, err = services.IsAvailable(tx, &resource, start, end, 0)
				return err
			})
			if err != nil {
				abortWithServiceError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"available": available})
		})
	return g
}

func resourceAdminHandlers(g *gin.RouterGroup, cfg *config.AppConfig) *gin.RouterGroup {
	g.
		POST("/resources", func(ctx *gin.Context) {
			var body types.CreateResourceRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			resource := models.SpaceResource{
				Name:             body.Name,
				Slug:             utils.MakeSlug(body.Name),
				Type:             body.Type,
				Capacity:         body.Capacity,
				MinDuration:      body.MinDuration,
				MaxDuration:      body.MaxDuration,
				BufferDuration:   body.BufferDuration,
				HourlyRate:       body.HourlyRate,
				DailyRate:        body.DailyRate,
				WeeklyRate:       body.WeeklyRate,
				MonthlyRate:      body.MonthlyRate,
				Currency:         body.Currency,
				Active:           true,
				RequiresApproval: body.RequiresApproval,
			}
			if resource.Currency == "" {
				resource.Currency = cfg.DefaultCurrency
			}
			if body.OpensAt != nil {
				opens, err := parseClock(*body.OpensAt)
				if err != nil {
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				resource.OpensAt = opens
			}
			if body.ClosesAt != nil {
				closes, err := parseClock(*body.ClosesAt)
				if err != nil {
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				resource.ClosesAt = closes
			}
			gdb := db.GetDb()
			if err := gdb.Transaction(func(tx *gorm.DB) error {
				return tx.Create(&resource).Error
			}); err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": resource})
		}).
		PUT("/resources/:id/deactivate", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			gdb := db.GetDb()
			if err := gdb.Transaction(func(tx *gorm.DB) error {
				return tx.
					Model(&models.SpaceResource{}).
					Where(&models.SpaceResource{ID: params.ID}).
					Update("active", false).
					Error
			}); err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		})
	return g
}
