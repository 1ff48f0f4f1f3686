package main

import (
	"context"
	"cwms/src/config"
	"cwms/src/db"
	"cwms/src/lib"
	"cwms/src/lib/mailer"
	"cwms/src/models"
	"cwms/src/services"
	"cwms/src/types"
	"cwms/src/utils"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func bookingHandlers(g *gin.RouterGroup, cfg *config.AppConfig) *gin.RouterGroup {
	g.
		GET("/bookings", func(ctx *gin.Context) {
			owner := utils.OwnerFromContext(ctx)
			db := db.GetDb()
			var bookings []models.Booking
			if err := db.
				Model(&models.Booking{}).
				Where(&models.Booking{OwnerType: owner.Kind, OwnerID: owner.ID}).
				Preload("Resource").
				Order("start_time desc").
				Limit(100).
				Find(&bookings).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": bookings, "count": len(bookings)})
		}).
		GET("/bookings/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			owner := utils.OwnerFromContext(ctx)
			db := db.GetDb()
			var booking models.Booking
			if err := db.
				Model(&models.Booking{}).
				Where(&models.Booking{ID: params.ID, OwnerType: owner.Kind, OwnerID: owner.ID}).
				Preload("Resource").
				First(&booking).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": booking})
		}).
		POST("/bookings", func(ctx *gin.Context) {
			var body types.CreateBookingRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			start, err := utils.ParseTime(body.Start)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			end, err := utils.ParseTime(body.End)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			owner := utils.OwnerFromContext(ctx)
			svc := services.NewBookingService(db.GetDb(), cfg)
			booking, events, err := svc.CreateBooking(body.ResourceID, owner, start, end)
			if err != nil {
				abortWithServiceError(ctx, err)
				return
			}
			publishEvents(events)
			if cfg.NotificationsEnabled && booking.Status == types.BOOKING_CONFIRMED {
				var resource models.SpaceResource
				if err := db.GetDb().Where(&models.SpaceResource{ID: booking.ResourceID}).First(&resource).Error; err == nil {
					mailer.SendBookingConfirmation(ctx.GetString("email"), resource.Name, booking.TotalPrice, booking.Currency)
				}
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": booking})
		}).
		PUT("/bookings/:id/reschedule", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.RescheduleBookingRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			start, err := utils.ParseTime(body.Start)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			end, err := utils.ParseTime(body.End)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			svc := services.NewBookingService(db.GetDb(), cfg)
			booking, events, err := svc.RescheduleBooking(params.ID, start, end)
			if err != nil {
				abortWithServiceError(ctx, err)
				return
			}
			publishEvents(events)
			ctx.JSON(http.StatusOK, gin.H{"data": booking})
		}).
		PUT("/bookings/:id/cancel", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.CancelBookingRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			svc := services.NewBookingService(db.GetDb(), cfg)
			events, err := svc.CancelBooking(params.ID, body.Reason)
			if err != nil {
				abortWithServiceError(ctx, err)
				return
			}
			publishEvents(events)
			if cfg.NotificationsEnabled {
				var booking models.Booking
				if err := db.GetDb().Where(&models.Booking{ID: params.ID}).Preload("Resource").First(&booking).Error; err == nil {
					mailer.SendBookingCancellation(ctx.GetString("email"), booking.Resource.Name, body.Reason)
				}
			}
			ctx.Status(http.StatusNoContent)
		}).
		POST("/bookings/quote", func(ctx *gin.Context) {
			var body types.QuoteRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			start, err := utils.ParseTime(body.Start)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			end, err := utils.ParseTime(body.End)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			owner := utils.OwnerFromContext(ctx)

			cacheKey := fmt.Sprintf("quote:%d:%s:%d:%d:%d", body.ResourceID, owner.Kind, owner.ID, start.Unix(), end.Unix())
			var cached services.QuoteResult
			if lib.GetCachedQuote(ctx.Request.Context(), cacheKey, &cached) {
				ctx.JSON(http.StatusOK, gin.H{"data": cached, "cached": true})
				return
			}

			gdb := db.GetDb()
			var quote *services.QuoteResult
			err = gdb.Transaction(func(tx *gorm.DB) error {
				var resource models.SpaceResource
				if err := tx.Where(&models.SpaceResource{ID: body.ResourceID}).First(&resource).Error; err != nil {
					return err
				}
				resolved, err := services.ResolveOwner(tx, owner)
				if err != nil {
					return err
				}
				svc := services.NewBookingService(gdb, cfg)
				quote, err = svc.Pricer().GetQuote(tx, &resource, start, end, resolved.Member)
				return err
			})
			if err != nil {
				abortWithServiceError(ctx, err)
				return
			}
			lib.CacheQuote(context.Background(), cacheKey, quote, cfg.QuoteCacheTTL)
			ctx.JSON(http.StatusOK, gin.H{"data": quote})
		})
	return g
}

func bookingAdminHandlers(g *gin.RouterGroup, cfg *config.AppConfig) *gin.RouterGroup {
	g.
		GET("/bookings", func(ctx *gin.Context) {
			db := db.GetDb()
			var bookings []models.Booking
			if err := db.
				Model(&models.Booking{}).
				Preload("Resource").
				Order("created_at desc").
				Limit(200).
				Find(&bookings).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": bookings, "count": len(bookings)})
		}).
		PUT("/bookings/:id/confirm", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			svc := services.NewBookingService(db.GetDb(), cfg)
			events, err := svc.ConfirmBooking(params.ID)
			if err != nil {
				abortWithServiceError(ctx, err)
				return
			}
			publishEvents(events)
			ctx.Status(http.StatusNoContent)
		})
	return g
}
