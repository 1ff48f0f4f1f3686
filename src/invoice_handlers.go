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
	"gorm.io/gorm"
)

func invoiceHandlers(g *gin.RouterGroup, cfg *config.AppConfig) *gin.RouterGroup {
	g.
		GET("/invoices", func(ctx *gin.Context) {
			owner := utils.OwnerFromContext(ctx)
			db := db.GetDb()
			var invoices []models.Invoice
			if err := db.
				Model(&models.Invoice{}).
				Where(&models.Invoice{OwnerType: owner.Kind, OwnerID: owner.ID}).
				Order("created_at desc").
				Limit(100).
				Find(&invoices).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": invoices, "count": len(invoices)})
		}).
		GET("/invoices/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			owner := utils.OwnerFromContext(ctx)
			db := db.GetDb()
			var invoice models.Invoice
			if err := db.
				Where(&models.Invoice{ID: params.ID, OwnerType: owner.Kind, OwnerID: owner.ID}).
				Preload("Items").
				First(&invoice).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": invoice})
		})
	return g
}

func invoiceAdminHandlers(g *gin.RouterGroup, cfg *config.AppConfig) *gin.RouterGroup {
	g.
		POST("/invoices", func(ctx *gin.Context) {
			var body types.CreateInvoiceRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			svc := services.NewInvoiceService(db.GetDb(), cfg)
			invoice, err := svc.CreateDraft(body.Owner, body.Currency, body.TaxRate, body.DueInDay)
			if err != nil {
				abortWithServiceError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": invoice})
		}).
		POST("/invoices/:id/items", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.AddInvoiceItemRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			svc := services.NewInvoiceService(db.GetDb(), cfg)
			invoice, err := svc.AddItem(params.ID, &body, nil, nil)
			if err != nil {
				abortWithServiceError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": invoice})
		}).
		DELETE("/invoices/:id/items/:itemId", func(ctx *gin.Context) {
			var params struct {
				ID     uint `uri:"id" binding:"required"`
				ItemID uint `uri:"itemId" binding:"required"`
			}
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			svc := services.NewInvoiceService(db.GetDb(), cfg)
			invoice, err := svc.RemoveItem(params.ID, params.ItemID)
			if err != nil {
				abortWithServiceError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": invoice})
		}).
		PUT("/invoices/:id/finalize", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			svc := services.NewInvoiceService(db.GetDb(), cfg)
			invoice, events, err := svc.Finalize(params.ID)
			if err != nil {
				abortWithServiceError(ctx, err)
				return
			}
			publishEvents(events)
			if cfg.NotificationsEnabled && invoice.Number != nil {
				go notifyInvoiceOwner(invoice)
			}
			ctx.JSON(http.StatusOK, gin.H{"data": invoice})
		}).
		PUT("/invoices/:id/pay", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.MarkInvoicePaidRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			svc := services.NewInvoiceService(db.GetDb(), cfg)
			events, err := svc.MarkAsPaid(params.ID, body.PaymentReference)
			if err != nil {
				abortWithServiceError(ctx, err)
				return
			}
			publishEvents(events)
			ctx.Status(http.StatusNoContent)
		}).
		PUT("/invoices/:id/void", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.VoidInvoiceRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			svc := services.NewInvoiceService(db.GetDb(), cfg)
			events, err := svc.Void(params.ID, body.Reason)
			if err != nil {
				abortWithServiceError(ctx, err)
				return
			}
			publishEvents(events)
			ctx.Status(http.StatusNoContent)
		}).
		POST("/subscriptions/:id/invoice", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			svc := services.NewInvoiceService(db.GetDb(), cfg)
			invoice, events, err := svc.GenerateSubscriptionInvoice(params.ID)
			if err != nil {
				abortWithServiceError(ctx, err)
				return
			}
			publishEvents(events)
			if cfg.NotificationsEnabled && invoice.Number != nil {
				go notifyInvoiceOwner(invoice)
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": invoice})
		})
	return g
}

func notifyInvoiceOwner(invoice *models.Invoice) {
	gdb := db.GetDb()
	var email string
	err := gdb.Transaction(func(tx *gorm.DB) error {
		owner, err := services.ResolveOwner(tx, types.OwnerRef{Kind: invoice.OwnerType, ID: invoice.OwnerID})
		if err != nil {
			return err
		}
		email = owner.Email()
		return nil
	})
	if err != nil || email == "" {
		return
	}
	mailer.SendInvoice(email, *invoice.Number, invoice.Total, invoice.Currency)
}
