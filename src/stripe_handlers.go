package main

import (
	"cwms/src/config"
	"cwms/src/db"
	"cwms/src/lib"
	"cwms/src/models"
	"cwms/src/services"
	"cwms/src/types"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// paymentHandlers opens Stripe payment intents for bookings and invoices.
func paymentHandlers(g *gin.RouterGroup, cfg *config.AppConfig) *gin.RouterGroup {
	g.
		POST("/bookings/:id/payment-intent", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			gdb := db.GetDb()
			var booking models.Booking
			if err := gdb.Where(&models.Booking{ID: params.ID}).First(&booking).Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			if booking.PaymentStatus == types.PAYMENT_PAID {
				ctx.JSON(http.StatusConflict, gin.H{"error": "booking is already paid"})
				return
			}
			if booking.TotalPrice <= 0 {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "nothing to pay"})
				return
			}
			amount := int64(math.Round(booking.TotalPrice * 100))
			intent, err := lib.CreatePaymentIntent(amount, strings.ToLower(booking.Currency), map[string]string{
				"booking_id": fmt.Sprint(booking.ID),
			})
			if err != nil {
				abortWithServiceError(ctx, &services.ExternalDependencyError{Dependency: "stripe", Err: err})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"client_secret": intent.ClientSecret})
		}).
		POST("/invoices/:id/payment-intent", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			gdb := db.GetDb()
			var invoice models.Invoice
			if err := gdb.Where(&models.Invoice{ID: params.ID}).First(&invoice).Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			if !invoice.CanBePaid() {
				ctx.JSON(http.StatusConflict, gin.H{"error": "invoice is not payable"})
				return
			}
			amount := int64(math.Round(invoice.Total * 100))
			intent, err := lib.CreatePaymentIntent(amount, strings.ToLower(invoice.Currency), map[string]string{
				"invoice_id": fmt.Sprint(invoice.ID),
			})
			if err != nil {
				abortWithServiceError(ctx, &services.ExternalDependencyError{Dependency: "stripe", Err: err})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"client_secret": intent.ClientSecret})
		})
	return g
}

func stripeWebhookRoute(g *gin.Engine, cfg *config.AppConfig) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.POST("/webhook/stripe", func(ctx *gin.Context) {
		payload, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			log.Printf("Error reading request body: %s\n", err.Error())
			ctx.Status(http.StatusServiceUnavailable)
			return
		}
		whsecret := os.Getenv("STRIPE_WEBHOOK_SECRET")
		event, err := webhook.ConstructEvent(payload, ctx.GetHeader("Stripe-Signature"), whsecret)
		if err != nil {
			log.Printf("Error verifying webhook signature: %s\n", err.Error())
			ctx.Status(http.StatusBadRequest)
			return
		}
		log.Printf("[StripeEvent] %s\n", event.Type)
		switch event.Type {
		case "payment_intent.succeeded":
			var intent stripe.PaymentIntent
			if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
				log.Printf("[Stripe] Error parsing PaymentIntent: %s\n", err.Error())
				break
			}
			handlePaymentIntentSucceeded(&intent, cfg)
		default:
			log.Printf("[Stripe] Unhandled event type %s\n", event.Type)
		}
		ctx.Status(http.StatusOK)
	})
	return apiv1
}

func handlePaymentIntentSucceeded(intent *stripe.PaymentIntent, cfg *config.AppConfig) {
	gdb := db.GetDb()
	if id, ok := intent.Metadata["booking_id"]; ok {
		atoi, err := strconv.Atoi(id)
		if err != nil {
			log.Printf("Could not parse booking id from intent %s: %s\n", intent.ID, err.Error())
			return
		}
		if err := gdb.
			Model(&models.Booking{}).
			Where("id = ?", uint(atoi)).
			Update("payment_status", types.PAYMENT_PAID).
			Error; err != nil {
			log.Printf("Error settling booking [%d]: %s\n", atoi, err.Error())
		}
		return
	}
	if id, ok := intent.Metadata["invoice_id"]; ok {
		atoi, err := strconv.Atoi(id)
		if err != nil {
			log.Printf("Could not parse invoice id from intent %s: %s\n", intent.ID, err.Error())
			return
		}
		svc := services.NewInvoiceService(gdb, cfg)
		events, err := svc.MarkAsPaid(uint(atoi), intent.ID)
		if err != nil {
			log.Printf("Error settling invoice [%d]: %s\n", atoi, err.Error())
			return
		}
		publishEvents(events)
	}
}
