package main

import (
	"cwms/src/lib"
	"cwms/src/services"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// abortWithServiceError maps the service error taxonomy onto HTTP statuses:
// validation 400, missing rows 404, state conflicts 409, unavailable slots
// 422, failed external dependencies 502.
func abortWithServiceError(ctx *gin.Context, err error) {
	var ve *services.ValidationError
	var sce *services.StateConflictError
	var rue *services.ResourceUnavailableError
	var ede *services.ExternalDependencyError
	switch {
	case errors.As(err, &ve):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": ve.Error()})
	case errors.Is(err, gorm.ErrRecordNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.As(err, &sce):
		ctx.JSON(http.StatusConflict, gin.H{"error": sce.Error()})
	case errors.As(err, &rue):
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": rue.Error()})
	case errors.As(err, &ede):
		log.Printf("External dependency failed: %s\n", ede.Error())
		ctx.JSON(http.StatusBadGateway, gin.H{"error": "upstream dependency failed"})
	default:
		log.Printf("Could not complete request: %s\n", err.Error())
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Error while processing request"})
	}
}

// publishEvents fans committed domain events out to the broker. Best effort:
// the request already succeeded, a broker outage only costs notifications.
func publishEvents(events []services.DomainEvent) {
	if len(events) == 0 {
		return
	}
	go func() {
		pub, err := lib.GetEventPublisher()
		if err != nil {
			log.Printf("[events] Publisher unavailable: %s\n", err.Error())
			return
		}
		services.PublishAll(pub, events)
	}()
}
