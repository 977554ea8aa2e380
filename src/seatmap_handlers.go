package main

import (
	"errors"
	"log"
	"net/http"
	"time"

	"taquilla/src/inventory"
	"taquilla/src/types"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

func seatmapHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/seatmap/:venueKey", func(ctx *gin.Context) {
			var params struct {
				VenueKey string `uri:"venueKey" binding:"required"`
			}
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Solicitud inválida", "error": err.Error()})
				return
			}
			doc, err := seatStore.GetConfig(params.VenueKey)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{
						"success": false,
						"message": "Plano no encontrado",
						"error":   err.Error(),
					})
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"message": "Error al consultar el plano",
					"error":   err.Error(),
				})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "Plano encontrado", "data": doc})
		}).
		POST("/seatmap/:venueKey/status", func(ctx *gin.Context) {
			var params struct {
				VenueKey string `uri:"venueKey" binding:"required"`
			}
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Solicitud inválida", "error": err.Error()})
				return
			}
			var body types.UpdateSeatsRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Solicitud inválida", "error": err.Error()})
				return
			}
			if err := seatStore.UpdateStatus(params.VenueKey, body.Updates); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{
						"success": false,
						"message": "Plano no encontrado",
						"error":   err.Error(),
					})
					return
				}
				if errors.Is(err, inventory.ErrConflict) {
					ctx.JSON(http.StatusConflict, gin.H{
						"success": false,
						"message": "El plano cambió durante la actualización",
						"error":   err.Error(),
					})
					return
				}
				log.Printf("Error updating seats for venue %s: %s\n", params.VenueKey, err.Error())
				ctx.JSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"message": "Error al actualizar los asientos",
					"error":   err.Error(),
				})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{
				"success": true,
				"message": "Asientos actualizados",
				"data":    gin.H{"updated": len(body.Updates)},
			})
		}).
		POST("/seatmap/:venueKey/validate", func(ctx *gin.Context) {
			var params struct {
				VenueKey string `uri:"venueKey" binding:"required"`
			}
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Solicitud inválida", "error": err.Error()})
				return
			}
			var body types.ValidateSeatsRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Solicitud inválida", "error": err.Error()})
				return
			}
			available, unavailable, err := seatStore.ValidateAvailability(params.VenueKey, body.Seats)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{
						"success": false,
						"message": "Plano no encontrado",
						"error":   err.Error(),
					})
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"message": "Error al validar los asientos",
					"error":   err.Error(),
				})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{
				"success": true,
				"message": "Asientos validados",
				"data": gin.H{
					"available":   available,
					"unavailable": unavailable,
					"allFree":     len(unavailable) == 0,
				},
			})
		}).
		POST("/seatmap/:venueKey/release", func(ctx *gin.Context) {
			var params struct {
				VenueKey string `uri:"venueKey" binding:"required"`
			}
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Solicitud inválida", "error": err.Error()})
				return
			}
			var body types.ReleaseSeatsRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Solicitud inválida", "error": err.Error()})
				return
			}
			if err := seatStore.Release(params.VenueKey, body.Seats); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{
						"success": false,
						"message": "Plano no encontrado",
						"error":   err.Error(),
					})
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"message": "Error al liberar los asientos",
					"error":   err.Error(),
				})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{
				"success": true,
				"message": "Asientos liberados",
				"data":    gin.H{"released": len(body.Seats)},
			})
		}).
		POST("/seatmap", func(ctx *gin.Context) {
			var body types.ImportLayoutRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Solicitud inválida", "error": err.Error()})
				return
			}
			venueKey := slug.Make(body.Venue.Name)
			doc := types.SeatDocument{
				Venue:        body.Venue,
				Ruedo:        body.Ruedo,
				CreatedSeats: body.CreatedSeats,
				ExportDate:   time.Now().Format(time.RFC3339),
			}
			if err := seatStore.Import(venueKey, doc); err != nil {
				log.Printf("Error importing layout for venue %s: %s\n", venueKey, err.Error())
				ctx.JSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"message": "Error al importar el plano",
					"error":   err.Error(),
				})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{
				"success": true,
				"message": "Plano importado",
				"data":    gin.H{"venueKey": venueKey, "seats": len(body.CreatedSeats)},
			})
		})
	return g
}
