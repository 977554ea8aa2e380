package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"taquilla/src/lib"
	"taquilla/src/sales"
	"taquilla/src/types"
	"taquilla/src/utils"

	"github.com/gin-gonic/gin"
)

func fulfillmentHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/generate", func(ctx *gin.Context) {
			var body types.GenerateRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{
					"success": false,
					"message": "Solicitud inválida",
					"error":   err.Error(),
				})
				return
			}
			movement, err := salesStore.GetMovement(body.MovementID)
			if err != nil {
				if sales.IsNotFound(err) {
					ctx.JSON(http.StatusNotFound, gin.H{
						"success": false,
						"message": "Movimiento no encontrado",
						"error":   err.Error(),
					})
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"message": "Error al consultar el movimiento",
					"error":   err.Error(),
				})
				return
			}
			if movement.Status != types.MOVEMENT_PAID {
				ctx.JSON(http.StatusConflict, gin.H{
					"success": false,
					"message": "El movimiento no está pagado",
					"error":   fmt.Sprintf("movement %s has status %s", movement.ID, movement.Status),
				})
				return
			}
			// Manual resends run in-request so the operator sees the
			// failure immediately instead of digging through job logs.
			if err := orch.Fulfill(ctx.Copy(), body.MovementID); err != nil {
				log.Printf("Error generating tickets for movement %s: %s\n", body.MovementID, err.Error())
				ctx.JSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"message": "Error al generar los boletos",
					"error":   err.Error(),
				})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{
				"success": true,
				"message": "Boletos generados y enviados",
				"data":    gin.H{"movementId": body.MovementID},
			})
		}).
		POST("/generate-codes", func(ctx *gin.Context) {
			var body types.GenerateCodesRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{
					"success": false,
					"message": "Solicitud inválida",
					"error":   err.Error(),
				})
				return
			}
			qr, barcode, err := orch.GenerateCodes(body.TicketID, body.MovementID)
			if err != nil {
				if sales.IsNotFound(err) {
					ctx.JSON(http.StatusNotFound, gin.H{
						"success": false,
						"message": "Boleto no encontrado",
						"error":   err.Error(),
					})
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"message": "Error al generar los códigos",
					"error":   err.Error(),
				})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{
				"success": true,
				"qrCode":  qr,
				"barCode": barcode,
			})
		}).
		GET("/movement/:movementId", func(ctx *gin.Context) {
			var params struct {
				MovementID string `uri:"movementId" binding:"required"`
			}
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Solicitud inválida", "error": err.Error()})
				return
			}
			movement, err := salesStore.GetMovement(params.MovementID)
			if err != nil {
				if sales.IsNotFound(err) {
					ctx.JSON(http.StatusNotFound, gin.H{
						"success": false,
						"message": "Movimiento no encontrado",
						"error":   err.Error(),
					})
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"message": "Error al consultar el movimiento",
					"error":   err.Error(),
				})
				return
			}
			tickets, err := salesStore.GetTicketsForMovement(params.MovementID)
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"message": "Error al consultar los boletos",
					"error":   err.Error(),
				})
				return
			}
			artifactURL := ""
			rd := lib.GetRedisClient()
			if rd != nil {
				artifactURL, _ = rd.Get(context.Background(), fmt.Sprintf("artifact:%s", params.MovementID)).Result()
			}
			if artifactURL == "" && movement.Status == types.MOVEMENT_PAID {
				artifactURL, _ = artifacts.LatestURL(context.Background(), params.MovementID)
			}
			ctx.JSON(http.StatusOK, gin.H{
				"success": true,
				"message": "Movimiento encontrado",
				"data": gin.H{
					"movement":    movement,
					"tickets":     tickets,
					"documentUrl": artifactURL,
				},
			})
		}).
		GET("/validate/:ticketId", func(ctx *gin.Context) {
			var params struct {
				TicketID string `uri:"ticketId" binding:"required"`
			}
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Solicitud inválida", "error": err.Error()})
				return
			}
			ticket, err := salesStore.GetTicket(params.TicketID)
			if err != nil {
				if sales.IsNotFound(err) {
					ctx.JSON(http.StatusNotFound, gin.H{
						"success": false,
						"message": "Boleto no encontrado",
						"error":   err.Error(),
					})
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"message": "Error al validar el boleto",
					"error":   err.Error(),
				})
				return
			}
			valid := false
			movement, err := salesStore.GetMovementForTicket(params.TicketID)
			if err == nil && movement.Status == types.MOVEMENT_PAID {
				valid = true
			}
			fila := ""
			if ticket.Row != nil {
				fila = *ticket.Row
			}
			ctx.JSON(http.StatusOK, gin.H{
				"ticketId": ticket.ID,
				"zona":     ticket.Zone,
				"fila":     fila,
				"asiento":  ticket.SeatNumber,
				"valid":    valid,
			})
		}).
		GET("/download/:token", func(ctx *gin.Context) {
			var params struct {
				Token string `uri:"token" binding:"required"`
			}
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			movementId, err := utils.ParseDownloadToken(params.Token)
			if err != nil {
				log.Printf("Rejecting download token: %s\n", err.Error())
				ctx.Status(http.StatusUnauthorized)
				return
			}
			url, err := artifacts.LatestURL(context.Background(), movementId)
			if err != nil || url == "" {
				log.Printf("No artifact found for movement %s\n", movementId)
				ctx.Status(http.StatusNotFound)
				return
			}
			ctx.Redirect(http.StatusFound, url)
		})
	return g
}

func jobHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/jobs/:movementId", func(ctx *gin.Context) {
			var params struct {
				MovementID string `uri:"movementId" binding:"required"`
			}
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Solicitud inválida", "error": err.Error()})
				return
			}
			jobs, err := orch.Jobs(params.MovementID)
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"message": "Error al consultar los trabajos",
					"error":   err.Error(),
				})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{
				"success": true,
				"message": "Trabajos encontrados",
				"data":    jobs,
			})
		})
	return g
}
