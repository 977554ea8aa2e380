package main

import (
	"errors"
	"log"
	"net/http"

	"taquilla/src/sales"
	"taquilla/src/types"

	"github.com/gin-gonic/gin"
)

func paymentHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/process-payment", func(ctx *gin.Context) {
			var body types.ProcessPaymentRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{
					"success": false,
					"message": "Datos de pago inválidos",
					"error":   err.Error(),
				})
				return
			}
			status := types.MovementStatus(body.Status)
			err := orch.ProcessStatus(ctx.Copy(), body.MovementID, status)
			if err != nil {
				if sales.IsNotFound(err) {
					ctx.JSON(http.StatusNotFound, gin.H{
						"success": false,
						"message": "Movimiento no encontrado",
						"error":   err.Error(),
					})
					return
				}
				if errors.Is(err, sales.ErrTerminalStatus) {
					ctx.JSON(http.StatusConflict, gin.H{
						"success": false,
						"message": "El movimiento ya está en un estado final",
						"error":   err.Error(),
					})
					return
				}
				log.Printf("Error processing payment for movement %s: %s\n", body.MovementID, err.Error())
				ctx.JSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"message": "Error al procesar el pago",
					"error":   err.Error(),
				})
				return
			}
			message := "Pago registrado"
			if status == types.MOVEMENT_PAID {
				message = "Pago confirmado, boletos en proceso"
			}
			ctx.JSON(http.StatusOK, gin.H{
				"success": true,
				"message": message,
				"data":    gin.H{"movementId": body.MovementID, "status": status},
			})
		})
	return g
}
