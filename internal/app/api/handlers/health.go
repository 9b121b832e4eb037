package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const serviceName = "lifecycle-orchestrator"

type HealthzResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// @Summary      Liveness check
// @Description  Returns service status. Does not touch the database.
// @Tags         System
// @Produce      json
// @Success      200  {object}  handlers.HealthzResponse
// @Router       /healthz [get]
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, HealthzResponse{Status: "healthy", Service: serviceName})
}

func RegisterHealthRoutes(r gin.IRouter) {
	r.GET("/healthz", Healthz)
}
