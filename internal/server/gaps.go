package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

type generateGapsRequest struct {
	BulkScheduleID snowflake.ID `json:"bulk_schedule_id"`
	PaymentDate    time.Time    `json:"payment_date"`
}

func (s *Server) GenerateGapsSchedule(c *gin.Context) {
	var req generateGapsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.PaymentDate.IsZero() {
		AbortWithError(c, newValidationError("payment_date", "invalid_payment_date", "invalid payment_date"))
		return
	}

	resp, err := s.gapsSvc.Generate(c.Request.Context(), tenantID(c), userID(c), req.BulkScheduleID, req.PaymentDate)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListGapsBatches(c *gin.Context) {
	resp, err := s.gapsSvc.List(c.Request.Context(), tenantID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetGapsBatch(c *gin.Context) {
	batchNumber := strings.TrimSpace(c.Param("batchNumber"))
	if batchNumber == "" {
		AbortWithError(c, newValidationError("batch_number", "invalid_batch_number", "invalid batch_number"))
		return
	}

	resp, err := s.gapsSvc.GetByBatchNumber(c.Request.Context(), tenantID(c), batchNumber)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ExportGapsWorkbook(c *gin.Context) {
	batchNumber := strings.TrimSpace(c.Param("batchNumber"))
	if batchNumber == "" {
		AbortWithError(c, newValidationError("batch_number", "invalid_batch_number", "invalid batch_number"))
		return
	}

	file, err := s.gapsSvc.ExportWorkbook(c.Request.Context(), tenantID(c), batchNumber)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.FileName))
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
