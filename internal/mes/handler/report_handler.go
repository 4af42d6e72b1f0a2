package handler

import (
	"bytes"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/loomworks/atelier/internal/mes/service"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ReportHandler 订单报表导出接口
type ReportHandler struct {
	svc      *service.ReportService
	archiver *service.ReportArchiver
	logger   *zap.Logger
}

func NewReportHandler(svc *service.ReportService, archiver *service.ReportArchiver, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{svc: svc, archiver: archiver, logger: logger}
}

// Generate POST /orders/report?format=pdf|xlsx
func (h *ReportHandler) Generate(c *gin.Context) {
	var filters service.ReportFilters
	if err := c.ShouldBindJSON(&filters); err != nil && err.Error() != "EOF" {
		BadRequest(c, err.Error())
		return
	}

	format := c.DefaultQuery("format", "pdf")
	if format != "pdf" && format != "xlsx" {
		BadRequest(c, "format must be pdf or xlsx")
		return
	}

	report, err := h.svc.Build(c.Request.Context(), filters)
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}

	var (
		data        []byte
		contentType string
	)
	switch format {
	case "pdf":
		data, err = h.svc.RenderPDF(report)
		contentType = "application/pdf"
	case "xlsx":
		var f *excelize.File
		f, err = h.svc.RenderExcel(report)
		if err == nil {
			var buf *bytes.Buffer
			buf, err = f.WriteToBuffer()
			if err == nil {
				data = buf.Bytes()
			}
		}
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	if err != nil {
		h.logger.Error("render report failed", zap.String("format", format), zap.Error(err))
		InternalError(c, "failed to generate report")
		return
	}

	if h.archiver != nil {
		h.archiver.Archive(c.Request.Context(), data, format, contentType)
	}

	filename := h.svc.Filename(format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	c.Data(200, contentType, data)
}
