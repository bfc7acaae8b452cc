package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-seat-api/internal/dto"
	"github.com/noah-isme/exam-seat-api/internal/models"
	"github.com/noah-isme/exam-seat-api/internal/service"
	appErrors "github.com/noah-isme/exam-seat-api/pkg/errors"
	"github.com/noah-isme/exam-seat-api/pkg/response"
)

type seatingManager interface {
	Generate(ctx context.Context, examID string, req dto.GenerateSeatingRequest, userID string) (*dto.GenerateSeatingResponse, error)
	List(ctx context.Context, examID string) ([]models.SeatingArrangementDetail, error)
	Reassign(ctx context.Context, examID, arrangementID string, req dto.ReassignSeatRequest, userID string) (*models.SeatingArrangement, error)
	Clear(ctx context.Context, examID string) error
	Remove(ctx context.Context, examID, arrangementID string) error
	AvailableSeats(ctx context.Context, examID, currentSeatID string) ([]models.SeatDetail, error)
}

type seatingExporter interface {
	SeatingChart(ctx context.Context, examID, format string) (*service.ExportFile, error)
}

// SeatingHandler exposes seating arrangement endpoints.
type SeatingHandler struct {
	service  seatingManager
	exporter seatingExporter
}

// NewSeatingHandler creates a new handler.
func NewSeatingHandler(svc *service.SeatingService, exporter *service.ExportService) *SeatingHandler {
	return &SeatingHandler{service: svc, exporter: exporter}
}

// Generate godoc
// @Summary Generate a seating arrangement for an exam
// @Description Replaces any previous arrangement for the exam. An empty
// @Description classroom selection uses every cohort classroom.
// @Tags Seating
// @Accept json
// @Produce json
// @Param examId path string true "Exam entry ID"
// @Param payload body dto.GenerateSeatingRequest true "Generation payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exam-entries/{examId}/seating [post]
func (h *SeatingHandler) Generate(c *gin.Context) {
	var req dto.GenerateSeatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), c.Param("examId"), req, currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// List godoc
// @Summary List the exam's seating arrangements
// @Tags Seating
// @Produce json
// @Param examId path string true "Exam entry ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exam-entries/{examId}/seating [get]
func (h *SeatingHandler) List(c *gin.Context) {
	arrangements, err := h.service.List(c.Request.Context(), c.Param("examId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, arrangements, nil)
}

// Reassign godoc
// @Summary Move one student to another seat
// @Tags Seating
// @Accept json
// @Produce json
// @Param examId path string true "Exam entry ID"
// @Param arrangementId path string true "Arrangement ID"
// @Param payload body dto.ReassignSeatRequest true "Target seat"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exam-entries/{examId}/seating/{arrangementId} [patch]
func (h *SeatingHandler) Reassign(c *gin.Context) {
	var req dto.ReassignSeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reassign payload"))
		return
	}
	updated, err := h.service.Reassign(c.Request.Context(), c.Param("examId"), c.Param("arrangementId"), req, currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Clear godoc
// @Summary Remove every arrangement of the exam
// @Tags Seating
// @Param examId path string true "Exam entry ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /exam-entries/{examId}/seating [delete]
func (h *SeatingHandler) Clear(c *gin.Context) {
	if err := h.service.Clear(c.Request.Context(), c.Param("examId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Remove godoc
// @Summary Delete a single arrangement
// @Tags Seating
// @Param examId path string true "Exam entry ID"
// @Param arrangementId path string true "Arrangement ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /exam-entries/{examId}/seating/{arrangementId} [delete]
func (h *SeatingHandler) Remove(c *gin.Context) {
	if err := h.service.Remove(c.Request.Context(), c.Param("examId"), c.Param("arrangementId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AvailableSeats godoc
// @Summary List seats still available in this exam
// @Description currentSeatId keeps the caller's present seat in the result.
// @Tags Seating
// @Produce json
// @Param examId path string true "Exam entry ID"
// @Param currentSeatId query string false "Seat to keep in the result"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exam-entries/{examId}/seats [get]
func (h *SeatingHandler) AvailableSeats(c *gin.Context) {
	seats, err := h.service.AvailableSeats(c.Request.Context(), c.Param("examId"), c.Query("currentSeatId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, seats, nil)
}

// Export godoc
// @Summary Download the seating chart
// @Tags Seating
// @Produce application/pdf
// @Produce text/csv
// @Param examId path string true "Exam entry ID"
// @Param format query string false "pdf or csv" default(pdf)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exam-entries/{examId}/seating/export [get]
func (h *SeatingHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", service.FormatPDF)
	file, err := h.exporter.SeatingChart(c.Request.Context(), c.Param("examId"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
