package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-seat-api/internal/dto"
	internalmiddleware "github.com/noah-isme/exam-seat-api/internal/middleware"
	"github.com/noah-isme/exam-seat-api/internal/models"
	"github.com/noah-isme/exam-seat-api/internal/service"
	appErrors "github.com/noah-isme/exam-seat-api/pkg/errors"
)

type seatingManagerMock struct {
	generateResp *dto.GenerateSeatingResponse
	generateErr  error
	reassignErr  error
	capturedExam string
	capturedReq  dto.GenerateSeatingRequest
}

func (m *seatingManagerMock) Generate(_ context.Context, examID string, req dto.GenerateSeatingRequest, _ string) (*dto.GenerateSeatingResponse, error) {
	m.capturedExam = examID
	m.capturedReq = req
	if m.generateErr != nil {
		return nil, m.generateErr
	}
	return m.generateResp, nil
}

func (m *seatingManagerMock) List(_ context.Context, _ string) ([]models.SeatingArrangementDetail, error) {
	return nil, nil
}

func (m *seatingManagerMock) Reassign(_ context.Context, _, _ string, _ dto.ReassignSeatRequest, _ string) (*models.SeatingArrangement, error) {
	if m.reassignErr != nil {
		return nil, m.reassignErr
	}
	return &models.SeatingArrangement{ID: "arr-1", SeatID: "seat-2"}, nil
}

func (m *seatingManagerMock) Clear(_ context.Context, _ string) error { return nil }

func (m *seatingManagerMock) Remove(_ context.Context, _, _ string) error { return nil }

func (m *seatingManagerMock) AvailableSeats(_ context.Context, _, _ string) ([]models.SeatDetail, error) {
	return nil, nil
}

type seatingExporterMock struct{}

func (m *seatingExporterMock) SeatingChart(_ context.Context, _, format string) (*service.ExportFile, error) {
	if format != service.FormatPDF && format != service.FormatCSV {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	return &service.ExportFile{Filename: "seating.csv", ContentType: "text/csv", Data: []byte("a,b\n")}, nil
}

func newSeatingRouter(h *SeatingHandler, claims *models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if claims != nil {
		r.Use(func(c *gin.Context) {
			c.Set(internalmiddleware.ContextUserKey, claims)
			c.Next()
		})
	}
	r.POST("/exam-entries/:examId/seating", h.Generate)
	r.PATCH("/exam-entries/:examId/seating/:arrangementId", h.Reassign)
	r.GET("/exam-entries/:examId/seating/export", h.Export)
	return r
}

func staffClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-1", Role: models.RoleStaff}
}

func TestSeatingHandlerGenerateSuccess(t *testing.T) {
	mockSvc := &seatingManagerMock{generateResp: &dto.GenerateSeatingResponse{Generated: 3, Strategy: "fallback"}}
	h := &SeatingHandler{service: mockSvc, exporter: &seatingExporterMock{}}
	router := newSeatingRouter(h, staffClaims())

	body := []byte(`{"classroomIds":["room-1"]}`)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/exam-entries/exam-1/seating", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, "exam-1", mockSvc.capturedExam)
	require.Equal(t, []string{"room-1"}, mockSvc.capturedReq.ClassroomIDs)
}

func TestSeatingHandlerGenerateMalformedBody(t *testing.T) {
	h := &SeatingHandler{service: &seatingManagerMock{}, exporter: &seatingExporterMock{}}
	router := newSeatingRouter(h, staffClaims())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/exam-entries/exam-1/seating", bytes.NewReader([]byte(`{"classroomIds":`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSeatingHandlerGenerateCapacityError(t *testing.T) {
	mockSvc := &seatingManagerMock{generateErr: appErrors.CapacityExceeded(4, 3)}
	h := &SeatingHandler{service: mockSvc, exporter: &seatingExporterMock{}}
	router := newSeatingRouter(h, staffClaims())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/exam-entries/exam-1/seating", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)

	var envelope struct {
		Error struct {
			Code    string                 `json:"code"`
			Details map[string]interface{} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, "CAPACITY_EXCEEDED", envelope.Error.Code)
	require.EqualValues(t, 4, envelope.Error.Details["required"])
	require.EqualValues(t, 3, envelope.Error.Details["available"])
}

func TestSeatingHandlerReassignConflict(t *testing.T) {
	mockSvc := &seatingManagerMock{reassignErr: appErrors.Clone(appErrors.ErrSeatOccupied, "")}
	h := &SeatingHandler{service: mockSvc, exporter: &seatingExporterMock{}}
	router := newSeatingRouter(h, staffClaims())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPatch, "/exam-entries/exam-1/seating/arr-1", bytes.NewReader([]byte(`{"seatId":"seat-2"}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, "SEAT_OCCUPIED", envelope.Error.Code)
}

func TestSeatingHandlerReassignSuccess(t *testing.T) {
	h := &SeatingHandler{service: &seatingManagerMock{}, exporter: &seatingExporterMock{}}
	router := newSeatingRouter(h, staffClaims())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPatch, "/exam-entries/exam-1/seating/arr-1", bytes.NewReader([]byte(`{"seatId":"seat-2"}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestSeatingHandlerExportCSV(t *testing.T) {
	h := &SeatingHandler{service: &seatingManagerMock{}, exporter: &seatingExporterMock{}}
	router := newSeatingRouter(h, staffClaims())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/exam-entries/exam-1/seating/export?format=csv", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	require.Contains(t, w.Header().Get("Content-Disposition"), "seating.csv")
}

func TestSeatingHandlerExportBadFormat(t *testing.T) {
	h := &SeatingHandler{service: &seatingManagerMock{}, exporter: &seatingExporterMock{}}
	router := newSeatingRouter(h, staffClaims())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/exam-entries/exam-1/seating/export?format=xlsx", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSeatingHandlerRBACForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &SeatingHandler{service: &seatingManagerMock{}, exporter: &seatingExporterMock{}}
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{UserID: "user-2", Role: models.RoleStaff})
		c.Next()
	})
	router.DELETE("/exam-entries/:examId/seating", internalmiddleware.RBAC(models.RoleAdmin), h.Clear)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodDelete, "/exam-entries/exam-1/seating", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
}
