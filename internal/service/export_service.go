package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/exam-seat-api/internal/models"
	appErrors "github.com/noah-isme/exam-seat-api/pkg/errors"
	"github.com/noah-isme/exam-seat-api/pkg/export"
)

// Export formats supported by the seating chart endpoint.
const (
	FormatPDF = "pdf"
	FormatCSV = "csv"
)

type seatingLister interface {
	List(ctx context.Context, examID string) ([]models.SeatingArrangementDetail, error)
}

type examGetter interface {
	GetExam(ctx context.Context, examID string) (*models.ExamDetail, error)
}

// ExportFile is a rendered seating chart ready to stream to the client.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders seating charts as downloadable documents.
type ExportService struct {
	seating seatingLister
	exams   examGetter
	pdf     *export.PDFExporter
	csv     *export.CSVExporter
	logger  *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(seating seatingLister, exams examGetter, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		seating: seating,
		exams:   exams,
		pdf:     export.NewPDFExporter(),
		csv:     export.NewCSVExporter(),
		logger:  logger,
	}
}

var seatingHeaders = []string{"Roll Number", "Student", "Seat", "Classroom"}

// SeatingChart renders the exam's seating chart in the requested format.
// PDF output groups arrangements per classroom; CSV is a flat table.
func (s *ExportService) SeatingChart(ctx context.Context, examID, format string) (*ExportFile, error) {
	if format != FormatPDF && format != FormatCSV {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	exam, err := s.exams.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	arrangements, err := s.seating.List(ctx, examID)
	if err != nil {
		return nil, err
	}
	if len(arrangements) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no seating arrangements to export")
	}

	title := fmt.Sprintf("%s (%s) - %s", exam.Subject, exam.Code, exam.ExamDate.Format("2006-01-02"))
	filename := fmt.Sprintf("seating-%s-%s.%s", exam.Code, exam.ExamDate.Format("2006-01-02"), format)

	var (
		data        []byte
		contentType string
	)
	switch format {
	case FormatPDF:
		data, err = s.pdf.RenderSections(title, groupByClassroom(arrangements))
		contentType = "application/pdf"
	case FormatCSV:
		data, err = s.csv.Render(flatten(arrangements))
		contentType = "text/csv"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render seating chart")
	}

	s.logger.Info("seating chart exported",
		zap.String("exam_id", examID),
		zap.String("format", format),
		zap.Int("rows", len(arrangements)),
	)
	return &ExportFile{Filename: filename, ContentType: contentType, Data: data}, nil
}

// groupByClassroom preserves the listing order: arrangements arrive sorted
// by classroom then seat position.
func groupByClassroom(arrangements []models.SeatingArrangementDetail) []export.Section {
	var sections []export.Section
	var current *export.Section
	for _, a := range arrangements {
		if current == nil || current.Title != a.ClassroomName {
			sections = append(sections, export.Section{
				Title: a.ClassroomName,
				Data:  export.Dataset{Headers: seatingHeaders},
			})
			current = &sections[len(sections)-1]
		}
		current.Data.Rows = append(current.Data.Rows, row(a))
	}
	return sections
}

func flatten(arrangements []models.SeatingArrangementDetail) export.Dataset {
	data := export.Dataset{Headers: seatingHeaders}
	for _, a := range arrangements {
		data.Rows = append(data.Rows, row(a))
	}
	return data
}

func row(a models.SeatingArrangementDetail) map[string]string {
	return map[string]string{
		"Roll Number": a.StudentRollNumber,
		"Student":     a.StudentName,
		"Seat":        a.SeatNumber,
		"Classroom":   a.ClassroomName,
	}
}
