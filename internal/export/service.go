package export

import (
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/schemedesk/district-kb/internal/entity"
)

var headers = []string{
	"Sector", "Sub-Category", "Action", "Current Status",
	"Achievement %", "Data Source", "Remarks", "Version Date", "Source Document",
}

// Service renders a district's latest knowledge as a spreadsheet.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// Workbook builds an XLSX with one row per action point across the given
// latest extraction rows. Records that fail to decode become a single row
// noting the decode failure rather than silently vanishing.
func (s *Service) Workbook(districtName string, rows []*entity.Extraction) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Knowledge"
	f.SetSheetName(f.GetSheetName(0), sheet)

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	rowNum := 2
	writeRow := func(values []any) error {
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, rowNum)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
		rowNum++
		return nil
	}

	for _, row := range rows {
		rec, err := row.Record()
		if err != nil {
			s.logger.Warn("export.decode_failed",
				"sector", row.SectorName, "sub_category", row.SubCategory, "error", err)
			if err := writeRow([]any{row.SectorName, row.SubCategory,
				"(unreadable record)", "", "", "", "", row.VersionDate, row.FileName}); err != nil {
				return nil, err
			}
			continue
		}
		for _, ap := range rec.ActionPoints {
			values := []any{
				row.SectorName, row.SubCategory, ap.ActionName,
				strOrEmpty(ap.CurrentStatus), pctOrEmpty(ap.AchievementPercentage),
				strOrEmpty(ap.DataSource), strOrEmpty(ap.Remarks),
				row.VersionDate, row.FileName,
			}
			if err := writeRow(values); err != nil {
				return nil, err
			}
		}
		for k, v := range rec.AdditionalDetails {
			values := []any{
				row.SectorName, row.SubCategory, k,
				fmt.Sprintf("%v", v), "", "", "", row.VersionDate, row.FileName,
			}
			if err := writeRow(values); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.workbook_built", "district", districtName, "rows", rowNum-2)
	return buf.Bytes(), nil
}

func strOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func pctOrEmpty(p *float64) any {
	if p == nil {
		return ""
	}
	return *p
}
