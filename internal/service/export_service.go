package service

import (
	"fmt"
	"unicode"

	"github.com/visitorlog/internal/db"
	"github.com/xuri/excelize/v2"
)

const (
	visitSheetName  = "방문 기록"
	missedSheetName = "퇴실 누락 기록"
)

var visitSheetHeaders = []string{
	"날짜", "업체명", "성명", "직급", "연락처", "방문장소",
	"방문목적", "입실시간", "퇴실시간", "담당자", "상태",
}

var missedSheetHeaders = []string{
	"날짜", "업체명", "성명", "직급", "방문장소", "입실시간",
	"처리일자", "처리사유",
}

// ExportService 将指定自然月的访问记录与强制关闭记录导出为 xlsx 工作簿。
type ExportService struct {
	visits *VisitService
}

// NewExportService 构造 ExportService
func NewExportService(visits *VisitService) *ExportService {
	return &ExportService{visits: visits}
}

// MonthlyWorkbook 生成指定月份的工作簿：第一个工作表为访问记录，
// 第二个为强制关闭的审计记录。
func (s *ExportService) MonthlyWorkbook(year, month int) (*excelize.File, error) {
	visits, err := s.visits.VisitsByMonth(year, month)
	if err != nil {
		return nil, err
	}

	missed, err := s.visits.MissedCheckoutsByMonth(year, month)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", visitSheetName); err != nil {
		return nil, fmt.Errorf("rename visit sheet: %w", err)
	}
	if _, err := f.NewSheet(missedSheetName); err != nil {
		return nil, fmt.Errorf("create missed sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"CCE5FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	bodyStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create body style: %w", err)
	}

	visitRows := make([][]interface{}, 0, len(visits))
	for _, v := range visits {
		checkOut := "-"
		status := "미퇴실"
		if v.CheckOutTime != nil {
			checkOut = *v.CheckOutTime
			status = "정상"
		}
		if v.Status == db.VisitStatusMissed {
			status = "미퇴실"
		}
		visitRows = append(visitRows, []interface{}{
			v.Date, v.Company, v.Name, v.Position, v.Contact, v.Location,
			v.Purpose, v.CheckInTime, checkOut, v.Manager, status,
		})
	}
	if err := writeSheet(f, visitSheetName, visitSheetHeaders, visitRows, headerStyle, bodyStyle); err != nil {
		return nil, err
	}

	missedRows := make([][]interface{}, 0, len(missed))
	for _, m := range missed {
		missedRows = append(missedRows, []interface{}{
			m.OriginalDate, m.Company, m.Name, m.Position, m.Location,
			m.CheckInTime, m.CheckoutDate, m.Reason,
		})
	}
	if err := writeSheet(f, missedSheetName, missedSheetHeaders, missedRows, headerStyle, bodyStyle); err != nil {
		return nil, err
	}

	return f, nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]interface{}, headerStyle, bodyStyle int) error {
	widths := make([]float64, len(headers))

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("header cell name: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("style header: %w", err)
		}
		widths[col] = displayWidth(header)
	}

	for i, row := range rows {
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return fmt.Errorf("cell name: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("write cell: %w", err)
			}
			if err := f.SetCellStyle(sheet, cell, cell, bodyStyle); err != nil {
				return fmt.Errorf("style cell: %w", err)
			}
			if w := displayWidth(fmt.Sprint(value)); w > widths[col] {
				widths[col] = w
			}
		}
	}

	for col := range headers {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return fmt.Errorf("column name: %w", err)
		}
		width := widths[col] + 2
		if width < 10 {
			width = 10
		}
		if err := f.SetColWidth(sheet, name, name, width); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}

	return nil
}

// displayWidth 估算单元格展示宽度，全角字符按 1.5 个英文字符计。
func displayWidth(value string) float64 {
	width := 0.0
	for _, r := range value {
		if unicode.Is(unicode.Hangul, r) || unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r) {
			width += 1.5
		} else {
			width++
		}
	}
	return width
}
