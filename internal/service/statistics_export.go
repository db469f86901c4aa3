package service

import (
	"bytes"
	"fmt"

	"conjuntos-api/internal/domain"

	"github.com/xuri/excelize/v2"
)

// statisticsExportHeader is the column layout of the statistics workbook.
var statisticsExportHeader = []string{"Group", "Bucket", "Count", "Percentage"}

// BuildStatisticsWorkbook renders the statistics aggregation as an .xlsx
// file for the super-admin export endpoint.
func BuildStatisticsWorkbook(stats *ReportStatistics) ([]byte, error) {
	f := excelize.NewFile()
	// Don't defer Close() before WriteTo: WriteTo needs the file open.

	sheetName := "Report Statistics"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, h := range statisticsExportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	row := 2
	writeRow := func(group, bucketName string, stat BucketStat) {
		_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), group)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), bucketName)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), stat.Count)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), stat.Percentage)
		row++
	}

	writeRow("total", "all", BucketStat{Count: stats.Total, Percentage: percentTotal(stats.Total)})
	for _, st := range domain.ReportStatuses {
		writeRow("status", string(st), stats.ByStatus[st])
	}
	for _, cat := range domain.ReportCategories {
		writeRow("category", string(cat), stats.ByCategory[cat])
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func percentTotal(total int) float64 {
	if total == 0 {
		return 0
	}
	return 100
}
