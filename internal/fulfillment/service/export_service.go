package service

import (
	"context"
	"fmt"
	"time"

	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/repository"
	"github.com/xuri/excelize/v2"
)

var taskExportHeaders = []string{"任务ID", "产品", "阶段", "执行时间", "状态", "优先级", "数量", "来源", "备注"}

// ExportTaskSheet 导出生产任务清单（车间打印用）
func (s *TaskService) ExportTaskSheet(ctx context.Context, params repository.TaskListParams) (*excelize.File, string, error) {
	tasks, err := s.taskRepo.List(ctx, params)
	if err != nil {
		return nil, "", fmt.Errorf("list tasks: %w", err)
	}

	f := excelize.NewFile()
	sheet := "Tasks"
	f.SetSheetName("Sheet1", sheet)

	// 表头样式: 加粗
	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#E2EFDA"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	for i, h := range taskExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	for rowIdx, task := range tasks {
		row := rowIdx + 2
		origin, _ := task.Origin()
		values := []interface{}{
			task.ID,
			task.ProductID,
			string(task.StageType),
			task.RunAt.Format("2006-01-02 15:04"),
			string(task.Status),
			string(task.Priority),
			task.Quantity,
			fmt.Sprintf("%s:%s", origin.Kind, origin.ID),
			task.Notes,
		}
		for colIdx, v := range values {
			col, _ := excelize.ColumnNumberToName(colIdx + 1)
			f.SetCellValue(sheet, fmt.Sprintf("%s%d", col, row), v)
		}
	}

	filename := fmt.Sprintf("tasks-%s.xlsx", time.Now().Format("20060102-150405"))
	return f, filename, nil
}
