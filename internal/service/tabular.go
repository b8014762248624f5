package service

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// 支持的导入文件扩展名
const (
	ExtCSV  = ".csv"
	ExtXLSX = ".xlsx"
)

var errUnsupportedFormat = errors.New("仅支持 .csv 与 .xlsx 文件")

// table 导入文件解析结果：表头与数据行
type table struct {
	header []string
	rows   []tableRow
}

// tableRow 数据行，line 为文件中的行号（表头为第 1 行）
type tableRow struct {
	line  int
	cells []string
}

// cell 按列索引取值，越界或列不存在时返回空串
func (r tableRow) cell(idx int) string {
	if idx < 0 || idx >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[idx])
}

func (r tableRow) blank() bool {
	for _, c := range r.cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// readTable 按扩展名解析 CSV 或 XLSX（取第一个工作表），跳过全空行
func readTable(filename string, r io.Reader) (*table, error) {
	var records [][]string
	var err error

	switch strings.ToLower(filepath.Ext(filename)) {
	case ExtCSV:
		records, err = readCSV(r)
	case ExtXLSX:
		records, err = readXLSX(r)
	default:
		return nil, errUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &table{}, nil
	}

	t := &table{header: records[0]}
	if len(t.header) > 0 {
		t.header[0] = strings.TrimPrefix(t.header[0], "\ufeff")
	}
	for i, rec := range records[1:] {
		row := tableRow{line: i + 2, cells: rec}
		if row.blank() {
			continue
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("读取文件失败: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("无法解析CSV文件: %w", err)
	}
	return records, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("无法解析Excel文件: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %w", err)
	}
	return rows, nil
}

// columnIndex 解析表头，返回字段名 → 列索引，未出现的字段为 -1
// aliases 中的别名不区分大小写，忽略首尾空白
func columnIndex(header []string, aliases map[string][]string) map[string]int {
	idx := make(map[string]int, len(aliases))
	lookup := make(map[string]string)
	for field, names := range aliases {
		idx[field] = -1
		for _, n := range names {
			lookup[strings.ToLower(n)] = field
		}
	}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if field, ok := lookup[key]; ok && idx[field] < 0 {
			idx[field] = i
		}
	}
	return idx
}
