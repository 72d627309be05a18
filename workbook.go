package xlaction

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Workbook is an in-memory spreadsheet document. It is loaded once through
// excelize, mutated by actions, and flushed back to the same excelize file
// on Write so that styles and untouched workbook parts survive.
//
// A Workbook is owned by a single processing session and is not safe for
// concurrent use.
type Workbook struct {
	file   *excelize.File
	sheets []*Sheet

	extents    map[string]extent // sheet name → extent currently stored in file
	formulas   map[string]bool   // "Sheet!A1" → cell holds a formula in file
	recreate   map[string]bool   // sheets replaced in the model since load
	dateStyles map[int]int       // base style ID → style ID with date format
	dateFmts   map[int]bool      // style ID → style has a date number format
	date1904   bool
}

type extent struct {
	rows, cols int
}

// NewWorkbook creates a workbook from in-memory sheets.
func NewWorkbook(sheets ...*Sheet) *Workbook {
	wb := newWorkbook(excelize.NewFile())
	// excelize.NewFile always carries Sheet1; treat it as stored but empty.
	for _, name := range wb.file.GetSheetList() {
		wb.extents[name] = extent{}
	}
	for _, s := range sheets {
		wb.AddSheet(s)
	}
	return wb
}

// Open opens an xlsx/xlsm file and loads every sheet into memory.
func Open(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %q: %w", path, err)
	}
	return load(f)
}

// OpenReader loads a workbook from a reader.
func OpenReader(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook reader: %w", err)
	}
	return load(f)
}

// FromFile wraps an already opened excelize file.
func FromFile(f *excelize.File) (*Workbook, error) {
	return load(f)
}

func newWorkbook(f *excelize.File) *Workbook {
	return &Workbook{
		file:       f,
		extents:    make(map[string]extent),
		formulas:   make(map[string]bool),
		recreate:   make(map[string]bool),
		dateStyles: make(map[int]int),
		dateFmts:   make(map[int]bool),
	}
}

func load(f *excelize.File) (*Workbook, error) {
	wb := newWorkbook(f)
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		wb.date1904 = *props.Date1904
	}
	for _, name := range f.GetSheetList() {
		s, err := wb.readSheet(name)
		if err != nil {
			f.Close()
			return nil, err
		}
		wb.sheets = append(wb.sheets, s)
		wb.extents[name] = extent{rows: s.Rows(), cols: s.Cols()}
	}
	return wb, nil
}

// readSheet reads all cell data of one sheet into memory.
func (wb *Workbook) readSheet(name string) (*Sheet, error) {
	rows, err := wb.file.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read rows from sheet %q: %w", name, err)
	}
	s := NewSheet(name)
	for r, row := range rows {
		for c, raw := range row {
			ref := NewCellRef(name, r, c)
			s.SetCell(r, c, wb.readCell(ref, raw))
		}
	}
	return s, nil
}

func (wb *Workbook) readCell(ref CellRef, raw string) Cell {
	name := ref.CellName()
	var cell Cell

	if styleID, err := wb.file.GetCellStyle(ref.Sheet, name); err == nil {
		cell.StyleID = styleID
	}
	if formula, err := wb.file.GetCellFormula(ref.Sheet, name); err == nil && formula != "" {
		cell.Formula = formula
		wb.formulas[ref.String()] = true
	}
	if raw == "" {
		return cell
	}

	cellType, err := wb.file.GetCellType(ref.Sheet, name)
	if err != nil {
		cellType = excelize.CellTypeUnset
	}

	switch cellType {
	case excelize.CellTypeBool:
		cell.Type, cell.Value = CellBool, raw == "1" || strings.EqualFold(raw, "true")
	case excelize.CellTypeDate:
		if t, ok := parseISODate(raw); ok {
			cell.Type, cell.Value = CellDate, t
		} else {
			cell.Type, cell.Value = CellText, raw
		}
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			cell.Type, cell.Value = CellText, raw
			break
		}
		if wb.isDateStyle(cell.StyleID) {
			if t, err := excelize.ExcelDateToTime(v, wb.date1904); err == nil {
				cell.Type, cell.Value = CellDate, t
				break
			}
		}
		cell.Type, cell.Value = CellNumber, v
	default:
		cell.Type, cell.Value = CellText, raw
	}
	return cell
}

func parseISODate(raw string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// isDateStyle reports whether a style applies a date number format.
func (wb *Workbook) isDateStyle(styleID int) bool {
	if styleID == 0 {
		return false
	}
	if v, ok := wb.dateFmts[styleID]; ok {
		return v
	}
	isDate := false
	if style, err := wb.file.GetStyle(styleID); err == nil && style != nil {
		switch {
		case style.CustomNumFmt != nil:
			isDate = isDateNumFmt(*style.CustomNumFmt)
		default:
			isDate = isBuiltinDateNumFmt(style.NumFmt)
		}
	}
	wb.dateFmts[styleID] = isDate
	return isDate
}

func isBuiltinDateNumFmt(id int) bool {
	return (id >= 14 && id <= 22) || (id >= 27 && id <= 36) || (id >= 45 && id <= 47) || (id >= 50 && id <= 58)
}

// isDateNumFmt detects custom formats like "yyyy-mm-dd" or "dd/mm/yy",
// ignoring quoted literals and bracketed sections such as colors.
func isDateNumFmt(format string) bool {
	var b strings.Builder
	inQuote, inBracket := false, false
	for _, r := range strings.ToLower(format) {
		switch {
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
		default:
			b.WriteRune(r)
		}
	}
	clean := b.String()
	return strings.ContainsAny(clean, "yd")
}

// SheetNames returns the sheet names in workbook order.
func (wb *Workbook) SheetNames() []string {
	names := make([]string, len(wb.sheets))
	for i, s := range wb.sheets {
		names[i] = s.name
	}
	return names
}

// Sheets returns the sheets in workbook order.
func (wb *Workbook) Sheets() []*Sheet {
	return append([]*Sheet(nil), wb.sheets...)
}

// Sheet returns the named sheet, or the first sheet when name is empty.
func (wb *Workbook) Sheet(name string) (*Sheet, error) {
	if name == "" {
		if len(wb.sheets) == 0 {
			return nil, fmt.Errorf("%w: workbook has no sheets", ErrSheetNotFound)
		}
		return wb.sheets[0], nil
	}
	if i := wb.index(name); i >= 0 {
		return wb.sheets[i], nil
	}
	return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, name)
}

// HasSheet reports whether a sheet with the given name exists.
func (wb *Workbook) HasSheet(name string) bool {
	return wb.index(name) >= 0
}

func (wb *Workbook) index(name string) int {
	for i, s := range wb.sheets {
		if s.name == name {
			return i
		}
	}
	return -1
}

// AddSheet appends a sheet. A sheet with the same name is removed first,
// so the new sheet always lands at the end.
func (wb *Workbook) AddSheet(s *Sheet) {
	if i := wb.index(s.name); i >= 0 {
		wb.sheets = append(wb.sheets[:i], wb.sheets[i+1:]...)
		wb.recreate[s.name] = true
	}
	wb.sheets = append(wb.sheets, s)
}

// DeleteSheet removes a sheet from the model.
func (wb *Workbook) DeleteSheet(name string) error {
	i := wb.index(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrSheetNotFound, name)
	}
	wb.sheets = append(wb.sheets[:i], wb.sheets[i+1:]...)
	return nil
}

// Write flushes the model into the excelize file and writes it to w.
func (wb *Workbook) Write(w io.Writer) error {
	if err := wb.flush(); err != nil {
		return err
	}
	return wb.file.Write(w)
}

// SaveAs flushes the model and saves it to path.
func (wb *Workbook) SaveAs(path string) error {
	if err := wb.flush(); err != nil {
		return err
	}
	if err := wb.file.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %q: %w", path, err)
	}
	return nil
}

// Bytes flushes the model and returns the serialized workbook.
func (wb *Workbook) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := wb.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Close closes the underlying excelize file.
func (wb *Workbook) Close() error {
	return wb.file.Close()
}

// File returns the underlying excelize file for advanced operations.
// Changes made through it are overwritten by the next Write.
func (wb *Workbook) File() *excelize.File {
	return wb.file
}

// flush writes the in-memory model into the excelize file.
func (wb *Workbook) flush() error {
	if len(wb.sheets) == 0 {
		return fmt.Errorf("workbook has no sheets")
	}

	for name := range wb.recreate {
		if _, stored := wb.extents[name]; !stored || !wb.HasSheet(name) {
			continue
		}
		if len(wb.file.GetSheetList()) > 1 {
			if err := wb.file.DeleteSheet(name); err != nil {
				return fmt.Errorf("replace sheet %q: %w", name, err)
			}
			delete(wb.extents, name)
			wb.clearFormulas(name)
		}
	}
	wb.recreate = make(map[string]bool)

	for _, s := range wb.sheets {
		if _, stored := wb.extents[s.name]; stored {
			continue
		}
		if _, err := wb.file.NewSheet(s.name); err != nil {
			return fmt.Errorf("create sheet %q: %w", s.name, err)
		}
		wb.extents[s.name] = extent{}
	}

	for _, name := range wb.file.GetSheetList() {
		if wb.HasSheet(name) {
			continue
		}
		if err := wb.file.DeleteSheet(name); err != nil {
			return fmt.Errorf("delete sheet %q: %w", name, err)
		}
		delete(wb.extents, name)
		wb.clearFormulas(name)
	}

	for _, s := range wb.sheets {
		if err := wb.writeSheet(s); err != nil {
			return err
		}
	}
	if idx, err := wb.file.GetSheetIndex(wb.sheets[0].name); err == nil && idx >= 0 {
		wb.file.SetActiveSheet(idx)
	}
	return nil
}

func (wb *Workbook) clearFormulas(sheet string) {
	prefix := sheet + "!"
	for key := range wb.formulas {
		if strings.HasPrefix(key, prefix) {
			delete(wb.formulas, key)
		}
	}
}

// writeSheet writes every cell of the union of the stored and current
// extent, then removes stored rows past the current row count.
func (wb *Workbook) writeSheet(s *Sheet) error {
	old := wb.extents[s.name]
	cols := max(old.cols, s.Cols())

	for r := 0; r < s.Rows(); r++ {
		for c := 0; c < cols; c++ {
			ref := NewCellRef(s.name, r, c)
			cell := s.Cell(r, c)
			inOld := r < old.rows && c < old.cols
			if cell.IsBlank() && cell.Formula == "" && !inOld {
				continue
			}
			if err := wb.writeCell(ref, cell); err != nil {
				return err
			}
		}
	}

	for r := old.rows; r > s.Rows(); r-- {
		if err := wb.file.RemoveRow(s.name, r); err != nil {
			return fmt.Errorf("remove row %d of sheet %q: %w", r, s.name, err)
		}
	}
	wb.extents[s.name] = extent{rows: s.Rows(), cols: cols}
	return nil
}

func (wb *Workbook) writeCell(ref CellRef, cell Cell) error {
	sheet, name, key := ref.Sheet, ref.CellName(), ref.String()

	if wb.formulas[key] && cell.Formula == "" {
		if err := wb.file.SetCellFormula(sheet, name, ""); err != nil {
			return fmt.Errorf("clear formula %s: %w", key, err)
		}
		delete(wb.formulas, key)
	}

	var value any
	if !cell.IsBlank() {
		value = cell.Value
	}
	if err := wb.file.SetCellValue(sheet, name, value); err != nil {
		return fmt.Errorf("write cell %s: %w", key, err)
	}

	if cell.Formula != "" {
		if err := wb.file.SetCellFormula(sheet, name, cell.Formula); err != nil {
			return fmt.Errorf("write formula %s: %w", key, err)
		}
		wb.formulas[key] = true
	}

	styleID := cell.StyleID
	if cell.Type == CellDate && cell.Format == DateFormat {
		id, err := wb.dateStyle(cell.StyleID)
		if err != nil {
			return err
		}
		styleID = id
	}
	if styleID > 0 {
		if err := wb.file.SetCellStyle(sheet, name, name, styleID); err != nil {
			return fmt.Errorf("style cell %s: %w", key, err)
		}
	}
	return nil
}

// dateStyle returns a style derived from base that displays yyyy-mm-dd.
func (wb *Workbook) dateStyle(base int) (int, error) {
	if id, ok := wb.dateStyles[base]; ok {
		return id, nil
	}
	style := &excelize.Style{}
	if base > 0 {
		if existing, err := wb.file.GetStyle(base); err == nil && existing != nil {
			style = existing
		}
	}
	format := "yyyy-mm-dd"
	style.NumFmt = 0
	style.CustomNumFmt = &format
	id, err := wb.file.NewStyle(style)
	if err != nil {
		return 0, fmt.Errorf("create date style: %w", err)
	}
	wb.dateStyles[base] = id
	wb.dateFmts[id] = true
	return id, nil
}
