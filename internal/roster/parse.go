package roster

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Spok95/attendance-tracker/internal/apperr"
)

// Entry — строка ввода: номер и имя студента.
type Entry struct {
	RollNumber string
	Name       string
	Line       int // номер строки в исходном вводе, с 1
}

var tokenSep = regexp.MustCompile(`[\s,]+`)

// ParseManual разбирает вставленный текст «номер имя» построчно.
// Разделители — пробелы и запятые; пустые строки пропускаются.
// Строка меньше чем из двух токенов отклоняет весь ввод.
func ParseManual(text string) ([]Entry, error) {
	var out []Entry
	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		parts := tokenSep.Split(line, -1)
		if len(parts) < 2 {
			return nil, apperr.Validation(fmt.Sprintf("line %d", i+1),
				"%q is not in the correct format (RollNumber Name)", line)
		}
		out = append(out, Entry{
			RollNumber: parts[0],
			Name:       strings.Join(parts[1:], " "),
			Line:       i + 1,
		})
	}
	if len(out) == 0 {
		return nil, apperr.Validation("input", "no student roll numbers and names provided")
	}
	return out, nil
}

// SheetResult — записи из таблицы и число строк, пропущенных из-за пустых ячеек.
type SheetResult struct {
	Entries []Entry
	Blank   int
}

// ParseSpreadsheet читает первый лист .xlsx: A — номер, B — имя.
// Первая строка считается заголовком, если в ней «roll»/«name» или «номер»/«имя».
func ParseSpreadsheet(r io.Reader) (SheetResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return SheetResult{}, apperr.Validation("file", "cannot read spreadsheet: %v", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return SheetResult{}, apperr.Validation("file", "spreadsheet has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return SheetResult{}, apperr.Validation("file", "cannot read sheet %q: %v", sheets[0], err)
	}

	var res SheetResult
	for i, row := range rows {
		if i == 0 && isHeader(row) {
			continue
		}
		roll, name := cell(row, 0), cell(row, 1)
		if roll == "" && name == "" {
			continue
		}
		if roll == "" || name == "" {
			res.Blank++
			continue
		}
		res.Entries = append(res.Entries, Entry{RollNumber: roll, Name: name, Line: i + 1})
	}
	return res, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isHeader(row []string) bool {
	h := strings.ToLower(cell(row, 0) + " " + cell(row, 1))
	for _, w := range []string{"roll", "name", "номер", "имя"} {
		if strings.Contains(h, w) {
			return true
		}
	}
	return false
}
