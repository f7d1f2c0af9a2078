package report

import (
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/adrata/dataops-cli/internal/model"
)

// ReadWorkbook parses an XLSX workbook in the ExportWorkbook layout back into
// entities. Rows without a name are skipped; rows without an id get a fresh
// ULID so re-importing an exported workbook round-trips cleanly.
func ReadWorkbook(path string) ([]model.Person, []model.Company, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "import: open %s", path)
	}

	peopleSheet, havePeople := f.Sheet["People"]
	companySheet, haveCompanies := f.Sheet["Companies"]
	if !havePeople && !haveCompanies {
		return nil, nil, eris.Errorf("import: %s has no People or Companies sheet", path)
	}

	var people []model.Person
	if havePeople {
		for _, row := range dataRows(peopleSheet) {
			name := cellValue(row, 1)
			if name == "" {
				continue
			}
			people = append(people, model.Person{
				ID:            rowID(row),
				Name:          name,
				WorkEmail:     cellValue(row, 2),
				PersonalEmail: cellValue(row, 3),
				Phone:         cellValue(row, 4),
				Title:         cellValue(row, 5),
				Department:    cellValue(row, 6),
				ProfileURL:    cellValue(row, 7),
				CreatedAt:     rowCreatedAt(row, 9),
			})
		}
	}

	var companies []model.Company
	if haveCompanies {
		for _, row := range dataRows(companySheet) {
			name := cellValue(row, 1)
			if name == "" {
				continue
			}
			count, _ := strconv.Atoi(cellValue(row, 4))
			companies = append(companies, model.Company{
				ID:            rowID(row),
				Name:          name,
				Domain:        cellValue(row, 2),
				Industry:      cellValue(row, 3),
				EmployeeCount: count,
				City:          cellValue(row, 5),
				State:         cellValue(row, 6),
				CreatedAt:     rowCreatedAt(row, 8),
			})
		}
	}

	return people, companies, nil
}

func dataRows(sheet *xlsx.Sheet) []*xlsx.Row {
	if len(sheet.Rows) < 2 {
		return nil
	}
	return sheet.Rows[1:]
}

func cellValue(row *xlsx.Row, i int) string {
	if i >= len(row.Cells) {
		return ""
	}
	return strings.TrimSpace(row.Cells[i].String())
}

func rowID(row *xlsx.Row) string {
	if id := cellValue(row, 0); id != "" {
		return id
	}
	return ulid.Make().String()
}

func rowCreatedAt(row *xlsx.Row, i int) time.Time {
	if t, err := time.Parse("2006-01-02", cellValue(row, i)); err == nil {
		return t
	}
	return time.Now().UTC()
}
