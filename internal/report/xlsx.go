package report

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/adrata/dataops-cli/internal/model"
)

var peopleColumns = []string{
	"ID", "Name", "Work Email", "Personal Email", "Phone",
	"Title", "Department", "Profile URL", "Sources", "Created At",
}

var companyColumns = []string{
	"ID", "Name", "Domain", "Industry", "Employees",
	"City", "State", "Sources", "Created At",
}

// ExportWorkbook writes people and companies to an XLSX workbook with one
// sheet per entity kind.
func ExportWorkbook(path string, people []model.Person, companies []model.Company) error {
	f := xlsx.NewFile()

	ps, err := f.AddSheet("People")
	if err != nil {
		return eris.Wrap(err, "export: add people sheet")
	}
	writeHeader(ps, peopleColumns)
	for _, p := range people {
		row := ps.AddRow()
		for _, v := range []string{
			p.ID, p.Name, p.WorkEmail, p.PersonalEmail, p.Phone,
			p.Title, p.Department, p.ProfileURL, sourceNames(p.Sources),
			p.CreatedAt.Format("2006-01-02"),
		} {
			row.AddCell().Value = v
		}
	}

	cs, err := f.AddSheet("Companies")
	if err != nil {
		return eris.Wrap(err, "export: add companies sheet")
	}
	writeHeader(cs, companyColumns)
	for _, c := range companies {
		row := cs.AddRow()
		for _, v := range []string{
			c.ID, c.Name, c.Domain, c.Industry, strconv.Itoa(c.EmployeeCount),
			c.City, c.State, sourceNames(c.Sources),
			c.CreatedAt.Format("2006-01-02"),
		} {
			row.AddCell().Value = v
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

func writeHeader(sheet *xlsx.Sheet, columns []string) {
	row := sheet.AddRow()
	for _, col := range columns {
		row.AddCell().Value = col
	}
}

func sourceNames(sources []model.EnrichmentSource) string {
	out := ""
	for i, s := range sources {
		if i > 0 {
			out += ", "
		}
		out += s.Source
	}
	return out
}
