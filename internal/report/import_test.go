package report

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/adrata/dataops-cli/internal/model"
)

func TestReadWorkbook_RoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "workspace.xlsx")

	people := []model.Person{{
		ID:        "p-1",
		Name:      "Grace Hopper",
		WorkEmail: "grace@acme.com",
		Title:     "VP Engineering",
		CreatedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}}
	companies := []model.Company{{
		ID:            "c-1",
		Name:          "Acme",
		Domain:        "acme.com",
		Industry:      "Manufacturing",
		EmployeeCount: 42,
		City:          "Tulsa",
		CreatedAt:     time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}}
	require.NoError(t, ExportWorkbook(path, people, companies))

	gotPeople, gotCompanies, err := ReadWorkbook(path)
	require.NoError(t, err)

	require.Len(t, gotPeople, 1)
	assert.Equal(t, "p-1", gotPeople[0].ID)
	assert.Equal(t, "Grace Hopper", gotPeople[0].Name)
	assert.Equal(t, "grace@acme.com", gotPeople[0].WorkEmail)
	assert.Equal(t, "VP Engineering", gotPeople[0].Title)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), gotPeople[0].CreatedAt)

	require.Len(t, gotCompanies, 1)
	assert.Equal(t, "Acme", gotCompanies[0].Name)
	assert.Equal(t, 42, gotCompanies[0].EmployeeCount)
	assert.Equal(t, "Tulsa", gotCompanies[0].City)
}

func TestReadWorkbook_GeneratesIDsAndSkipsBlankRows(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "handmade.xlsx")

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("People")
	require.NoError(t, err)
	writeHeader(sheet, peopleColumns)

	row := sheet.AddRow()
	row.AddCell().Value = "" // no id
	row.AddCell().Value = "Katherine Johnson"
	row.AddCell().Value = "katherine@acme.com"

	sheet.AddRow() // entirely blank row

	require.NoError(t, f.Save(path))

	people, companies, err := ReadWorkbook(path)
	require.NoError(t, err)
	assert.Empty(t, companies)
	require.Len(t, people, 1)
	assert.Equal(t, "Katherine Johnson", people[0].Name)

	_, err = ulid.ParseStrict(people[0].ID)
	assert.NoError(t, err, "missing id should be replaced with a ULID")
}

func TestReadWorkbook_NoRecognizedSheets(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "other.xlsx")

	f := xlsx.NewFile()
	_, err := f.AddSheet("Notes")
	require.NoError(t, err)
	require.NoError(t, f.Save(path))

	_, _, err = ReadWorkbook(path)
	assert.Error(t, err)
}
