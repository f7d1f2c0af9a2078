package db

import (
	"context"

	"github.com/adrata/dataops-cli/internal/model"
)

var peopleLoadColumns = []string{
	"id", "workspace_id", "name", "work_email", "personal_email",
	"phone", "title", "department", "profile_url", "created_at",
}

var companyLoadColumns = []string{
	"id", "workspace_id", "name", "domain", "industry",
	"employee_count", "city", "state", "created_at",
}

// LoadPeople bulk-upserts people into the workspace. Existing rows are
// updated field by field; workspace ownership and created_at never change on
// re-import.
func LoadPeople(ctx context.Context, pool Pool, workspaceID string, people []model.Person) (int64, error) {
	rows := make([][]any, 0, len(people))
	for _, p := range people {
		rows = append(rows, []any{
			p.ID, workspaceID, p.Name, p.WorkEmail, p.PersonalEmail,
			p.Phone, p.Title, p.Department, p.ProfileURL, p.CreatedAt,
		})
	}
	return BulkUpsert(ctx, pool, UpsertConfig{
		Table:        "people",
		Columns:      peopleLoadColumns,
		ConflictKeys: []string{"id"},
		UpdateCols: []string{
			"name", "work_email", "personal_email", "phone",
			"title", "department", "profile_url",
		},
	}, rows)
}

// LoadCompanies bulk-upserts companies into the workspace.
func LoadCompanies(ctx context.Context, pool Pool, workspaceID string, companies []model.Company) (int64, error) {
	rows := make([][]any, 0, len(companies))
	for _, c := range companies {
		rows = append(rows, []any{
			c.ID, workspaceID, c.Name, c.Domain, c.Industry,
			c.EmployeeCount, c.City, c.State, c.CreatedAt,
		})
	}
	return BulkUpsert(ctx, pool, UpsertConfig{
		Table:        "companies",
		Columns:      companyLoadColumns,
		ConflictKeys: []string{"id"},
		UpdateCols: []string{
			"name", "domain", "industry", "employee_count", "city", "state",
		},
	}, rows)
}
