package enrich

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adrata/dataops-cli/internal/model"
	"github.com/adrata/dataops-cli/internal/resilience"
	"github.com/adrata/dataops-cli/internal/store"
)

const ws = "ws-test"

type fakePersonProvider struct {
	name  string
	calls int32
	fn    func(model.Person) (*PersonData, error)
}

func (f *fakePersonProvider) Name() string { return f.name }

func (f *fakePersonProvider) LookupPerson(_ context.Context, p model.Person) (*PersonData, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.fn(p)
}

type fakeCompanyProvider struct {
	name  string
	calls int32
	fn    func(model.Company) (*CompanyData, error)
}

func (f *fakeCompanyProvider) Name() string { return f.name }

func (f *fakeCompanyProvider) LookupCompany(_ context.Context, c model.Company) (*CompanyData, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.fn(c)
}

func testConfig() Config {
	return Config{BatchSize: 10, BatchDelay: 0, MinCallDelay: time.Millisecond}
}

func TestPeople_FillsEmptyFieldsAndRecordsProvenance(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()
	st.PutPerson(model.Person{
		ID:          "p-1",
		WorkspaceID: ws,
		Name:        "Ada Lovelace",
		WorkEmail:   "ada@acme.com",
		Title:       "Engineer",
	})

	reg := NewRegistry()
	reg.RegisterPerson(&fakePersonProvider{name: "fakesignal", fn: func(model.Person) (*PersonData, error) {
		return &PersonData{
			Phone:      "+1 555 0100",
			Title:      "Chief Engineer",
			Department: "R&D",
		}, nil
	}})

	result, err := New(st, reg, testConfig()).People(context.Background(), ws)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Examined)
	assert.Equal(t, 1, result.Changed)
	assert.Equal(t, 0, result.Errors)

	got, ok := st.GetPerson("p-1")
	require.True(t, ok)
	assert.Equal(t, "+1 555 0100", got.Phone, "empty field filled")
	assert.Equal(t, "Engineer", got.Title, "stored value kept without refresh")
	assert.Equal(t, "R&D", got.Department)
	require.Len(t, got.Sources, 1)
	assert.Equal(t, "fakesignal", got.Sources[0].Source)
}

func TestPeople_RefreshOverwritesNamedField(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()
	st.PutPerson(model.Person{
		ID:          "p-1",
		WorkspaceID: ws,
		Name:        "Ada Lovelace",
		Title:       "Engineer",
	})

	reg := NewRegistry()
	reg.RegisterPerson(&fakePersonProvider{name: "fakesignal", fn: func(model.Person) (*PersonData, error) {
		return &PersonData{Title: "Chief Engineer"}, nil
	}})

	cfg := testConfig()
	cfg.Refresh = []string{"title"}
	result, err := New(st, reg, cfg).People(context.Background(), ws)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Changed)

	got, _ := st.GetPerson("p-1")
	assert.Equal(t, "Chief Engineer", got.Title)
}

func TestPeople_ProviderFailureLeavesEntityUntouched(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()
	before := model.Person{
		ID:          "p-1",
		WorkspaceID: ws,
		Name:        "Ada Lovelace",
		Title:       "Engineer",
	}
	st.PutPerson(before)

	reg := NewRegistry()
	reg.RegisterPerson(&fakePersonProvider{name: "fakesignal", fn: func(model.Person) (*PersonData, error) {
		return nil, eris.New("upstream rejected the request")
	}})

	result, err := New(st, reg, testConfig()).People(context.Background(), ws)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Errors)
	assert.Equal(t, 0, result.Changed)

	got, ok := st.GetPerson("p-1")
	require.True(t, ok)
	assert.Equal(t, before.Title, got.Title)
	assert.Empty(t, got.Sources, "failed entity must not be marked enriched")
}

func TestPeople_PartialProviderFailureStillMerges(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()
	st.PutPerson(model.Person{ID: "p-1", WorkspaceID: ws, Name: "Ada Lovelace"})

	reg := NewRegistry()
	reg.RegisterPerson(&fakePersonProvider{name: "alpha", fn: func(model.Person) (*PersonData, error) {
		return nil, eris.New("backend unavailable for this record")
	}})
	reg.RegisterPerson(&fakePersonProvider{name: "beta", fn: func(model.Person) (*PersonData, error) {
		return &PersonData{Phone: "+1 555 0100"}, nil
	}})

	result, err := New(st, reg, testConfig()).People(context.Background(), ws)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Changed)
	assert.Equal(t, 0, result.Errors, "one matching provider is a success")

	got, _ := st.GetPerson("p-1")
	assert.Equal(t, "+1 555 0100", got.Phone)
	require.Len(t, got.Sources, 1)
	assert.Equal(t, "beta", got.Sources[0].Source)
}

func TestPeople_QuotaHaltsPassGracefully(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()
	st.PutPerson(model.Person{ID: "p-1", WorkspaceID: ws, Name: "Ada Lovelace"})

	reg := NewRegistry()
	reg.RegisterPerson(&fakePersonProvider{name: "fakesignal", fn: func(model.Person) (*PersonData, error) {
		return nil, resilience.NewQuotaError("fakesignal", eris.New("credits exhausted"), 429)
	}})

	result, err := New(st, reg, testConfig()).People(context.Background(), ws)
	require.NoError(t, err, "quota halt is not a pass failure")
	assert.Equal(t, "fakesignal", result.Details["halted_by"])
	assert.Equal(t, 0, result.Changed)

	got, _ := st.GetPerson("p-1")
	assert.Empty(t, got.Sources, "deferred entity stays untouched")
}

func TestPeople_AlreadyEnrichedProviderSkipped(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()
	st.PutPerson(model.Person{
		ID:          "p-1",
		WorkspaceID: ws,
		Name:        "Ada Lovelace",
		Sources:     model.AppendSource(nil, "fakesignal", time.Now().UTC()),
	})

	provider := &fakePersonProvider{name: "fakesignal", fn: func(model.Person) (*PersonData, error) {
		return &PersonData{Phone: "+1 555 0100"}, nil
	}}
	reg := NewRegistry()
	reg.RegisterPerson(provider)

	result, err := New(st, reg, testConfig()).People(context.Background(), ws)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Changed)
	assert.EqualValues(t, 0, atomic.LoadInt32(&provider.calls), "provider already in sources is not re-queried")
}

func TestPeople_CompleteRecordsSkipped(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()
	st.PutPerson(model.Person{
		ID:          "p-1",
		WorkspaceID: ws,
		Name:        "Ada Lovelace",
		WorkEmail:   "ada@acme.com",
		Phone:       "+1 555 0100",
		Title:       "Engineer",
		Department:  "R&D",
		ProfileURL:  "https://linkedin.com/in/ada",
	})

	provider := &fakePersonProvider{name: "fakesignal", fn: func(model.Person) (*PersonData, error) {
		return &PersonData{}, nil
	}}
	reg := NewRegistry()
	reg.RegisterPerson(provider)

	result, err := New(st, reg, testConfig()).People(context.Background(), ws)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.EqualValues(t, 0, atomic.LoadInt32(&provider.calls))
}

func TestCompanies_ProvidersFillInNameOrder(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()
	st.PutCompany(model.Company{ID: "c-1", WorkspaceID: ws, Name: "Acme", Domain: "acme.com"})

	reg := NewRegistry()
	reg.RegisterCompany(&fakeCompanyProvider{name: "alpha", fn: func(model.Company) (*CompanyData, error) {
		return &CompanyData{Industry: "Utilities"}, nil
	}})
	reg.RegisterCompany(&fakeCompanyProvider{name: "beta", fn: func(model.Company) (*CompanyData, error) {
		return &CompanyData{Industry: "Retail", EmployeeCount: 4200, City: "Atlanta", State: "GA"}, nil
	}})

	result, err := New(st, reg, testConfig()).Companies(context.Background(), ws)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Changed)

	got, _ := st.GetCompany("c-1")
	assert.Equal(t, "Utilities", got.Industry, "first provider wins a contested field")
	assert.Equal(t, 4200, got.EmployeeCount, "later provider fills what is still empty")
	assert.Equal(t, "Atlanta", got.City)
	require.Len(t, got.Sources, 2)
	assert.Equal(t, "alpha", got.Sources[0].Source)
	assert.Equal(t, "beta", got.Sources[1].Source)
}

func TestCompanies_NoProvidersConfigured(t *testing.T) {
	t.Parallel()
	_, err := New(store.NewMemory(), NewRegistry(), testConfig()).Companies(context.Background(), ws)
	require.Error(t, err)
}
