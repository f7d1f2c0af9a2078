package enrich

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adrata/dataops-cli/internal/model"
	"github.com/adrata/dataops-cli/internal/resilience"
	"github.com/adrata/dataops-cli/internal/store"
)

func dueEntry(kind, entityID string) resilience.RetryEntry {
	now := time.Now().UTC()
	return resilience.RetryEntry{
		ID:           "rq-" + entityID,
		EntityKind:   kind,
		EntityID:     entityID,
		WorkspaceID:  ws,
		Pass:         "enrich-" + kind + "s",
		Error:        "upstream rejected the request",
		ErrorType:    "permanent",
		MaxRetries:   3,
		NextRetryAt:  now.Add(-time.Minute),
		CreatedAt:    now.Add(-2 * time.Hour),
		LastFailedAt: now.Add(-2 * time.Hour),
	}
}

func TestDrainRetries_SuccessRemovesEntry(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()
	st.PutPerson(model.Person{ID: "p-1", WorkspaceID: ws, Name: "Ada Lovelace"})
	require.NoError(t, st.EnqueueRetry(context.Background(), dueEntry("person", "p-1")))

	reg := NewRegistry()
	reg.RegisterPerson(&fakePersonProvider{name: "fakesignal", fn: func(model.Person) (*PersonData, error) {
		return &PersonData{Phone: "+1 555 0100"}, nil
	}})

	result, err := New(st, reg, testConfig()).DrainRetries(context.Background(), ws)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Examined)
	assert.Equal(t, 1, result.Changed)
	assert.Equal(t, 0, result.Errors)
	assert.Empty(t, st.Retries(), "succeeded entry leaves the queue")

	got, _ := st.GetPerson("p-1")
	assert.Equal(t, "+1 555 0100", got.Phone)
}

func TestDrainRetries_FailureRequeuesWithBackoff(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()
	st.PutCompany(model.Company{ID: "c-1", WorkspaceID: ws, Name: "Acme"})
	require.NoError(t, st.EnqueueRetry(context.Background(), dueEntry("company", "c-1")))

	reg := NewRegistry()
	reg.RegisterCompany(&fakeCompanyProvider{name: "fakesignal", fn: func(model.Company) (*CompanyData, error) {
		return nil, eris.New("backend unavailable for this record")
	}})

	result, err := New(st, reg, testConfig()).DrainRetries(context.Background(), ws)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Errors)

	entries := st.Retries()
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].RetryCount)
	assert.Contains(t, entries[0].Error, "backend unavailable")
	assert.True(t, entries[0].NextRetryAt.After(time.Now().UTC()),
		"requeued entry waits out its backoff")
}

func TestDrainRetries_BudgetExhaustedDropsEntry(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()
	st.PutPerson(model.Person{ID: "p-1", WorkspaceID: ws, Name: "Ada Lovelace"})
	entry := dueEntry("person", "p-1")
	entry.RetryCount = 2
	require.NoError(t, st.EnqueueRetry(context.Background(), entry))

	reg := NewRegistry()
	reg.RegisterPerson(&fakePersonProvider{name: "fakesignal", fn: func(model.Person) (*PersonData, error) {
		return nil, eris.New("still failing")
	}})

	result, err := New(st, reg, testConfig()).DrainRetries(context.Background(), ws)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Errors)
	assert.Empty(t, st.Retries(), "third strike removes the entry")
}

func TestDrainRetries_QuotaHaltLeavesQueueIntact(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()
	st.PutPerson(model.Person{ID: "p-1", WorkspaceID: ws, Name: "Ada Lovelace"})
	st.PutPerson(model.Person{ID: "p-2", WorkspaceID: ws, Name: "Grace Hopper"})
	require.NoError(t, st.EnqueueRetry(context.Background(), dueEntry("person", "p-1")))
	require.NoError(t, st.EnqueueRetry(context.Background(), dueEntry("person", "p-2")))

	reg := NewRegistry()
	reg.RegisterPerson(&fakePersonProvider{name: "fakesignal", fn: func(model.Person) (*PersonData, error) {
		return nil, resilience.NewQuotaError("fakesignal", eris.New("credits exhausted"), 429)
	}})

	result, err := New(st, reg, testConfig()).DrainRetries(context.Background(), ws)
	require.NoError(t, err, "quota halt is not a drain failure")
	assert.Equal(t, "fakesignal", result.Details["halted_by"])
	assert.Equal(t, 0, result.Errors, "quota is not charged against the entries")

	entries := st.Retries()
	require.Len(t, entries, 2, "halted entries stay queued as they were")
	for _, e := range entries {
		assert.Equal(t, 0, e.RetryCount)
	}
}

func TestDrainRetries_VanishedEntityRemovedFromQueue(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()
	require.NoError(t, st.EnqueueRetry(context.Background(), dueEntry("person", "p-gone")))

	reg := NewRegistry()
	reg.RegisterPerson(&fakePersonProvider{name: "fakesignal", fn: func(model.Person) (*PersonData, error) {
		return &PersonData{}, nil
	}})

	result, err := New(st, reg, testConfig()).DrainRetries(context.Background(), ws)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Empty(t, st.Retries(), "entry for a merged-away entity is dropped")
}

func TestDrainRetries_OtherWorkspaceUntouched(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()
	entry := dueEntry("person", "p-1")
	entry.WorkspaceID = "ws-other"
	require.NoError(t, st.EnqueueRetry(context.Background(), entry))

	reg := NewRegistry()
	reg.RegisterPerson(&fakePersonProvider{name: "fakesignal", fn: func(model.Person) (*PersonData, error) {
		return &PersonData{}, nil
	}})

	result, err := New(st, reg, testConfig()).DrainRetries(context.Background(), ws)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Examined)
	assert.Len(t, st.Retries(), 1)
}
