package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRefreshApply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		refresh     []string
		stored      string
		provider    string
		want        string
		wantChanged bool
	}{
		{name: "fills empty", stored: "", provider: "new", want: "new", wantChanged: true},
		{name: "keeps stored", stored: "old", provider: "new", want: "old"},
		{name: "refresh overwrites", refresh: []string{"title"}, stored: "old", provider: "new", want: "new", wantChanged: true},
		{name: "provider empty never clears", refresh: []string{"title"}, stored: "old", provider: "", want: "old"},
		{name: "identical value is no change", refresh: []string{"title"}, stored: "same", provider: "same", want: "same"},
		{name: "whitespace provider is empty", stored: "old", provider: "  ", want: "old"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := NewRefresh(tc.refresh)
			got, changed := r.apply("title", tc.stored, tc.provider)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.wantChanged, changed)
		})
	}
}

func TestRefreshApplyInt(t *testing.T) {
	t.Parallel()
	r := NewRefresh([]string{"employee_count"})

	got, changed := r.applyInt("employee_count", 100, 250)
	assert.Equal(t, 250, got)
	assert.True(t, changed)

	got, changed = r.applyInt("employee_count", 100, 0)
	assert.Equal(t, 100, got, "zero from provider means unknown")
	assert.False(t, changed)

	got, changed = NewRefresh(nil).applyInt("employee_count", 100, 250)
	assert.Equal(t, 100, got)
	assert.False(t, changed)
}

func TestNewRefresh_NormalizesNames(t *testing.T) {
	t.Parallel()
	r := NewRefresh([]string{" Title ", "INDUSTRY"})
	assert.True(t, r["title"])
	assert.True(t, r["industry"])
	assert.False(t, r["phone"])
}
