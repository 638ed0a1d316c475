package domain_test

import (
	"testing"

	"rubric-orchestrator/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestSecurityFilter_Expression(t *testing.T) {
	tests := []struct {
		name     string
		filter   *domain.SecurityFilter
		expected string
	}{
		{name: "nil filter", filter: nil, expected: ""},
		{
			name:     "oid only",
			filter:   &domain.SecurityFilter{IncludeOIDs: true, OID: "OID_X"},
			expected: "oids/any(g:search.in(g, 'OID_X'))",
		},
		{
			name:     "groups only",
			filter:   &domain.SecurityFilter{IncludeGroups: true, Groups: []string{"GROUP_Y", "GROUP_Z"}},
			expected: "groups/any(g:search.in(g, 'GROUP_Y, GROUP_Z'))",
		},
		{
			name:     "both with empty values",
			filter:   &domain.SecurityFilter{IncludeOIDs: true, IncludeGroups: true},
			expected: "(oids/any(g:search.in(g, '')) or groups/any(g:search.in(g, '')))",
		},
		{
			name:     "quotes are escaped",
			filter:   &domain.SecurityFilter{IncludeOIDs: true, OID: "o'brien"},
			expected: "oids/any(g:search.in(g, 'o''brien'))",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.filter.Expression())
		})
	}
}

func TestSearchFilter_Expression(t *testing.T) {
	t.Run("nil filter", func(t *testing.T) {
		var f *domain.SearchFilter
		assert.Equal(t, "", f.Expression())
	})

	t.Run("category only", func(t *testing.T) {
		f := &domain.SearchFilter{ExcludeCategory: "drafts"}
		assert.Equal(t, "category ne 'drafts'", f.Expression())
	})

	t.Run("category and security", func(t *testing.T) {
		f := &domain.SearchFilter{
			ExcludeCategory: "drafts",
			Security:        &domain.SecurityFilter{IncludeOIDs: true, OID: "OID_X"},
		}
		assert.Equal(t, "category ne 'drafts' and oids/any(g:search.in(g, 'OID_X'))", f.Expression())
	})
}

func TestRetrievalOverrides_Modes(t *testing.T) {
	tests := []struct {
		mode       domain.RetrievalMode
		wantText   bool
		wantVector bool
	}{
		{mode: "", wantText: true, wantVector: true},
		{mode: domain.RetrievalModeHybrid, wantText: true, wantVector: true},
		{mode: domain.RetrievalModeText, wantText: true, wantVector: false},
		{mode: domain.RetrievalModeVectors, wantText: false, wantVector: true},
	}
	for _, tt := range tests {
		o := domain.RetrievalOverrides{RetrievalMode: tt.mode}
		assert.Equal(t, tt.wantText, o.HasText(), "mode %q", tt.mode)
		assert.Equal(t, tt.wantVector, o.HasVector(), "mode %q", tt.mode)
	}
}

func TestRetrievalOverrides_Defaults(t *testing.T) {
	var o domain.RetrievalOverrides
	assert.Equal(t, domain.DefaultTop, o.TopOrDefault())
	assert.Equal(t, 0.3, o.TemperatureOr(0.3))

	top := 6
	temp := 0.9
	o = domain.RetrievalOverrides{Top: &top, Temperature: &temp}
	assert.Equal(t, 6, o.TopOrDefault())
	assert.Equal(t, 0.9, o.TemperatureOr(0.3))
}
