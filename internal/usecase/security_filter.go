package usecase

import "rubric-orchestrator/internal/domain"

// SecurityFilterCompiler turns auth claims into an ACL filter.
// Filters are opt-in per request unless the deployment requires access control.
type SecurityFilterCompiler struct {
	requireAccessControl bool
}

func NewSecurityFilterCompiler(requireAccessControl bool) SecurityFilterCompiler {
	return SecurityFilterCompiler{requireAccessControl: requireAccessControl}
}

// Compile returns nil when no ACL clause applies. Missing claim values
// compile to an empty match list, which matches no documents.
func (c SecurityFilterCompiler) Compile(overrides domain.RetrievalOverrides, claims domain.AuthClaims) *domain.SecurityFilter {
	includeOIDs := c.requireAccessControl || overrides.UseOIDSecurityFilter
	includeGroups := c.requireAccessControl || overrides.UseGroupsSecurityFilter
	if !includeOIDs && !includeGroups {
		return nil
	}

	filter := &domain.SecurityFilter{
		IncludeOIDs:   includeOIDs,
		IncludeGroups: includeGroups,
	}
	if includeOIDs {
		filter.OID = claims.OID
	}
	if includeGroups && len(claims.Groups) > 0 {
		filter.Groups = append([]string(nil), claims.Groups...)
	}
	return filter
}

// BuildSearchFilter adds the exclude_category clause to the security filter.
func (c SecurityFilterCompiler) BuildSearchFilter(overrides domain.RetrievalOverrides, claims domain.AuthClaims) *domain.SearchFilter {
	security := c.Compile(overrides, claims)
	if security == nil && overrides.ExcludeCategory == "" {
		return nil
	}
	return &domain.SearchFilter{
		ExcludeCategory: overrides.ExcludeCategory,
		Security:        security,
	}
}
