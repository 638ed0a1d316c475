package domain

import (
	"fmt"
	"strings"
)

const (
	OIDsField   = "oids"
	GroupsField = "groups"
)

// SecurityFilter restricts results to documents whose ACL fields intersect the caller's claims.
// A nil *SecurityFilter means no restriction.
type SecurityFilter struct {
	IncludeOIDs   bool
	OID           string
	IncludeGroups bool
	Groups        []string
}

// Expression renders the filter as an OData expression.
func (f *SecurityFilter) Expression() string {
	if f == nil {
		return ""
	}
	oidClause := aclClause(OIDsField, f.OID)
	groupsClause := aclClause(GroupsField, strings.Join(f.Groups, ", "))
	switch {
	case f.IncludeOIDs && f.IncludeGroups:
		return fmt.Sprintf("(%s or %s)", oidClause, groupsClause)
	case f.IncludeOIDs:
		return oidClause
	case f.IncludeGroups:
		return groupsClause
	default:
		return ""
	}
}

func aclClause(field, value string) string {
	return fmt.Sprintf("%s/any(g:search.in(g, '%s'))", field, EscapeODataString(value))
}

// EscapeODataString doubles single quotes so the value is safe inside an OData string literal.
func EscapeODataString(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}

// SearchFilter is the full filter applied to a retrieval.
type SearchFilter struct {
	ExcludeCategory string
	Security        *SecurityFilter
}

// Expression joins the category and security clauses with " and ".
func (f *SearchFilter) Expression() string {
	if f == nil {
		return ""
	}
	var clauses []string
	if f.ExcludeCategory != "" {
		clauses = append(clauses, fmt.Sprintf("category ne '%s'", EscapeODataString(f.ExcludeCategory)))
	}
	if sec := f.Security.Expression(); sec != "" {
		clauses = append(clauses, sec)
	}
	return strings.Join(clauses, " and ")
}
