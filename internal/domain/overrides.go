package domain

// DefaultTop is the number of documents retrieved when the caller does not say.
const DefaultTop = 3

// RetrievalOverrides are the per-request knobs sent by the client.
type RetrievalOverrides struct {
	RetrievalMode            RetrievalMode `json:"retrieval_mode,omitempty"`
	SemanticRanker           bool          `json:"semantic_ranker,omitempty"`
	SemanticCaptions         bool          `json:"semantic_captions,omitempty"`
	Top                      *int          `json:"top,omitempty"`
	UseOIDSecurityFilter     bool          `json:"use_oid_security_filter,omitempty"`
	UseGroupsSecurityFilter  bool          `json:"use_groups_security_filter,omitempty"`
	Temperature              *float64      `json:"temperature,omitempty"`
	PromptTemplate           string        `json:"prompt_template,omitempty"`
	ExcludeCategory          string        `json:"exclude_category,omitempty"`
	SuggestFollowupQuestions bool          `json:"suggest_followup_questions,omitempty"`
}

// HasText reports whether the text half of the query is active. Unset means hybrid.
func (o RetrievalOverrides) HasText() bool {
	switch o.RetrievalMode {
	case RetrievalModeText, RetrievalModeHybrid, "":
		return true
	default:
		return false
	}
}

// HasVector reports whether the vector half of the query is active. Unset means hybrid.
func (o RetrievalOverrides) HasVector() bool {
	switch o.RetrievalMode {
	case RetrievalModeVectors, RetrievalModeHybrid, "":
		return true
	default:
		return false
	}
}

// TopOrDefault returns Top, or DefaultTop when it is unset or not positive.
func (o RetrievalOverrides) TopOrDefault() int {
	if o.Top == nil || *o.Top <= 0 {
		return DefaultTop
	}
	return *o.Top
}

// TemperatureOr returns Temperature, or fallback when it is unset or zero.
func (o RetrievalOverrides) TemperatureOr(fallback float64) float64 {
	if o.Temperature == nil || *o.Temperature == 0 {
		return fallback
	}
	return *o.Temperature
}

// ValidRetrievalMode reports whether m is a mode the orchestrator understands.
func ValidRetrievalMode(m RetrievalMode) bool {
	switch m {
	case "", RetrievalModeText, RetrievalModeVectors, RetrievalModeHybrid:
		return true
	default:
		return false
	}
}
