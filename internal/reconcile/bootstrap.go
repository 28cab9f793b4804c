package reconcile

// MatchConfig controls the bootstrap auto-match.
type MatchConfig struct {
	// Fuzzy enables a second pass that matches remaining columns by edit
	// distance. The first pass always uses exact normalized equality.
	Fuzzy bool
	// MinSimilarity is the lowest similarity score a fuzzy match may have.
	MinSimilarity float64
	// MinGap is how far the best field must lead the runner-up.
	MinGap float64
}

// Default fuzzy thresholds.
const (
	DefaultMinSimilarity = 0.8
	DefaultMinGap        = 0.1
)

// DefaultMatchConfig returns exact-only matching with default fuzzy
// thresholds ready to be switched on.
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{MinSimilarity: DefaultMinSimilarity, MinGap: DefaultMinGap}
}

// fieldKeys returns the normalized names a field answers to: its ID, display
// name, and aliases, deduplicated and in that order.
func fieldKeys(f TargetField) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, name := range append([]string{f.ID, f.DisplayName}, f.Aliases...) {
		key := NormalizeHeader(name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys
}

// Bootstrap computes the initial assignment for columns against fields.
// Columns are processed in file order and the first column to claim a field
// keeps it; later columns with the same match stay unmatched. The result
// never assigns one field to two columns.
func Bootstrap(fields []TargetField, columns []string, cfg MatchConfig) map[string]string {
	assignment := make(map[string]string)
	claimed := make(map[string]bool)

	index := make(map[string]string)
	for _, f := range fields {
		for _, key := range fieldKeys(f) {
			if _, taken := index[key]; !taken {
				index[key] = f.ID
			}
		}
	}

	for _, col := range columns {
		id, ok := index[NormalizeHeader(col)]
		if !ok || claimed[id] {
			continue
		}
		assignment[col] = id
		claimed[id] = true
	}

	if !cfg.Fuzzy {
		return assignment
	}

	for _, col := range columns {
		if _, done := assignment[col]; done {
			continue
		}
		if id, ok := bestFuzzyField(col, fields, claimed, cfg); ok {
			assignment[col] = id
			claimed[id] = true
		}
	}

	return assignment
}

// bestFuzzyField picks the unclaimed field closest to col. It only answers
// when the winner clears MinSimilarity and leads the runner-up by MinGap.
func bestFuzzyField(col string, fields []TargetField, claimed map[string]bool, cfg MatchConfig) (string, bool) {
	bestID := ""
	best, second := -1.0, -1.0

	for _, f := range fields {
		if claimed[f.ID] {
			continue
		}
		score := 0.0
		for _, key := range fieldKeys(f) {
			score = max(score, Similarity(col, key))
		}
		switch {
		case score > best:
			second = best
			best = score
			bestID = f.ID
		case score > second:
			second = score
		}
	}

	if bestID == "" || best < cfg.MinSimilarity {
		return "", false
	}
	if second >= 0 && best-second < cfg.MinGap {
		return "", false
	}
	return bestID, true
}
