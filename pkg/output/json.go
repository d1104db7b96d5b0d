package output

import (
	"encoding/json"

	"github.com/sambabib/cpm-migrate/pkg/analyzer"
	"github.com/sambabib/cpm-migrate/pkg/migrate"
)

// GeneratePlanJSON converts an analysis plan to JSON format
func GeneratePlanJSON(plan *analyzer.AnalysisPlan) ([]byte, error) {
	return json.MarshalIndent(plan, "", "  ")
}

// GenerateOutcomeJSON converts a migration outcome to JSON format
func GenerateOutcomeJSON(out migrate.Outcome) ([]byte, error) {
	return json.MarshalIndent(out, "", "  ")
}
