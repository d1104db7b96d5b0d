package output

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sambabib/cpm-migrate/pkg/analyzer"
	"github.com/sambabib/cpm-migrate/pkg/migrate"
)

// SARIF format specification: https://docs.oasis-open.org/sarif/sarif/v2.1.0/sarif-v2.1.0.html

// SarifReport represents the top-level SARIF report structure
type SarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []SarifRun `json:"runs"`
}

// SarifRun represents a single run of the analysis tool
type SarifRun struct {
	Tool        SarifTool         `json:"tool"`
	Results     []SarifResult     `json:"results"`
	Invocations []SarifInvocation `json:"invocations"`
}

// SarifTool represents the tool that performed the analysis
type SarifTool struct {
	Driver SarifDriver `json:"driver"`
}

// SarifDriver represents the driver of the tool
type SarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []SarifRule `json:"rules"`
}

// SarifRule represents a rule that was evaluated during the analysis
type SarifRule struct {
	ID               string            `json:"id"`
	ShortDescription SarifMessage      `json:"shortDescription"`
	FullDescription  SarifMessage      `json:"fullDescription"`
	Help             SarifMessage      `json:"help"`
	Properties       map[string]string `json:"properties,omitempty"`
}

// SarifResult represents a result of the analysis
type SarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   SarifMessage    `json:"message"`
	Locations []SarifLocation `json:"locations"`
}

// SarifMessage represents a message in the SARIF report
type SarifMessage struct {
	Text string `json:"text"`
}

// SarifLocation represents a location in the code
type SarifLocation struct {
	PhysicalLocation SarifPhysicalLocation `json:"physicalLocation"`
}

// SarifPhysicalLocation represents a physical location in the code
type SarifPhysicalLocation struct {
	ArtifactLocation SarifArtifactLocation `json:"artifactLocation"`
	Region           SarifRegion           `json:"region,omitempty"`
}

// SarifArtifactLocation represents the location of an artifact
type SarifArtifactLocation struct {
	URI string `json:"uri"`
}

// SarifRegion represents a region in the code
type SarifRegion struct {
	StartLine int `json:"startLine,omitempty"`
}

// SarifInvocation represents an invocation of the tool
type SarifInvocation struct {
	ExecutionSuccessful bool   `json:"executionSuccessful"`
	StartTimeUtc        string `json:"startTimeUtc"`
	EndTimeUtc          string `json:"endTimeUtc"`
}

// GenerateSarifReport converts an analysis plan (and, when the migrate phase
// ran, its outcome) to SARIF format. outcome may be nil for analyze-only
// runs.
func GenerateSarifReport(plan *analyzer.AnalysisPlan, outcome *migrate.Outcome) ([]byte, error) {
	rules := []SarifRule{
		{
			ID:               "version-conflict",
			ShortDescription: SarifMessage{Text: "Conflicting package versions across projects"},
			FullDescription:  SarifMessage{Text: "Multiple projects declare this package with different versions; migration resolves them to the highest."},
			Help:             SarifMessage{Text: "Review the resolved version and pin a VersionOverride in any project that genuinely needs an older one."},
		},
		{
			ID:               "project-skipped",
			ShortDescription: SarifMessage{Text: "Project excluded from migration"},
			FullDescription:  SarifMessage{Text: "The project cannot be migrated to central package management in its current state."},
			Help:             SarifMessage{Text: "Address the skip reason and re-run the analysis."},
		},
		{
			ID:               "migration-failed",
			ShortDescription: SarifMessage{Text: "Migration rolled back"},
			FullDescription:  SarifMessage{Text: "The migrate phase hit an error or was cancelled; every file was restored from backup."},
			Help:             SarifMessage{Text: "Fix the underlying error and re-run the migration."},
		},
	}

	results := []SarifResult{}
	for _, pkg := range summarizePackages(plan) {
		if !pkg.Conflicted() {
			continue
		}
		results = append(results, SarifResult{
			RuleID: "version-conflict",
			Level:  "warning",
			Message: SarifMessage{
				Text: fmt.Sprintf("%s: versions %s resolved to %s",
					pkg.ID, strings.Join(pkg.Versions, ", "), pkg.Resolved),
			},
			Locations: []SarifLocation{
				{PhysicalLocation: SarifPhysicalLocation{ArtifactLocation: SarifArtifactLocation{URI: plan.Root}}},
			},
		})
	}
	for _, proj := range plan.Skipped {
		results = append(results, SarifResult{
			RuleID:  "project-skipped",
			Level:   "note",
			Message: SarifMessage{Text: fmt.Sprintf("%s: %s", proj.Name, proj.SkipReason)},
			Locations: []SarifLocation{
				{PhysicalLocation: SarifPhysicalLocation{ArtifactLocation: SarifArtifactLocation{URI: proj.Path}}},
			},
		})
	}
	executionSuccessful := true
	if outcome != nil && !outcome.Success {
		executionSuccessful = false
		results = append(results, SarifResult{
			RuleID:  "migration-failed",
			Level:   "error",
			Message: SarifMessage{Text: outcome.Error},
			Locations: []SarifLocation{
				{PhysicalLocation: SarifPhysicalLocation{ArtifactLocation: SarifArtifactLocation{URI: plan.Root}}},
			},
		})
	}

	now := time.Now().UTC()
	sarifReport := SarifReport{
		Schema:  "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json",
		Version: "2.1.0",
		Runs: []SarifRun{
			{
				Tool: SarifTool{
					Driver: SarifDriver{
						Name:           "CPM Migrate",
						Version:        "1.0.0",
						InformationURI: "https://github.com/sambabib/cpm-migrate",
						Rules:          rules,
					},
				},
				Results: results,
				Invocations: []SarifInvocation{
					{
						ExecutionSuccessful: executionSuccessful,
						StartTimeUtc:        now.Add(-time.Second).Format(time.RFC3339),
						EndTimeUtc:          now.Format(time.RFC3339),
					},
				},
			},
		},
	}

	return json.MarshalIndent(sarifReport, "", "  ")
}
