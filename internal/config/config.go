// =============================================================================
// Ledger SQL Migration - Configuration Module
// =============================================================================
//
// This module loads the run configuration. A single YAML file describes one
// migration run: which organisation the data belongs to, where the workbook and
// mapping tables live, how the source columns are named, and where the SQL
// artifacts go.
//
// CONFIGURATION FILES:
//   1. Run config (config.yaml): everything the emitter needs
//   2. Dot-env file (.env): destination credentials, read only by the
//      verifier's remote diagnostics and the snapshot command
//
// The loaded Config is passed explicitly into every pipeline stage.
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/ginjaninja78/ledger-sql-migration/internal/types"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// DefaultBatchSize is the number of lines per line artifact.
const DefaultBatchSize = 500

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the configuration for one migration run.
type Config struct {
	// OrgID is the destination organisation every header and line belongs to.
	OrgID string `yaml:"org_id"`

	// =========================================================================
	// INPUTS
	// =========================================================================

	// Workbook is the path to the source spreadsheet (.xlsx, .xlsm or .xls).
	Workbook string `yaml:"workbook"`

	// Sheet is the transactions sheet name, matched after trimming and
	// lowercasing both sides.
	// Default: "transactions"
	Sheet string `yaml:"sheet"`

	// Columns names the source header cells.
	Columns Columns `yaml:"columns"`

	// ChartOfAccounts is the CSV pairing legacy codes with new codes.
	ChartOfAccounts string `yaml:"chart_of_accounts"`

	// Snapshot holds the cached exports of the destination tables.
	Snapshot Snapshot `yaml:"snapshot"`

	// =========================================================================
	// OUTPUTS
	// =========================================================================

	// OutputDir receives the promoted SQL artifacts and the report.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// ReportFile is the report's file name inside OutputDir.
	// Default: "import_report.txt"
	ReportFile string `yaml:"report_file"`

	// BatchSize is the maximum number of lines per line artifact.
	// Default: 500
	BatchSize int `yaml:"batch_size"`

	// =========================================================================
	// POLICY
	// =========================================================================

	// MaxUnresolvedPercent is the share of data rows (0-100) allowed to carry
	// an unresolved account before the run fails.
	// Default: 100
	MaxUnresolvedPercent *float64 `yaml:"max_unresolved_percent"`

	// =========================================================================
	// ENVIRONMENT AND LOGGING
	// =========================================================================

	// EnvFile is the dot-env file with destination credentials.
	// Default: ".env"
	EnvFile string `yaml:"env_file"`

	// LogLevel is one of "debug", "info", "warn", "error".
	// Default: "info"
	LogLevel string `yaml:"log_level"`
}

// Columns maps each logical source field to its header text in the sheet.
// A dimension column left empty is not read.
type Columns struct {
	EntryNumber    string `yaml:"entry_number"`
	EntryDate      string `yaml:"entry_date"`
	Description    string `yaml:"description"`
	AccountCode    string `yaml:"account_code"`
	Debit          string `yaml:"debit"`
	Credit         string `yaml:"credit"`
	Classification string `yaml:"classification"`
	Project        string `yaml:"project"`
	WorkItem       string `yaml:"work_item"`
	SubTree        string `yaml:"sub_tree"`
}

// Dimension returns the header configured for a dimension kind.
func (c Columns) Dimension(kind types.DimensionKind) string {
	switch kind {
	case types.DimensionClassification:
		return c.Classification
	case types.DimensionProject:
		return c.Project
	case types.DimensionWorkItem:
		return c.WorkItem
	case types.DimensionSubTree:
		return c.SubTree
	}
	return ""
}

// Snapshot lists the cached destination exports. Each file has the columns
// id, code and org_id.
type Snapshot struct {
	Accounts        string `yaml:"accounts"`
	Classifications string `yaml:"classifications"`
	Projects        string `yaml:"projects"`
	WorkItems       string `yaml:"work_items"`
	SubTrees        string `yaml:"sub_trees"`
}

// Dimension returns the snapshot file for a dimension kind.
func (s Snapshot) Dimension(kind types.DimensionKind) string {
	switch kind {
	case types.DimensionClassification:
		return s.Classifications
	case types.DimensionProject:
		return s.Projects
	case types.DimensionWorkItem:
		return s.WorkItems
	case types.DimensionSubTree:
		return s.SubTrees
	}
	return ""
}

// UnresolvedTolerance returns MaxUnresolvedPercent with its default applied.
func (c *Config) UnresolvedTolerance() float64 {
	if c.MaxUnresolvedPercent == nil {
		return 100
	}
	return *c.MaxUnresolvedPercent
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the run configuration from a YAML file, applies defaults and
// validates it.
//
// PARAMETERS:
//   - configPath: The path to the configuration file.
//
// RETURNS:
//   - A pointer to the Config struct.
//   - An error if the file cannot be read, parsed, or is invalid.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, types.NewIOFailure("read config", configPath, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", configPath, err)
	}
	return cfg, nil
}

// Parse decodes a YAML document and applies defaults. It does not validate, so
// callers can apply flag overrides first.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &types.ConfigError{Field: "yaml", Message: err.Error()}
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

// ApplyDefaults sets default values for any unset option.
func ApplyDefaults(cfg *Config) {
	if cfg.Sheet == "" {
		cfg.Sheet = "transactions"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./output"
	}
	if cfg.ReportFile == "" {
		cfg.ReportFile = "import_report.txt"
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.EnvFile == "" {
		cfg.EnvFile = ".env"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	// Column defaults. Dimension columns default to the workbook's usual
	// headers; set them to "-" in the file to disable one.
	col := &cfg.Columns
	setDefault(&col.EntryNumber, "entry no")
	setDefault(&col.EntryDate, "entry date")
	setDefault(&col.Description, "description")
	setDefault(&col.AccountCode, "account code")
	setDefault(&col.Debit, "debit")
	setDefault(&col.Credit, "credit")
	setDefault(&col.Classification, "classification code")
	setDefault(&col.Project, "project code")
	setDefault(&col.WorkItem, "work item code")
	setDefault(&col.SubTree, "sub tree code")
	for _, p := range []*string{&col.Classification, &col.Project, &col.WorkItem, &col.SubTree} {
		if *p == "-" {
			*p = ""
		}
	}
}

func setDefault(field *string, value string) {
	*field = strings.TrimSpace(*field)
	if *field == "" {
		*field = value
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the options every command needs.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.OrgID) == "" {
		return &types.ConfigError{Field: "org_id", Message: "is required"}
	}
	id, err := uuid.Parse(strings.TrimSpace(c.OrgID))
	if err != nil {
		return &types.ConfigError{Field: "org_id", Message: fmt.Sprintf("not a UUID: %v", err)}
	}
	if id == uuid.Nil {
		return &types.ConfigError{Field: "org_id", Message: "must not be the all-zero UUID"}
	}
	c.OrgID = id.String()

	if c.BatchSize < 1 {
		return &types.ConfigError{Field: "batch_size", Message: "must be at least 1"}
	}
	if t := c.UnresolvedTolerance(); t < 0 || t > 100 {
		return &types.ConfigError{Field: "max_unresolved_percent", Message: "must be between 0 and 100"}
	}
	if c.Workbook == "" {
		return &types.ConfigError{Field: "workbook", Message: "is required"}
	}
	if c.ChartOfAccounts == "" {
		return &types.ConfigError{Field: "chart_of_accounts", Message: "is required"}
	}
	if c.Snapshot.Accounts == "" {
		return &types.ConfigError{Field: "snapshot.accounts", Message: "is required"}
	}
	for _, kind := range types.DimensionKinds {
		if c.Columns.Dimension(kind) != "" && c.Snapshot.Dimension(kind) == "" {
			return &types.ConfigError{
				Field:   "snapshot." + string(kind),
				Message: "is required while its source column is configured",
			}
		}
	}
	return nil
}
