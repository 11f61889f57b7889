package diagnostics

import (
	"context"
	"testing"

	"github.com/ginjaninja78/ledger-sql-migration/internal/config"
	"github.com/ginjaninja78/ledger-sql-migration/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolConfig(t *testing.T) {
	tests := []struct {
		name     string
		dest     config.Destination
		password string
	}{
		{
			name:     "api key fills a missing password",
			dest:     config.Destination{DatabaseURL: "postgres://ledger@db.example.com:5432/erp", APIKey: "secret"},
			password: "secret",
		},
		{
			name:     "password in url wins",
			dest:     config.Destination{DatabaseURL: "postgres://ledger:pw@db.example.com:5432/erp", APIKey: "secret"},
			password: "pw",
		},
		{
			name:     "no password at all",
			dest:     config.Destination{DatabaseURL: "postgres://ledger@db.example.com:5432/erp"},
			password: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := PoolConfig(&tt.dest)
			require.NoError(t, err)
			assert.Equal(t, tt.password, cfg.ConnConfig.Password)
			assert.Equal(t, "db.example.com", cfg.ConnConfig.Host)
			assert.Equal(t, "on", cfg.ConnConfig.RuntimeParams["default_transaction_read_only"])
			assert.Equal(t, connectTimeout, cfg.ConnConfig.ConnectTimeout)
		})
	}
}

func TestPoolConfig_InvalidURL(t *testing.T) {
	_, err := PoolConfig(&config.Destination{DatabaseURL: "postgres://db.example.com:notaport/erp"})

	assert.Equal(t, types.KindConfig, types.KindOf(err))
}

func TestExportTable_RejectsUnknownTable(t *testing.T) {
	c := &Client{}

	_, err := c.ExportTable(context.Background(), "users; DROP TABLE accounts", "org")

	assert.Equal(t, types.KindConfig, types.KindOf(err))
}

func TestExportable(t *testing.T) {
	for _, table := range []string{"accounts", "classifications", "projects", "analysis_work_items", "sub_tree"} {
		assert.True(t, exportable(table), table)
	}
	assert.False(t, exportable("transactions"))
	assert.Len(t, DimensionTables, len(types.DimensionKinds))
}

func TestSummary_Describe(t *testing.T) {
	s := &Summary{
		Headers:      3,
		HeaderDebit:  decimal.RequireFromString("10"),
		HeaderCredit: decimal.RequireFromString("10"),
		Lines:        6,
		LineDebit:    decimal.RequireFromString("10"),
		LineCredit:   decimal.RequireFromString("10"),
		MaxLineNo:    map[string]int{"9": 2, "42": 3},
	}

	assert.Equal(t, []string{"42", "9"}, s.ExistingRefs())
	assert.Equal(t, []string{
		"destination headers: 3 (debits 10.00, credits 10.00)",
		"destination lines: 6 (debits 10.00, credits 10.00)",
		"reference numbers already present: 2; new lines will be numbered after the existing MAX(line_no)",
	}, s.Describe())
}
