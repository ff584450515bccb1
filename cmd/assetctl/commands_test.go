package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-asset/pkg/simpleasset"
)

func TestCategoriesCommand(t *testing.T) {
	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"categories"})

	require.NoError(t, root.Execute())
	text := out.String()
	assert.Contains(t, text, "CATEGORY")
	for _, spec := range simpleasset.Categories() {
		assert.Contains(t, text, string(spec.Category))
	}
	assert.Contains(t, text, "vendas,produto")
}

func TestStatsCommand_RequiresSubject(t *testing.T) {
	root := NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"stats"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--subject")
}

func TestPrintPurgeResult(t *testing.T) {
	var out bytes.Buffer
	id := uuid.New()
	printPurgeResult(&out, &simpleasset.PurgeResult{
		Scanned: 3,
		Purged:  2,
		Failed:  []simpleasset.PurgeError{{AssetID: id, Error: "storage unavailable"}},
	})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Scanned: 3", lines[0])
	assert.Equal(t, "Purged: 2", lines[1])
	assert.Contains(t, lines[2], id.String())
}

func TestEnvCommand(t *testing.T) {
	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"env"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "DATABASE_TYPE")
}

func TestPingCommand_MemoryRepository(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "memory")

	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"ping"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "nothing to ping")
}
