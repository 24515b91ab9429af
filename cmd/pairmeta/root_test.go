package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genobase/pairmeta/pkg/pairmeta"
)

// TestRootCommand_HasSubcommands verifies root command structure
func TestRootCommand_HasSubcommands(t *testing.T) {
	cmd := getRootCmd()
	require.NotNil(t, cmd, "Root command should exist")

	found := make(map[string]bool)
	for _, c := range cmd.Commands() {
		found[c.Name()] = true
	}
	for _, name := range []string{"create", "aggregate", "rank", "serve"} {
		assert.True(t, found[name], "%s subcommand should exist", name)
	}
}

// TestRootCommand_Help verifies help text includes usage
func TestRootCommand_Help(t *testing.T) {
	cmd := getRootCmd()

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})
	err := cmd.Execute()
	require.NoError(t, err)

	helpText := buf.String()
	assert.Contains(t, helpText, "pairmeta")
	assert.Contains(t, helpText, "meta-analysis")
	assert.Contains(t, helpText, "Available Commands")
}

// TestRootCommand_VersionFlag verifies --version flag
func TestRootCommand_VersionFlag(t *testing.T) {
	cmd := getRootCmd()

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--version"})
	err := cmd.Execute()
	require.NoError(t, err)

	assert.Contains(t, buf.String(), pairmeta.Version)
}

func TestValidateStudyInput(t *testing.T) {
	tests := []struct {
		msg     string
		in      pairmeta.StudyInput
		isValid bool
	}{
		{
			"staging file",
			pairmeta.StudyInput{ComponentsPath: "x.sqlite"},
			true,
		},
		{
			"correlations with samples",
			pairmeta.StudyInput{
				StudyKey:         "GSE65682",
				CorrelationsPath: "x.tsv",
				NSamples:         760,
			},
			true,
		},
		{
			"no input path",
			pairmeta.StudyInput{StudyKey: "GSE65682"},
			false,
		},
		{
			"both input paths",
			pairmeta.StudyInput{
				StudyKey:         "GSE65682",
				ComponentsPath:   "x.sqlite",
				CorrelationsPath: "x.tsv",
				NSamples:         760,
			},
			false,
		},
		{
			"correlations without samples",
			pairmeta.StudyInput{
				StudyKey:         "GSE65682",
				CorrelationsPath: "x.tsv",
			},
			false,
		},
		{
			"correlations below Fisher minimum",
			pairmeta.StudyInput{
				StudyKey:         "GSE65682",
				CorrelationsPath: "x.tsv",
				NSamples:         3,
			},
			false,
		},
	}

	for _, tt := range tests {
		err := validateStudyInput(tt.in)
		if tt.isValid {
			assert.NoError(t, err, tt.msg)
		} else {
			assert.Error(t, err, tt.msg)
		}
	}
}
