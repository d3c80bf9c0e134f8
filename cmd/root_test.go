package cmd

import (
	"bytes"
	"errors"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/let-userName-Brian/exempla-ai/internal/config"
	"github.com/let-userName-Brian/exempla-ai/internal/domain/errors/domain"
	"github.com/let-userName-Brian/exempla-ai/internal/version"
)

func TestRootCommand_Subcommands(t *testing.T) {
	expected := []string{"api", "embed", "status", "import", "migrate", "version", "client"}
	for _, name := range expected {
		t.Run("should register "+name, func(t *testing.T) {
			cmd, _, err := rootCmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, cmd.Name())
		})
	}
}

func TestConfigureViper(t *testing.T) {
	t.Run("should apply defaults", func(t *testing.T) {
		v := viper.New()
		configureViper(v, "does-not-exist.yaml")

		cfg, err := config.Load(v)
		require.NoError(t, err)
		assert.Equal(t, "8000", cfg.API.Port)
		assert.Equal(t, "rvtools_embeddings", cfg.Pipeline.Collection)
	})

	t.Run("should read EXEMPLA_ environment overrides", func(t *testing.T) {
		t.Setenv("EXEMPLA_DATABASE_HOST", "db.internal")
		t.Setenv("EXEMPLA_PIPELINE_WORKERS", "8")

		v := viper.New()
		configureViper(v, "does-not-exist.yaml")

		cfg, err := config.Load(v)
		require.NoError(t, err)
		assert.Equal(t, "db.internal", cfg.Database.Host)
		assert.Equal(t, 8, cfg.Pipeline.Workers)
	})
}

func TestParseDatasetID(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int64
		wantErr bool
	}{
		{name: "should accept a positive id", raw: "42", want: 42},
		{name: "should reject zero", raw: "0", wantErr: true},
		{name: "should reject negatives", raw: "-3", wantErr: true},
		{name: "should reject text", raw: "abc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDatasetID(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, domain.ErrInvalidDatasetID))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVersionCommand(t *testing.T) {
	t.Cleanup(version.ResetBuildVars)
	version.SetBuildVars("v2.0.0", "def456", "2025-06-15T10:30:00Z")

	t.Run("should print full version", func(t *testing.T) {
		cmd := newVersionCmd()
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		cmd.SetArgs([]string{})

		require.NoError(t, cmd.Execute())
		assert.Contains(t, buf.String(), "Exempla AI")
		assert.Contains(t, buf.String(), "Version: v2.0.0")
		assert.Contains(t, buf.String(), "Commit: def456")
	})

	t.Run("should print short version", func(t *testing.T) {
		cmd := newVersionCmd()
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		cmd.SetArgs([]string{"--short"})

		require.NoError(t, cmd.Execute())
		assert.Equal(t, "v2.0.0\n", buf.String())
	})
}
