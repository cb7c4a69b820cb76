package config_test

import (
	"testing"

	"github.com/chr33s/git/config"
	"github.com/chr33s/git/storage/memory"
	"github.com/stretchr/testify/require"
)

func TestLoadWithoutFileReturnsDefault(t *testing.T) {
	fs := memory.New()
	cfg, err := config.Load(fs)
	require.NoError(t, err)
	require.Equal(t, config.Default(), cfg)
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	fs := memory.New()
	want := config.Config{InitialBranch: "trunk", UserName: "Ada Lovelace", UserEmail: "ada@example.com"}
	require.NoError(t, config.Save(fs, want))

	got, err := config.Load(fs)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestLoadLayersOverDefaultsWhenBranchOmitted(t *testing.T) {
	fs := memory.New()
	require.NoError(t, config.Save(fs, config.Config{UserName: "Bob"}))

	got, err := config.Load(fs)
	require.NoError(t, err)
	require.Equal(t, "main", got.InitialBranch)
	require.Equal(t, "Bob", got.UserName)
}
