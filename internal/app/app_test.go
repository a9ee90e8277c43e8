package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/mwantia/alder/internal/config"
	"github.com/mwantia/alder/pkg/db/store"
	"github.com/mwantia/alder/pkg/ingest"
	"github.com/mwantia/alder/pkg/opal"
	"github.com/mwantia/fabric/pkg/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.BaseConfig {
	t.Helper()
	cfg := config.GetDefault()
	cfg.Log.NoTerminal = true
	cfg.Database.SQLite.Path = filepath.Join(t.TempDir(), "alder.db")
	cfg.Images.Root = filepath.Join(t.TempDir(), "images")
	return &cfg
}

func TestRunOpensAndMigrates(t *testing.T) {
	a := New(testConfig(t))

	err := a.Run(context.Background(), true, func(ctx context.Context) error {
		require.NotNil(t, a.Store())
		require.NotNil(t, a.Opal())
		require.NotNil(t, a.Pipeline())

		modalities, err := a.Repository().Modalities(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, modalities)
		return nil
	})
	require.NoError(t, err)
	assert.Nil(t, a.Store())
}

func TestRunAbsorbsAbort(t *testing.T) {
	a := New(testConfig(t))

	err := a.Run(context.Background(), true, func(ctx context.Context) error {
		return fmt.Errorf("%w: %w", opal.ErrAborted, context.Canceled)
	})
	assert.NoError(t, err)
}

func TestRunReturnsCommandError(t *testing.T) {
	a := New(testConfig(t))
	boom := errors.New("boom")

	err := a.Run(context.Background(), false, func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestOpenRejectsBadOpalTimeout(t *testing.T) {
	cfg := testConfig(t)
	cfg.Opal.Timeout = "soon"

	a := New(cfg)
	assert.Error(t, a.Open(context.Background(), false))
	assert.NoError(t, a.Close())
}

func TestOpenRegistersServices(t *testing.T) {
	ctx := context.Background()
	a := New(testConfig(t))
	require.NoError(t, a.Open(ctx, true))
	t.Cleanup(func() { _ = a.Close() })

	s, err := container.Resolve[*store.Store](ctx, a.sc)
	require.NoError(t, err)
	assert.Same(t, a.Store(), s)

	remote, err := container.Resolve[ingest.Remote](ctx, a.sc)
	require.NoError(t, err)
	assert.Same(t, a.Opal(), remote.(*opal.Client))
	assert.Same(t, a.Store(), a.Repository().Store())
}
