package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hausradar/dedup-engine/pkg/apperrors"
)

func TestLocalScanLock(t *testing.T) {
	lock := NewScanLock(nil, 0)

	release, err := lock.Acquire(context.Background())
	require.NoError(t, err)

	_, err = lock.Acquire(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrScanInProgress)

	release()

	release, err = lock.Acquire(context.Background())
	require.NoError(t, err)
	release()
}

func TestScanRejectedWhileLockHeld(t *testing.T) {
	lock := NewScanLock(nil, 0)
	release, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	svc := NewScanService(
		&mockPropertyRepo{},
		&mockMediaHashRepo{},
		NewMatchEvaluator(),
		NewGroupService(&mockGroupRepo{}, zap.NewNop()),
		lock,
		scanTestConfig(),
		zap.NewNop(),
	)

	_, err = svc.Scan(context.Background(), ScanRequest{})
	assert.ErrorIs(t, err, apperrors.ErrScanInProgress)
}
