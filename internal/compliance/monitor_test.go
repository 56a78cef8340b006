package compliance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carbon-connect/portal-backend/internal/notifications"
)

type recordingObserver struct{ warnings, deficits int }

func (r *recordingObserver) ObserveSweep(warnings, deficits int) {
	r.warnings, r.deficits = warnings, deficits
}

func TestMonitorSweepFlagsAccounts(t *testing.T) {
	ctx := context.Background()
	feed := notifications.NewFeed(20)
	l := NewLedger(NewMemoryStore(), testPolicy(), notifications.Nop, zap.NewNop())

	for id, quota := range map[string]string{"ok": "50", "warn": "5", "deficit": "1"} {
		q := d(quota)
		_, err := l.OpenAccount(ctx, admin, OpenAccountInput{AccountID: id, Quota: &q})
		require.NoError(t, err)
	}
	_, err := l.LogEmission(ctx, industryFor("deficit"), "deficit", LogEmissionInput{Amount: d("3"), Date: "2023-10-24"})
	require.NoError(t, err)

	m := NewMonitor(l, feed, zap.NewNop())
	observer := &recordingObserver{}
	m.Observe(observer)
	result, err := m.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, &recordingObserver{warnings: 1, deficits: 1}, observer)

	assert.Equal(t, 3, result.Checked)
	assert.Equal(t, 1, result.Warnings)
	assert.Equal(t, 1, result.Deficits)

	bySubject := map[string]notifications.EventType{}
	for _, e := range feed.Recent(0) {
		bySubject[e.Subject] = e.Type
	}
	assert.Equal(t, notifications.EventComplianceWarning, bySubject["warn"])
	assert.Equal(t, notifications.EventComplianceDeficit, bySubject["deficit"])
	assert.NotContains(t, bySubject, "ok")
}

func TestMonitorStartRejectsBadSchedule(t *testing.T) {
	m := NewMonitor(NewLedger(NewMemoryStore(), testPolicy(), notifications.Nop, zap.NewNop()), notifications.Nop, zap.NewNop())

	assert.Error(t, m.Start("not a schedule"))
	require.NoError(t, m.Start("0 0 * * *"))
	assert.Error(t, m.Start("0 0 * * *"))
	m.Stop()
	m.Stop()
}
