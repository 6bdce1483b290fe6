package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveStageSequence(t *testing.T) {
	day := ResolveStageSequence(false)
	assert.Equal(t, StageSequence{StageMentor, StageHOD, StagePrincipal}, day)

	hostel := ResolveStageSequence(true)
	assert.Equal(t, StageSequence{StageMentor, StageHOD, StagePrincipal, StageWarden}, hostel)
}

func TestStageSequenceNext(t *testing.T) {
	seq := ResolveStageSequence(true)

	next, terminal, err := seq.Next(StageMentor)
	require.NoError(t, err)
	assert.False(t, terminal)
	assert.Equal(t, StageHOD, next)

	next, terminal, err = seq.Next(StagePrincipal)
	require.NoError(t, err)
	assert.False(t, terminal)
	assert.Equal(t, StageWarden, next)

	_, terminal, err = seq.Next(StageWarden)
	require.NoError(t, err)
	assert.True(t, terminal)

	_, _, err = seq.Next(Stage("registrar"))
	require.Error(t, err)
}

func TestStageSequenceTerminalForDayScholar(t *testing.T) {
	seq := ResolveStageSequence(false)

	_, terminal, err := seq.Next(StagePrincipal)
	require.NoError(t, err)
	assert.True(t, terminal)
	assert.False(t, seq.Contains(StageWarden))
}

func TestStageSequenceValueScan(t *testing.T) {
	seq := ResolveStageSequence(true)

	value, err := seq.Value()
	require.NoError(t, err)
	assert.Equal(t, "mentor,hod,principal,warden", value)

	var decoded StageSequence
	require.NoError(t, decoded.Scan("mentor,hod,principal,warden"))
	assert.Equal(t, seq, decoded)

	require.NoError(t, decoded.Scan(nil))
	assert.Nil(t, decoded)
}

func TestStageApproverRole(t *testing.T) {
	role, err := StageApproverRole(StageHOD)
	require.NoError(t, err)
	assert.Equal(t, RoleHOD, role)

	_, err = StageApproverRole(Stage("registrar"))
	require.Error(t, err)
}

func TestApprovalTrailScan(t *testing.T) {
	raw := []byte(`[{"stage":"mentor","approver_id":"m1","approver_name":"Mentor","action":"approve","at":"2026-02-01T09:00:00Z"}]`)

	var trail ApprovalTrail
	require.NoError(t, trail.Scan(raw))
	require.Len(t, trail, 1)
	assert.Equal(t, StageMentor, trail[0].Stage)
	assert.Equal(t, ActionApprove, trail[0].Action)

	require.NoError(t, trail.Scan(nil))
	assert.Empty(t, trail)
}

func TestLeaveRequestDays(t *testing.T) {
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	sameDay := LeaveRequest{StartDate: start, EndDate: start}
	assert.Equal(t, 1, sameDay.Days())

	threeDays := LeaveRequest{StartDate: start, EndDate: start.AddDate(0, 0, 2)}
	assert.Equal(t, 3, threeDays.Days())
}
