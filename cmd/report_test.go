package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/adrata/dataops-cli/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2026, 6, 15, 10, 30, 0, 0, time.UTC)
	done := now.Add(2 * time.Minute)
	runs := []model.PassRun{
		{
			ID:          "01JXAMPLE0000000000000000K",
			Pass:        "dedupe-people",
			WorkspaceID: "ws-1",
			Status:      model.PassStatusComplete,
			Result:      &model.PassResult{Examined: 120, Changed: 8},
			StartedAt:   now,
			CompletedAt: &done,
		},
		{
			ID:          "01JXAMPLE0000000000000001K",
			Pass:        "classify-records",
			WorkspaceID: "ws-1",
			Status:      model.PassStatusRunning,
			StartedAt:   now.Add(-time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "PASS")
	assert.Contains(t, output, "STATUS")
	assert.Contains(t, output, "dedupe-people")
	assert.Contains(t, output, "complete")
	assert.Contains(t, output, "classify-records")
	assert.Contains(t, output, "running")
	assert.Contains(t, output, "2026-06-15 10:30")
	assert.Contains(t, output, "120")
	assert.Contains(t, output, "2m0s")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "01JXAMPLE0", truncateID("01JXAMPLE0000000000000000K"))
	assert.Equal(t, "short", truncateID("short"))
}
