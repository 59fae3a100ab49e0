//go:build !integration

package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rcliao/companyscout/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2026, 8, 30, 10, 30, 0, 0, time.UTC)
	runs := []model.DiscoveryRun{
		{
			ID:    "abc12345-6789-0000-0000-000000000000",
			Phase: model.DiscoveryComplete,
			Companies: []model.DiscoveredCompany{
				{Name: "Acme Robotics", ResearchComplete: true},
				{Name: "Beta Systems", ResearchFailed: true},
			},
			Researched: 1,
			UpdatedAt:  now,
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Phase:     model.DiscoveryResearching,
			UpdatedAt: now.Add(-time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "PHASE")
	assert.Contains(t, output, "RESEARCHED")
	assert.Contains(t, output, "abc12345")
	assert.Contains(t, output, "complete")
	assert.Contains(t, output, "researching")
	assert.Contains(t, output, "2026-08-30 10:30")
	assert.Contains(t, output, "2026-08-30 09:30")
}

func TestFormatRunsList_Empty(t *testing.T) {
	var buf bytes.Buffer
	formatRunsList(&buf, nil)

	assert.Contains(t, buf.String(), "ID")
}
