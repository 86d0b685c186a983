package main

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/add-markers/internal/marker"
)

func TestTail_ChangesOnly(t *testing.T) {
	var lines []string
	tl := &tail{changesOnly: true, logf: func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	}}

	style := marker.DefaultStyle()
	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	for _, m := range []marker.Marker{
		style.Build(6, -5, marker.Add, now),
		style.Build(6, -5, marker.Add, now.Add(20*time.Millisecond)),
		style.Build(6, -5, marker.Delete, now.Add(40*time.Millisecond)),
		style.Build(2, 0, marker.Add, now.Add(5*time.Second)),
		style.Build(2, 0, marker.Add, now.Add(5*time.Second+20*time.Millisecond)),
	} {
		assert.NoError(t, tl.handle(m))
	}

	assert.Equal(t, []string{
		"08:00:00.000 cube/0 add at (6.00, -5.00)",
		"08:00:00.040 cube/0 delete at (6.00, -5.00)",
		"08:00:05.000 cube/0 add at (2.00, 0.00)",
	}, lines)
}

func TestTail_Limit(t *testing.T) {
	tl := &tail{limit: 2, logf: func(string, ...interface{}) {}}
	m := marker.DefaultStyle().Build(6, -5, marker.Add, time.Now())
	assert.NoError(t, tl.handle(m))
	assert.ErrorIs(t, tl.handle(m), errLimit)
	assert.Equal(t, 2, tl.logged)
}
