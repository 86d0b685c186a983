package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/add-markers/internal/task"
	"github.com/banshee-data/add-markers/internal/timeutil"
)

func TestPublishLines(t *testing.T) {
	clock := timeutil.NewMockClock(time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC))
	input := "4.0,-5.35\n# comment\n{\"x\":0,\"y\":-0.35}\n"

	var got []task.Pose
	n, err := publishLines(context.Background(), strings.NewReader(input), func(p task.Pose) error {
		got = append(got, p)
		return nil
	}, 50*time.Millisecond, clock)

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []task.Pose{{X: 4.0, Y: -5.35}, {X: 0, Y: -0.35}}, got)
	assert.Equal(t, []time.Duration{50 * time.Millisecond}, clock.Sleeps())
}

func TestPublishLines_SendError(t *testing.T) {
	boom := errors.New("stream closed")
	n, err := publishLines(context.Background(), strings.NewReader("1,1\n2,2\n"), func(task.Pose) error {
		return boom
	}, 0, timeutil.RealClock{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, n)
}
