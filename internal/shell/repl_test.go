package shell

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/room-scheduler/internal/testfixtures"
)

func TestRunStopsAtExit(t *testing.T) {
	h := newHarness(t)

	err := h.dispatcher.Run(context.Background(), strings.NewReader("available\n\nexit\nrooms\n"))
	require.NoError(t, err)
	assert.Equal(t, "AvailableRoom: [R202, R303, R404]\n", h.out.String())
}

func TestRunKeepsGoingAfterErrors(t *testing.T) {
	h := newHarness(t)

	err := h.dispatcher.Run(context.Background(), strings.NewReader("nonsense\nbooking Booking_99\navailable"))
	require.NoError(t, err)
	assert.Equal(t, lines(
		"Unknown command. Type 'help'.",
		"Booking 'Booking_99' not found.",
		"AvailableRoom: [R202, R303, R404]",
	), h.out.String())
}

func TestRunInteractivePrompts(t *testing.T) {
	services := testfixtures.NewServiceFactory().Reference(t)
	out := &bytes.Buffer{}
	d := NewDispatcher(Services{Placement: services.Placement, Audit: services.Audit, Query: services.Query}, Options{Out: out, Interactive: true})

	require.NoError(t, d.Run(context.Background(), strings.NewReader("available\n")))

	got := out.String()
	assert.True(t, strings.HasPrefix(got, "roomctl: room reservation shell\n"+helpText), got)
	assert.Contains(t, got, prompt+"AvailableRoom: [R202, R303, R404]\n")
	assert.True(t, strings.HasSuffix(got, prompt+"\n"), "end of input closes the prompt line")
}

func TestRunTagsLogsWithCommandID(t *testing.T) {
	services := testfixtures.NewServiceFactory().Reference(t)
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	d := NewDispatcher(Services{Placement: services.Placement, Audit: services.Audit, Query: services.Query}, Options{Out: &bytes.Buffer{}, Logger: logger})

	require.NoError(t, d.Run(context.Background(), strings.NewReader("book Lecture_CRP_1 2026-01-07T09:00 2026-01-07T11:00 1\n")))

	records := strings.Split(strings.TrimSpace(logs.String()), "\n")
	require.NotEmpty(t, records)
	for _, record := range records {
		assert.Contains(t, record, `"command_id":`)
	}
	assert.Contains(t, logs.String(), `"msg":"booking created"`)
}

func TestRunHonoursCancellation(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, h.dispatcher.Run(ctx, strings.NewReader("available\n")))
	assert.Empty(t, h.out.String())
}
