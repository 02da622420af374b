package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/room-scheduler/internal/shell"
)

var envKeys = []string{
	"ROOMCTL_CONFIG",
	"ROOMCTL_SQLITE_DSN",
	"ROOMCTL_PERSIST",
	"ROOMCTL_SEED_DEMO",
	"ROOMCTL_KNOWLEDGE_FILE",
	"ROOMCTL_HIGH_PRIORITY_THRESHOLD",
	"ROOMCTL_CANDIDATE_SLOTS",
	"ROOMCTL_LOG_LEVEL",
	"ROOMCTL_LOG_FORMAT",
	"ROOMCTL_COLOR",
	"NO_COLOR",
}

const smallKnowledge = `
version: 1
knowledge:
  equipment: [Projector]
  rooms:
    - id: Hall
      capacity: 200
      equipment: [Projector]
  activities:
    - id: Keynote
      kind: Lecture
      attendance: 150
      requires: [Projector]
`

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

type result struct {
	out    string
	errOut string
	err    error
}

func execute(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd(streams{in: strings.NewReader(stdin), out: &out, err: &errOut})
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return result{out: out.String(), errOut: errOut.String(), err: err}
}

func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "roomctl.db")
}

func writeKnowledge(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "knowledge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(smallKnowledge), 0o600))
	return path
}

func TestRunCommand(t *testing.T) {
	t.Run("first run seeds the demonstration data", func(t *testing.T) {
		clearEnv(t)
		res := execute(t, "", "--db", tempDB(t), "run", "available")
		require.NoError(t, res.err)
		assert.Equal(t, "AvailableRoom: [R202, R303, R404]\n", res.out)
	})

	t.Run("bookings persist across invocations", func(t *testing.T) {
		clearEnv(t)
		db := tempDB(t)

		res := execute(t, "", "--db", db, "run", "book", "Lecture_CRP_1", "2026-01-07T09:00", "2026-01-07T11:00", "1")
		require.NoError(t, res.err)
		assert.Equal(t, "Created: Booking_7 (room=R101)\n", res.out)

		res = execute(t, "", "--db", db, "run", "booking", "Booking_7")
		require.NoError(t, res.err)
		assert.Contains(t, res.out, "  room: R101\n")
		assert.Contains(t, res.out, "  time: 2026-01-07T09:00..2026-01-07T11:00\n")

		res = execute(t, "", "--db", db, "snapshots")
		require.NoError(t, res.err)
		assert.Equal(t, 2, strings.Count(res.out, "\n"), "seed and booking each store a snapshot")
		assert.Contains(t, res.out, "rooms=4 | bookings=7")
	})

	t.Run("arguments after the verb are not flags", func(t *testing.T) {
		clearEnv(t)
		res := execute(t, "", "--no-persist", "run", "book", "Lecture_CRP_1", "2026-01-07T09:00", "2026-01-07T11:00", "-1")
		require.NoError(t, res.err)
		assert.Equal(t, "Created: Booking_7 (room=R101)\n", res.out)

		db := tempDB(t)
		res = execute(t, "", "run", "--db", db, "book", "Lecture_CRP_1", "2026-01-07T09:00", "2026-01-07T11:00", "-1")
		require.NoError(t, res.err)
		assert.Equal(t, "Created: Booking_7 (room=R101)\n", res.out)

		res = execute(t, "", "--db", db, "run", "booking", "Booking_7")
		require.NoError(t, res.err)
		assert.Contains(t, res.out, "  priority: -1\n")
	})

	t.Run("unknown verb fails", func(t *testing.T) {
		clearEnv(t)
		res := execute(t, "", "--no-persist", "run", "teleport")
		assert.ErrorIs(t, res.err, shell.ErrUnknownCommand)
		assert.Equal(t, "Unknown command. Type 'help'.\n", res.out)
	})

	t.Run("verb is required", func(t *testing.T) {
		clearEnv(t)
		res := execute(t, "", "--no-persist", "run")
		assert.Error(t, res.err)
	})

	t.Run("in-memory mode leaves no database behind", func(t *testing.T) {
		clearEnv(t)
		db := tempDB(t)
		res := execute(t, "", "--db", db, "--no-persist", "run", "problems")
		require.NoError(t, res.err)
		assert.Contains(t, res.out, "ConflictingBooking")

		_, err := os.Stat(db)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("knowledge file replaces the demonstration seed", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ROOMCTL_KNOWLEDGE_FILE", writeKnowledge(t))
		res := execute(t, "", "--no-persist", "run", "rooms")
		require.NoError(t, res.err)
		assert.Equal(t, "- Hall | capacity=200 | equipment=[Projector]\n", res.out)
	})

	t.Run("invalid configuration is reported", func(t *testing.T) {
		clearEnv(t)
		res := execute(t, "", "--no-persist", "--log-level", "loud", "run", "rooms")
		assert.EqualError(t, res.err, "config: invalid settings: log_level")
	})
}

func TestShellCommand(t *testing.T) {
	clearEnv(t)

	for _, args := range [][]string{{"--no-persist"}, {"--no-persist", "shell"}} {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			res := execute(t, "available\nexit\nrooms\n", args...)
			require.NoError(t, res.err)
			assert.Equal(t, "AvailableRoom: [R202, R303, R404]\n", res.out)
		})
	}
}

func TestSeedCommand(t *testing.T) {
	t.Run("refuses to overwrite without force", func(t *testing.T) {
		clearEnv(t)
		db := tempDB(t)

		res := execute(t, "", "--db", db, "run", "rooms")
		require.NoError(t, res.err)

		res = execute(t, "", "--db", db, "seed")
		require.Error(t, res.err)
		assert.Contains(t, res.err.Error(), "database already holds 4 rooms and 6 bookings")

		res = execute(t, "", "--db", db, "seed", "--force", "--file", writeKnowledge(t))
		require.NoError(t, res.err)
		assert.Regexp(t, `^Seeded: [0-9a-f-]{36} \(1 rooms, 0 bookings\)\n$`, res.out)

		res = execute(t, "", "--db", db, "run", "rooms")
		require.NoError(t, res.err)
		assert.Equal(t, "- Hall | capacity=200 | equipment=[Projector]\n", res.out)
	})

	t.Run("seeds an empty database", func(t *testing.T) {
		clearEnv(t)
		res := execute(t, "", "--db", tempDB(t), "seed")
		require.NoError(t, res.err)
		assert.Regexp(t, `^Seeded: [0-9a-f-]{36} \(4 rooms, 6 bookings\)\n$`, res.out)
	})

	t.Run("requires persistence", func(t *testing.T) {
		clearEnv(t)
		res := execute(t, "", "--no-persist", "seed")
		assert.ErrorIs(t, res.err, errPersistenceDisabled)
	})
}

func TestMigrateCommand(t *testing.T) {
	clearEnv(t)
	db := tempDB(t)

	res := execute(t, "", "--db", db, "migrate")
	require.NoError(t, res.err)
	assert.Equal(t, "Applied: 0001, 0002 (version 0002)\n", res.out)

	res = execute(t, "", "--db", db, "migrate")
	require.NoError(t, res.err)
	assert.Equal(t, "Schema up to date (version 0002)\n", res.out)

	res = execute(t, "", "--db", db, "snapshots")
	require.NoError(t, res.err)
	assert.Equal(t, "No snapshots stored.\n", res.out)

	res = execute(t, "", "--no-persist", "migrate")
	assert.ErrorIs(t, res.err, errPersistenceDisabled)
}
