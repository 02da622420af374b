package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/example/room-scheduler/internal/application"
	"github.com/example/room-scheduler/internal/knowledge"
	"github.com/example/room-scheduler/internal/logging"
)

const helpText = `Commands:
  rooms
  activities
  bookings
  booking <Booking_X>        - show details of one booking
  available
  problems

  book <activity> <start> <end> <priority>
    example:
    book Lecture_CRP_1 2026-01-05T14:00 2026-01-05T16:00 1

  available_between <start> <end> [min_capacity] [equipment_csv]
    example:
    available_between 2026-01-05T09:00 2026-01-05T11:00 40 Projector
    available_between 2026-01-05T09:00 2026-01-05T11:00 20 Projector,Computers

  set_capacity <room> <capacity|unknown>
  set_equipment <room> [equipment_csv]
    example:
    set_capacity R303 45
    set_equipment R303 Projector,Whiteboard

  suggest
  apply                      - apply every suggestion with a concrete target
  efficiency                 - capacity utilisation report
  save                       - store a snapshot now
  help
  exit
`

// ErrUnknownCommand is returned by Execute for a verb it does not know.
var ErrUnknownCommand = errors.New("shell: unknown command")

// Services are the application services the shell drives. Snapshots may be nil
// when persistence is disabled.
type Services struct {
	Placement *application.PlacementService
	Audit     *application.AuditService
	Query     *application.QueryService
	Rooms     *application.RoomAdminService
	Snapshots *application.SnapshotService
}

// Options configures a Dispatcher.
type Options struct {
	Out    io.Writer
	Styles Styles
	Logger *slog.Logger
	// AutoSave stores a snapshot after every command that changed the store.
	AutoSave bool
	// Interactive enables the banner and the prompt in Run.
	Interactive bool
}

// Dispatcher executes shell command lines.
type Dispatcher struct {
	services    Services
	out         io.Writer
	styles      Styles
	logger      *slog.Logger
	autoSave    bool
	interactive bool
	commands    map[string]command
}

type command func(ctx context.Context, args []string) error

// NewDispatcher wires a dispatcher over services.
func NewDispatcher(services Services, opts Options) *Dispatcher {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	d := &Dispatcher{
		services:    services,
		out:         out,
		styles:      opts.Styles,
		logger:      logger,
		autoSave:    opts.AutoSave && services.Snapshots != nil,
		interactive: opts.Interactive,
	}
	d.commands = map[string]command{
		"rooms":             d.rooms,
		"activities":        d.activities,
		"bookings":          d.bookings,
		"booking":           d.booking,
		"available":         d.available,
		"problems":          d.problems,
		"available_between": d.availableBetween,
		"book":              d.book,
		"set_capacity":      d.setCapacity,
		"set_equipment":     d.setEquipment,
		"suggest":           d.suggest,
		"apply":             d.apply,
		"efficiency":        d.efficiency,
		"save":              d.save,
		"help":              d.help,
	}
	return d
}

// Execute runs one command line. It reports exit for "exit" and "quit". Errors are
// printed before they are returned, so interactive callers may ignore them.
func (d *Dispatcher) Execute(ctx context.Context, line string) (exit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	verb := strings.ToLower(fields[0])
	if verb == "exit" || verb == "quit" {
		return true, nil
	}

	cmd, ok := d.commands[verb]
	if !ok {
		d.println("Unknown command. Type 'help'.")
		return false, fmt.Errorf("%w: %s", ErrUnknownCommand, verb)
	}

	logger := d.commandLogger(ctx).With("verb", verb)
	if err := cmd(ctx, fields[1:]); err != nil {
		logger.DebugContext(ctx, "command failed", "error", err, "error_kind", application.ErrorKind(err))
		return false, err
	}
	logger.DebugContext(ctx, "command completed")
	return false, nil
}

func (d *Dispatcher) commandLogger(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger
	}
	return d.logger
}

func (d *Dispatcher) println(a ...any) {
	fmt.Fprintln(d.out, a...)
}

func (d *Dispatcher) printf(format string, a ...any) {
	fmt.Fprintf(d.out, format, a...)
}

// fail prints err in the failure style and returns it.
func (d *Dispatcher) fail(err error) error {
	d.println(d.styles.Failure("Error: " + err.Error()))
	return err
}

// usage prints a usage line and returns a bad request error.
func (d *Dispatcher) usage(line string) error {
	d.println(line)
	return fmt.Errorf("%w: %s", application.ErrBadRequest, line)
}

func (d *Dispatcher) help(context.Context, []string) error {
	d.printf("%s", helpText)
	return nil
}

func listing(ids []string) string {
	return "[" + strings.Join(ids, ", ") + "]"
}

func capacityText(capacity *int) string {
	if capacity == nil {
		return "unknown"
	}
	return strconv.Itoa(*capacity)
}

func (d *Dispatcher) rooms(ctx context.Context, _ []string) error {
	rooms, err := d.services.Query.Rooms(ctx)
	if err != nil {
		return d.fail(err)
	}
	for _, r := range rooms {
		d.printf("- %s | capacity=%s | equipment=%s\n", r.ID, capacityText(r.Capacity), listing(r.Equipment))
	}
	return nil
}

func (d *Dispatcher) activities(ctx context.Context, _ []string) error {
	activities, err := d.services.Query.Activities(ctx)
	if err != nil {
		return d.fail(err)
	}
	for _, a := range activities {
		line := fmt.Sprintf("- %s | kind=%s | attendance=%s | requires=%s", a.ID, a.Kind, capacityText(a.Attendance), listing(a.RequiredEquipment))
		if a.Course != "" {
			line += " | course=" + a.Course
		}
		d.println(line)
	}
	return nil
}

func (d *Dispatcher) bookings(ctx context.Context, _ []string) error {
	bookings, err := d.services.Query.Bookings(ctx)
	if err != nil {
		return d.fail(err)
	}
	for _, b := range bookings {
		d.printf("- %s: room=%s, activity=%s, %s..%s, priority=%d\n", b.ID, b.RoomID, b.ActivityID, b.Start, b.End, b.Priority)
	}
	return nil
}

func (d *Dispatcher) booking(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return d.usage("Usage: booking <Booking_X>")
	}
	b, err := d.services.Query.Booking(ctx, args[0])
	if errors.Is(err, application.ErrNotFound) {
		d.printf("Booking '%s' not found.\n", args[0])
		return err
	}
	if err != nil {
		return d.fail(err)
	}
	d.println(d.styles.Heading(b.ID))
	d.printf("  room: %s\n", b.RoomID)
	d.printf("  activity: %s\n", b.ActivityID)
	d.printf("  time: %s..%s\n", b.Start, b.End)
	d.printf("  priority: %d\n", b.Priority)
	problems := b.Tags.String()
	if b.Tags != 0 {
		problems = d.styles.Warning(problems)
	}
	d.printf("  problems: %s\n", problems)
	return nil
}

func (d *Dispatcher) available(ctx context.Context, _ []string) error {
	ids, err := d.services.Query.AvailableRooms(ctx)
	if err != nil {
		return d.fail(err)
	}
	d.println("AvailableRoom:", listing(ids))
	return nil
}

func (d *Dispatcher) problems(ctx context.Context, _ []string) error {
	report, err := d.services.Query.Problems(ctx)
	if err != nil {
		return d.fail(err)
	}
	d.println("ConflictingBooking:", listing(report.Conflicting))
	d.println("UnderCapacityBooking:", listing(report.UnderCapacity))
	d.println("MissingEquipmentBooking:", listing(report.MissingEquipment))
	d.println("OverBookedRoom:", listing(report.OverBooked))
	return nil
}

// availableBetween accepts an optional capacity and an optional equipment list. A
// third argument that is not an integer is read as the equipment list.
func (d *Dispatcher) availableBetween(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 4 {
		return d.usage("Usage: available_between <start> <end> [min_capacity] [equipment_csv]")
	}
	query := application.AvailabilityQuery{Start: args[0], End: args[1]}
	rest := args[2:]
	if len(rest) > 0 {
		if n, err := strconv.Atoi(rest[0]); err == nil {
			query.MinCapacity = &n
			rest = rest[1:]
		}
	}
	if len(rest) > 1 {
		return d.usage("Usage: available_between <start> <end> [min_capacity] [equipment_csv]")
	}
	if len(rest) == 1 {
		query.Equipment = splitList(rest[0])
	}

	rooms, err := d.services.Query.AvailableBetween(ctx, query)
	if err != nil {
		return d.fail(err)
	}
	if len(rooms) == 0 {
		d.printf("No rooms free %s..%s.\n", query.Start, query.End)
		return nil
	}
	d.printf("Free %s..%s:\n", query.Start, query.End)
	for _, r := range rooms {
		d.printf("- %s | capacity=%s | equipment=%s\n", r.ID, capacityText(r.Capacity), listing(r.Equipment))
	}
	return nil
}

func (d *Dispatcher) book(ctx context.Context, args []string) error {
	if len(args) != 4 {
		return d.usage("Usage: book <activity> <start> <end> <priority>")
	}
	priority, err := strconv.Atoi(args[3])
	if err != nil {
		return d.usage("priority must be an integer (e.g. 1 lecture, 10 exam)")
	}

	result, err := d.services.Placement.CreateBooking(ctx, application.BookingRequest{
		ActivityID: args[0],
		Start:      args[1],
		End:        args[2],
		Priority:   priority,
	})
	var placementErr *application.PlacementError
	if errors.As(err, &placementErr) {
		d.println(d.styles.Failure(capitalize(placementErr.Error())))
		for _, line := range placementErr.Details {
			d.println("  " + line)
		}
		return err
	}
	if err != nil {
		return d.fail(err)
	}

	d.println(d.styles.Success(fmt.Sprintf("Created: %s (room=%s)", result.BookingID, result.RoomID)))
	if moved := result.Relocated; moved != nil {
		d.printf("Relocated: %s -> %s %s..%s\n", moved.BookingID, moved.ToRoom, moved.ToStart, moved.ToEnd)
	}
	d.persist(ctx)
	return nil
}

func (d *Dispatcher) suggest(ctx context.Context, _ []string) error {
	suggestions, err := d.services.Audit.GenerateSuggestions(ctx)
	if err != nil {
		return d.fail(err)
	}
	if len(suggestions) == 0 {
		d.println("No suggestions (no detected problems).")
		return nil
	}
	for _, s := range suggestions {
		d.printf("- %s | %s: %s\n", s.BookingID, s.Issue, s.Recommendation)
	}
	return nil
}

func (d *Dispatcher) apply(ctx context.Context, _ []string) error {
	report, err := d.services.Audit.Apply(ctx)
	if err != nil {
		return d.fail(err)
	}
	if len(report.Applied) == 0 && len(report.Skipped) == 0 {
		d.println("No suggestions (no detected problems).")
		return nil
	}
	for _, moved := range report.Applied {
		d.println(d.styles.Success(fmt.Sprintf("Applied: %s -> %s %s..%s", moved.BookingID, moved.ToRoom, moved.ToStart, moved.ToEnd)))
	}
	for _, s := range report.Skipped {
		d.println(d.styles.Warning(fmt.Sprintf("Skipped: %s | %s: %s", s.BookingID, s.Issue, s.Recommendation)))
	}
	if len(report.Applied) > 0 {
		d.persist(ctx)
	}
	return nil
}

func (d *Dispatcher) efficiency(ctx context.Context, _ []string) error {
	report, err := d.services.Query.Efficiency(ctx)
	if err != nil {
		return d.fail(err)
	}
	if len(report.Entries) == 0 {
		d.println("No bookings with known capacity and attendance.")
		return nil
	}
	d.println(d.styles.Heading(fmt.Sprintf("Efficiency: average=%.2f wasteful=%d", report.Average, report.Wasteful)))
	for _, e := range report.Entries {
		class := string(e.Class)
		if e.Class == application.EfficiencyVeryPoor || e.Class == application.EfficiencyPoor {
			class = d.styles.Warning(class)
		}
		d.printf("- %s | %s | %d/%d | utilisation=%.0f%% | score=%.2f | %s\n",
			e.BookingID, e.RoomID, e.Attendance, e.Capacity, e.Utilization*100, e.Score, class)
		for _, option := range e.Better {
			d.println(d.styles.Dim(fmt.Sprintf("    better: %s (capacity=%d, score=%.2f)", option.RoomID, option.Capacity, option.Score)))
		}
	}
	return nil
}

func (d *Dispatcher) save(ctx context.Context, _ []string) error {
	if d.services.Snapshots == nil {
		d.println("Persistence is disabled.")
		return nil
	}
	info, err := d.services.Snapshots.Save(ctx)
	if err != nil {
		return d.fail(err)
	}
	d.println(d.styles.Success(fmt.Sprintf("Saved: %s (%d bookings)", info.ID, info.Bookings)))
	return nil
}

// persist stores a snapshot after a mutation. A failed save is reported but does
// not fail the command that triggered it.
func (d *Dispatcher) persist(ctx context.Context) {
	if !d.autoSave {
		return
	}
	if _, err := d.services.Snapshots.Save(ctx); err != nil {
		d.println(d.styles.Warning("Warning: snapshot not saved: " + err.Error()))
	}
}

func (d *Dispatcher) setCapacity(ctx context.Context, args []string) error {
	const line = "Usage: set_capacity <room> <capacity|unknown>"
	if len(args) != 2 {
		return d.usage(line)
	}
	var capacity *int
	if !strings.EqualFold(args[1], "unknown") {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return d.usage(line)
		}
		capacity = &n
	}
	room, err := d.services.Rooms.SetCapacity(ctx, args[0], capacity)
	if err != nil {
		return d.fail(err)
	}
	d.roomUpdated(ctx, room)
	return nil
}

func (d *Dispatcher) setEquipment(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return d.usage("Usage: set_equipment <room> [equipment_csv]")
	}
	var equipment []string
	if len(args) == 2 {
		equipment = splitList(args[1])
	}
	room, err := d.services.Rooms.SetEquipment(ctx, args[0], equipment)
	if err != nil {
		return d.fail(err)
	}
	d.roomUpdated(ctx, room)
	return nil
}

func (d *Dispatcher) roomUpdated(ctx context.Context, r knowledge.Room) {
	d.println(d.styles.Success(fmt.Sprintf("Updated: %s | capacity=%s | equipment=%s", r.ID, capacityText(r.Capacity), listing(r.Equipment))))
	d.persist(ctx)
}

func splitList(csv string) []string {
	return lo.Compact(lo.Map(strings.Split(csv, ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	}))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
