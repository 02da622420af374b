package knowledge

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/example/room-scheduler/internal/scheduler"
)

var (
	// ErrDuplicateID is returned when an id is already used by any entity kind.
	ErrDuplicateID = errors.New("knowledge: duplicate id")
	// ErrUnknownReference is returned when an entity refers to an id the store does not hold.
	ErrUnknownReference = errors.New("knowledge: unknown reference")
	// ErrNotFound is returned when the addressed entity does not exist.
	ErrNotFound = errors.New("knowledge: not found")
	// ErrInvalid is returned for malformed ids and attribute values.
	ErrInvalid = errors.New("knowledge: invalid value")
)

// BookingIDPrefix prefixes generated booking ids.
const BookingIDPrefix = "Booking_"

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// State is a detached copy of everything the store holds, in insertion order.
type State struct {
	Equipment  []string
	Rooms      []Room
	Activities []Activity
	Bookings   []Booking
	// Counter is the highest booking sequence number handed out so far.
	Counter int
}

// Store is the in-memory knowledge base. It owns every entity; accessors return copies.
type Store struct {
	mu sync.RWMutex
	// writeMu serialises multi-step mutations, see Exclusive.
	writeMu sync.Mutex

	kinds map[string]Kind

	equipment []string

	rooms     map[string]*Room
	roomOrder []string

	activities    map[string]*Activity
	activityOrder []string

	bookings     map[string]*Booking
	bookingOrder []string

	counter int
	// revision increases on every mutation, derived tags included.
	revision uint64
}

// NewStore returns an empty store.
func NewStore() *Store {
	s := &Store{}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.kinds = make(map[string]Kind)
	s.equipment = nil
	s.rooms = make(map[string]*Room)
	s.roomOrder = nil
	s.activities = make(map[string]*Activity)
	s.activityOrder = nil
	s.bookings = make(map[string]*Booking)
	s.bookingOrder = nil
	s.counter = 0
}

// Exclusive runs fn while holding the store's writer lock. Services wrap every
// read-modify-write sequence in it so concurrent callers observe whole operations.
// fn must not call Exclusive again.
func (s *Store) Exclusive(fn func() error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return fn()
}

func validateID(id string) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%w: id %q must be alphanumeric or underscore", ErrInvalid, id)
	}
	return nil
}

func (s *Store) claimLocked(id string, kind Kind) error {
	if err := validateID(id); err != nil {
		return err
	}
	if existing, ok := s.kinds[id]; ok {
		return fmt.Errorf("%w: %s already names a %s", ErrDuplicateID, id, existing)
	}
	s.kinds[id] = kind
	return nil
}

func (s *Store) requireEquipmentLocked(ids []string) error {
	for _, id := range ids {
		if s.kinds[id] != KindEquipment {
			return fmt.Errorf("%w: equipment %s", ErrUnknownReference, id)
		}
	}
	return nil
}

// AddEquipment registers an equipment token.
func (s *Store) AddEquipment(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.claimLocked(id, KindEquipment); err != nil {
		return err
	}
	s.equipment = append(s.equipment, id)
	s.revision++
	return nil
}

// AddRoom registers a room. Capacity, when known, must be positive and every
// installed item must already be registered equipment.
func (s *Store) AddRoom(room Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if room.Capacity != nil && *room.Capacity <= 0 {
		return fmt.Errorf("%w: room %s capacity must be positive", ErrInvalid, room.ID)
	}
	if err := s.requireEquipmentLocked(room.Equipment); err != nil {
		return fmt.Errorf("room %s: %w", room.ID, err)
	}
	if err := s.claimLocked(room.ID, KindRoom); err != nil {
		return err
	}
	r := cloneRoom(room)
	r.Equipment = dedupe(r.Equipment)
	s.rooms[r.ID] = &r
	s.roomOrder = append(s.roomOrder, r.ID)
	s.revision++
	return nil
}

// AddActivity registers an activity.
func (s *Store) AddActivity(activity Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !activity.Kind.Valid() {
		return fmt.Errorf("%w: activity %s kind %q", ErrInvalid, activity.ID, activity.Kind)
	}
	if activity.Attendance != nil && *activity.Attendance < 0 {
		return fmt.Errorf("%w: activity %s attendance must not be negative", ErrInvalid, activity.ID)
	}
	if err := s.requireEquipmentLocked(activity.RequiredEquipment); err != nil {
		return fmt.Errorf("activity %s: %w", activity.ID, err)
	}
	if err := s.claimLocked(activity.ID, KindActivity); err != nil {
		return err
	}
	a := cloneActivity(activity)
	a.RequiredEquipment = dedupe(a.RequiredEquipment)
	s.activities[a.ID] = &a
	s.activityOrder = append(s.activityOrder, a.ID)
	s.revision++
	return nil
}

// AddBooking registers a booking after checking its references and interval.
// Derived tags on the argument are ignored.
func (s *Store) AddBooking(booking Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkPlacementLocked(booking.RoomID, booking.Start, booking.End); err != nil {
		return fmt.Errorf("booking %s: %w", booking.ID, err)
	}
	if s.kinds[booking.ActivityID] != KindActivity {
		return fmt.Errorf("booking %s: %w: activity %s", booking.ID, ErrUnknownReference, booking.ActivityID)
	}
	if err := s.claimLocked(booking.ID, KindBooking); err != nil {
		return err
	}
	b := booking
	b.Tags = 0
	s.bookings[b.ID] = &b
	s.bookingOrder = append(s.bookingOrder, b.ID)
	s.observeBookingIDLocked(b.ID)
	s.revision++
	return nil
}

func (s *Store) checkPlacementLocked(roomID, start, end string) error {
	if s.kinds[roomID] != KindRoom {
		return fmt.Errorf("%w: room %s", ErrUnknownReference, roomID)
	}
	interval, err := scheduler.ParseInterval(start, end)
	if err != nil {
		return err
	}
	if !interval.Valid() {
		return scheduler.ErrEmptyInterval
	}
	return nil
}

func (s *Store) observeBookingIDLocked(id string) {
	n, ok := bookingSequence(id)
	if ok && n > s.counter {
		s.counter = n
	}
}

func bookingSequence(id string) (int, bool) {
	digits, ok := strings.CutPrefix(id, BookingIDPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// NextBookingID returns a fresh booking id Booking_<k>. k starts at
// max(counter, booking count) + 1 and skips ids already in use, so ids are never
// recycled even after bookings disappear from a restored state.
func (s *Store) NextBookingID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	k := max(s.counter, len(s.bookingOrder)) + 1
	for {
		id := BookingIDPrefix + strconv.Itoa(k)
		if _, taken := s.kinds[id]; !taken {
			return id
		}
		k++
	}
}

// MoveBooking reassigns a booking's room and interval.
func (s *Store) MoveBooking(id, roomID, start, end string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return fmt.Errorf("%w: booking %s", ErrNotFound, id)
	}
	if err := s.checkPlacementLocked(roomID, start, end); err != nil {
		return fmt.Errorf("booking %s: %w", id, err)
	}
	b.RoomID = roomID
	b.Start = start
	b.End = end
	s.revision++
	return nil
}

// SetRoomCapacity updates a room's capacity; nil marks it unknown.
func (s *Store) SetRoomCapacity(id string, capacity *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[id]
	if !ok {
		return fmt.Errorf("%w: room %s", ErrNotFound, id)
	}
	if capacity != nil && *capacity <= 0 {
		return fmt.Errorf("%w: room %s capacity must be positive", ErrInvalid, id)
	}
	r.Capacity = cloneInt(capacity)
	s.revision++
	return nil
}

// SetRoomEquipment replaces a room's installed equipment.
func (s *Store) SetRoomEquipment(id string, equipment []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[id]
	if !ok {
		return fmt.Errorf("%w: room %s", ErrNotFound, id)
	}
	if err := s.requireEquipmentLocked(equipment); err != nil {
		return fmt.Errorf("room %s: %w", id, err)
	}
	r.Equipment = dedupe(slices.Clone(equipment))
	s.revision++
	return nil
}

// ApplyDerived replaces every derived tag. Bookings absent from tags end up with no
// tags and rooms absent from availability end up unknown.
func (s *Store) ApplyDerived(tags map[string]Tag, availability map[string]Availability) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, b := range s.bookings {
		b.Tags = tags[id]
	}
	for id, r := range s.rooms {
		r.Availability = availability[id]
	}
	s.revision++
}

// Kind resolves an id across all entity kinds.
func (s *Store) Kind(id string) (Kind, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	kind, ok := s.kinds[id]
	return kind, ok
}

// Equipment lists equipment ids in insertion order.
func (s *Store) Equipment() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.equipment)
}

// Rooms lists rooms in insertion order.
func (s *Store) Rooms() []Room {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lo.Map(s.roomOrder, func(id string, _ int) Room { return cloneRoom(*s.rooms[id]) })
}

// Room resolves a room by id.
func (s *Store) Room(id string) (Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[id]
	if !ok {
		return Room{}, false
	}
	return cloneRoom(*r), true
}

// Activities lists activities in insertion order.
func (s *Store) Activities() []Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lo.Map(s.activityOrder, func(id string, _ int) Activity { return cloneActivity(*s.activities[id]) })
}

// Activity resolves an activity by id.
func (s *Store) Activity(id string) (Activity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.activities[id]
	if !ok {
		return Activity{}, false
	}
	return cloneActivity(*a), true
}

// Bookings lists bookings in insertion order.
func (s *Store) Bookings() []Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lo.Map(s.bookingOrder, func(id string, _ int) Booking { return *s.bookings[id] })
}

// Booking resolves a booking by id.
func (s *Store) Booking(id string) (Booking, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings[id]
	if !ok {
		return Booking{}, false
	}
	return *b, true
}

// Snapshot returns a deep copy of the store.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := State{
		Equipment:  slices.Clone(s.equipment),
		Rooms:      make([]Room, 0, len(s.roomOrder)),
		Activities: make([]Activity, 0, len(s.activityOrder)),
		Bookings:   make([]Booking, 0, len(s.bookingOrder)),
		Counter:    s.counter,
	}
	for _, id := range s.roomOrder {
		state.Rooms = append(state.Rooms, cloneRoom(*s.rooms[id]))
	}
	for _, id := range s.activityOrder {
		state.Activities = append(state.Activities, cloneActivity(*s.activities[id]))
	}
	for _, id := range s.bookingOrder {
		state.Bookings = append(state.Bookings, *s.bookings[id])
	}
	return state
}

// Restore replaces the whole store with state. Ids must be well formed and unique
// across kinds. Booking references and instants are not checked, so previously
// persisted data that has gone stale still loads; the derivation pass skips such
// bookings. On error the store is left unchanged.
func (s *Store) Restore(state State) error {
	next := NewStore()
	for _, id := range state.Equipment {
		if err := next.claimLocked(id, KindEquipment); err != nil {
			return err
		}
		next.equipment = append(next.equipment, id)
	}
	for _, room := range state.Rooms {
		if err := next.claimLocked(room.ID, KindRoom); err != nil {
			return err
		}
		r := cloneRoom(room)
		next.rooms[r.ID] = &r
		next.roomOrder = append(next.roomOrder, r.ID)
	}
	for _, activity := range state.Activities {
		if err := next.claimLocked(activity.ID, KindActivity); err != nil {
			return err
		}
		a := cloneActivity(activity)
		next.activities[a.ID] = &a
		next.activityOrder = append(next.activityOrder, a.ID)
	}
	for _, booking := range state.Bookings {
		if err := next.claimLocked(booking.ID, KindBooking); err != nil {
			return err
		}
		b := booking
		next.bookings[b.ID] = &b
		next.bookingOrder = append(next.bookingOrder, b.ID)
		next.observeBookingIDLocked(b.ID)
	}
	if state.Counter > next.counter {
		next.counter = state.Counter
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.kinds = next.kinds
	s.equipment = next.equipment
	s.rooms = next.rooms
	s.roomOrder = next.roomOrder
	s.activities = next.activities
	s.activityOrder = next.activityOrder
	s.bookings = next.bookings
	s.bookingOrder = next.bookingOrder
	s.counter = next.counter
	s.revision++
	return nil
}

func dedupe(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	return lo.Uniq(ids)
}

// Revision returns a number that changes whenever the store is mutated.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}
