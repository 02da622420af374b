package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/example/room-scheduler/internal/derive"
	"github.com/example/room-scheduler/internal/knowledge"
)

// RoomAdminService changes the administrative attributes of rooms and keeps the
// derived tags in step.
type RoomAdminService struct {
	store  *knowledge.Store
	logger *slog.Logger
}

// NewRoomAdminService constructs a room administration service over store.
func NewRoomAdminService(store *knowledge.Store) *RoomAdminService {
	return NewRoomAdminServiceWithLogger(store, nil)
}

// NewRoomAdminServiceWithLogger constructs a room administration service with a specified logger.
func NewRoomAdminServiceWithLogger(store *knowledge.Store, logger *slog.Logger) *RoomAdminService {
	return &RoomAdminService{store: store, logger: defaultLogger(logger)}
}

func (s *RoomAdminService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RoomAdminService", operation, attrs...)
}

// SetCapacity sets a room's capacity; nil marks it unknown. Returns the updated room.
func (s *RoomAdminService) SetCapacity(ctx context.Context, roomID string, capacity *int) (knowledge.Room, error) {
	attrs := []any{"room_id", roomID}
	if capacity != nil {
		attrs = append(attrs, "capacity", *capacity)
	}
	return s.update(ctx, s.loggerWith(ctx, "SetCapacity", attrs...), roomID, func() error {
		return s.store.SetRoomCapacity(roomID, capacity)
	})
}

// SetEquipment replaces a room's installed equipment. Returns the updated room.
func (s *RoomAdminService) SetEquipment(ctx context.Context, roomID string, equipment []string) (knowledge.Room, error) {
	logger := s.loggerWith(ctx, "SetEquipment", "room_id", roomID, "equipment", equipment)
	return s.update(ctx, logger, roomID, func() error {
		return s.store.SetRoomEquipment(roomID, equipment)
	})
}

func (s *RoomAdminService) update(ctx context.Context, logger *slog.Logger, roomID string, mutate func() error) (room knowledge.Room, err error) {
	if s == nil {
		return knowledge.Room{}, fmt.Errorf("RoomAdminService is nil")
	}
	if s.store == nil {
		return knowledge.Room{}, fmt.Errorf("knowledge store not configured")
	}
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "room updated")
	}()

	err = s.store.Exclusive(func() error {
		if kind, ok := s.store.Kind(roomID); ok && kind != knowledge.KindRoom {
			return fmt.Errorf("%w: %s is %s, not a room", ErrBadRequest, roomID, kind)
		}
		if err := mutate(); err != nil {
			return classifyStoreError(err)
		}
		derive.Refresh(s.store)
		room, _ = s.store.Room(roomID)
		return nil
	})
	return room, err
}

// classifyStoreError lifts store failures onto the service sentinels.
func classifyStoreError(err error) error {
	switch {
	case errors.Is(err, knowledge.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, knowledge.ErrInvalid), errors.Is(err, knowledge.ErrUnknownReference):
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return err
}
