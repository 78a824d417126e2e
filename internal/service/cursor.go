package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	inverrors "github.com/abgdnv/goinventory/internal/errors"
	"github.com/abgdnv/goinventory/internal/store"
	"github.com/google/uuid"
)

// A cursor is the literal pair "<createdAtEpochMillis>,<id>" of the last row a
// page returned. Timestamps are persisted with millisecond precision, so the
// encoding round-trips exactly. Tokens that do not parse into both parts are
// rejected; a malformed cursor must never silently widen the page predicate.

func encodeCursor(c store.Cursor) string {
	return fmt.Sprintf("%d,%s", c.CreatedAt.UnixMilli(), c.ID)
}

func decodeCursor(token string) (store.Cursor, error) {
	millisPart, idPart, found := strings.Cut(token, ",")
	if !found {
		return store.Cursor{}, fmt.Errorf("%w: expected \"<epochMillis>,<id>\", got %q", inverrors.ErrInvalidCursor, token)
	}
	millis, err := strconv.ParseInt(millisPart, 10, 64)
	if err != nil || millis < 0 {
		return store.Cursor{}, fmt.Errorf("%w: bad timestamp %q", inverrors.ErrInvalidCursor, millisPart)
	}
	id, err := uuid.Parse(idPart)
	if err != nil {
		return store.Cursor{}, fmt.Errorf("%w: bad id %q", inverrors.ErrInvalidCursor, idPart)
	}
	return store.Cursor{
		CreatedAt: time.UnixMilli(millis).UTC(),
		ID:        id,
	}, nil
}
