package repository

import (
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Cursor is a position in the (created_at desc, id desc) message order.
// Both fields are needed: messages written in the same microsecond share created_at.
type Cursor struct {
	CreatedAt time.Time
	ID        int64
}

// CursorAt returns the cursor positioned on a message; the next page starts
// strictly older than it.
func CursorAt(createdAt time.Time, id int64) Cursor {
	return Cursor{CreatedAt: createdAt.UTC().Truncate(time.Microsecond), ID: id}
}

// Encode returns the opaque token handed to clients
func (c Cursor) Encode() string {
	raw := strconv.FormatInt(c.CreatedAt.UnixMicro(), 10) + ":" + strconv.FormatInt(c.ID, 10)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token produced by Encode
func DecodeCursor(token string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, errors.Wrap(err, "cursor.Decode.base64")
	}
	ts, id, ok := strings.Cut(string(raw), ":")
	if !ok {
		return Cursor{}, errors.New("cursor.Decode: missing separator")
	}
	micros, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return Cursor{}, errors.Wrap(err, "cursor.Decode.timestamp")
	}
	msgID, err := strconv.ParseInt(id, 10, 64)
	if err != nil || msgID <= 0 {
		return Cursor{}, errors.New("cursor.Decode: invalid id")
	}
	return Cursor{CreatedAt: time.UnixMicro(micros).UTC(), ID: msgID}, nil
}
