package wire

import "errors"

// ErrProtocolViolation marks a frontend message sequence that violates the
// state machine described in spec.md §4.5 (e.g. Bind before Parse,
// Execute on an unknown portal).
var ErrProtocolViolation = errors.New("wire: protocol violation")

// ErrMessageTooLarge is returned when a frontend message exceeds the
// configured size cap.
var ErrMessageTooLarge = errors.New("wire: message exceeds size limit")
