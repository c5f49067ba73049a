package types

import (
	"time"

	"github.com/google/uuid"
)

// BatchID identifies one batch group release, used only for correlating
// decision-log entries that belong to the same release.
type BatchID string

// ActivationID identifies one trigger activation event for decision-log
// correlation.
type ActivationID string

// NewBatchID generates a UUIDv7 batch release identifier. Time-ordering
// keeps decision-log entries for the same release clustered when sorted.
func NewBatchID() BatchID {
	return BatchID(uuid.Must(uuid.NewV7()).String())
}

// NewActivationID generates a UUIDv7 activation identifier.
func NewActivationID() ActivationID {
	return ActivationID(uuid.Must(uuid.NewV7()).String())
}

// idTime extracts the timestamp embedded in a UUIDv7 string. Returns the
// zero time for malformed input; callers treat that as "unknown".
func idTime(s string) time.Time {
	u, err := uuid.Parse(s)
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}

// BatchIDTime extracts the creation time embedded in a BatchID.
func BatchIDTime(id BatchID) time.Time { return idTime(string(id)) }

// ActivationIDTime extracts the creation time embedded in an ActivationID.
func ActivationIDTime(id ActivationID) time.Time { return idTime(string(id)) }
