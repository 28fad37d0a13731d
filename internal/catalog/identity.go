package catalog

import (
	"strconv"

	"github.com/google/uuid"
)

// Identity names one revision of one logical update: a stable UUID
// shared across every revision, paired with a per-revision integer.
// Two Identities with the same ID and different Revision are two
// revisions of the same logical update.
type Identity struct {
	ID       uuid.UUID
	Revision int32
}

// String renders an Identity as "<uuid>.<revision>", convenient for
// log lines and map keys in tests.
func (i Identity) String() string {
	return i.ID.String() + "." + strconv.FormatInt(int64(i.Revision), 10)
}
