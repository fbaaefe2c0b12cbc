package userctx

import "fmt"

// PersistenceCorruptError reports an unreadable persistence file. Loading
// recovers from it by substituting defaults.
type PersistenceCorruptError struct {
	Path   string
	Backup string
	Cause  error
}

func (e *PersistenceCorruptError) Error() string {
	if e.Backup != "" {
		return fmt.Sprintf("persistence file %s is corrupt (backed up to %s): %v", e.Path, e.Backup, e.Cause)
	}
	return fmt.Sprintf("persistence file %s is corrupt: %v", e.Path, e.Cause)
}

func (e *PersistenceCorruptError) Unwrap() error { return e.Cause }
