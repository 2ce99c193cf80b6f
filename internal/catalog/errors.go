package catalog

import "errors"

var (
	// ErrNotInitialized means a query ran before Open. Programmer error;
	// should never reach production callers.
	ErrNotInitialized = errors.New("catalog: not initialized")

	// ErrOpenFailed means the catalog file could not be opened at all.
	// Fatal; surfaced to the user as "reinstall or update required".
	ErrOpenFailed = errors.New("catalog: open failed")

	// ErrQueryFailed wraps an underlying storage error during a query.
	ErrQueryFailed = errors.New("catalog: query failed")

	// ErrImportFailed means a bulk upsert was rolled back; the catalog is
	// unchanged from its pre-import state.
	ErrImportFailed = errors.New("catalog: import failed")
)
