package db

import "errors"

// ErrNotFound is returned for missing records
var ErrNotFound = errors.New("not found")
