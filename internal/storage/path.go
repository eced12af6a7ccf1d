package storage

import (
	"fmt"
	"path"
	"time"
)

// BuildArchiveKey names an events snapshot object. Keys are date-partitioned
// so archives from the same day group together under one listing prefix.
func BuildArchiveKey(at time.Time) string {
	ts := at.UTC()
	return path.Join(
		fmt.Sprintf("%04d/%02d/%02d", ts.Year(), ts.Month(), ts.Day()),
		fmt.Sprintf("events-%d.parquet", ts.Unix()),
	)
}
