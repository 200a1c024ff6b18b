// Copyright 2026 The Go FastA2A Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-fasta2a/fasta2a"
)

var errEmpty = errors.New("must be a non-empty string")

func errUnknownState(state fasta2a.TaskState) error {
	return fmt.Errorf("unknown task state %q", state)
}

// nowUTC is replaced in tests that need a deterministic clock.
var nowUTC = func() time.Time {
	return time.Now().UTC()
}
