// Reminisce - Nostalgic Media Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reminisce

package recommend

import "errors"

// ErrNoCandidates is returned when a selection is requested over an empty
// candidate list. This is the one selection error that propagates to the
// caller; everything else degrades to a fallback pick.
var ErrNoCandidates = errors.New("no candidates provided")
