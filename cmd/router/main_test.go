package main

import (
	"errors"
	"fmt"
	"testing"

	"patrickdb/internal/dberrors"
)

// TestErrorCode_PassesUpstreamCodesThroughVerbatim exercises §4.7 step 6:
// an upstream not_found/already_exists/unavailable response must reach
// the client as that same code, not collapse to "internal". Only a
// genuine per-hop failure (dial/connection error, or an unrecognized
// upstream code) should map to "internal".
func TestErrorCode_PassesUpstreamCodesThroughVerbatim(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"not found", dberrors.ErrNotFound, "not_found"},
		{"already exists", dberrors.ErrAlreadyExists, "already_exists"},
		{"not leader", dberrors.ErrNotLeader, "unavailable"},
		{"wrapped not found", fmt.Errorf("router: find leader for key %q: %w", "k1", dberrors.ErrNotFound), "not_found"},
		{"dial failure", errors.New("rpcclient: dial 10.0.0.1:6969: connection refused"), "internal"},
		{"unrecognized upstream code", fmt.Errorf("rpcclient: %s: %s", "weird_code", "huh"), "internal"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := errorCode(tc.err); got != tc.want {
				t.Fatalf("errorCode(%v) = %q, want %q", tc.err, got, tc.want)
			}
		})
	}
}
