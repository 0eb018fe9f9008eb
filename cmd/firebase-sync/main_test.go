package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateFlags(t *testing.T) {
	cases := []struct {
		name   string
		doCopy bool
		limit  int
		dryRun bool
		ok     bool
	}{
		{"plain pass", false, 0, false, true},
		{"copy pass", true, 0, false, true},
		{"copy with limit and dry-run", true, 200, true, true},
		{"dry-run without copy", false, 0, true, false},
		{"limit without copy", false, 200, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateFlags(tc.doCopy, tc.limit, tc.dryRun)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
