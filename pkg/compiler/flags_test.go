package compiler_test

import (
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-dehost/pkg/compiler"
)

func TestFlagFilterMatch(t *testing.T) {
	t.Parallel()

	single := compiler.FlagFilter{Require: compiler.SingleRequire}
	paired := compiler.FlagFilter{Require: compiler.PairedRequire}
	countIn := compiler.FlagFilter{Exclude: compiler.CountInExclude}
	countOut := compiler.FlagFilter{Exclude: compiler.CountOutExclude}

	tcs := map[string]struct {
		filter   compiler.FlagFilter
		flags    sam.Flags
		expected bool
	}{
		"single unmapped":         {filter: single, flags: 4, expected: true},
		"single mapped":           {filter: single, flags: 0, expected: false},
		"single unmapped reverse": {filter: single, flags: 4 | 16, expected: true},
		"paired both unmapped":    {filter: paired, flags: 77, expected: true},
		"paired mate mapped":      {filter: paired, flags: 73, expected: false},
		"paired read mapped":      {filter: paired, flags: 137, expected: false},
		"count in primary":        {filter: countIn, flags: 0, expected: true},
		"count in secondary":      {filter: countIn, flags: 256, expected: false},
		"count in supplementary":  {filter: countIn, flags: 2048, expected: false},
		"count out supplementary": {filter: countOut, flags: 2048, expected: true},
		"count out secondary":     {filter: countOut, flags: 256 | 4, expected: false},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, tc.filter.Match(tc.flags))
		})
	}
}

func TestFlagFilterArgs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"-f", "4"}, compiler.FlagFilter{Require: compiler.SingleRequire}.Args())
	assert.Equal(t, []string{"-f", "12"}, compiler.FlagFilter{Require: compiler.PairedRequire}.Args())
	assert.Equal(t, []string{"-F", "2304"}, compiler.FlagFilter{Exclude: compiler.CountInExclude}.Args())
	assert.Equal(t, []string{"-F", "256"}, compiler.FlagFilter{Exclude: compiler.CountOutExclude}.Args())
	assert.Empty(t, compiler.FlagFilter{}.Args())
}

func TestRecordFlags(t *testing.T) {
	t.Parallel()

	flags, err := compiler.RecordFlags("r1\t77\t*\t0\t0\t*\t*\t0\t0\tACGT\tIIII")
	require.NoError(t, err)
	assert.Equal(t, sam.Flags(77), flags)

	_, err = compiler.RecordFlags("r1")
	require.ErrorIs(t, err, compiler.ErrMalformedRecord)

	_, err = compiler.RecordFlags("r1\tabc\t*")
	require.ErrorIs(t, err, compiler.ErrMalformedRecord)

	assert.True(t, compiler.IsHeader("@HD\tVN:1.6"))
	assert.False(t, compiler.IsHeader("r1\t4"))
}
