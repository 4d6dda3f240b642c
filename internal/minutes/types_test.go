package minutes

import (
	"errors"
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResolutionCategory(t *testing.T) {
	t.Parallel()

	got, err := ParseResolutionCategory(" tabled ")
	require.NoError(t, err)
	assert.Equal(t, ResolutionTabled, got)

	_, err = ParseResolutionCategory("approved")
	require.Error(t, err)
	assert.Len(t, Resolutions, 10)
}

func TestStartDatetime(t *testing.T) {
	t.Parallel()

	_, ok := MeetingDocument{}.StartDatetime()
	assert.False(t, ok)

	start := time.Date(2013, 6, 3, 18, 0, 0, 0, time.UTC)
	doc := MeetingDocument{Sessions: []Session{{Start: start}, {Start: start.Add(time.Hour)}}}
	got, ok := doc.StartDatetime()
	require.True(t, ok)
	assert.Equal(t, start, got)
}

func TestParseErrorUnwrap(t *testing.T) {
	t.Parallel()

	err := error(&ParseError{Path: "kh/2013/03061800/htmtxt0.htm", Reason: "read cover page", Err: fs.ErrNotExist})
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Contains(t, err.Error(), "read cover page")

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "kh/2013/03061800/htmtxt0.htm", perr.Path)
}
