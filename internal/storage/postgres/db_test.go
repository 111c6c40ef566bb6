package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"example.com/longform/internal/domain"
)

func TestPlaceholders(t *testing.T) {
	require.Equal(t, "($1,$2,$3)", placeholders(1, 3))
	require.Equal(t, "($14)", placeholders(14, 1))
}

func TestLimitClause(t *testing.T) {
	lim, args := limitClause(0, []any{"u"})
	require.Empty(t, lim)
	require.Len(t, args, 1)

	lim, args = limitClause(5, []any{"u"})
	require.Equal(t, " LIMIT $2", lim)
	require.Equal(t, []any{"u", 5}, args)
}

func TestDedupe_LastWinsFirstPosition(t *testing.T) {
	in := []domain.Video{{ID: "a", Title: "1"}, {ID: "b"}, {ID: ""}, {ID: "a", Title: "2"}}
	out := dedupe(in, func(v domain.Video) string { return v.ID })
	require.Len(t, out, 2)
	require.Equal(t, "a", out[0].ID)
	require.Equal(t, "2", out[0].Title)
	require.Equal(t, "b", out[1].ID)
}

func TestNotFound(t *testing.T) {
	require.ErrorIs(t, notFound(pgx.ErrNoRows), domain.ErrNotFound)
	other := errors.New("boom")
	require.Equal(t, other, notFound(other))
}
