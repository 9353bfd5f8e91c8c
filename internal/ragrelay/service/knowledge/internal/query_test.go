package internal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	require.Equal(t, []string{"revenue", "q1", "2025"}, Tokenize("What was the Revenue in Q1 2025? revenue!"))
	require.Empty(t, Tokenize("what is it?"))
}

func TestBuildFTSQuery(t *testing.T) {
	require.Equal(t, `"revenue" OR "q1"`, BuildFTSQuery([]string{"revenue", "q1"}))
	require.Equal(t, `"ab"`, BuildFTSQuery([]string{`a"b`}))
	require.Empty(t, BuildFTSQuery(nil))
}

func TestRankToScore(t *testing.T) {
	require.Equal(t, 0.0, RankToScore(0))
	require.Equal(t, 0.0, RankToScore(2))
	require.InDelta(t, 0.5, RankToScore(-1), 1e-9)
	require.Greater(t, RankToScore(-5), RankToScore(-1))
	require.Less(t, RankToScore(-1000), 1.0)
}

func TestEscapeLike(t *testing.T) {
	require.Equal(t, `50\%\_off\\`, EscapeLike(`50%_off\`))
}

func TestTruncateRunes(t *testing.T) {
	require.Equal(t, "héll", TruncateRunes("héllo", 4))
	require.Equal(t, "hi", TruncateRunes("hi", 4))
	require.Equal(t, "hi", TruncateRunes("hi", 0))
}
