package ledgermath_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triptally/triptally_backend/internal/utils/ledgermath"
)

func TestMinimizeTransfers_TwoDebtorsOneCreditor(t *testing.T) {
	transfers := ledgermath.MinimizeTransfers(map[string]int64{
		"alice": 6000,
		"bob":   -3000,
		"carol": -3000,
	})

	require.Len(t, transfers, 2)
	assert.Equal(t, ledgermath.Transfer{FromParticipantID: "bob", ToParticipantID: "alice", Amount: 3000}, transfers[0])
	assert.Equal(t, ledgermath.Transfer{FromParticipantID: "carol", ToParticipantID: "alice", Amount: 3000}, transfers[1])
}

func TestMinimizeTransfers_OneDebtorTwoCreditors(t *testing.T) {
	transfers := ledgermath.MinimizeTransfers(map[string]int64{
		"alice": -8000,
		"bob":   3000,
		"carol": 5000,
	})

	require.Len(t, transfers, 2)
	assert.Equal(t, ledgermath.Transfer{FromParticipantID: "alice", ToParticipantID: "carol", Amount: 5000}, transfers[0])
	assert.Equal(t, ledgermath.Transfer{FromParticipantID: "alice", ToParticipantID: "bob", Amount: 3000}, transfers[1])
}

func TestMinimizeTransfers_AllSettled(t *testing.T) {
	transfers := ledgermath.MinimizeTransfers(map[string]int64{
		"alice": 0,
		"bob":   0,
	})

	assert.Empty(t, transfers)
}

func TestMinimizeTransfers_Deterministic(t *testing.T) {
	balances := map[string]int64{
		"alice": 500, "bob": 500, "carol": -400, "dave": -600,
	}

	first := ledgermath.MinimizeTransfers(balances)
	second := ledgermath.MinimizeTransfers(balances)

	assert.Equal(t, first, second)
}

func TestMinimizeTransfers_TiesBreakOnID(t *testing.T) {
	transfers := ledgermath.MinimizeTransfers(map[string]int64{
		"zoe":   1000,
		"amy":   1000,
		"bob":   -1000,
		"carol": -1000,
	})

	require.Len(t, transfers, 2)
	assert.Equal(t, "bob", transfers[0].FromParticipantID)
	assert.Equal(t, "amy", transfers[0].ToParticipantID)
	assert.Equal(t, "carol", transfers[1].FromParticipantID)
	assert.Equal(t, "zoe", transfers[1].ToParticipantID)
}

func TestMinimizeTransfers_ReselectsLargestAfterPartialMatch(t *testing.T) {
	// After dan is partially matched against cara, the next pairing must be
	// dave (still 6000) against carl, not dan's 1000 remainder.
	transfers := ledgermath.MinimizeTransfers(map[string]int64{
		"dan":  -6000,
		"dave": -6000,
		"cara": 5000,
		"carl": 4000,
		"cody": 3000,
	})

	require.Len(t, transfers, 4)
	assert.Equal(t, ledgermath.Transfer{FromParticipantID: "dan", ToParticipantID: "cara", Amount: 5000}, transfers[0])
	assert.Equal(t, ledgermath.Transfer{FromParticipantID: "dave", ToParticipantID: "carl", Amount: 4000}, transfers[1])
	assert.Equal(t, ledgermath.Transfer{FromParticipantID: "dave", ToParticipantID: "cody", Amount: 2000}, transfers[2])
	assert.Equal(t, ledgermath.Transfer{FromParticipantID: "dan", ToParticipantID: "cody", Amount: 1000}, transfers[3])
}

func TestMinimizeTransfers_ZeroesAllBalancesRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ids := []string{"p01", "p02", "p03", "p04", "p05", "p06", "p07", "p08"}

	for round := 0; round < 200; round++ {
		balances := make(map[string]int64, len(ids))
		var sum int64
		for _, id := range ids[:len(ids)-1] {
			v := rng.Int63n(20001) - 10000
			balances[id] = v
			sum += v
		}
		// Last participant absorbs the offset so the bucket sums to zero.
		balances[ids[len(ids)-1]] = -sum

		transfers := ledgermath.MinimizeTransfers(balances)

		// Replaying the transfers must settle every balance exactly.
		remaining := make(map[string]int64, len(balances))
		for id, v := range balances {
			remaining[id] = v
		}
		nonZero := 0
		for _, v := range balances {
			if v != 0 {
				nonZero++
			}
		}
		for _, tr := range transfers {
			require.Positive(t, tr.Amount)
			remaining[tr.FromParticipantID] += tr.Amount
			remaining[tr.ToParticipantID] -= tr.Amount
		}
		for id, v := range remaining {
			require.Zero(t, v, "round %d participant %s", round, id)
		}
		if nonZero > 0 {
			require.LessOrEqual(t, len(transfers), nonZero-1, "round %d", round)
		}
	}
}
