package ledgermath

// Transfer is a directed payment suggestion in minor units of a single
// currency bucket.
type Transfer struct {
	FromParticipantID string
	ToParticipantID   string
	Amount            int64
}

type party struct {
	id     string
	amount int64 // always positive: credit owed to, or debt owed by, the party
}

// MinimizeTransfers produces a list of directed transfers that drives every
// net balance in the bucket to zero. Greedy largest-to-largest matching: each
// step re-selects the currently largest creditor and the currently largest
// debtor (participant ID ascending on ties) and transfers min(credit, debt)
// between them, fully resolving at least one side. That bounds the output at
// n-1 transfers for n non-zero balances. Global minimality is not guaranteed
// (that variant is NP-hard); this is the standard netting used by this class
// of system.
//
// Balances that do not sum to zero cannot be fully settled; matching stops
// when one side is exhausted and the residual stays on the remaining parties.
func MinimizeTransfers(balances map[string]int64) []Transfer {
	var creditors, debtors []party
	for id, net := range balances {
		switch {
		case net > 0:
			creditors = append(creditors, party{id: id, amount: net})
		case net < 0:
			debtors = append(debtors, party{id: id, amount: -net})
		}
	}

	var transfers []Transfer
	for len(debtors) > 0 && len(creditors) > 0 {
		di := largestIdx(debtors)
		ci := largestIdx(creditors)

		amount := debtors[di].amount
		if creditors[ci].amount < amount {
			amount = creditors[ci].amount
		}

		transfers = append(transfers, Transfer{
			FromParticipantID: debtors[di].id,
			ToParticipantID:   creditors[ci].id,
			Amount:            amount,
		})

		debtors[di].amount -= amount
		creditors[ci].amount -= amount
		if debtors[di].amount == 0 {
			debtors = append(debtors[:di], debtors[di+1:]...)
		}
		if creditors[ci].amount == 0 {
			creditors = append(creditors[:ci], creditors[ci+1:]...)
		}
	}

	return transfers
}

// largestIdx returns the index of the party with the largest amount, breaking
// ties on ascending participant ID.
func largestIdx(parties []party) int {
	best := 0
	for i := 1; i < len(parties); i++ {
		if parties[i].amount > parties[best].amount ||
			(parties[i].amount == parties[best].amount && parties[i].id < parties[best].id) {
			best = i
		}
	}
	return best
}
