package document

import "log/slog"

// migrateLegacyPayees lifts posting-level payee references up to their
// transaction. Older documents stored payee_id on each posting; the current
// shape stores it once on the transaction. The migration is one-way: after a
// load-save cycle the legacy field is gone.
func migrateLegacyPayees(doc *documentJSON) {
	byID := make(map[string]*postingJSON, len(doc.TransactionPostings))
	for i := range doc.TransactionPostings {
		byID[doc.TransactionPostings[i].ID] = &doc.TransactionPostings[i]
	}

	migrated := 0
	for i := range doc.Transactions {
		tx := &doc.Transactions[i]
		if tx.PayeeID != nil && *tx.PayeeID != "" {
			continue
		}

		var lifted *string
		for _, pid := range tx.PostingIDs {
			p, ok := byID[pid]
			if !ok || p.PayeeID == nil || *p.PayeeID == "" {
				continue
			}
			if lifted == nil {
				v := *p.PayeeID
				lifted = &v
				continue
			}
			if *p.PayeeID != *lifted {
				// Split postings disagree; the first one wins and the rest
				// are dropped. Not fatal, but worth surfacing.
				slog.Warn("Legacy split transaction has conflicting posting payees",
					"transaction_id", tx.ID,
					"kept_payee_id", *lifted,
					"dropped_payee_id", *p.PayeeID)
			}
		}
		if lifted != nil {
			tx.PayeeID = lifted
			migrated++
		}
	}

	stripped := false
	for i := range doc.TransactionPostings {
		if doc.TransactionPostings[i].PayeeID != nil {
			doc.TransactionPostings[i].PayeeID = nil
			stripped = true
		}
	}

	if migrated > 0 || stripped {
		slog.Info("Migrated legacy posting-level payees", "transactions", migrated)
	}
}
