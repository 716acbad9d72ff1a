package model

// AllModels returns every model the migrator needs to know about.
// Adding a table only requires an entry here, not a main.go change.
func AllModels() []interface{} {
	return []interface{}{
		&Payment{},
		&ProjectDistribution{},
		&DistributionShare{},
		&DistributionTemplate{},
		&PercentageOverride{},
		&Wallet{},
		&WalletTransaction{},
		&PayoutRequest{},
		&TaxRecord{},
		&OutboxMessage{},
	}
}
