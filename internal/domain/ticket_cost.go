package domain

import "time"

// CostPayer indicates who bears a cost.
type CostPayer string

const (
	CostPayerOwner  CostPayer = "OWNER"
	CostPayerTenant CostPayer = "TENANT"
)

// IsValid reports whether p is a known payer.
func (p CostPayer) IsValid() bool {
	return p == CostPayerOwner || p == CostPayerTenant
}

// TicketCost is an immutable ledger line. Amount is in minor currency units.
type TicketCost struct {
	ID         string
	TenantID   string
	TicketID   string
	Amount     int64
	Payer      CostPayer
	Note       *string
	RecordedBy string
	CreatedAt  time.Time
}

// CostSummary totals a ticket's ledger.
type CostSummary struct {
	Total       int64
	OwnerTotal  int64
	TenantTotal int64
}

// SummarizeCosts totals entries per payer.
func SummarizeCosts(costs []TicketCost) CostSummary {
	var summary CostSummary
	for _, cost := range costs {
		summary.Total += cost.Amount
		switch cost.Payer {
		case CostPayerOwner:
			summary.OwnerTotal += cost.Amount
		case CostPayerTenant:
			summary.TenantTotal += cost.Amount
		}
	}
	return summary
}
