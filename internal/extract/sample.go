package extract

import (
	"context"
	"fmt"

	"giftetl/pkg/table"
)

// SampleExtractor produces a small synthetic table for dry runs and tests,
// keyed by dataset name. It lets a pipeline config be exercised end to end
// before real sources exist.
type SampleExtractor struct {
	dataset string
}

func NewSampleExtractor(dataset string) *SampleExtractor {
	return &SampleExtractor{dataset: dataset}
}

func (e *SampleExtractor) Name() string { return "sample:" + e.dataset }

func (e *SampleExtractor) Extract(ctx context.Context) (table.Table, error) {
	switch e.dataset {
	case "beneficiaries":
		return SampleBeneficiaries(), nil
	case "gifts":
		return SampleGifts(), nil
	default:
		return table.Table{}, fmt.Errorf("unknown sample dataset %q", e.dataset)
	}
}

// SampleBeneficiaries is a synthetic beneficiaries table; the untrimmed name
// and mixed statuses exercise the cleaner.
func SampleBeneficiaries() table.Table {
	return table.MustNew(
		[]string{"beneficiary_id", "beneficiary_name", "status", "source_url"},
		[]table.Row{
			{"beneficiary_id": "B001", "beneficiary_name": "  Alice  ", "status": "active", "source_url": "https://example.com"},
			{"beneficiary_id": "B002", "beneficiary_name": "Bob", "status": "inactive", "source_url": "https://example.com"},
			{"beneficiary_id": "B003", "beneficiary_name": "Charlie", "status": "active", "source_url": "https://example.com"},
		},
	)
}

// SampleGifts is a synthetic gifts table keyed to SampleBeneficiaries.
func SampleGifts() table.Table {
	return table.MustNew(
		[]string{"beneficiary_id", "id", "gift_type", "amount", "date"},
		[]table.Row{
			{"beneficiary_id": "B001", "id": "G001", "gift_type": "Cash", "amount": 500.0, "date": "2024-01-15"},
			{"beneficiary_id": "B002", "id": "G002", "gift_type": "In-Kind", "amount": 200.0, "date": "2024-02-20"},
			{"beneficiary_id": "B003", "id": "G003", "gift_type": "Cash", "amount": 150.0, "date": "2024-03-05"},
		},
	)
}
