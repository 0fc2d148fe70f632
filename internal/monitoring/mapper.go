// internal/monitoring/mapper.go - Raw Sonar responses to canonical shapes
package monitoring

import (
	"sonarboard/internal/normalize"
	"sonarboard/internal/sonar"
	"sonarboard/internal/suppression"
)

// summaryFromFullList maps the full_list aliases onto the customer counts.
// Missing aliases count as zero.
func summaryFromFullList(data *sonar.FullListData) EquipmentSummary {
	if data == nil {
		return EquipmentSummary{}
	}
	return EquipmentSummary{
		Customer: CustomerCounts{
			Good:          normalize.ExtractCount(data.Good),
			Warning:       normalize.ExtractCount(data.Warning),
			Down:          normalize.ExtractCount(data.Down),
			Uninventoried: normalize.ExtractCount(data.UninventoriedOnly),
			Total:         normalize.ExtractCount(data.Total),
		},
	}
}

// rowsFromAccounts maps entities to rows in upstream order. Nil entities
// are skipped.
func rowsFromAccounts(entities []*sonar.AccountEntity, status AccountStatus) []CustomerRow {
	rows := make([]CustomerRow, 0, len(entities))
	for _, entity := range entities {
		if entity == nil {
			continue
		}
		rows = append(rows, rowFromAccount(entity, status))
	}
	return rows
}

func rowFromAccount(entity *sonar.AccountEntity, status AccountStatus) CustomerRow {
	name := UnknownCustomerName
	if entity.Name != nil {
		if n := normalize.FirstNonEmpty([]string{*entity.Name}); n != "" {
			name = n
		}
	}

	addresses := normalize.DedupeNonEmpty(normalize.Strings(entity.AddressLines()))

	return CustomerRow{
		CustomerID:   entity.ID.String(),
		CustomerName: name,
		Status:       status,
		DeviceName:   UnknownDeviceName,
		IPAddresses:  normalize.DedupeNonEmpty(normalize.Strings(entity.Subnets())),
		Address:      normalize.FirstNonEmpty(addresses),
	}
}

// filterSuppressed drops rows whose customer id is in suppressed. The input
// slice is not modified.
func filterSuppressed(rows []CustomerRow, suppressed suppression.Set) []CustomerRow {
	out := make([]CustomerRow, 0, len(rows))
	for _, row := range rows {
		if suppressed.Has(row.CustomerID) {
			continue
		}
		out = append(out, row)
	}
	return out
}
