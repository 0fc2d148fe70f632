// internal/sonar/types.go - Raw response schema for the catalog queries
package sonar

import (
	"bytes"
	"encoding/json"
	"strings"

	"sonarboard/internal/normalize"
)

// PageInfo is Sonar's pagination block. Every field is optional.
type PageInfo struct {
	Page           *int `json:"page"`
	RecordsPerPage *int `json:"records_per_page"`
	TotalCount     *int `json:"total_count"`
	TotalPages     *int `json:"total_pages"`
}

// CountNode is an aliased accounts() selection that only asks for page_info.
type CountNode struct {
	PageInfo *PageInfo `json:"page_info"`
}

// TotalCount returns the nested count or nil.
func (n *CountNode) TotalCount() *int {
	if n == nil || n.PageInfo == nil {
		return nil
	}
	return n.PageInfo.TotalCount
}

// FullListData is the data block of the full_list query.
type FullListData struct {
	Total             *CountNode `json:"total"`
	Good              *CountNode `json:"good"`
	Down              *CountNode `json:"down"`
	Warning           *CountNode `json:"warning"`
	UninventoriedOnly *CountNode `json:"uninventoried_only"`
}

// AccountsData is the data block of the down/warning account queries.
type AccountsData struct {
	Accounts *AccountConnection `json:"accounts"`
}

type AccountConnection struct {
	PageInfo *PageInfo        `json:"page_info"`
	Entities []*AccountEntity `json:"entities"`
}

type AccountEntity struct {
	ID                    ID                   `json:"id"`
	Name                  *string              `json:"name"`
	Addresses             *AddressConnection   `json:"addresses"`
	IPAssignmentHistories *IPHistoryConnection `json:"ip_assignment_histories"`
}

type AddressConnection struct {
	Entities []*Address `json:"entities"`
}

type Address struct {
	Line1 *string `json:"line1"`
}

type IPHistoryConnection struct {
	Entities []*IPAssignmentHistory `json:"entities"`
}

type IPAssignmentHistory struct {
	Subnet *string `json:"subnet"`
}

// AddressLines returns every line1 candidate, nil entries included.
func (a *AccountEntity) AddressLines() []*string {
	if a == nil || a.Addresses == nil {
		return nil
	}
	lines := make([]*string, 0, len(a.Addresses.Entities))
	for _, addr := range a.Addresses.Entities {
		if addr == nil {
			lines = append(lines, nil)
			continue
		}
		lines = append(lines, addr.Line1)
	}
	return lines
}

// Subnets returns every assigned subnet, nil entries included.
func (a *AccountEntity) Subnets() []*string {
	if a == nil || a.IPAssignmentHistories == nil {
		return nil
	}
	subnets := make([]*string, 0, len(a.IPAssignmentHistories.Entities))
	for _, h := range a.IPAssignmentHistories.Entities {
		if h == nil {
			subnets = append(subnets, nil)
			continue
		}
		subnets = append(subnets, h.Subnet)
	}
	return subnets
}

// ID is an opaque identifier that Sonar may send as a number or a string.
// It is always held in string form. Integral numbers are written without a
// fraction, and values of any other JSON type decode as an empty ID.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*id = ""
	if len(data) == 0 {
		return nil
	}

	switch c := data[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
	case c == '-' || (c >= '0' && c <= '9'):
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*id = ID(normalize.NumericID(n.String()))
	}
	return nil
}

func (id ID) String() string {
	return string(id)
}
