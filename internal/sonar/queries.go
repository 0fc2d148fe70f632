// internal/sonar/queries.go - Query catalog
package sonar

import "fmt"

// QueryKind names one of the fixed request templates.
type QueryKind string

const (
	KindSummary QueryKind = "summary"
	KindDown    QueryKind = "down"
	KindWarning QueryKind = "warning"
)

// Kinds lists every query kind in refresh order.
var Kinds = []QueryKind{KindSummary, KindDown, KindWarning}

// Inventory status values as Sonar reports them in icmp_device_status.
const (
	StatusGood    = "Good"
	StatusDown    = "Down"
	StatusWarning = "Warning"
)

// Filter narrows the account population. Nil fields are sent as null.
type Filter struct {
	CompanyID       *int64
	AccountStatusID *int64
}

// Page selects one page of a paginated accounts query.
type Page struct {
	Number  int
	PerPage int
}

// Variables is the GraphQL variables object shared by the catalog.
type Variables struct {
	CompanyID       *int64 `json:"companyId"`
	AccountStatusID *int64 `json:"accountStatusID"`
	Page            *int   `json:"page,omitempty"`
	PerPage         *int   `json:"perPage,omitempty"`
}

// Request is an opaque, side-effect free description of one upstream query.
type Request struct {
	Kind          QueryKind
	OperationName string
	Query         string
	Variables     Variables
}

const fullListQuery = `
query full_list($companyId: Int64Bit, $accountStatusID: Int64Bit) {
  total: accounts(company_id: $companyId, account_status_id: $accountStatusID) {
    page_info { total_count }
  }
  good: accounts(
    company_id: $companyId
    account_status_id: $accountStatusID
    reverse_relation_filters: [
      { relation: "addresses.inventory_items"
        search: { string_fields: [{ attribute: "icmp_device_status", search_value: "Good", match: true }] }
      }
    ]
  ) { page_info { total_count } }
  down: accounts(
    company_id: $companyId
    account_status_id: $accountStatusID
    reverse_relation_filters: [
      { relation: "addresses.inventory_items"
        search: { string_fields: [{ attribute: "icmp_device_status", search_value: "Down", match: true }] }
      }
    ]
  ) { page_info { total_count } }
  warning: accounts(
    company_id: $companyId
    account_status_id: $accountStatusID
    reverse_relation_filters: [
      { relation: "addresses.inventory_items"
        search: { string_fields: [{ attribute: "icmp_device_status", search_value: "Warning", match: true }] }
      }
    ]
  ) { page_info { total_count } }
  uninventoried_only: accounts(
    company_id: $companyId
    account_status_id: $accountStatusID
    reverse_relation_filters: [
      { relation: "uninventoried_mac_addresses", search: { exists: ["mac_address"] } },
      { relation: "addresses.inventory_items", search: { exists: ["icmp_device_status"] }, is_empty: true }
    ]
  ) { page_info { total_count } }
}
`

// accountsQueryTemplate takes the operation name and the status value.
const accountsQueryTemplate = `
query %s($companyId: Int64Bit, $accountStatusID: Int64Bit, $page: Int, $perPage: Int) {
  accounts(
    company_id: $companyId
    account_status_id: $accountStatusID
    paginator: { page: $page, records_per_page: $perPage }
    reverse_relation_filters: [
      { relation: "addresses.inventory_items"
        search: { string_fields: [{ attribute: "icmp_device_status", search_value: "%s", match: true }] }
      }
    ]
  ) {
    page_info { page records_per_page total_count total_pages }
    entities {
      id
      name
      addresses { entities { line1 } }
      ip_assignment_histories { entities { subnet } }
    }
  }
}
`

var (
	downAccountsQuery    = fmt.Sprintf(accountsQueryTemplate, "down_accounts", StatusDown)
	warningAccountsQuery = fmt.Sprintf(accountsQueryTemplate, "warning_accounts", StatusWarning)
)

func (f Filter) variables() Variables {
	return Variables{
		CompanyID:       f.CompanyID,
		AccountStatusID: f.AccountStatusID,
	}
}

// FullListSummary counts the filtered accounts overall and per inventory status.
func FullListSummary(f Filter) Request {
	return Request{
		Kind:          KindSummary,
		OperationName: "full_list",
		Query:         fullListQuery,
		Variables:     f.variables(),
	}
}

// DownAccounts lists accounts whose inventory reports Down.
func DownAccounts(f Filter, p Page) Request {
	return accountsRequest(KindDown, "down_accounts", downAccountsQuery, f, p)
}

// WarningAccounts lists accounts whose inventory reports Warning.
func WarningAccounts(f Filter, p Page) Request {
	return accountsRequest(KindWarning, "warning_accounts", warningAccountsQuery, f, p)
}

// AccountsByKind returns the listing request for KindDown or KindWarning.
func AccountsByKind(kind QueryKind, f Filter, p Page) (Request, error) {
	switch kind {
	case KindDown:
		return DownAccounts(f, p), nil
	case KindWarning:
		return WarningAccounts(f, p), nil
	default:
		return Request{}, fmt.Errorf("query kind %q has no account listing", kind)
	}
}

func accountsRequest(kind QueryKind, op, query string, f Filter, p Page) Request {
	vars := f.variables()
	if p.Number > 0 {
		number := p.Number
		vars.Page = &number
	}
	if p.PerPage > 0 {
		perPage := p.PerPage
		vars.PerPage = &perPage
	}
	return Request{
		Kind:          kind,
		OperationName: op,
		Query:         query,
		Variables:     vars,
	}
}
