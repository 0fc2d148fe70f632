package sonar

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pagedExecutor serves AccountsData pages keyed by page number.
type pagedExecutor struct {
	pages    map[int]*AccountConnection
	failPage int
	requests []Request
}

func (p *pagedExecutor) Execute(_ context.Context, req Request, out interface{}) error {
	p.requests = append(p.requests, req)
	page := 1
	if req.Variables.Page != nil {
		page = *req.Variables.Page
	}
	if page == p.failPage {
		return &TransportError{StatusCode: 500, Status: "500 Internal Server Error"}
	}
	data, ok := out.(*AccountsData)
	if !ok {
		return fmt.Errorf("unexpected out type %T", out)
	}
	data.Accounts = p.pages[page]
	return nil
}

func accountsPage(totalPages int, ids ...string) *AccountConnection {
	conn := &AccountConnection{PageInfo: &PageInfo{TotalPages: &totalPages}}
	for _, id := range ids {
		conn.Entities = append(conn.Entities, &AccountEntity{ID: ID(id)})
	}
	return conn
}

func entityIDs(entities []*AccountEntity) []string {
	ids := make([]string, 0, len(entities))
	for _, e := range entities {
		ids = append(ids, e.ID.String())
	}
	return ids
}

func TestListAccounts_FollowsTotalPages(t *testing.T) {
	exec := &pagedExecutor{pages: map[int]*AccountConnection{
		1: accountsPage(3, "1", "2"),
		2: accountsPage(3, "3", "4"),
		3: accountsPage(3, "5"),
	}}

	entities, err := ListAccounts(context.Background(), exec, KindDown, Filter{}, ListOptions{PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, entityIDs(entities))
	require.Len(t, exec.requests, 3)
	for _, req := range exec.requests {
		assert.Equal(t, KindDown, req.Kind)
		assert.Equal(t, 2, *req.Variables.PerPage)
	}
}

func TestListAccounts_DropsAccountsRepeatedAcrossPages(t *testing.T) {
	exec := &pagedExecutor{pages: map[int]*AccountConnection{
		1: accountsPage(3, "1", "2"),
		2: accountsPage(3, "2", "3"),
		3: accountsPage(3, "1", "4"),
	}}

	entities, err := ListAccounts(context.Background(), exec, KindWarning, Filter{}, ListOptions{PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3", "4"}, entityIDs(entities))
	assert.Len(t, exec.requests, 3)
}

func TestListAccounts_StopsOnShortPageWithoutTotals(t *testing.T) {
	exec := &pagedExecutor{pages: map[int]*AccountConnection{
		1: {Entities: []*AccountEntity{{ID: "1"}, {ID: "2"}}},
		2: {Entities: []*AccountEntity{{ID: "3"}}},
	}}

	entities, err := ListAccounts(context.Background(), exec, KindWarning, Filter{}, ListOptions{PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, entityIDs(entities))
	assert.Len(t, exec.requests, 2)
}

func TestListAccounts_RespectsMaxPages(t *testing.T) {
	exec := &pagedExecutor{pages: map[int]*AccountConnection{
		1: accountsPage(10, "1"),
		2: accountsPage(10, "2"),
	}}

	entities, err := ListAccounts(context.Background(), exec, KindDown, Filter{}, ListOptions{PageSize: 1, MaxPages: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, entityIDs(entities))
	assert.Len(t, exec.requests, 2)
}

func TestListAccounts_MissingConnectionIsEmpty(t *testing.T) {
	exec := &pagedExecutor{pages: map[int]*AccountConnection{}}

	entities, err := ListAccounts(context.Background(), exec, KindDown, Filter{}, ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, entities)
}

func TestListAccounts_PageFailureFailsListing(t *testing.T) {
	exec := &pagedExecutor{
		pages:    map[int]*AccountConnection{1: accountsPage(2, "1")},
		failPage: 2,
	}

	entities, err := ListAccounts(context.Background(), exec, KindDown, Filter{}, ListOptions{})
	require.Error(t, err)
	assert.Nil(t, entities)
	assert.True(t, IsTransportError(err))

	var te *TransportError
	assert.True(t, errors.As(err, &te))
	assert.Contains(t, err.Error(), "page 2")
}

func TestListAccounts_RejectsSummaryKind(t *testing.T) {
	_, err := ListAccounts(context.Background(), &pagedExecutor{}, KindSummary, Filter{}, ListOptions{})
	assert.Error(t, err)
}
