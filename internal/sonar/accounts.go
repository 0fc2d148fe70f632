// internal/sonar/accounts.go - Paginated account listings
package sonar

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

const (
	DefaultPageSize = 100
	DefaultMaxPages = 50
)

// ListOptions bounds how many pages ListAccounts will walk.
type ListOptions struct {
	PageSize int
	MaxPages int
}

func (o ListOptions) withDefaults() ListOptions {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.MaxPages <= 0 {
		o.MaxPages = DefaultMaxPages
	}
	return o
}

// ListAccounts fetches every page of the down or warning listing and returns
// the entities in upstream order. An account that shifts onto a later page
// while paging is kept only where it was first seen. Any page failure fails
// the whole listing.
func ListAccounts(ctx context.Context, exec Executor, kind QueryKind, f Filter, opts ListOptions) ([]*AccountEntity, error) {
	opts = opts.withDefaults()

	var entities []*AccountEntity
	seen := make(map[ID]struct{})
	for page := 1; page <= opts.MaxPages; page++ {
		req, err := AccountsByKind(kind, f, Page{Number: page, PerPage: opts.PageSize})
		if err != nil {
			return nil, err
		}

		var data AccountsData
		if err := exec.Execute(ctx, req, &data); err != nil {
			return nil, fmt.Errorf("%s page %d: %w", req.OperationName, page, err)
		}
		if data.Accounts == nil {
			break
		}
		for _, e := range data.Accounts.Entities {
			if e != nil && e.ID != "" {
				if _, dup := seen[e.ID]; dup {
					continue
				}
				seen[e.ID] = struct{}{}
			}
			entities = append(entities, e)
		}

		if !hasMorePages(data.Accounts.PageInfo, page, len(data.Accounts.Entities), opts.PageSize) {
			break
		}
		if page == opts.MaxPages {
			logrus.WithFields(logrus.Fields{
				"operation": req.OperationName,
				"pages":     opts.MaxPages,
			}).Warn("Account listing truncated at page limit")
		}
	}
	return entities, nil
}

func hasMorePages(info *PageInfo, page, got, perPage int) bool {
	if info != nil && info.TotalPages != nil {
		return page < *info.TotalPages
	}
	// Without total_pages, a full page means there may be more.
	return got >= perPage && got > 0
}
