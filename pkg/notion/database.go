package notion

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// LeadIDProperty is the rich-text property holding the qualifier's lead id.
const LeadIDProperty = "Lead ID"

// QueryAll pages through a database query and returns every result. The next
// page is requested in the background while the current one is appended.
func QueryAll(ctx context.Context, c Client, dbID string, query *notionapi.DatabaseQueryRequest) ([]notionapi.Page, error) {
	type page struct {
		resp *notionapi.DatabaseQueryResponse
		err  error
	}

	fetch := func(cursor notionapi.Cursor) <-chan page {
		req := &notionapi.DatabaseQueryRequest{StartCursor: cursor}
		if query != nil {
			req.Filter = query.Filter
			req.Sorts = query.Sorts
			req.PageSize = query.PageSize
		}
		ch := make(chan page, 1)
		go func() {
			resp, err := c.QueryDatabase(ctx, dbID, req)
			ch <- page{resp: resp, err: err}
		}()
		return ch
	}

	var all []notionapi.Page
	next := fetch("")
	for {
		p := <-next
		if p.err != nil {
			return nil, eris.Wrap(p.err, "notion: query all")
		}
		if p.resp.HasMore {
			next = fetch(p.resp.NextCursor)
		}
		all = append(all, p.resp.Results...)
		if !p.resp.HasMore {
			return all, nil
		}
	}
}

// FindPageByLeadID returns the page whose Lead ID property equals leadID, or
// nil when the database has none.
func FindPageByLeadID(ctx context.Context, c Client, dbID, leadID string) (*notionapi.Page, error) {
	resp, err := c.QueryDatabase(ctx, dbID, &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: LeadIDProperty,
			RichText: &notionapi.TextFilterCondition{Equals: leadID},
		},
		PageSize: 1,
	})
	if err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("notion: find lead %s", leadID))
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	return &resp.Results[0], nil
}
