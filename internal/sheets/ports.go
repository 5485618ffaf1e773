package sheets

import "context"

// RowAppender appends tabular rows after the last filled row of a sheet tab.
type RowAppender interface {
	AppendRows(ctx context.Context, rows [][]string) (updatedRange string, err error)
}
