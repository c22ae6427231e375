package sheets

import "context"

// Ports for outbound adapters.
type (
	// RowAppender mirrors categorized transactions to an external
	// sheet, one row per transaction. The returned reference names the
	// written range and is only used for logging.
	RowAppender interface {
		AppendRow(ctx context.Context, row []interface{}) (rowRef string, err error)
	}
)
