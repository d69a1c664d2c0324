package google

import (
	"fmt"
	"strings"

	ports "medrent/internal/sheets"
)

// Header is the first row of the agenda sheet.
var Header = []any{"Notification ID", "Type", "Date", "Title", "Message", "Entity", "Entity ID", "Patient", "Raised on"}

func entryRow(e ports.AgendaEntry) []any {
	return []any{
		e.NotificationID,
		string(e.Type),
		e.Date.String(),
		e.Title,
		e.Message,
		e.EntityType,
		e.EntityID,
		e.PatientName,
		e.RaisedOn.String(),
	}
}

// parseIDColumn collects the non-empty ids of column A, skipping the header.
func parseIDColumn(values [][]any) map[string]bool {
	ids := make(map[string]bool, len(values))
	for _, row := range values {
		if len(row) == 0 {
			continue
		}
		v := strings.TrimSpace(fmt.Sprint(row[0]))
		if v == "" || strings.EqualFold(v, Header[0].(string)) {
			continue
		}
		ids[v] = true
	}
	return ids
}
