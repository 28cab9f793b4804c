package imports

import (
	"time"

	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"

	"github.com/leapstack-labs/leapimport/internal/ui/features/common"
)

// ImportRow is one completed import in the history table.
type ImportRow struct {
	SessionID  string
	FileName   string
	Target     string
	RowCount   int
	Mapping    string
	ImportedAt time.Time
}

func importsPage(rows []ImportRow, isDev bool) Node {
	return common.Page("Imports", isDev, "/imports/updates",
		H1(Text("Import history")),
		importList(rows),
	)
}

func importList(rows []ImportRow) Node {
	if len(rows) == 0 {
		return Div(ID("import-list"), P(Class("counts"), Text("Nothing imported yet.")))
	}

	return Div(ID("import-list"),
		Table(Class("sessions"),
			THead(Tr(Th(Text("File")), Th(Text("Target")), Th(Text("Rows")), Th(Text("Mapping")), Th(Text("Imported")))),
			TBody(Map(rows, func(row ImportRow) Node {
				file := Text(row.FileName)
				if row.SessionID != "" {
					file = A(Href("/review/"+row.SessionID), Text(row.FileName))
				}
				return Tr(
					Td(file),
					Td(Text(row.Target)),
					Td(Textf("%d", row.RowCount)),
					Td(Class("mapping"), Text(row.Mapping)),
					Td(Text(row.ImportedAt.Local().Format("2006-01-02 15:04"))),
				)
			})),
		),
	)
}
