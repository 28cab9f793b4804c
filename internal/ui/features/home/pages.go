package home

import (
	"time"

	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"

	"github.com/leapstack-labs/leapimport/internal/ui/features/common"
)

// SessionRow is one saved session in the list.
type SessionRow struct {
	ID        string
	FileName  string
	Phase     string
	UpdatedAt time.Time
}

// HomeData is everything the home page renders.
type HomeData struct {
	SchemaName  string
	Inbox       string
	LastSession string
	Sessions    []SessionRow
	Error       string
}

func homePage(d HomeData, isDev bool) Node {
	return common.Page("Sessions", isDev, "/updates",
		H1(Textf("Import into %s", d.SchemaName)),
		common.ErrorBanner(d.Error),
		uploadForm(d),
		sessionList(d),
	)
}

func uploadForm(d HomeData) Node {
	return Section(Class("panel"),
		Form(Method("post"), Action("/upload"), Attr("enctype", "multipart/form-data"),
			Label(For("file"), Text("Upload a CSV file ")),
			Input(Type("file"), ID("file"), Name("file"), Attr("accept", ".csv,.tsv,.txt"), Required()),
			Button(Type("submit"), Text("Start review")),
		),
		If(d.Inbox != "", P(Class("counts"), Textf("Files dropped into %s open as new sessions.", d.Inbox))),
	)
}

func sessionList(d HomeData) Node {
	if len(d.Sessions) == 0 {
		return Div(ID("session-list"), P(Class("counts"), Text("No saved sessions yet.")))
	}

	return Div(ID("session-list"),
		If(d.LastSession != "", P(A(Href("/review/"+d.LastSession), Text("Continue your last review")))),
		Table(Class("sessions"),
			THead(Tr(Th(Text("File")), Th(Text("Phase")), Th(Text("Updated")), Th())),
			TBody(Map(d.Sessions, func(s SessionRow) Node {
				return Tr(
					Td(A(Href("/review/"+s.ID), Text(s.FileName))),
					Td(Text(s.Phase)),
					Td(Text(s.UpdatedAt.Local().Format("2006-01-02 15:04"))),
					Td(Form(Method("post"), Action("/sessions/"+s.ID+"/delete"),
						Button(Type("submit"), Text("Delete")),
					)),
				)
			})),
		),
	)
}
