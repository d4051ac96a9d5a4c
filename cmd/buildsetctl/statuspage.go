package main

import (
	"bytes"
	"html/template"
	"io"
	"net/http"

	"github.com/distr1/buildset"
)

var statusTmpl = template.Must(template.New("").Parse(`<!DOCTYPE html>
<head>
<meta charset="utf-8">
<title>buildsetctl status</title>
<style type="text/css">
td { padding: 0.5em; }
</style>
</head>
<body>
<h1>build set {{ .Revision }}</h1>
<p>reason: {{ .Reason }}</p>
<table width="100%" cellpadding=0 cellspacing=0>
<tr><th>builder</th><th>finished</th><th>result</th></tr>
{{ range .Requests }}
<tr>
<td>{{ .Builder }}</td>
<td>{{ if .Finished }}yes{{ else }}no{{ end }}</td>
<td>{{ .Result }}</td>
</tr>
{{ end }}
</table>
</body>
</html>`))

type requestRow struct {
	Builder  string
	Finished bool
	Result   string
}

// statusPageHandler serves a minimal HTML view of a Status's recorded
// requests, the way cmd/autobuilder's serveStatusPage renders recent commits
// from its in-memory status cache.
func statusPageHandler(source buildset.SourceStamp, reason string, status *buildset.Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows := make([]requestRow, 0)
		for _, req := range status.Requests() {
			finished := false
			result := "pending"
			select {
			case <-req.Done():
				finished = true
				result = req.Result().String()
			default:
			}
			rows = append(rows, requestRow{
				Builder:  req.Builder,
				Finished: finished,
				Result:   result,
			})
		}

		var buf bytes.Buffer
		if err := statusTmpl.Execute(&buf, struct {
			Revision string
			Reason   string
			Requests []requestRow
		}{
			Revision: source.Revision,
			Reason:   reason,
			Requests: rows,
		}); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		io.Copy(w, &buf)
	}
}
