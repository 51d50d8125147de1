package server

import (
	"html/template"
	"math"
	"net/http"

	"po-outstanding-dashboard/internal/dashboard"
)

type levelView struct {
	Label    string
	Param    string
	Choices  []string
	Selected string
	Stale    bool
}

type barView struct {
	Unit    string
	Label   string
	Percent int
}

type pageData struct {
	Report  *dashboard.Report
	Levels  []levelView
	Bars    []barView
	Columns []string
	Query   string
}

func newPageData(report *dashboard.Report, r *http.Request) pageData {
	data := pageData{
		Report:  report,
		Columns: dashboard.DetailColumns,
		Query:   r.URL.RawQuery,
	}

	for _, level := range report.Levels {
		data.Levels = append(data.Levels, levelView{
			Label:    level.Field,
			Param:    levelParams[level.Field],
			Choices:  level.Choices(),
			Selected: level.Selected,
			Stale:    !level.IsValidSelection(),
		})
	}

	top := 0.0
	for _, u := range report.Units {
		top = math.Max(top, u.Total)
	}
	for _, u := range report.Units {
		percent := 0
		if top > 0 && u.Total > 0 {
			percent = int(math.Round(u.Total / top * 100))
		}
		data.Bars = append(data.Bars, barView{Unit: u.Unit, Label: u.Label, Percent: percent})
	}

	return data
}

var templateFuncs = template.FuncMap{
	"exportURL": func(path, query string) string {
		if query == "" {
			return path
		}
		return path + "?" + query
	},
}

const pageTemplate = `<!DOCTYPE html>
<html lang="ms">
<head>
<meta charset="utf-8">
<title>Laporan Tunggakan Pesanan Tempatan</title>
<style>
body { font-family: sans-serif; margin: 2em; }
.kpi { display: inline-block; margin-right: 3em; }
.kpi .value { font-size: 1.8em; font-weight: bold; }
.bar { background: #1f77b4; height: 1em; display: inline-block; }
table { border-collapse: collapse; }
td, th { border: 1px solid #ccc; padding: 4px 8px; }
</style>
</head>
<body>
<h1>Laporan Tunggakan Pesanan Tempatan</h1>
<p id="last-updated">Last updated: {{with .Report.LastUpdated}}{{.}}{{else}}N/A{{end}}</p>

<form method="get" action="/">
{{range .Levels}}
<label>{{.Label}}
<select name="{{.Param}}" onchange="this.form.submit()">
{{$selected := .Selected}}{{range .Choices}}<option value="{{.}}"{{if eq . $selected}} selected{{end}}>{{.}}</option>
{{end}}</select>
</label>
{{if .Stale}}<span class="stale">{{.Selected}} tidak lagi tersedia</span>{{end}}
{{end}}
<noscript><button type="submit">Tapis</button></noscript>
</form>

<div class="kpi"><div>Jumlah Pesanan Tempatan</div><div class="value" id="po-count">{{.Report.Summary.POCountText}}</div></div>
<div class="kpi"><div>Baki Pesanan Tempatan (RM)</div><div class="value" id="balance">{{.Report.Summary.BalanceText}}</div></div>

<h2>Baki Mengikut PTJ</h2>
<table id="units">
{{range .Bars}}<tr><td>{{.Unit}}</td><td><span class="bar" style="width: {{.Percent}}px"></span> {{.Label}}</td></tr>
{{else}}<tr><td colspan="2">Tiada data</td></tr>
{{end}}</table>

<h2>Butiran Pesanan Tempatan</h2>
<p>
<a href="{{exportURL "/api/export.csv" .Query}}">Muat turun CSV</a>
<a href="{{exportURL "/api/export.xlsx" .Query}}">Muat turun XLSX</a>
</p>
<table id="detail">
<thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Report.Rows}}<tr>{{range .Cells}}<td>{{.}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
{{with .Report.SnapshotID}}<p><small>Snapshot {{.}}</small></p>{{end}}
</body>
</html>
`
