package status

import (
	"fmt"
	"html/template"
	"io"
	"time"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="2">
<title>{{.Config.DeviceName}}</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.connected { color: green; font-weight: bold; }
.waiting { color: orange; }
.idle { color: #888; }
.err { color: red; }
</style>
</head>
<body>
<h1>{{.Config.DeviceName}}</h1>

<h2>Session</h2>
<table>
<tr><th>State</th><td class="{{if eq .Session "connected"}}connected{{else if eq .Session "advertising"}}waiting{{else}}idle{{end}}">{{.Session}}</td></tr>
{{if .PeerAddr}}<tr><th>Peer</th><td>{{.PeerAddr}}{{if .Bonded}} (bonded){{end}}</td></tr>
<tr><th>Connection</th><td>{{.ConnID}}</td></tr>{{end}}
<tr><th>Reports sent</th><td>{{.Reports}}</td></tr>
<tr><th>Link drops</th><td>{{.LinkDrops}}</td></tr>
</table>

<h2>Input</h2>
<table>
<tr><th>Driver</th><td>{{.Config.Driver}}{{if .Config.Device}} ({{.Config.Device}}){{end}}</td></tr>
<tr><th>Keys</th><td>{{.Keys}}</td></tr>
<tr><th>Scratch</th><td>{{.Scratch}}</td></tr>
<tr><th>Presses</th><td>{{.Counts.Presses}}</td></tr>
<tr><th>Releases</th><td>{{.Counts.Releases}}</td></tr>
{{if .InputErr}}<tr><th>Error</th><td class="err">{{.InputErr}}</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}idle{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
{{if .Config.Broker}}<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>{{end}}
{{if .TelemetryDropped}}<tr><th>Dropped events</th><td>{{.TelemetryDropped}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickHz}}Hz</td></tr>
<tr><th>Debounce</th><td>{{if eq .Config.DebounceMs 0}}disabled{{else}}{{.Config.DebounceMs}}ms{{end}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap Snapshot) {
	// Snapshot has an Uptime() method but the template needs a value.
	data := struct {
		Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
