package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/motor-regulator/internal/status"
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
<meta http-equiv="refresh" content="5">
<title>Motor Regulator</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.waiting { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Motor Regulator</h1>

<h2>Control</h2>
<table>
<tr><th>Running</th><td class="{{if .HasCycle}}on{{else}}waiting{{end}}">{{if .HasCycle}}yes{{else}}waiting for first cycle{{end}}</td></tr>
<tr><th>Setpoint</th><td id="setpoint">{{printf "%g" .Stats.Setpoint}} pulses/cycle</td></tr>
{{if .HasCycle}}<tr><th>Measured</th><td id="count">{{.Last.Count}} pulses</td></tr>
<tr><th>Action</th><td id="action" class="{{if gt .Last.Action 0}}on{{else}}off{{end}}">{{.Last.Action}} ({{printf "%.1f" .Last.ScaledAction}})</td></tr>
<tr><th>Cycle</th><td>#{{.Last.Seq}} at {{printf "%.4f" .Last.Elapsed.Seconds}}s</td></tr>{{end}}
<tr><th>Source</th><td>{{.Config.SetpointSource}}</td></tr>
</table>

<h2>Counters</h2>
<table>
<tr><th>Cycles</th><td>{{.Stats.Cycles}}</td></tr>
<tr><th>Pending pulses</th><td>{{.Stats.Pending}}</td></tr>
<tr><th>Read errors</th><td>{{.Stats.ReadErrors}}</td></tr>
<tr><th>Write failures</th><td>{{.Stats.WriteFailures}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Rates</th><td>{{.Config.SampleHz}}Hz sample, {{.Config.ScheduleHz}}Hz schedule, /{{.Config.Divisor}}</td></tr>
<tr><th>Action range</th><td>{{.Config.MinAction}}..{{.Config.MaxAction}}</td></tr>
<tr><th>Encoder</th><td>line {{.Config.EncoderLine}}</td></tr>
<tr><th>PWM</th><td>{{.Config.PWMPin}} @ {{.Config.PWMFreqHz}}Hz</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
