package httpapi

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/luizfelipeneves/dcortex-dashboard/internal/dashboard"
	"github.com/luizfelipeneves/dcortex-dashboard/internal/model"
	"github.com/luizfelipeneves/dcortex-dashboard/internal/render"
)

type pageCategory struct {
	Name   string
	URL    string
	Active bool
}

type pageData struct {
	Theme        model.Theme
	ThemeIcon    string
	Categories   []pageCategory
	Progress     float64
	Status       string
	Overlay      bool
	Opacity      float64
	MainContent  bool
	ErrorBanner  bool
	ErrorText    string
	ProductCount string
	StatsCards   template.HTML
	Products     template.HTML
	CanvasID     string
	WSPath       string
	IconDark     string
	IconLight    string
}

const (
	iconDark  = "bi-moon-fill"
	iconLight = "bi-sun-fill"
)

// themeIcon names the glyph of the active theme.
func themeIcon(t model.Theme) string {
	if t == model.ThemeDark {
		return iconDark
	}
	return iconLight
}

func newPageData(snap dashboard.Snapshot, categories []model.Category) pageData {
	d := pageData{
		Theme:        snap.Theme,
		ThemeIcon:    themeIcon(snap.Theme),
		Progress:     snap.State.Progress,
		Status:       snap.State.Status,
		Overlay:      snap.Visibility.LoadingOverlay,
		Opacity:      snap.Visibility.OverlayOpacity,
		MainContent:  snap.Visibility.MainContent,
		ErrorBanner:  snap.Visibility.ErrorBanner,
		ErrorText:    snap.State.Message,
		ProductCount: render.ProductCount(0),
		CanvasID:     render.ChartCanvasID,
		WSPath:       "/ws/dashboard",
		IconDark:     iconDark,
		IconLight:    iconLight,
	}
	if snap.State.Kind == model.StateIdle {
		d.Overlay = true
		d.Opacity = 1
		d.Status = dashboard.PhaseStatus(0)
	}
	if snap.Regions != nil {
		d.StatsCards = template.HTML(snap.Regions.StatsCards)
		d.Products = template.HTML(snap.Regions.Products)
		d.ProductCount = snap.Regions.ProductCount
	}
	for _, c := range categories {
		d.Categories = append(d.Categories, pageCategory{
			Name:   c.Name,
			URL:    c.URL,
			Active: c.URL == snap.State.Source,
		})
	}
	return d
}

func renderPage(d pageData) ([]byte, error) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (rt *Router) servePage(w http.ResponseWriter, r *http.Request) {
	body, err := renderPage(newPageData(rt.Dashboard.Context().Snapshot(), rt.Categories))
	if err != nil {
		writeJSON(w, 500, map[string]any{"error": "internal_error"})
		return
	}
	w.Header().Set("content-type", "text/html; charset=utf-8")
	w.Header().Set("cache-control", "no-cache, no-store, must-revalidate")
	w.Header().Set("pragma", "no-cache")
	w.Header().Set("expires", "0")
	_, _ = w.Write(body)
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="pt-BR" data-bs-theme="{{.Theme}}">
<head>
  <meta charset="utf-8"/>
  <meta name="viewport" content="width=device-width, initial-scale=1"/>
  <title>DCortex - Produtos</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/bootstrap@5.3.3/dist/css/bootstrap.min.css"/>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/bootstrap-icons@1.11.3/font/bootstrap-icons.min.css"/>
  <style>
    :root{--bg:#f8f9fa;--fg:#2b2d42;--card:#fff}
    [data-bs-theme="dark"]{--bg:#212529;--fg:#f8f9fa;--card:#343a40}
    body{background:var(--bg);color:var(--fg)}
    .card{background:var(--card);color:var(--fg)}
    #loading-overlay{transition:opacity .5s ease}
    .fade-in{animation:fadeInUp .5s ease both}
    .menu-toggle{display:none;position:fixed;top:1rem;left:1rem;z-index:1050}
    @media (max-width:768px){
      .menu-toggle{display:block}
      .sidebar{position:fixed;top:0;left:-260px;height:100%;z-index:1040;background:var(--card);transition:left .3s ease}
      .sidebar.active{left:0}
    }
    @keyframes fadeInUp{from{opacity:0;transform:translateY(20px)}to{opacity:1;transform:none}}
  </style>
</head>
<body data-bs-theme="{{.Theme}}">
<button class="menu-toggle btn btn-primary" type="button" aria-label="Menu"><i class="bi bi-list" style="font-size: 1.5rem;"></i></button>
<div class="d-flex">
  <nav id="sidebar" class="sidebar p-3" style="min-width:240px">
    <h5>Categorias</h5>
    <ul class="nav flex-column">
      {{- range .Categories}}
      <li class="nav-item"><a href="#" class="nav-link category-link{{if .Active}} active{{end}}" data-url="{{.URL}}">{{.Name}}</a></li>
      {{- end}}
    </ul>
    <button id="theme-toggle" class="btn btn-outline-secondary mt-3" type="button"><i id="theme-icon" class="bi {{.ThemeIcon}}"></i></button>
  </nav>
  <main class="flex-grow-1 p-3 position-relative">
    <div id="loading-overlay" style="display:{{if .Overlay}}block{{else}}none{{end}};opacity:{{.Opacity}}">
      <div class="progress"><div id="progress-bar" class="progress-bar" role="progressbar" style="width:{{printf "%.0f" .Progress}}%"></div></div>
      <p id="loading-status" class="mt-2">{{.Status}}</p>
    </div>
    <div id="error-message" class="alert alert-danger" style="display:{{if .ErrorBanner}}block{{else}}none{{end}}">
      <i class="bi bi-exclamation-triangle"></i> <span id="error-text">{{.ErrorText}}</span>
    </div>
    <div id="main-content" style="display:{{if .MainContent}}block{{else}}none{{end}}">
      <div id="stats-cards" class="row g-3 mb-3">{{.StatsCards}}</div>
      <div class="card p-3 mb-3"><canvas id="{{.CanvasID}}" height="120"></canvas></div>
      <h5>Produtos <span id="product-count" class="badge bg-secondary">{{.ProductCount}}</span></h5>
      <div id="products-list" class="row g-3">{{.Products}}</div>
    </div>
  </main>
</div>
<script src="https://cdn.jsdelivr.net/npm/chart.js@4.4.1/dist/chart.umd.min.js"></script>
<script src="https://cdn.jsdelivr.net/npm/chartjs-plugin-datalabels@2.2.0/dist/chartjs-plugin-datalabels.min.js"></script>
<script>
(function(){
  var charts = {};
  var ws;
  var $ = function(id){ return document.getElementById(id); };

  function money(prefix, v){ return prefix + Number(v).toFixed(2); }

  function destroyChart(op){
    var c = charts[op.canvas];
    if (c) { c.chart.destroy(); delete charts[op.canvas]; }
  }

  function createChart(op){
    destroyChart(op);
    var canvas = $(op.canvas);
    if (!canvas || !op.config) { return; }
    var cfg = op.config;
    var ctx = canvas.getContext("2d");
    var grad = ctx.createLinearGradient(0, 0, 0, 400);
    grad.addColorStop(0, cfg.gradient[0]);
    grad.addColorStop(1, cfg.gradient[1]);
    var ds = cfg.data.datasets[0];
    ds.backgroundColor = grad;
    var prefix = cfg.currency_prefix;
    cfg.options.scales.y.ticks.callback = function(v){ return prefix + v; };
    cfg.options.plugins.tooltip.callbacks = { label: function(c){ return money(prefix, c.raw); } };
    var dl = cfg.options.plugins.datalabels;
    dl.display = function(c){ return c.dataIndex < dl.displayFirst; };
    dl.formatter = function(v){ return money(prefix, v); };
    charts[op.canvas] = { id: op.instance, chart: new Chart(ctx, { type: cfg.type, data: cfg.data, options: cfg.options, plugins: [ChartDataLabels] }) };
  }

  function applyVisibility(v){
    $("loading-overlay").style.display = v.loading_overlay ? "block" : "none";
    $("loading-overlay").style.opacity = v.overlay_opacity;
    $("main-content").style.display = v.main_content ? "block" : "none";
    $("error-message").style.display = v.error_banner ? "block" : "none";
  }

  function applyProgress(p){
    $("progress-bar").style.width = Math.round(p.progress) + "%";
    if (p.status) { $("loading-status").textContent = p.status; }
  }

  function applyRegions(r){
    $("stats-cards").innerHTML = r.stats_cards;
    $("products-list").innerHTML = r.products;
    $("product-count").textContent = r.product_count;
  }

  function applyState(s){
    if (s.kind === "loading") { applyProgress(s); }
    if (s.kind === "error") { $("error-text").textContent = s.message; }
    document.querySelectorAll(".category-link").forEach(function(a){
      a.classList.toggle("active", a.dataset.url === s.source);
    });
  }

  function applyTheme(t){
    document.documentElement.setAttribute("data-bs-theme", t);
    document.body.setAttribute("data-bs-theme", t);
    $("theme-icon").className = "bi " + (t === "dark" ? "{{.IconDark}}" : "{{.IconLight}}");
  }

  function toggleSidebar(){
    var sidebar = document.querySelector(".sidebar");
    var open = sidebar.classList.toggle("active");
    document.querySelector(".menu-toggle").innerHTML = '<i class="bi ' + (open ? "bi-x-lg" : "bi-list") + '" style="font-size: 1.5rem;"></i>';
  }

  function handle(msg){
    switch (msg.type) {
    case "snapshot":
      applyTheme(msg.data.theme);
      applyState(msg.data.state);
      if (msg.data.regions) { applyRegions(msg.data.regions); }
      if (msg.data.chart) { createChart(msg.data.chart); }
      applyVisibility(msg.data.visibility);
      break;
    case "state": applyState(msg.data); break;
    case "progress": applyProgress(msg.data); break;
    case "regions": applyRegions(msg.data); break;
    case "visibility": applyVisibility(msg.data); break;
    case "chart_create": createChart(msg.data); break;
    case "chart_destroy": destroyChart(msg.data); break;
    case "theme": applyTheme(msg.data.theme); break;
    case "error": console.warn(msg.data); break;
    }
  }

  function send(cmd){
    if (ws && ws.readyState === WebSocket.OPEN) { ws.send(JSON.stringify(cmd)); }
  }

  function connect(){
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    ws = new WebSocket(proto + location.host + "{{.WSPath}}");
    ws.onmessage = function(e){ handle(JSON.parse(e.data)); };
    ws.onclose = function(){ setTimeout(connect, 2000); };
  }

  document.querySelectorAll(".category-link").forEach(function(a){
    a.addEventListener("click", function(e){
      e.preventDefault();
      send({ type: "select_category", url: a.dataset.url });
    });
  });
  $("theme-toggle").addEventListener("click", function(){ send({ type: "toggle_theme" }); });
  document.querySelector(".menu-toggle").addEventListener("click", toggleSidebar);

  connect();
})();
</script>
</body>
</html>
`))
