package server

// DashboardHTML is the embedded single-page dashboard for meshflow.
// It connects via WebSocket and replays each frame's display list on a
// canvas, over the graph backdrop.
const DashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>meshflow</title>
<style>
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, monospace;
    background: #0d1117; color: #c9d1d9; padding: 20px;
  }
  h1 { color: #58a6ff; margin-bottom: 4px; font-size: 1.5em; }
  .subtitle { color: #8b949e; margin-bottom: 20px; font-size: 0.9em; }
  .status-bar {
    display: flex; gap: 20px; margin-bottom: 20px; padding: 12px 16px;
    background: #161b22; border: 1px solid #30363d; border-radius: 6px;
    align-items: center;
  }
  .status-item { display: flex; flex-direction: column; }
  .status-label { font-size: 0.75em; color: #8b949e; text-transform: uppercase; }
  .status-value { font-size: 1.1em; font-weight: 600; }
  .status-value.connected { color: #3fb950; }
  .status-value.disconnected { color: #f85149; }
  .controls { margin-left: auto; display: flex; gap: 8px; }
  button {
    background: #21262d; color: #c9d1d9; border: 1px solid #30363d;
    padding: 4px 12px; border-radius: 4px; cursor: pointer; font-size: 0.8em;
  }
  button:hover { background: #30363d; }
  .layout { display: grid; grid-template-columns: 1fr 320px; gap: 20px; }
  .stage {
    background: #1b1d21; border: 1px solid #30363d; border-radius: 6px;
    position: relative; height: 600px;
  }
  .stage canvas { position: absolute; top: 0; left: 0; width: 100%; height: 100%; }
  .edges {
    background: #161b22; border: 1px solid #30363d; border-radius: 6px;
    max-height: 600px; overflow-y: auto;
  }
  .edges-header {
    padding: 12px 16px; border-bottom: 1px solid #30363d;
    font-weight: 600; color: #58a6ff; position: sticky; top: 0; background: #161b22;
  }
  .edge-row {
    display: grid; grid-template-columns: 1fr 60px 60px;
    padding: 8px 16px; border-bottom: 1px solid #21262d; font-size: 0.85em;
  }
  .edge-row.dimmed { opacity: 0.4; }
  .edge-id { color: #d2a8ff; overflow: hidden; text-overflow: ellipsis; }
  .edge-errors { color: #f85149; text-align: right; }
  .edge-flight { color: #3fb950; text-align: right; }
  .error-banner { color: #f85149; font-size: 0.85em; }
</style>
</head>
<body>
<h1>meshflow</h1>
<p class="subtitle">Live service mesh traffic</p>

<div class="status-bar">
  <div class="status-item">
    <span class="status-label">Connection</span>
    <span class="status-value disconnected" id="conn-status">Disconnected</span>
  </div>
  <div class="status-item">
    <span class="status-label">Frames/sec</span>
    <span class="status-value" id="fps">0</span>
  </div>
  <div class="status-item">
    <span class="status-label">Points</span>
    <span class="status-value" id="points">0</span>
  </div>
  <span class="error-banner" id="error"></span>
  <div class="controls">
    <button onclick="engine('start')">Start</button>
    <button onclick="engine('stop')">Stop</button>
    <button onclick="engine('clear')">Clear</button>
  </div>
</div>

<div class="layout">
  <div class="stage">
    <canvas id="backdrop"></canvas>
    <canvas id="traffic"></canvas>
  </div>
  <div class="edges">
    <div class="edges-header">Edges</div>
    <div id="edges"></div>
  </div>
</div>

<script>
const backdrop = document.getElementById('backdrop');
const trafficCanvas = document.getElementById('traffic');
let frameTimes = [];

function fit(c) {
  if (c.width !== c.clientWidth || c.height !== c.clientHeight) {
    c.width = c.clientWidth;
    c.height = c.clientHeight;
  }
}

function replay(canvas, ops) {
  fit(canvas);
  const ctx = canvas.getContext('2d');
  ctx.setTransform(1, 0, 0, 1, 0, 0);
  ctx.clearRect(0, 0, canvas.width, canvas.height);
  for (const op of ops || []) {
    const a = op.args || [];
    switch (op.op) {
      case 'fillStyle': ctx.fillStyle = op.color; break;
      case 'strokeStyle': ctx.strokeStyle = op.color; break;
      case 'lineWidth': ctx.lineWidth = a[0]; break;
      case 'setTransform': ctx.setTransform(a[0], a[1], a[2], a[3], a[4], a[5]); break;
      default:
        if (typeof ctx[op.op] === 'function') ctx[op.op](...a);
    }
  }
}

function connect() {
  const proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
  const ws = new WebSocket(proto + '//' + location.host + '/ws');

  ws.onopen = () => {
    document.getElementById('conn-status').textContent = 'Connected';
    document.getElementById('conn-status').className = 'status-value connected';
  };

  ws.onclose = () => {
    document.getElementById('conn-status').textContent = 'Disconnected';
    document.getElementById('conn-status').className = 'status-value disconnected';
    setTimeout(connect, 2000);
  };

  ws.onmessage = (e) => {
    const msg = JSON.parse(e.data);
    switch (msg.type) {
      case 'backdrop': replay(backdrop, msg.ops); break;
      case 'frame': onFrame(msg); break;
      case 'stopped':
        replay(trafficCanvas, []);
        document.getElementById('error').textContent = msg.error || '';
        break;
    }
  };
}

function onFrame(msg) {
  replay(trafficCanvas, msg.ops);
  document.getElementById('error').textContent = '';

  const now = Date.now();
  frameTimes.push(now);
  frameTimes = frameTimes.filter(t => now - t < 1000);
  document.getElementById('fps').textContent = frameTimes.length;
  document.getElementById('points').textContent = msg.frame.points;

  if (msg.edges) renderEdges(msg.edges);
}

function renderEdges(edges) {
  const div = document.getElementById('edges');
  div.innerHTML = edges.map(e =>
    '<div class="edge-row' + (e.dimmed ? ' dimmed' : '') + '">' +
    '<span class="edge-id">' + escHtml(e.id) + '</span>' +
    '<span class="edge-flight">' + e.in_flight + '</span>' +
    '<span class="edge-errors">' + e.errors + '</span></div>'
  ).join('');
}

function engine(action) {
  fetch('/api/engine/' + action, { method: 'POST' });
}

function escHtml(s) {
  const d = document.createElement('div');
  d.textContent = s;
  return d.innerHTML;
}

connect();
</script>
</body>
</html>`
