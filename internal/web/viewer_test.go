package web

import (
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePage stubs the browser surface the viewer touches. Requests, renders,
// scrolls and sleeps are recorded in log; responses are queued by the test.
const fakePage = `
const log = { requests: [], renders: [], scrolls: [], sleeps: [] };

function element() {
  return {
    className: '', textContent: '', innerHTML: '', offsetHeight: 0,
    style: {}, removed: false,
    remove() { this.removed = true; },
  };
}

const elements = {
  'diagram-container': element(),
  'error-container': element(),
  'error-message': element(),
  'status-indicator': element(),
  'status-text': element(),
};

const fakeWindow = {
  scrollX: 0, scrollY: 0, location: { search: '' },
  scrollTo(x, y) { log.scrolls.push([x, y]); this.scrollX = x; this.scrollY = y; },
};

const fakeDocument = {
  body: { dataset: { contentPath: '/mermaid', pollInterval: '1000', mermaidUrl: 'mermaid.mjs' } },
  getElementById(id) { return elements[id] || null; },
};

const responses = [];
function respond(status, body, etag) { responses.push({ status, body, etag }); }

function fakeFetch(path, init) {
  log.requests.push({ path, ifNoneMatch: init.headers['If-None-Match'] || '', cache: init.cache });
  const r = responses.shift();
  if (!r) {
    return Promise.reject(new Error('connection refused'));
  }
  return Promise.resolve({
    status: r.status,
    ok: r.status >= 200 && r.status < 300,
    statusText: r.status === 500 ? 'Internal Server Error' : '',
    headers: { get(name) { return name === 'ETag' && r.etag ? r.etag : null; } },
    text() { return Promise.resolve(r.body || ''); },
  });
}

let renderError = null;
let holdRender = false;
let releaseRender = null;

const fakeMermaid = {
  initialize() {},
  render(id, source) {
    log.renders.push(source);
    // Rendering may move the page; the viewer has to restore the viewport.
    fakeWindow.scrollY = 0;
    const settle = (resolve, reject) => {
      if (renderError) {
        reject(new Error(renderError));
        return;
      }
      resolve({ svg: '<svg>' + source + '</svg>' });
    };
    if (holdRender) {
      return new Promise((resolve, reject) => { releaseRender = () => settle(resolve, reject); });
    }
    return new Promise(settle);
  },
};

let frames = [];
function flushFrames() { const pending = frames; frames = []; pending.forEach((fn) => fn()); }

let wake = null;

const viewer = ariel.createViewer({
  document: fakeDocument,
  window: fakeWindow,
  fetch: fakeFetch,
  sleep: (ms) => new Promise((resolve) => { log.sleeps.push(ms); wake = resolve; }),
  nextFrame: (fn) => frames.push(fn),
  importModule: () => Promise.resolve({ default: fakeMermaid }),
});
`

type browser struct {
	t  *testing.T
	vm *goja.Runtime
}

func newBrowser(t *testing.T, setup string) *browser {
	t.Helper()

	p, err := NewPage()
	require.NoError(t, err)

	vm := goja.New()
	_, err = vm.RunString(string(p.Script()))
	require.NoError(t, err)

	b := &browser{t: t, vm: vm}
	b.exec(fakePage)
	b.exec(setup)

	return b
}

// exec runs src; goja drains the promise job queue before returning.
func (b *browser) exec(src string) goja.Value {
	b.t.Helper()

	v, err := b.vm.RunString(src)
	require.NoError(b.t, err)

	return v
}

func (b *browser) str(expr string) string {
	b.t.Helper()
	return b.exec(expr).String()
}

func (b *browser) num(expr string) int64 {
	b.t.Helper()
	return b.exec(expr).ToInteger()
}

// poll runs one poll to completion.
func (b *browser) poll() {
	b.t.Helper()

	p, ok := b.exec("viewer.poll()").Export().(*goja.Promise)
	require.True(b.t, ok, "poll must return a promise")
	require.Equal(b.t, goja.PromiseStateFulfilled, p.State())
}

func (b *browser) ifNoneMatch() []string {
	b.t.Helper()

	var out []string
	require.NoError(b.t, b.vm.ExportTo(b.exec("log.requests.map((r) => r.ifNoneMatch)"), &out))

	return out
}

// ---------------------------------------------------------------------------
// Polling protocol
// ---------------------------------------------------------------------------

func TestViewer_FreshContentRenders(t *testing.T) {
	b := newBrowser(t, `respond(200, 'graph TD; A-->B', '"fp1"');`)

	assert.Equal(t, "connecting", b.str("viewer.state.status"))

	b.poll()

	assert.Equal(t, "connected", b.str("viewer.state.status"))
	assert.Equal(t, "fp1", b.str("viewer.state.fingerprint"))
	assert.Equal(t, "<svg>graph TD; A-->B</svg>", b.str("elements['diagram-container'].innerHTML"))
	assert.Equal(t, "status-connected", b.str("elements['status-indicator'].className"))
	assert.Equal(t, "Connected", b.str("elements['status-text'].textContent"))
	assert.Equal(t, "/mermaid", b.str("log.requests[0].path"))
	assert.Equal(t, "no-store", b.str("log.requests[0].cache"))
	assert.Equal(t, []string{""}, b.ifNoneMatch())
}

func TestViewer_NotModifiedLeavesDiagram(t *testing.T) {
	b := newBrowser(t, `
respond(200, 'graph TD; A-->B', '"fp1"');
respond(304, '', '"fp1"');
`)

	b.poll()
	b.exec("elements['diagram-container'].innerHTML = 'kept';")
	b.poll()

	assert.Equal(t, []string{"", `"fp1"`}, b.ifNoneMatch())
	assert.Equal(t, "kept", b.str("elements['diagram-container'].innerHTML"))
	assert.Equal(t, int64(1), b.num("log.renders.length"))
	assert.Equal(t, "connected", b.str("viewer.state.status"))
	assert.Equal(t, "fp1", b.str("viewer.state.fingerprint"))
}

func TestViewer_RenderFailureKeepsFingerprint(t *testing.T) {
	b := newBrowser(t, `
respond(200, 'graph TD; A-->B', '"fp1"');
respond(200, 'graph TD; A-->', '"fp2"');
respond(200, 'graph TD; A-->', '"fp2"');
respond(200, 'graph TD; A-->C', '"fp3"');
`)

	b.poll()

	b.exec("renderError = 'Parse error on line 1';")
	b.poll()

	assert.Equal(t, "error", b.str("viewer.state.status"))
	assert.Equal(t, "fp1", b.str("viewer.state.fingerprint"))
	assert.Equal(t, "Failed to render diagram: Parse error on line 1", b.str("elements['error-message'].textContent"))
	assert.Equal(t, "block", b.str("elements['error-container'].style.display"))
	assert.Equal(t, "<svg>graph TD; A-->B</svg>", b.str("elements['diagram-container'].innerHTML"))

	// Broken content is fetched in full again, not answered with 304.
	b.poll()
	assert.Equal(t, "fp1", b.str("viewer.state.fingerprint"))
	assert.Equal(t, "error", b.str("viewer.state.status"))

	b.exec("renderError = null;")
	b.poll()

	assert.Equal(t, []string{"", `"fp1"`, `"fp1"`, `"fp1"`}, b.ifNoneMatch())
	assert.Equal(t, "connected", b.str("viewer.state.status"))
	assert.Equal(t, "fp3", b.str("viewer.state.fingerprint"))
	assert.Equal(t, "none", b.str("elements['error-container'].style.display"))
	assert.Equal(t, "<svg>graph TD; A-->C</svg>", b.str("elements['diagram-container'].innerHTML"))
}

func TestViewer_MissingFileShowsServerMessage(t *testing.T) {
	b := newBrowser(t, `
respond(200, 'graph TD; A-->B', '"fp1"');
respond(404, 'File not found: /tmp/arch.mmd\n', '');
respond(500, '', '');
`)

	b.poll()
	b.poll()

	assert.Equal(t, "error", b.str("viewer.state.status"))
	assert.Equal(t, "File not found: /tmp/arch.mmd", b.str("viewer.state.lastError"))
	assert.Equal(t, "fp1", b.str("viewer.state.fingerprint"))
	assert.Equal(t, "<svg>graph TD; A-->B</svg>", b.str("elements['diagram-container'].innerHTML"))

	b.poll()
	assert.Equal(t, "HTTP 500: Internal Server Error", b.str("viewer.state.lastError"))
}

func TestViewer_FetchFailure(t *testing.T) {
	b := newBrowser(t, "")

	b.poll()

	assert.Equal(t, "error", b.str("viewer.state.status"))
	assert.Equal(t, "Failed to fetch diagram: connection refused", b.str("viewer.state.lastError"))
	assert.Equal(t, "Error", b.str("elements['status-text'].textContent"))
	assert.Equal(t, "null", b.str("String(viewer.state.fingerprint)"))
}

func TestViewer_RecoversAfterFetchFailure(t *testing.T) {
	b := newBrowser(t, `respond(200, 'graph TD; A-->B', '"fp1"');`)

	b.poll()
	b.poll() // queue empty: connection refused
	assert.Equal(t, "error", b.str("viewer.state.status"))

	b.exec(`respond(304, '', '"fp1"');`)
	b.poll()

	assert.Equal(t, "connected", b.str("viewer.state.status"))
	assert.Equal(t, []string{"", `"fp1"`, `"fp1"`}, b.ifNoneMatch())
}

// ---------------------------------------------------------------------------
// Scheduling
// ---------------------------------------------------------------------------

func TestViewer_NextTickWaitsForRender(t *testing.T) {
	b := newBrowser(t, `
holdRender = true;
respond(200, 'graph TD; A-->B', '"fp1"');
respond(304, '', '"fp1"');
`)

	b.exec("viewer.run();")

	// The render is still pending: no sleep has been scheduled and no
	// second request has gone out.
	assert.Equal(t, int64(1), b.num("log.requests.length"))
	assert.Equal(t, int64(0), b.num("log.sleeps.length"))
	assert.Equal(t, "connecting", b.str("viewer.state.status"))

	b.exec("releaseRender();")

	assert.Equal(t, int64(1), b.num("log.requests.length"))
	assert.Equal(t, int64(1), b.num("log.sleeps.length"))
	assert.Equal(t, int64(1000), b.num("log.sleeps[0]"))
	assert.Equal(t, "connected", b.str("viewer.state.status"))

	b.exec("wake();")

	assert.Equal(t, int64(2), b.num("log.requests.length"))
	assert.Equal(t, int64(2), b.num("log.sleeps.length"))
	assert.Equal(t, []string{"", `"fp1"`}, b.ifNoneMatch())
}

func TestViewer_PollIntervalOverrides(t *testing.T) {
	tests := []struct {
		name  string
		setup string
		want  int64
	}{
		{name: "page default", setup: "", want: 1000},
		{name: "query string", setup: "fakeWindow.location.search = '?interval=250';", want: 250},
		{name: "window setting", setup: "fakeWindow.arielPollInterval = 400;", want: 400},
		{
			name:  "query string wins",
			setup: "fakeWindow.location.search = '?x=1&interval=300'; fakeWindow.arielPollInterval = 400;",
			want:  300,
		},
		{name: "invalid query ignored", setup: "fakeWindow.location.search = '?interval=0';", want: 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBrowser(t, tt.setup)
			assert.Equal(t, tt.want, b.num("viewer.config.pollInterval()"))
		})
	}
}

// ---------------------------------------------------------------------------
// Viewport
// ---------------------------------------------------------------------------

func TestViewer_RestoresScrollAndHeight(t *testing.T) {
	b := newBrowser(t, `
holdRender = true;
fakeWindow.scrollX = 10;
fakeWindow.scrollY = 250;
elements['diagram-container'].offsetHeight = 480;
respond(200, 'graph TD; A-->B', '"fp1"');
`)

	b.exec("viewer.poll();")

	// Height is pinned while the new diagram renders.
	assert.Equal(t, "480px", b.str("elements['diagram-container'].style.minHeight"))

	b.exec("releaseRender();")

	assert.Equal(t, int64(10), b.num("fakeWindow.scrollX"))
	assert.Equal(t, int64(250), b.num("fakeWindow.scrollY"))
	assert.Equal(t, "480px", b.str("elements['diagram-container'].style.minHeight"))
	assert.Equal(t, int64(1), b.num("frames.length"))

	b.exec("fakeWindow.scrollY = 0; flushFrames();")

	assert.Equal(t, "", b.str("elements['diagram-container'].style.minHeight"))
	assert.Equal(t, int64(250), b.num("fakeWindow.scrollY"))
	assert.Equal(t, "connected", b.str("viewer.state.status"))
}

func TestViewer_RestoresScrollAfterRenderFailure(t *testing.T) {
	b := newBrowser(t, `
renderError = 'Parse error';
fakeWindow.scrollY = 120;
elements['diagram-container'].offsetHeight = 300;
respond(200, 'graph TD; A-->', '"fp1"');
`)

	b.poll()
	b.exec("flushFrames();")

	assert.Equal(t, int64(120), b.num("fakeWindow.scrollY"))
	assert.Equal(t, "", b.str("elements['diagram-container'].style.minHeight"))
	assert.Equal(t, "error", b.str("viewer.state.status"))
}

func TestViewer_Unquote(t *testing.T) {
	b := newBrowser(t, "")

	assert.Equal(t, "abc", b.str(`ariel.unquote('"abc"')`))
	assert.Equal(t, "abc", b.str(`ariel.unquote('W/"abc"')`))
	assert.Equal(t, "null", b.str(`String(ariel.unquote(null))`))
}
