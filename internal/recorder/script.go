package recorder

// getCaptureScript returns the JavaScript injected into the recorded page.
// The script stays deliberately thin: it tags elements with a tracking
// attribute, buffers trusted events with the tag path of each target, and
// serializes DOM snapshots with open shadow roots inlined as
// <template shadowrootmode> children. All interpretation of the events
// happens on the Go side against those snapshots.
func getCaptureScript() string {
	return `
(function() {
	if (window.__uiRecorder) return;

	const ATTR = 'data-uirec-id';
	const VOID_TAGS = {area:1, base:1, br:1, col:1, embed:1, hr:1, img:1, input:1, link:1, meta:1, source:1, track:1, wbr:1};
	let nextId = 1;

	function tag(el) {
		if (!el.hasAttribute(ATTR)) {
			el.setAttribute(ATTR, 'e' + (nextId++));
		}
		return el.getAttribute(ATTR);
	}

	function tagTree(root) {
		if (root.nodeType === Node.ELEMENT_NODE) {
			tag(root);
		}
		const els = root.querySelectorAll('*');
		for (let i = 0; i < els.length; i++) {
			tag(els[i]);
			if (els[i].shadowRoot) {
				tagTree(els[i].shadowRoot);
			}
		}
	}

	function escapeText(s) {
		return s.replace(/&/g, '&amp;').replace(/</g, '&lt;').replace(/>/g, '&gt;');
	}

	function escapeAttr(s) {
		return s.replace(/&/g, '&amp;').replace(/"/g, '&quot;').replace(/</g, '&lt;');
	}

	function serializeChildren(node) {
		let out = '';
		const kids = node.childNodes;
		for (let i = 0; i < kids.length; i++) {
			const kid = kids[i];
			if (kid.nodeType === Node.ELEMENT_NODE) {
				out += serializeElement(kid);
			} else if (kid.nodeType === Node.TEXT_NODE) {
				out += escapeText(kid.data);
			}
		}
		return out;
	}

	function serializeElement(el) {
		const name = el.tagName.toLowerCase();
		if (name === 'script' || name === 'noscript') {
			return '';
		}
		let out = '<' + name;
		for (let i = 0; i < el.attributes.length; i++) {
			const a = el.attributes[i];
			out += ' ' + a.name + '="' + escapeAttr(a.value) + '"';
		}
		out += '>';
		if (VOID_TAGS[name]) {
			return out;
		}
		if (el.shadowRoot) {
			out += '<template shadowrootmode="open">' + serializeChildren(el.shadowRoot) + '</template>';
		}
		out += serializeChildren(el);
		out += '</' + name + '>';
		return out;
	}

	function collectStates(root, states) {
		const els = root.querySelectorAll('*');
		for (let i = 0; i < els.length; i++) {
			const el = els[i];
			const rid = el.getAttribute(ATTR);
			if (!rid) continue;
			const r = el.getBoundingClientRect();
			const st = {rect: {x: r.left, y: r.top, w: r.width, h: r.height}, value: '', checked: false};
			const name = el.tagName.toLowerCase();
			if (name === 'input' || name === 'textarea' || name === 'select') {
				st.value = String(el.value == null ? '' : el.value);
				st.checked = !!el.checked;
			}
			states[rid] = st;
			if (el.shadowRoot) {
				collectStates(el.shadowRoot, states);
			}
		}
	}

	function eventPath(e) {
		const path = [];
		const nodes = e.composedPath();
		for (let i = 0; i < nodes.length; i++) {
			if (nodes[i].nodeType === Node.ELEMENT_NODE) {
				path.push(tag(nodes[i]));
			}
		}
		return path;
	}

	function baseRecord(type, e) {
		const path = eventPath(e);
		return {
			type: type,
			rid: path.length > 0 ? path[0] : '',
			path: path,
			url: window.location.href,
			ts: Date.now()
		};
	}

	function controlValue(e) {
		const t = e.composedPath()[0];
		return t && t.value != null ? String(t.value) : '';
	}

	const recorder = {
		events: [],
		handlers: {},

		push: function(rec) {
			if (rec.rid) {
				this.events.push(rec);
			}
		},

		drain: function() {
			const out = this.events;
			this.events = [];
			return out;
		},

		snapshot: function() {
			tagTree(document.documentElement);
			const states = {};
			collectStates(document, states);
			return {
				url: window.location.href,
				ts: Date.now(),
				html: serializeElement(document.documentElement),
				states: states
			};
		},

		teardown: function() {
			for (const type in this.handlers) {
				document.removeEventListener(type, this.handlers[type], true);
			}
			this.handlers = {};
			this.events = [];
			const tagged = document.querySelectorAll('[' + ATTR + ']');
			for (let i = 0; i < tagged.length; i++) {
				tagged[i].removeAttribute(ATTR);
			}
			delete window.__uiRecorder;
		}
	};

	function listen(type, fn) {
		recorder.handlers[type] = fn;
		document.addEventListener(type, fn, true);
	}

	listen('click', function(e) {
		if (!e.isTrusted) return;
		const rec = baseRecord('click', e);
		rec.x = e.clientX;
		rec.y = e.clientY;
		recorder.push(rec);
	});

	listen('input', function(e) {
		if (!e.isTrusted) return;
		const t = e.composedPath()[0];
		if (!t || !t.tagName) return;
		const name = t.tagName.toLowerCase();
		if (name !== 'input' && name !== 'textarea') return;
		const rec = baseRecord('input', e);
		rec.value = controlValue(e);
		recorder.push(rec);
	});

	listen('change', function(e) {
		if (!e.isTrusted) return;
		const t = e.composedPath()[0];
		if (!t || !t.tagName) return;
		const rec = baseRecord('change', e);
		rec.value = controlValue(e);
		rec.checked = !!t.checked;
		recorder.push(rec);
	});

	listen('focusout', function(e) {
		if (!e.isTrusted) return;
		const t = e.composedPath()[0];
		if (!t || !t.tagName) return;
		const name = t.tagName.toLowerCase();
		if (name !== 'input' && name !== 'textarea') return;
		const rec = baseRecord('blur', e);
		rec.value = controlValue(e);
		recorder.push(rec);
	});

	listen('keydown', function(e) {
		if (!e.isTrusted) return;
		if (e.key !== 'Enter') return;
		const rec = baseRecord('keydown', e);
		rec.key = e.key;
		rec.value = controlValue(e);
		recorder.push(rec);
	});

	listen('submit', function(e) {
		if (!e.isTrusted) return;
		recorder.push(baseRecord('submit', e));
	});

	window.__uiRecorder = recorder;
	console.log('UI recorder capture script initialized');
})();
`
}
