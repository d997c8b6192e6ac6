package cdpdom

// bootstrap installs window.__mmx, the page-side element registry. Element
// handles are registry ids; ids carry a per-document generation so handles
// from a previous navigation never alias new elements.
const bootstrap = `(() => {
  if (window.__mmx) return true;
  const gen = Math.random().toString(36).slice(2, 10);
  const refs = new Map();
  const ids = new WeakMap();
  let next = 1;
  let mutations = 0;
  const signals = [];

  const idOf = (el) => {
    if (!el) return null;
    if (el === document) return "document";
    let id = ids.get(el);
    if (!id) {
      id = gen + ":" + next++;
      ids.set(el, id);
      refs.set(id, new WeakRef(el));
    }
    return id;
  };
  const get = (id) => {
    if (id === "document") return document;
    const ref = refs.get(id);
    const el = ref && ref.deref();
    if (!el) refs.delete(id);
    return el || null;
  };
  const compile = (sel) => {
    try {
      document.createDocumentFragment().querySelector(sel);
      return null;
    } catch (e) {
      return String(e && e.message || e);
    }
  };

  const start = () => {
    new MutationObserver(() => { mutations++; }).observe(document, {
      subtree: true, childList: true, attributes: true, characterData: true,
    });
    document.addEventListener("click", (e) => {
      const t = e.target && e.target.closest && e.target.closest("[data-mmx-action]");
      if (t) signals.push({ kind: "action", action: t.getAttribute("data-mmx-action") });
    }, true);
    document.addEventListener("keydown", (e) => {
      signals.push({ kind: "key", key: e.key, ctrl: e.ctrlKey, alt: e.altKey, shift: e.shiftKey });
    }, true);
  };
  if (document.documentElement) start();
  else document.addEventListener("DOMContentLoaded", start, { once: true });

  window.__mmx = {
    tag: (id) => { const el = get(id); return el ? (el === document ? "#document" : el.localName) : ""; },
    attr: (id, name) => {
      const el = get(id);
      if (!el || !el.hasAttribute || !el.hasAttribute(name)) return [ "", false ];
      return [ el.getAttribute(name), true ];
    },
    text: (id) => { const el = get(id); return el ? (el.textContent || "") : ""; },
    query: (id, sel) => {
      const el = get(id);
      const err = compile(sel);
      if (err) return { ids: [], error: err };
      if (!el) return { ids: [], error: "" };
      return { ids: Array.from(el.querySelectorAll(sel), idOf), error: "" };
    },
    matches: (id, sel) => {
      const el = get(id);
      const err = compile(sel);
      if (err) return { ok: false, error: err };
      return { ok: !!(el && el.matches && el.matches(sel)), error: "" };
    },
    parent: (id) => {
      const el = get(id);
      if (!el || el === document) return null;
      return idOf(el.parentElement || (el.parentNode === document ? document : null));
    },
    children: (id) => { const el = get(id); return el ? Array.from(el.children, idOf) : []; },
    connected: (id) => { const el = get(id); return !!(el && el.isConnected); },
    layout: (id) => {
      const el = get(id);
      if (!el || el === document || !el.getBoundingClientRect) return null;
      const r = el.getBoundingClientRect();
      const s = getComputedStyle(el);
      return { width: r.width, height: r.height, display: s.display, visibility: s.visibility, opacity: s.opacity };
    },
    dispatch: (id, ev) => {
      const el = get(id);
      if (!el) return false;
      const init = { bubbles: ev.bubbles, cancelable: true, view: window,
        key: ev.key || "", ctrlKey: ev.ctrl, altKey: ev.alt, shiftKey: ev.shift };
      let event;
      if (ev.type.startsWith("pointer")) event = new PointerEvent(ev.type, init);
      else if (ev.type.startsWith("key")) event = new KeyboardEvent(ev.type, init);
      else if (ev.type.startsWith("mouse") || ev.type === "click") event = new MouseEvent(ev.type, init);
      else event = new Event(ev.type, init);
      el.dispatchEvent(event);
      return true;
    },
    byId: (s) => idOf(document.getElementById(s)),
    append: (id, markup) => {
      const el = get(id);
      if (!el || el === document) return false;
      el.insertAdjacentHTML("beforeend", markup);
      return true;
    },
    poll: () => ({ mutations, signals: signals.splice(0) }),
  };
  return true;
})()`
