package server

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/conneroisu/templhead/internal/sanitize"
	"github.com/conneroisu/templhead/pkg/head"
)

// DefaultPage renders a minimal document around out with the live update
// client attached.
func DefaultPage(out head.SSRHead, clientID string) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html")
	writeAttrs(&b, out.HTMLAttrs)
	b.WriteString(">\n<head>\n")
	b.WriteString(out.HeadTags)
	b.WriteString("\n</head>\n<body")
	writeAttrs(&b, out.BodyAttrs)
	b.WriteString(">\n<main id=\"templhead-preview\"></main>\n")
	b.WriteString(out.BodyTags)
	b.WriteString("\n<script>")
	b.WriteString(ClientScript(clientID))
	b.WriteString("</script>\n</body>\n</html>\n")
	return b.String()
}

func writeAttrs(b *strings.Builder, attrs string) {
	if attrs != "" {
		b.WriteByte(' ')
		b.WriteString(attrs)
	}
}

// appendClientScript adds the live update client to the end of body.
func appendClientScript(doc *html.Node, clientID string) {
	body := findElement(doc, atom.Body)
	if body == nil {
		return
	}
	script := &html.Node{Type: html.ElementNode, Data: "script", DataAtom: atom.Script}
	script.AppendChild(&html.Node{Type: html.TextNode, Data: ClientScript(clientID)})
	body.AppendChild(script)
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

// ClientScript returns the browser side of live updates. It swaps the managed
// head elements (those counted by the head:count marker), the flagged body
// elements and the managed html and body attributes.
func ClientScript(clientID string) string {
	return "(function(){var id=" + sanitize.QuoteJS(clientID) + ";" + clientScript + "})();"
}

const clientScript = `
function parse(markup){var t=document.createElement("template");t.innerHTML=markup;return Array.prototype.slice.call(t.content.childNodes);}
function managedHead(){
  var m=document.head.querySelector('meta[name="head:count"]');
  if(!m){return {marker:null,nodes:[]};}
  var n=parseInt(m.getAttribute("content"),10)||0,nodes=[],el=m.previousElementSibling;
  while(el&&nodes.length<n){nodes.push(el);el=el.previousElementSibling;}
  var t=document.head.querySelector("title");
  if(t&&nodes.indexOf(t)<0){nodes.push(t);}
  return {marker:m,nodes:nodes};
}
function applyAttrs(el,markup){
  var prev=el.getAttribute("data-head-attrs");
  if(prev){prev.split(",").forEach(function(a){el.removeAttribute(a);});}
  el.removeAttribute("data-head-attrs");
  if(!markup){return;}
  var probe=parse("<div "+markup+"></div>")[0];
  Array.prototype.forEach.call(probe.attributes,function(a){el.setAttribute(a.name,a.value);});
}
function apply(h){
  var cur=managedHead();
  cur.nodes.forEach(function(n){n.remove();});
  if(cur.marker){cur.marker.remove();}
  parse(h.headTags).forEach(function(n){document.head.appendChild(n);});
  document.querySelectorAll("[data-head-body]").forEach(function(n){n.remove();});
  parse(h.bodyTags).forEach(function(n){document.body.appendChild(n);});
  applyAttrs(document.documentElement,h.htmlAttrs);
  applyAttrs(document.body,h.bodyAttrs);
}
function connect(){
  var proto=location.protocol==="https:"?"wss:":"ws:";
  var ws=new WebSocket(proto+"//"+location.host+"/ws?client="+encodeURIComponent(id));
  ws.onmessage=function(e){
    var msg=JSON.parse(e.data);
    if(msg.type==="head"&&msg.head){apply(msg.head);}
    else if(msg.type==="error"){console.error("templhead:",msg.error);}
  };
  ws.onclose=function(){setTimeout(connect,1000);};
}
connect();
`
