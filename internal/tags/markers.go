package tags

// Markers persisted in rendered documents so a later pass can find the
// elements and attributes it manages.
const (
	// CountMetaName names the <meta> whose content is the number of managed
	// elements immediately preceding it in <head>.
	CountMetaName = "head:count"
	// BodyMarkerAttr flags managed elements at the end of <body>.
	BodyMarkerAttr = "data-head-body"
	// AttrsMarkerAttr lists the attribute names written to <html>/<body>.
	AttrsMarkerAttr = "data-head-attrs"
)
