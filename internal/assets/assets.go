// Package assets provides embedded files for pushtray.
package assets

import _ "embed"

// OfflinePage is the fallback page served for HTML navigations when both the
// network and the offline cache miss.
//
//go:embed offline.html
var OfflinePage []byte
