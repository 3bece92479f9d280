// Package assets bundles the default badge drawn in the corner circle.
package assets

import _ "embed"

// BadgePNG is the default badge image.
//
//go:embed badge.png
var BadgePNG []byte
