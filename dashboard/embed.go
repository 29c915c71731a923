// Package dashboard provides the embedded web UI assets for SitePulse.
//
// The page subscribes to /api/sse and re-renders the full site list on
// every update event. The server replaces {{.Title}} in index.html with
// the configured dashboard title.
package dashboard

import "embed"

// Assets is an embedded filesystem containing the dashboard web UI.
//
// The filesystem structure is:
//
//	assets/
//	  index.html    - Dashboard page with inline CSS and JavaScript
//
//go:embed assets/*
var Assets embed.FS
