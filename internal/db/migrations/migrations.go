// Package migrations embeds the dev backend's goose SQL migrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
