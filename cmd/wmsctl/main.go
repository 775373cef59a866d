// Command wmsctl imports, exports and templates warehouse master data from
// the command line, using the same pipeline as the HTTP server.
package main

import (
	"context"
	"os"

	_ "github.com/JonMunkholm/wms/internal/catalog"
)

func main() {
	os.Exit(execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
