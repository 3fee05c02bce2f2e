// Command ditchline-server serves the read-only runs API over an
// existing runs database.
package main

import (
	"flag"
	"log"
	"net/http"

	"github.com/banshee-data/ditchline/internal/api"
	"github.com/banshee-data/ditchline/internal/ditchdb"
)

func main() {
	var (
		dbPath        = flag.String("db", "ditchline.db", "path to sqlite runs database")
		migrationsDir = flag.String("migrations", "migrations", "path to runs database migrations")
		listen        = flag.String("listen", ":8080", "listen address")
	)
	flag.Parse()

	db, err := ditchdb.Open(*dbPath)
	if err != nil {
		log.Fatalf("open runs db: %v", err)
	}
	defer db.Close()
	if err := db.MigrateUp(*migrationsDir); err != nil {
		log.Fatalf("migrate runs db: %v", err)
	}

	server := api.NewServer(ditchdb.NewRunStore(db))
	handler := api.LoggingMiddleware(server.ServeMux())

	log.Printf("ditchline-server listening on %s (db %s)", *listen, *dbPath)
	if err := http.ListenAndServe(*listen, handler); err != nil {
		log.Fatalf("http server: %v", err)
	}
}
