package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/stratigraphie"
	"github.com/meikuraledutech/stratigraphie/postgres"
	"github.com/meikuraledutech/stratigraphie/validator"
)

func relation(anterior, posterior string, contemporain bool) stratigraphie.Relation {
	return stratigraphie.Relation{
		ID:           uuid.NewString(),
		Live:         true,
		Contemporain: contemporain,
		AnteriorUS:   anterior,
		PosteriorUS:  posterior,
	}
}

func main() {
	ctx := context.Background()
	logger := log.NewWithOptions(os.Stderr, log.Options{Level: log.DebugLevel})

	v := validator.New(validator.WithLogger(logger))

	// ── Bulk load ─────────────────────────────────────────────────────
	nodes := []string{"US-1", "US-2", "US-3", "US-4", "F-10"}
	relations := []stratigraphie.Relation{
		relation("US-1", "US-2", false),
		relation("US-2", "US-3", false),
		relation("US-3", "US-4", true),
	}
	if err := v.InitGraph(nodes, relations); err != nil {
		logger.Fatal("init", "err", err)
	}
	fmt.Println("graph loaded")
	printJSON(v.Stats())

	// ── Validate without applying ─────────────────────────────────────
	back := relation("US-4", "US-1", false)
	fmt.Println("\nUS-4 before US-1?")
	printJSON(v.ValidateRelation(&back))

	same := relation("US-1", "US-3", true)
	fmt.Println("US-1 contemporaneous with US-3?")
	printJSON(v.ValidateRelation(&same))

	// ── A grouping endpoint ───────────────────────────────────────────
	grouped := stratigraphie.Relation{ID: uuid.NewString(), Live: true, AnteriorGroup: "F-10", PosteriorUS: "US-1"}
	fmt.Println("\nF-10 before US-1:")
	printJSON(v.ApplyRelation(&grouped))

	// ── Diff with rollback ────────────────────────────────────────────
	err := v.ApplyDiff(stratigraphie.Diff{
		Added: []stratigraphie.Relation{
			relation("US-4", "US-5", false),
			relation("US-5", "F-10", false),
		},
	})
	fmt.Printf("\ndiff rejected: %v\n", err)
	printJSON(v.Stats())

	// ── Persist the snapshot ──────────────────────────────────────────
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		fmt.Println("\nDATABASE_URL is not set, skipping persistence")
		return
	}
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		logger.Fatal("connect", "err", err)
	}
	defer pool.Close()

	var store stratigraphie.Store = postgres.New(pool)
	if err := store.CreateSchema(ctx); err != nil {
		logger.Fatal("schema", "err", err)
	}

	snap := v.Snapshot()
	if err := store.SaveSnapshot(ctx, "example-site", &snap); err != nil {
		logger.Fatal("save", "err", err)
	}
	loaded, err := store.LoadSnapshot(ctx, "example-site")
	if err != nil {
		logger.Fatal("load", "err", err)
	}

	cold := validator.New()
	if err := cold.InitGraph(loaded.Nodes, loaded.Relations); err != nil {
		logger.Fatal("cold start", "err", err)
	}
	fmt.Println("\nrebuilt from postgres:")
	printJSON(cold.Stats())

	if err := store.DeleteSnapshot(ctx, "example-site"); err != nil {
		logger.Fatal("delete", "err", err)
	}
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
