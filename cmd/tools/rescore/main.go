package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"

	"github.com/david/grant-hunter/internal/config"
	"github.com/david/grant-hunter/internal/db"
	"github.com/david/grant-hunter/internal/scoring"
)

// rescore re-derives total_score and decision from the stored component
// scores and reports rows whose persisted values drifted from the policy
// (typically rows written before server-side recompute, or advisory AI
// totals that slipped in). With -fix it rewrites the drifted rows.
func main() {
	fix := flag.Bool("fix", false, "write recomputed totals/decisions back")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	cfg := config.Load()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	rows, err := pool.Query(ctx, `
		SELECT id, strategic_fit_score, win_probability_score, resource_efficiency_score,
		       strategic_value_score, bonus_points, capacity_penalty, total_score, decision
		FROM opportunities_scored
		ORDER BY created_at`)
	if err != nil {
		log.Fatal(err)
	}
	defer rows.Close()

	type drift struct {
		id             uuid.UUID
		storedTotal    int
		wantTotal      int
		storedDecision string
		wantDecision   string
	}

	var total int
	var drifted []drift
	for rows.Next() {
		var id uuid.UUID
		var q scoring.Qualification
		var storedDecision string
		if err := rows.Scan(&id, &q.StrategicFitScore, &q.WinProbabilityScore,
			&q.ResourceEfficiencyScore, &q.StrategicValueScore, &q.BonusPoints,
			&q.CapacityPenalty, &q.TotalScore, &storedDecision); err != nil {
			log.Printf("scan error: %v", err)
			continue
		}
		total++

		wantTotal := q.Total()
		wantDecision := string(scoring.DecisionFor(wantTotal))
		if q.TotalScore != wantTotal || storedDecision != wantDecision {
			drifted = append(drifted, drift{
				id:             id,
				storedTotal:    q.TotalScore,
				wantTotal:      wantTotal,
				storedDecision: storedDecision,
				wantDecision:   wantDecision,
			})
		}
	}
	if err := rows.Err(); err != nil {
		log.Fatal(err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ID", "Stored Total", "Policy Total", "Stored Decision", "Policy Decision"})
	for _, d := range drifted {
		t.AppendRow(table.Row{d.id, d.storedTotal, d.wantTotal, d.storedDecision, d.wantDecision})
	}
	t.AppendFooter(table.Row{"", "", "", "checked", total})
	t.Render()

	if !*fix {
		if len(drifted) > 0 {
			log.Printf("%d drifted rows (run with -fix to repair)", len(drifted))
		}
		return
	}

	for _, d := range drifted {
		if _, err := pool.Exec(ctx, `
			UPDATE opportunities_scored
			SET total_score = $2, decision = $3, updated_at = NOW()
			WHERE id = $1`,
			d.id, d.wantTotal, d.wantDecision); err != nil {
			log.Printf("fix %s: %v", d.id, err)
			continue
		}
	}
	log.Printf("repaired %d of %d rows", len(drifted), total)
}
