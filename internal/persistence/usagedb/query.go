package usagedb

import (
	"context"
	"database/sql"
	"fmt"
)

// Total aggregates usage under one key (agent id or model id).
type Total struct {
	Key              string
	Prompts          int64
	PromptTokens     int64
	CompletionTokens int64
	Cost             float64
}

// TotalsByAgent sums usage per agent, most expensive first.
func (c *Collector) TotalsByAgent(ctx context.Context) ([]Total, error) {
	return c.totals(ctx, "agent_id")
}

// TotalsByModel sums usage per model, most expensive first.
func (c *Collector) TotalsByModel(ctx context.Context) ([]Total, error) {
	return c.totals(ctx, "model_id")
}

func (c *Collector) totals(ctx context.Context, column string) ([]Total, error) {
	q := fmt.Sprintf(`SELECT %[1]s, COUNT(*), SUM(prompt_tokens), SUM(completion_tokens), SUM(cost)
		FROM prompt_usages GROUP BY %[1]s ORDER BY SUM(cost) DESC, %[1]s ASC`, column)
	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Total
	for rows.Next() {
		var t Total
		if err := rows.Scan(&t.Key, &t.Prompts, &t.PromptTokens, &t.CompletionTokens, &t.Cost); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// OutcomeCounts counts recorded syncs per outcome.
func (c *Collector) OutcomeCounts(ctx context.Context) (map[string]int64, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM syncs GROUP BY outcome`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int64{}
	for rows.Next() {
		var (
			outcome string
			n       sql.NullInt64
		)
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		out[outcome] = n.Int64
	}
	return out, rows.Err()
}
