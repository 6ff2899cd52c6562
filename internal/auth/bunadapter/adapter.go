package bunadapter

import (
	"context"
	"fmt"

	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/persist"
	"github.com/uptrace/bun"
)

// Trimmed fork of github.com/msales/casbin-bun-adapter: schema-less table
// name so it runs on SQLite and the Postgres public schema, composite
// primary key instead of a surrogate ID, and only the columns our
// two-field model needs.

// Adapter stores Casbin policy lines in the casbin_rules table.
type Adapter struct {
	db *bun.DB
}

var _ persist.Adapter = (*Adapter)(nil)

// NewAdapter creates an adapter over an existing connection.
// Expects the casbin_rules table to exist (see migrations).
func NewAdapter(db *bun.DB) (*Adapter, error) {
	if db == nil {
		return nil, fmt.Errorf("bun adapter requires a database")
	}
	return &Adapter{db: db}, nil
}

// LoadPolicy loads all policy lines into the model.
func (a *Adapter) LoadPolicy(m model.Model) error {
	var rules []*CasbinRule
	if err := a.db.NewSelect().Model(&rules).Scan(context.Background()); err != nil {
		return fmt.Errorf("load policy from adapter db: %w", err)
	}

	for _, r := range rules {
		line := r.toPolicyLine()
		if len(line) < 2 {
			continue
		}
		if err := persist.LoadPolicyArray(line, m); err != nil {
			return fmt.Errorf("load policy line %v: %w", line, err)
		}
	}
	return nil
}

// SavePolicy replaces every stored line with the model's content.
func (a *Adapter) SavePolicy(m model.Model) error {
	var rules []*CasbinRule
	for _, sec := range []string{"p", "g"} {
		for ptype, assertion := range m[sec] {
			for _, rule := range assertion.Policy {
				rules = append(rules, newCasbinRule(ptype, rule))
			}
		}
	}

	return a.db.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*CasbinRule)(nil)).Where("1 = 1").Exec(ctx); err != nil {
			return fmt.Errorf("clear policy: %w", err)
		}
		for _, r := range rules {
			if _, err := tx.NewInsert().Model(r).On("CONFLICT DO NOTHING").Exec(ctx); err != nil {
				return fmt.Errorf("save policy line: %w", err)
			}
		}
		return nil
	})
}

// AddPolicy inserts a single rule. Duplicates are ignored.
func (a *Adapter) AddPolicy(_ string, ptype string, rule []string) error {
	_, err := a.db.NewInsert().
		Model(newCasbinRule(ptype, rule)).
		On("CONFLICT DO NOTHING").
		Exec(context.Background())
	if err != nil {
		return fmt.Errorf("add policy rule: %w", err)
	}
	return nil
}

// RemovePolicy deletes a single rule.
func (a *Adapter) RemovePolicy(_ string, ptype string, rule []string) error {
	r := newCasbinRule(ptype, rule)
	_, err := a.db.NewDelete().
		Model((*CasbinRule)(nil)).
		Where("ptype = ?", r.Ptype).
		Where("v0 = ?", r.V0).
		Where("v1 = ?", r.V1).
		Where("v2 = ?", r.V2).
		Exec(context.Background())
	if err != nil {
		return fmt.Errorf("remove policy rule: %w", err)
	}
	return nil
}

// RemoveFilteredPolicy deletes rules whose fields starting at fieldIndex
// match fieldValues. Empty values act as wildcards.
func (a *Adapter) RemoveFilteredPolicy(_ string, ptype string, fieldIndex int, fieldValues ...string) error {
	query := a.db.NewDelete().Model((*CasbinRule)(nil)).Where("ptype = ?", ptype)

	columns := []string{"v0", "v1", "v2"}
	for i, v := range fieldValues {
		col := fieldIndex + i
		if v == "" {
			continue
		}
		if col < 0 || col >= len(columns) {
			return fmt.Errorf("filter field %d out of range", col)
		}
		query = query.Where("? = ?", bun.Ident(columns[col]), v)
	}

	if _, err := query.Exec(context.Background()); err != nil {
		return fmt.Errorf("remove filtered policy: %w", err)
	}
	return nil
}

// CasbinRule is one policy line.
type CasbinRule struct {
	bun.BaseModel `bun:"table:casbin_rules,alias:cr"`

	Ptype string `bun:",pk,type:varchar(100),notnull"` // 'p' (grant) or 'g' (role membership)
	V0    string `bun:",pk,type:varchar(255)"`         // subject: role:<name> or user:<name>
	V1    string `bun:",pk,type:varchar(255)"`         // permission (p) or role subject (g)
	V2    string `bun:",pk,type:varchar(255)"`         // reserved
}

func newCasbinRule(ptype string, rule []string) *CasbinRule {
	line := &CasbinRule{Ptype: ptype}
	if len(rule) > 0 {
		line.V0 = rule[0]
	}
	if len(rule) > 1 {
		line.V1 = rule[1]
	}
	if len(rule) > 2 {
		line.V2 = rule[2]
	}
	return line
}

// toPolicyLine returns ptype followed by the values up to the last
// non-empty one.
func (r *CasbinRule) toPolicyLine() []string {
	values := []string{r.V0, r.V1, r.V2}
	last := -1
	for i := len(values) - 1; i >= 0; i-- {
		if values[i] != "" {
			last = i
			break
		}
	}
	line := make([]string, 0, last+2)
	line = append(line, r.Ptype)
	return append(line, values[:last+1]...)
}
