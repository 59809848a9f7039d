package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Diagnostics is the log-only view of a failure: the full wrap chain plus
// any Postgres detail found in it. Never send it to clients.
type Diagnostics struct {
	Code     Code
	Chain    []string
	Postgres map[string]string
}

func Diagnose(err error) Diagnostics {
	var d Diagnostics
	if err == nil {
		return d
	}
	if typed := As(err); typed != nil {
		d.Code = typed.Code()
	}
	for e := err; e != nil; e = stdErrors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	d.Postgres = postgresFields(err)
	return d
}

// Fields flattens d into log fields, skipping anything empty.
func (d Diagnostics) Fields() map[string]any {
	out := make(map[string]any, len(d.Postgres)+2)
	if d.Code != "" {
		out["error_code"] = d.Code
	}
	if len(d.Chain) > 1 {
		out["error_chain"] = d.Chain
	}
	for k, v := range d.Postgres {
		if v != "" {
			out["pg_"+k] = v
		}
	}
	return out
}

// postgresFields reads pgx errors (gorm pool) and lib/pq errors (goose
// migration connection).
func postgresFields(err error) map[string]string {
	var pgxErr *pgconn.PgError
	if stdErrors.As(err, &pgxErr) {
		return map[string]string{
			"code":       pgxErr.Code,
			"message":    pgxErr.Message,
			"detail":     pgxErr.Detail,
			"table":      pgxErr.TableName,
			"column":     pgxErr.ColumnName,
			"constraint": pgxErr.ConstraintName,
		}
	}
	var pqErr *pq.Error
	if stdErrors.As(err, &pqErr) {
		return map[string]string{
			"code":       string(pqErr.Code),
			"message":    pqErr.Message,
			"detail":     pqErr.Detail,
			"table":      pqErr.Table,
			"column":     pqErr.Column,
			"constraint": pqErr.Constraint,
		}
	}
	return nil
}
