package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// PGDiagnostics carries the server-side fields of a Postgres error.
type PGDiagnostics struct {
	Code       string `json:"pg_code,omitempty"`
	Constraint string `json:"pg_constraint,omitempty"`
	Table      string `json:"pg_table,omitempty"`
	Detail     string `json:"pg_detail,omitempty"`
	Message    string `json:"pg_message,omitempty"`
}

// ErrorDump is what request and job logs record for a failure.
type ErrorDump struct {
	TopMessage string         `json:"top_message"`
	Code       Code           `json:"code,omitempty"`
	Chain      []string       `json:"chain,omitempty"`
	PG         *PGDiagnostics `json:"pg,omitempty"`
}

// pgExtractors are tried in order; gorm's postgres driver surfaces pgconn
// errors while goose and raw database/sql paths may surface lib/pq ones.
var pgExtractors = []func(error) *PGDiagnostics{
	func(err error) *PGDiagnostics {
		var e *pgconn.PgError
		if !errors.As(err, &e) {
			return nil
		}
		return &PGDiagnostics{Code: e.Code, Constraint: e.ConstraintName, Table: e.TableName, Detail: e.Detail, Message: e.Message}
	},
	func(err error) *PGDiagnostics {
		var e *pq.Error
		if !errors.As(err, &e) {
			return nil
		}
		return &PGDiagnostics{Code: string(e.Code), Constraint: e.Constraint, Table: e.Table, Detail: e.Detail, Message: e.Message}
	},
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{TopMessage: err.Error(), Code: CodeOf(err)}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	for _, extract := range pgExtractors {
		if pg := extract(err); pg != nil {
			d.PG = pg
			break
		}
	}
	return d
}

// Fields flattens the dump for structured loggers. The chain and Postgres
// diagnostics are only included when verbose is set.
func (d ErrorDump) Fields(verbose bool) map[string]any {
	fields := map[string]any{
		"error":      d.TopMessage,
		"error_code": string(d.Code),
	}
	if !verbose {
		return fields
	}
	fields["error_chain"] = d.Chain
	if d.PG != nil {
		fields["pg_code"] = d.PG.Code
		fields["pg_constraint"] = d.PG.Constraint
		fields["pg_table"] = d.PG.Table
		fields["pg_detail"] = d.PG.Detail
		fields["pg_message"] = d.PG.Message
	}
	return fields
}
