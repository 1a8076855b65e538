package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stripe/stripe-go/v84"
)

const sqliteUniquePrefix = "UNIQUE constraint failed: "

// ErrorDump is the log-only view of an error chain. None of it is ever sent
// to clients.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Chain      []string `json:"chain,omitempty"`

	DBCode       string `json:"db_code,omitempty"`
	DBConstraint string `json:"db_constraint,omitempty"`
	DBTable      string `json:"db_table,omitempty"`
	DBDetail     string `json:"db_detail,omitempty"`

	ProviderCode      string `json:"provider_code,omitempty"`
	ProviderRequestID string `json:"provider_request_id,omitempty"`
	ProviderStatus    int    `json:"provider_status,omitempty"`
}

// Dump walks err and pulls out database and payment provider diagnostics.
func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgxErr):
		d.DBCode = pgxErr.Code
		d.DBConstraint = pgxErr.ConstraintName
		d.DBTable = pgxErr.TableName
		d.DBDetail = pgxErr.Detail
	case errors.As(err, &pqErr):
		d.DBCode = string(pqErr.Code)
		d.DBConstraint = pqErr.Constraint
		d.DBTable = pqErr.Table
		d.DBDetail = pqErr.Detail
	default:
		// sqlite only reports constraints in the message text.
		if _, cols, ok := strings.Cut(err.Error(), sqliteUniquePrefix); ok {
			d.DBCode = "23505"
			d.DBConstraint = strings.TrimSpace(cols)
		}
	}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		d.ProviderCode = string(stripeErr.Code)
		if d.ProviderCode == "" {
			d.ProviderCode = string(stripeErr.Type)
		}
		d.ProviderRequestID = stripeErr.RequestID
		d.ProviderStatus = stripeErr.HTTPStatusCode
	}
	return d
}
