package gateway

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/portfolio/internal/common"
	"github.com/dmitrijs2005/portfolio/internal/server/blobstore"
	"github.com/dmitrijs2005/portfolio/internal/server/repositories/documents"
	"github.com/jackc/pgx/v5/pgconn"
)

// Kind classifies gateway failures for callers.
type Kind int

const (
	KindTransient Kind = iota
	KindNotFound
	KindUnauthorized
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindUnauthorized:
		return "not authorized"
	case KindInvalid:
		return "invalid request"
	default:
		return "transient"
	}
}

// Error is returned by every Gateway operation that fails.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func kindOf(err error) (Kind, bool) {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind, true
	}
	return 0, false
}

func IsNotFound(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindNotFound
}

func IsUnauthorized(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindUnauthorized
}

// Postgres SQLSTATEs that mean the credentials or role were refused.
var pgAuthCodes = map[string]bool{
	"42501": true, // insufficient_privilege
	"28000": true, // invalid_authorization_specification
	"28P01": true, // invalid_password
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := kindOf(err); ok {
		return err
	}

	kind := KindTransient
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, common.ErrorNotFound):
		kind = KindNotFound
	case errors.Is(err, documents.ErrInvalidOrder):
		kind = KindInvalid
	case errors.As(err, &pgErr) && pgAuthCodes[pgErr.Code]:
		kind = KindUnauthorized
	case blobstore.IsAccessDenied(err):
		kind = KindUnauthorized
	}
	return &Error{Kind: kind, Op: op, Err: err}
}
