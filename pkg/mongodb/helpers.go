package mongodb

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// writeConflictCode is reported when two transactions touch the same document
const writeConflictCode = 112

// IsDuplicateKey reports whether err is a unique index violation
func IsDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

// IsWriteConflict reports whether err is a transaction write conflict
func IsWriteConflict(err error) bool {
	var se mongo.ServerError
	if errors.As(err, &se) {
		return se.HasErrorCode(writeConflictCode) || se.HasErrorLabel("TransientTransactionError")
	}
	return false
}

// IsNotFound reports whether err means no document matched
func IsNotFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
