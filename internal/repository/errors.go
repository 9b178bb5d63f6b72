package repository

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// DuplicateError identifica el campo unico que provoco el conflicto.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	if e.Field == "" {
		return ErrDuplicate.Error()
	}
	return fmt.Sprintf("%s already exists", e.Field)
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// fieldByColumn traduce nombres de columna/indice al nombre del campo expuesto en la API.
var fieldByColumn = map[string]string{
	"email":         "email",
	"mobile_number": "mobileNumber",
	"ceebrain_id":   "ceebrainId",
	"number":        "number",
}

func apiField(column string) string {
	if f, ok := fieldByColumn[column]; ok {
		return f
	}
	return column
}
