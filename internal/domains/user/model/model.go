package model

import (
	"unibook/shared/model"
)

const (
	TableName  = "users"
	EntityName = "user"

	FieldID       = "id"
	FieldFullName = "full_name"
	FieldEmail    = "email"
	FieldRole     = "role"
)

type User struct {
	ID       string `db:"id"`
	FullName string `db:"full_name"`
	Email    string `db:"email"`
	Role     string `db:"role"`
	model.Metadata
}
