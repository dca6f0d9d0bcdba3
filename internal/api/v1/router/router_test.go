package router

import (
	"testing"

	"courseforge/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestPrepareDSN(t *testing.T) {
	cases := []struct {
		env, dsn, want string
	}{
		{"development", "postgres://u:p@localhost:5432/db", "postgres://u:p@localhost:5432/db?sslmode=disable"},
		{"development", "postgres://u:p@localhost:5432/db?sslmode=require", "postgres://u:p@localhost:5432/db?sslmode=require"},
		{"development", "host=localhost port=5432", "host=localhost port=5432 sslmode=disable"},
		{"production", "postgres://u:p@db/app?sslmode=require", "postgres://u:p@db/app?sslmode=require&default_query_exec_mode=simple_protocol"},
		{"production", "host=db", "host=db default_query_exec_mode=simple_protocol"},
	}
	for _, tc := range cases {
		got := PrepareDSN(&config.Config{Environment: tc.env, DBConnectionString: tc.dsn})
		assert.Equal(t, tc.want, got, tc.dsn)
	}
}
