package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun_SinBaseDeDatosTerminaConUno(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://postgres@127.0.0.1:1/rental_core?sslmode=disable&connect_timeout=1")

	assert.Equal(t, 1, run())
}
