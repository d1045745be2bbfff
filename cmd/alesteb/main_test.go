package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alesteb/alesteb-api/internal/app"
	_ "github.com/alesteb/alesteb-api/testing"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	assert.True(t, app.InTestMode())
	assert.NotPanics(t, main)
}
