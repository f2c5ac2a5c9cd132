package info_test

import (
	"testing"

	"hybrix/pkg/info"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestInstanceID(t *testing.T) {
	_, err := uuid.Parse(info.InstanceID)
	assert.Nil(t, err)
}

func TestBanner(t *testing.T) {
	s := info.Banner("matcher")
	assert.Contains(t, s, "hybrix matcher started")
	assert.Contains(t, s, "version:"+info.Version)
	assert.Contains(t, s, info.InstanceID)
}
