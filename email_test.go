package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewMailerDisabledWithoutSMTPHost(t *testing.T) {
	assert.Nil(t, NewMailer(&Config{}))
}

func TestNewMailerEnabledWithSMTPHost(t *testing.T) {
	cfg := &Config{SMTPHost: "smtp.example.com", SMTPPort: "587", SenderEmail: "noreply@example.com"}
	assert.NotNil(t, NewMailer(cfg))
}
