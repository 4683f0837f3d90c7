package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailTransport_AddressFor(t *testing.T) {
	transport := NewEmailTransport(EmailConfig{RecipientDomain: "example.com"})

	assert.Equal(t, "alice@example.com", transport.addressFor("alice"))
	assert.Equal(t, "bob@corp.io", transport.addressFor("bob@corp.io"))
}

func TestEmailTransport_Unconfigured(t *testing.T) {
	transport := NewEmailTransport(EmailConfig{})
	assert.False(t, transport.IsConfigured())

	err := transport.Send(context.Background(), "alice", "s", "b")
	require.Error(t, err)
}
