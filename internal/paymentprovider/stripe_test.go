package paymentprovider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testSecret = "whsec_test"

func signed(t *testing.T, payload string) (string, []byte) {
	t.Helper()
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testSecret,
		Timestamp: time.Now(),
	})
	return sp.Header, sp.Payload
}

func TestParseEvent_CheckoutCompleted(t *testing.T) {
	c := NewClient(Config{WebhookSecret: testSecret})
	header, body := signed(t, `{
		"id": "evt_1",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_123",
			"object": "checkout.session",
			"payment_intent": "pi_456",
			"subscription": "sub_789",
			"metadata": {"kind": "plan", "user_id": "u1", "plan": "Basic"}
		}}
	}`)

	evt, err := c.ParseEvent(body, header)
	require.NoError(t, err)
	assert.Equal(t, EventCheckoutCompleted, evt.Type)
	assert.Equal(t, "cs_123", evt.SessionID)
	assert.Equal(t, "pi_456", evt.PaymentIntentID)
	assert.Equal(t, "sub_789", evt.SubscriptionID)
	assert.Equal(t, "Basic", evt.Metadata["plan"])
}

func TestParseEvent_SubscriptionDeleted(t *testing.T) {
	c := NewClient(Config{WebhookSecret: testSecret})
	header, body := signed(t, `{
		"id": "evt_2",
		"object": "event",
		"type": "customer.subscription.deleted",
		"data": {"object": {"id": "sub_789", "object": "subscription"}}
	}`)

	evt, err := c.ParseEvent(body, header)
	require.NoError(t, err)
	assert.Equal(t, EventSubscriptionDeleted, evt.Type)
	assert.Equal(t, "sub_789", evt.SubscriptionID)
}

func TestParseEvent_UnknownTypeIsPassedThrough(t *testing.T) {
	c := NewClient(Config{WebhookSecret: testSecret})
	header, body := signed(t, `{"id": "evt_3", "object": "event", "type": "invoice.paid", "data": {"object": {"id": "in_1"}}}`)

	evt, err := c.ParseEvent(body, header)
	require.NoError(t, err)
	assert.Equal(t, "invoice.paid", evt.Type)
	assert.Empty(t, evt.SessionID)
}

func TestParseEvent_BadSignature(t *testing.T) {
	c := NewClient(Config{WebhookSecret: testSecret})
	_, body := signed(t, `{"id": "evt_4", "object": "event", "type": "checkout.session.expired", "data": {"object": {}}}`)

	_, err := c.ParseEvent(body, "t=1,v1=deadbeef")
	require.Error(t, err)
}
