package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

func TestResourceName(t *testing.T) {
	cases := []struct {
		name    string
		project string
		input   string
		want    string
	}{
		{name: "short id", project: "shop", input: "storefront-domain-events", want: "projects/shop/topics/storefront-domain-events"},
		{name: "trimmed", project: " shop ", input: " orders ", want: "projects/shop/topics/orders"},
		{name: "full name", project: "other", input: "projects/shop/topics/orders", want: "projects/shop/topics/orders"},
		{name: "empty", project: "shop", input: "  ", want: ""},
		{name: "no project", project: "", input: "orders", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, resourceName(tc.project, "topics", tc.input))
		})
	}
}

func TestSubscriptionResourceName(t *testing.T) {
	require.Equal(t, "projects/shop/subscriptions/storefront-order-alerts", resourceName("shop", "subscriptions", "storefront-order-alerts"))
	require.Equal(t, "projects/shop/subscriptions/x", resourceName("other", "subscriptions", "projects/shop/subscriptions/x"))
}

func TestNewClientValidatesConfig(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{DomainTopic: "t"}, nil)
	require.ErrorIs(t, err, errProjectIDRequired)

	_, err = NewClient(context.Background(), config.GCPConfig{ProjectID: "shop"}, config.PubSubConfig{}, nil)
	require.ErrorIs(t, err, errTopicRequired)
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	require.Nil(t, c.Publisher("orders"))
	require.Nil(t, c.Subscriber("order-alerts"))
	require.NoError(t, c.Close())
	require.Error(t, c.Ping(context.Background()))
}
