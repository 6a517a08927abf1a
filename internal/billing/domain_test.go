package billing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vendorbridge/vendorbridge/internal/shared"
)

func TestParseStatusRejectsPaymentValues(t *testing.T) {
	// Payment states are not workflow states; the two vocabularies never
	// mix at the boundary.
	for _, value := range []string{"unpaid", "partially_paid", "paid", "refunded", "bogus"} {
		_, err := ParseStatus(value)
		require.ErrorIs(t, err, shared.ErrValidation, "value %q", value)
	}
	for _, value := range []string{"draft", "issued", "sent", "overdue", "cancelled", "completed"} {
		status, err := ParseStatus(value)
		require.NoError(t, err)
		require.Equal(t, Status(value), status)
	}
}

func TestParsePaymentStatus(t *testing.T) {
	for _, value := range []string{"unpaid", "partially_paid", "paid", "refunded"} {
		payment, err := ParsePaymentStatus(value)
		require.NoError(t, err)
		require.Equal(t, PaymentStatus(value), payment)
	}
	_, err := ParsePaymentStatus("issued")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestValidateItems(t *testing.T) {
	require.ErrorIs(t, ValidateItems(nil), shared.ErrValidation)
	require.ErrorIs(t, ValidateItems([]Item{{Description: "x", Quantity: 0, UnitPrice: 1}}), shared.ErrValidation)
	require.ErrorIs(t, ValidateItems([]Item{{Description: "x", Quantity: 1, UnitPrice: -1}}), shared.ErrValidation)
	require.NoError(t, ValidateItems([]Item{{Description: "x", Quantity: 1, UnitPrice: 0}}))
}

func TestItemsTotal(t *testing.T) {
	items := []Item{
		{Description: "a", Quantity: 2, UnitPrice: 10},
		{Description: "b", Quantity: 0.5, UnitPrice: 8},
	}
	require.InDelta(t, 24.0, ItemsTotal(items), 0.001)
}
