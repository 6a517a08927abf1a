package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vendorbridge/vendorbridge/internal/billing"
	"github.com/vendorbridge/vendorbridge/internal/purchasing"
	"github.com/vendorbridge/vendorbridge/internal/vendors"
)

func TestBillHTMLRendersAmountsAndVendor(t *testing.T) {
	poID := int64(42)
	bill := billing.Bill{
		ID:              7,
		BillNumber:      "BILL-1700000000000-1",
		VendorID:        3,
		PurchaseOrderID: &poID,
		Items: []billing.Item{
			{Description: "Steel beams", Quantity: 2, UnitPrice: 1250.5},
		},
		TotalAmount:   2501,
		Status:        billing.StatusIssued,
		PaymentStatus: billing.PaymentUnpaid,
	}

	html := BillHTML(bill, vendors.Vendor{ID: 3, Name: "Acme Metals"})

	require.Contains(t, html, "BILL-1700000000000-1")
	require.Contains(t, html, "Acme Metals")
	require.Contains(t, html, "Steel beams")
	// Grouped thousands via the message printer.
	require.Contains(t, html, "2,501.00")
	require.Contains(t, html, "1,250.50")
	require.Contains(t, html, "#42")
}

func TestPurchaseOrderHTMLFallsBackToVendorID(t *testing.T) {
	po := purchasing.PurchaseOrder{
		ID:          9,
		OrderNumber: "PO-1700000000000-5",
		VendorID:    8,
		Items: []purchasing.Item{
			{Description: "Pallets", Quantity: 10, UnitPrice: 12},
		},
		TotalAmount: 120,
		Status:      purchasing.StatusApproved,
	}

	// Vendor record gone; the document still renders with a placeholder.
	html := PurchaseOrderHTML(po, vendors.Vendor{ID: 8})

	require.Contains(t, html, "PO-1700000000000-5")
	require.Contains(t, html, "Vendor #8")
	require.Contains(t, html, "120.00")
	require.False(t, strings.Contains(html, "billed"))
}
