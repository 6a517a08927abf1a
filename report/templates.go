package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/vendorbridge/vendorbridge/internal/billing"
	"github.com/vendorbridge/vendorbridge/internal/purchasing"
	"github.com/vendorbridge/vendorbridge/internal/vendors"
)

var printer = message.NewPrinter(language.English)

var funcMap = template.FuncMap{
	"formatDate": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("January 2, 2006")
	},
	"money": func(v float64) string {
		return printer.Sprintf("%.2f", v)
	},
	"formatQty": func(qty float64) string {
		s := fmt.Sprintf("%.4f", qty)
		s = strings.TrimRight(s, "0")
		s = strings.TrimRight(s, ".")
		return s
	},
	"title": func(s string) string {
		return strings.ReplaceAll(s, "_", " ")
	},
	"now": func() string {
		return time.Now().Format("January 2, 2006 at 3:04 PM")
	},
	"deref64": func(v *int64) int64 {
		if v == nil {
			return 0
		}
		return *v
	},
}

const billTemplateSrc = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Bill.BillNumber}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; font-size: 12px; color: #222; }
h1 { font-size: 20px; margin-bottom: 2px; }
table { width: 100%; border-collapse: collapse; margin-top: 16px; }
th, td { border: 1px solid #ccc; padding: 6px 8px; text-align: left; }
th { background: #f2f2f2; }
td.num, th.num { text-align: right; }
.meta { color: #555; margin: 2px 0; }
.total { font-weight: bold; }
.footer { margin-top: 24px; font-size: 10px; color: #888; }
</style>
</head>
<body>
<h1>Bill {{.Bill.BillNumber}}</h1>
<p class="meta">Vendor: {{.VendorName}}</p>
<p class="meta">Status: {{title (printf "%s" .Bill.Status)}} / {{title (printf "%s" .Bill.PaymentStatus)}}</p>
<p class="meta">Issued: {{formatDate .Bill.IssueDate}} &middot; Due: {{formatDate .Bill.DueDate}}</p>
{{if .Bill.PurchaseOrderID}}<p class="meta">Purchase order ref: #{{deref64 .Bill.PurchaseOrderID}}</p>{{end}}
<table>
<tr><th>Description</th><th class="num">Qty</th><th class="num">Unit price</th><th class="num">Amount</th></tr>
{{range .Bill.Items}}
<tr><td>{{.Description}}</td><td class="num">{{formatQty .Quantity}}</td><td class="num">{{money .UnitPrice}}</td><td class="num">{{money (lineTotal .)}}</td></tr>
{{end}}
<tr><td colspan="3" class="total">Total</td><td class="num total">{{money .Bill.TotalAmount}}</td></tr>
</table>
<p class="footer">Generated {{now}}</p>
</body>
</html>`

const poTemplateSrc = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Order.OrderNumber}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; font-size: 12px; color: #222; }
h1 { font-size: 20px; margin-bottom: 2px; }
table { width: 100%; border-collapse: collapse; margin-top: 16px; }
th, td { border: 1px solid #ccc; padding: 6px 8px; text-align: left; }
th { background: #f2f2f2; }
td.num, th.num { text-align: right; }
.meta { color: #555; margin: 2px 0; }
.total { font-weight: bold; }
.footer { margin-top: 24px; font-size: 10px; color: #888; }
</style>
</head>
<body>
<h1>Purchase Order {{.Order.OrderNumber}}</h1>
<p class="meta">Vendor: {{.VendorName}}</p>
<p class="meta">Status: {{title (printf "%s" .Order.Status)}}</p>
<p class="meta">Issued: {{formatDate .Order.IssueDate}} &middot; Delivery: {{formatDate .Order.DeliveryDate}}</p>
<table>
<tr><th>Description</th><th class="num">Qty</th><th class="num">Unit price</th><th class="num">Amount</th></tr>
{{range .Order.Items}}
<tr><td>{{.Description}}</td><td class="num">{{formatQty .Quantity}}</td><td class="num">{{money .UnitPrice}}</td><td class="num">{{money (poLineTotal .)}}</td></tr>
{{end}}
<tr><td colspan="3" class="total">Total</td><td class="num total">{{money .Order.TotalAmount}}</td></tr>
</table>
<p class="footer">Generated {{now}}</p>
</body>
</html>`

var (
	billTemplate = template.Must(template.New("bill").Funcs(funcMap).Funcs(template.FuncMap{
		"lineTotal": func(it billing.Item) float64 { return it.Quantity * it.UnitPrice },
	}).Parse(billTemplateSrc))
	poTemplate = template.Must(template.New("po").Funcs(funcMap).Funcs(template.FuncMap{
		"poLineTotal": func(it purchasing.Item) float64 { return it.Quantity * it.UnitPrice },
	}).Parse(poTemplateSrc))
)

// BillHTML renders the printable document for a bill. The vendor may be the
// zero value when the record is gone; the document still renders.
func BillHTML(bill billing.Bill, vendor vendors.Vendor) string {
	var buf bytes.Buffer
	data := struct {
		Bill       billing.Bill
		VendorName string
	}{Bill: bill, VendorName: vendorName(vendor)}
	if err := billTemplate.Execute(&buf, data); err != nil {
		return fmt.Sprintf("<html><body><h1>Bill %s</h1></body></html>", template.HTMLEscapeString(bill.BillNumber))
	}
	return buf.String()
}

// PurchaseOrderHTML renders the printable document for a purchase order.
func PurchaseOrderHTML(po purchasing.PurchaseOrder, vendor vendors.Vendor) string {
	var buf bytes.Buffer
	data := struct {
		Order      purchasing.PurchaseOrder
		VendorName string
	}{Order: po, VendorName: vendorName(vendor)}
	if err := poTemplate.Execute(&buf, data); err != nil {
		return fmt.Sprintf("<html><body><h1>Purchase Order %s</h1></body></html>", template.HTMLEscapeString(po.OrderNumber))
	}
	return buf.String()
}

func vendorName(v vendors.Vendor) string {
	if v.Name == "" {
		return fmt.Sprintf("Vendor #%d", v.ID)
	}
	return v.Name
}
