package dashboard

import (
	"strconv"

	"po-outstanding-dashboard/internal/models"
)

// DetailFileName is the download name of the detail table
const DetailFileName = "butiran_pesanan_tempatan"

// ColumnRowNumber heads the running number column
const ColumnRowNumber = "No."

// DetailColumns are the detail table headers in display order
var DetailColumns = []string{
	ColumnRowNumber,
	models.ColumnPONumber,
	models.ColumnVendorName,
	models.ColumnPostingDate,
	models.ColumnPOBalance,
	models.ColumnDivision,
}

// DetailRow is one line of the detail table
type DetailRow struct {
	No          int     `json:"no"`
	PONumber    string  `json:"po_number"`
	VendorName  string  `json:"vendor_name"`
	PostingDate string  `json:"posting_date"`
	Balance     string  `json:"balance"`
	Division    string  `json:"division"`
	Amount      float64 `json:"amount"`
}

// Cells returns the row in DetailColumns order
func (r DetailRow) Cells() []string {
	return []string{
		strconv.Itoa(r.No),
		r.PONumber,
		r.VendorName,
		r.PostingDate,
		r.Balance,
		r.Division,
	}
}

// DetailRows builds the detail table of a view with the default currency
// prefix. Every renderer uses these rows so the screen and the download show
// the same thing.
func DetailRows(view FilteredView) []DetailRow {
	return DetailRowsWithPrefix(view, DefaultCurrencyPrefix)
}

// DetailRowsWithPrefix builds the detail table with a custom currency prefix
func DetailRowsWithPrefix(view FilteredView, prefix string) []DetailRow {
	rows := make([]DetailRow, len(view.Records))
	for i := range view.Records {
		r := &view.Records[i]
		rows[i] = DetailRow{
			No:          i + 1,
			PONumber:    r.PONumber,
			VendorName:  r.VendorName,
			PostingDate: r.PostingDate,
			Balance:     FormatMoney(prefix, r.BalanceAmount),
			Division:    r.Division,
			Amount:      r.BalanceAmount,
		}
	}
	return rows
}
