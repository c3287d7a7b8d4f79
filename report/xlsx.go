package report

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/warp/voucher-ledger/money"
)

const (
	dateLayout   = "2006-01-02"
	amountFormat = 4 // #,##0.00
)

type sheetWriter struct {
	f      *excelize.File
	sheet  string
	row    int
	header int
	amount int
}

func newSheet(name string) (*sheetWriter, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", name); err != nil {
		f.Close()
		return nil, err
	}
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}
	amount, err := f.NewStyle(&excelize.Style{NumFmt: amountFormat})
	if err != nil {
		f.Close()
		return nil, err
	}
	return &sheetWriter{f: f, sheet: name, header: header, amount: amount}, nil
}

// next writes values on the next row, styling the given columns (1-based)
// as amounts.
func (w *sheetWriter) next(values []any, amountCols ...int) error {
	w.row++
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		return err
	}
	if err := w.f.SetSheetRow(w.sheet, cell, &values); err != nil {
		return err
	}
	for _, col := range amountCols {
		c, err := excelize.CoordinatesToCellName(col, w.row)
		if err != nil {
			return err
		}
		if err := w.f.SetCellStyle(w.sheet, c, c, w.amount); err != nil {
			return err
		}
	}
	return nil
}

func (w *sheetWriter) headerRow(values ...any) error {
	if err := w.next(values); err != nil {
		return err
	}
	first, _ := excelize.CoordinatesToCellName(1, w.row)
	last, _ := excelize.CoordinatesToCellName(len(values), w.row)
	return w.f.SetCellStyle(w.sheet, first, last, w.header)
}

func (w *sheetWriter) flush(out io.Writer) error {
	defer w.f.Close()
	if err := w.f.Write(out); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func amount(d decimal.Decimal) float64 {
	return money.Float(d)
}

// WriteStatementXLSX renders an account statement as a one-sheet workbook.
func WriteStatementXLSX(out io.Writer, st Statement) error {
	w, err := newSheet("Statement")
	if err != nil {
		return err
	}

	title := fmt.Sprintf("%s %s", st.Account.Code, st.Account.Name)
	if err := w.headerRow(title); err != nil {
		return err
	}
	if err := w.headerRow("Date", "Voucher", "Kind", "Narration", "Debit", "Credit", "Balance"); err != nil {
		return err
	}
	if err := w.next([]any{"", "", "", "Opening balance", "", "", amount(st.Opening)}, 7); err != nil {
		return err
	}
	for _, r := range st.Rows {
		values := []any{
			r.Date.Format(dateLayout), r.VoucherNumber, r.VoucherKind, r.Narration,
			amount(r.Debit), amount(r.Credit), amount(r.Balance),
		}
		if err := w.next(values, 5, 6, 7); err != nil {
			return err
		}
	}
	totals := []any{"", "", "", "Total", amount(st.TotalDebit), amount(st.TotalCredit), amount(st.Closing)}
	if err := w.next(totals, 5, 6, 7); err != nil {
		return err
	}
	_ = w.f.SetColWidth(w.sheet, "D", "D", 40)
	return w.flush(out)
}

// WriteTrialBalanceXLSX renders a trial balance as a one-sheet workbook.
func WriteTrialBalanceXLSX(out io.Writer, tb TrialBalance) error {
	w, err := newSheet("Trial Balance")
	if err != nil {
		return err
	}

	if err := w.headerRow("Code", "Account", "Type", "Debit", "Credit"); err != nil {
		return err
	}
	for _, r := range tb.Rows {
		values := []any{r.Account.Code, r.Account.Name, string(r.Account.Type), amount(r.Debit), amount(r.Credit)}
		if err := w.next(values, 4, 5); err != nil {
			return err
		}
	}
	if err := w.next([]any{"", "Total", "", amount(tb.TotalDebit), amount(tb.TotalCredit)}, 4, 5); err != nil {
		return err
	}
	_ = w.f.SetColWidth(w.sheet, "B", "B", 32)
	return w.flush(out)
}
